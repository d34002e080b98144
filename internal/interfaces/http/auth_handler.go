package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/pkg/config"
	"github.com/grupoandino/stock-engine/pkg/jwt"
)

// AuthHandler emite tokens de desarrollo. Los usuarios reales y sus tokens
// viven en el módulo de usuarios del ERP, externo a este motor; esta ruta
// existe solo cuando AUTH_DEV_TOKENS=true.
type AuthHandler struct {
	cfg config.JWTConfig
}

// NewAuthHandler construye el handler.
func NewAuthHandler(cfg config.JWTConfig) *AuthHandler {
	return &AuthHandler{cfg: cfg}
}

// DevTokenRequest body para POST /api/auth/token.
type DevTokenRequest struct {
	UserID string `json:"user_id"`
	Role   string `json:"role"` // admin | supervisor | operario
}

// DevTokenResponse token emitido.
type DevTokenResponse struct {
	Token string `json:"token"`
}

// Token godoc
// @Summary      Emitir JWT de desarrollo
// @Tags         auth
// @Accept       json
// @Produce      json
// @Param        body  body  DevTokenRequest  true  "Usuario y rol"
// @Success      200   {object}  DevTokenResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/auth/token [post]
func (h *AuthHandler) Token(c *fiber.Ctx) error {
	var in DevTokenRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.UserID == "" || in.Role == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "user_id y role son requeridos"})
	}
	token, err := jwt.Generate(h.cfg.Secret, in.UserID, in.Role, h.cfg.Issuer, h.cfg.Expiration)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: err.Error()})
	}
	return c.JSON(DevTokenResponse{Token: token})
}
