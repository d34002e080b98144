package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/internal/application/reconciliation"
)

// CheckHandler maneja las peticiones HTTP de conteos de inventario (protegido).
type CheckHandler struct {
	engine *reconciliation.Engine
}

// NewCheckHandler construye el handler.
func NewCheckHandler(engine *reconciliation.Engine) *CheckHandler {
	return &CheckHandler{engine: engine}
}

// Create godoc
// @Summary      Iniciar conteo de inventario (blind u open)
// @Tags         inventory-checks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateCheckRequest  true  "Modo de conteo"
// @Success      201   {object}  dto.CheckResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory-checks [post]
func (h *CheckHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateCheckRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	check, err := h.engine.Create(c.Context(), in.BlindMode, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToCheckResponse(check))
}

// GetActive godoc
// @Summary      Conteo activo (counting o review)
// @Tags         inventory-checks
// @Security     Bearer
// @Produce      json
// @Success      200  {object}  dto.CheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/active [get]
func (h *CheckHandler) GetActive(c *fiber.Ctx) error {
	check, err := h.engine.GetActive(c.Context())
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}

// GetByID godoc
// @Summary      Obtener conteo por ID
// @Tags         inventory-checks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CheckResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/{id} [get]
func (h *CheckHandler) GetByID(c *fiber.Ctx) error {
	check, err := h.engine.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}

// RecordCount godoc
// @Summary      Registrar cantidad contada de un ítem
// @Tags         inventory-checks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                  true  "ID del conteo"
// @Param        body  body  dto.RecordCountRequest  true  "Conteo físico"
// @Success      200   {object}  dto.CheckResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/{id}/counts [post]
func (h *CheckHandler) RecordCount(c *fiber.Ctx) error {
	var in dto.RecordCountRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.StockItemID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "stock_item_id es requerido"})
	}
	check, err := h.engine.RecordCount(c.Context(), c.Params("id"), in.StockItemID, in.ActualQuantity)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}

// EnterReview godoc
// @Summary      Cerrar el conteo y calcular diferencias
// @Tags         inventory-checks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CheckResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/{id}/review [post]
func (h *CheckHandler) EnterReview(c *fiber.Ctx) error {
	check, err := h.engine.EnterReview(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}

// Complete godoc
// @Summary      Aplicar los ajustes de reconciliación y cerrar la sesión
// @Tags         inventory-checks
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                    true  "ID del conteo"
// @Param        body  body  dto.CompleteCheckRequest  false "Notas"
// @Success      200   {object}  dto.CheckResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/{id}/complete [post]
func (h *CheckHandler) Complete(c *fiber.Ctx) error {
	var in dto.CompleteCheckRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&in); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
		}
	}
	check, err := h.engine.Complete(c.Context(), c.Params("id"), in.Notes, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}

// Cancel godoc
// @Summary      Cancelar el conteo sin tocar el stock
// @Tags         inventory-checks
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID del conteo"
// @Success      200  {object}  dto.CheckResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/inventory-checks/{id}/cancel [post]
func (h *CheckHandler) Cancel(c *fiber.Ctx) error {
	check, err := h.engine.Cancel(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToCheckResponse(check))
}
