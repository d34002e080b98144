package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/bom"
	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// BOMHandler maneja las peticiones HTTP de listas de materiales (protegido).
type BOMHandler struct {
	resolver *bom.Resolver
}

// NewBOMHandler construye el handler.
func NewBOMHandler(resolver *bom.Resolver) *BOMHandler {
	return &BOMHandler{resolver: resolver}
}

// GetLatest godoc
// @Summary      Versión vigente del BOM de un producto
// @Tags         boms
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {object}  dto.BOMResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/boms/{productId} [get]
func (h *BOMHandler) GetLatest(c *fiber.Ctx) error {
	b, err := h.resolver.Resolve(c.Context(), c.Params("productId"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToBOMResponse(b))
}

// Versions godoc
// @Summary      Todas las versiones del BOM de un producto
// @Tags         boms
// @Security     Bearer
// @Produce      json
// @Param        productId  path  string  true  "ID del producto"
// @Success      200  {array}  dto.BOMResponse
// @Router       /api/boms/{productId}/versions [get]
func (h *BOMHandler) Versions(c *fiber.Ctx) error {
	versions, err := h.resolver.Versions(c.Context(), c.Params("productId"))
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.BOMResponse, 0, len(versions))
	for _, v := range versions {
		out = append(out, dto.ToBOMResponse(v))
	}
	return c.JSON(out)
}

// Save godoc
// @Summary      Guardar una versión nueva del BOM (las anteriores quedan intactas)
// @Tags         boms
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        productId  path  string              true  "ID del producto"
// @Param        body       body  dto.SaveBOMRequest  true  "Líneas de consumo"
// @Success      201  {object}  dto.BOMResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/boms/{productId} [put]
func (h *BOMHandler) Save(c *fiber.Ctx) error {
	var in dto.SaveBOMRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	lines := make([]entity.BOMLine, 0, len(in.Lines))
	for _, ln := range in.Lines {
		lines = append(lines, entity.BOMLine{
			MaterialID:      ln.MaterialID,
			QuantityPerUnit: ln.QuantityPerUnit,
			Unit:            ln.Unit,
		})
	}
	b, err := h.resolver.SaveVersion(c.Context(), c.Params("productId"), lines)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToBOMResponse(b))
}
