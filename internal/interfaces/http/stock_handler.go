package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// StockHandler maneja las peticiones HTTP del libro de stock (protegido).
type StockHandler struct {
	stock *ledger.Ledger
}

// NewStockHandler construye el handler.
func NewStockHandler(stock *ledger.Ledger) *StockHandler {
	return &StockHandler{stock: stock}
}

// Get godoc
// @Summary      Cantidad en mano de un ítem
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        class  path  string  true  "product | material"
// @Param        id     path  string  true  "ID del ítem"
// @Success      200  {object}  dto.StockQuantityResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/stock/{class}/{id} [get]
func (h *StockHandler) Get(c *fiber.Ctx) error {
	class, id := c.Params("class"), c.Params("id")
	if class != entity.ClassProduct && class != entity.ClassMaterial {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "class debe ser product o material"})
	}
	qty, err := h.stock.Get(c.Context(), class, id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.StockQuantityResponse{ItemID: id, Class: class, Quantity: qty})
}

// Movements godoc
// @Summary      Historial de movimientos de un ítem
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        class   path   string  true   "product | material"
// @Param        id      path   string  true   "ID del ítem"
// @Param        limit   query  int     false  "Límite"  default(50)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {array}  dto.MovementResponse
// @Router       /api/stock/{class}/{id}/movements [get]
func (h *StockHandler) Movements(c *fiber.Ctx) error {
	class, id := c.Params("class"), c.Params("id")
	if class != entity.ClassProduct && class != entity.ClassMaterial {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "class debe ser product o material"})
	}
	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)
	if limit > 200 {
		limit = 200
	}
	movs, err := h.stock.Movements(c.Context(), class, id, limit, offset)
	if err != nil {
		return fail(c, err)
	}
	out := make([]dto.MovementResponse, 0, len(movs))
	for _, m := range movs {
		out = append(out, dto.ToMovementResponse(m))
	}
	return c.JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual o recepción de compra
// @Tags         stock
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustStockRequest  true  "Delta firmado"
// @Success      200   {object}  dto.StockQuantityResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/stock/adjustments [post]
func (h *StockHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustStockRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.ItemID == "" || in.Delta.IsZero() {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "item_id y delta distinto de cero son requeridos"})
	}
	qty, err := h.stock.Adjust(c.Context(), GetUserID(c), ledger.Adjustment{
		ItemID: in.ItemID,
		Class:  in.Class,
		Type:   entity.MovementTypeAdjust,
		Delta:  in.Delta,
		Reason: in.Reason,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.StockQuantityResponse{ItemID: in.ItemID, Class: in.Class, Quantity: qty})
}
