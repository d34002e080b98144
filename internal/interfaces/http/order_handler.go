package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/internal/application/fulfillment"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// OrderHandler maneja las peticiones HTTP de órdenes de venta (protegido).
type OrderHandler struct {
	tracker *fulfillment.Tracker
}

// NewOrderHandler construye el handler.
func NewOrderHandler(tracker *fulfillment.Tracker) *OrderHandler {
	return &OrderHandler{tracker: tracker}
}

// Create godoc
// @Summary      Crear orden de venta
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateOrderRequest  true  "Orden con renglones"
// @Success      201   {object}  dto.OrderResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Router       /api/orders [post]
func (h *OrderHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	priority := entity.PriorityNormal
	if in.Priority != "" {
		p, ok := entity.ParsePriority(in.Priority)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "priority debe ser normal, high o urgent"})
		}
		priority = p
	}
	items := make([]fulfillment.OrderItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, fulfillment.OrderItemInput{
			ProductID:         it.ProductID,
			QuantityRequested: it.QuantityRequested,
		})
	}
	order, err := h.tracker.CreateOrder(c.Context(), in.Reference, priority, items, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToOrderResponse(order))
}

// GetByID godoc
// @Summary      Obtener orden por ID
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.OrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id} [get]
func (h *OrderHandler) GetByID(c *fiber.Ctx) error {
	order, err := h.tracker.Get(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToOrderResponse(order))
}

// AddItem godoc
// @Summary      Agregar renglón (solo antes del ensamble)
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                 true  "ID de la orden"
// @Param        body  body  dto.OrderItemRequest   true  "Renglón"
// @Success      200   {object}  dto.OrderResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items [post]
func (h *OrderHandler) AddItem(c *fiber.Ctx) error {
	var in dto.OrderItemRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	order, err := h.tracker.AddItem(c.Context(), c.Params("id"), fulfillment.OrderItemInput{
		ProductID:         in.ProductID,
		QuantityRequested: in.QuantityRequested,
	}, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToOrderResponse(order))
}

// RemoveItem godoc
// @Summary      Quitar renglón (solo antes del ensamble)
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID de la orden"
// @Param        itemId  path  string  true  "ID del renglón"
// @Success      200  {object}  dto.OrderResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items/{itemId} [delete]
func (h *OrderHandler) RemoveItem(c *fiber.Ctx) error {
	order, err := h.tracker.RemoveItem(c.Context(), c.Params("id"), c.Params("itemId"), GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToOrderResponse(order))
}

// Shortage godoc
// @Summary      Reporte de faltantes de la orden
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.ShortageResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/shortage [get]
func (h *OrderHandler) Shortage(c *fiber.Ctx) error {
	report, err := h.tracker.Shortage(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToShortageResponse(report))
}

// AssembleItem godoc
// @Summary      Ensamblar un renglón (debita el ledger)
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id      path  string  true  "ID de la orden"
// @Param        itemId  path  string  true  "ID del renglón"
// @Success      200  {object}  dto.OrderResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Failure      423  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/items/{itemId}/assemble [post]
func (h *OrderHandler) AssembleItem(c *fiber.Ctx) error {
	order, err := h.tracker.AssembleItem(c.Context(), c.Params("id"), c.Params("itemId"), GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToOrderResponse(order))
}

// Seize godoc
// @Summary      Reasignar stock reservado de órdenes de menor prioridad
// @Tags         orders
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden adquirente"
// @Success      200  {object}  dto.SeizureResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Failure      409  {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/seize [post]
func (h *OrderHandler) Seize(c *fiber.Ctx) error {
	result, err := h.tracker.Seize(c.Context(), c.Params("id"), GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToSeizureResponse(result))
}

// SetStatus godoc
// @Summary      Transicionar el estado de la orden
// @Tags         orders
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "ID de la orden"
// @Param        body  body  dto.SetOrderStatusRequest  true  "Estado destino"
// @Success      200   {object}  dto.OrderResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/orders/{id}/status [post]
func (h *OrderHandler) SetStatus(c *fiber.Ctx) error {
	var in dto.SetOrderStatusRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.Status == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "status es requerido"})
	}
	order, err := h.tracker.SetStatus(c.Context(), c.Params("id"), in.Status, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToOrderResponse(order))
}
