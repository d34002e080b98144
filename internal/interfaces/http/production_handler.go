package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/grupoandino/stock-engine/internal/application/dto"
	"github.com/grupoandino/stock-engine/internal/application/mrp"
	"github.com/grupoandino/stock-engine/internal/application/production"
)

// ProductionHandler maneja las peticiones HTTP de producción y MRP (protegido).
type ProductionHandler struct {
	engine     *production.Engine
	aggregator *mrp.Aggregator
}

// NewProductionHandler construye el handler.
func NewProductionHandler(engine *production.Engine, aggregator *mrp.Aggregator) *ProductionHandler {
	return &ProductionHandler{engine: engine, aggregator: aggregator}
}

// Create godoc
// @Summary      Crear orden de producción (congela snapshot de BOM)
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.CreateProductionOrderRequest  true  "Orden con renglones"
// @Success      201   {object}  dto.ProductionOrderResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Router       /api/production-orders [post]
func (h *ProductionHandler) Create(c *fiber.Ctx) error {
	var in dto.CreateProductionOrderRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	items := make([]production.OrderItemInput, 0, len(in.Items))
	for _, it := range in.Items {
		items = append(items, production.OrderItemInput{
			ProductID:       it.ProductID,
			PlannedQuantity: it.PlannedQuantity,
		})
	}
	order, err := h.engine.CreateOrder(c.Context(), in.Reference, items)
	if err != nil {
		return fail(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(dto.ToProductionOrderResponse(order))
}

// GetByID godoc
// @Summary      Obtener orden de producción por ID
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.ProductionOrderResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/production-orders/{id} [get]
func (h *ProductionHandler) GetByID(c *fiber.Ctx) error {
	order, err := h.engine.GetOrder(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToProductionOrderResponse(order))
}

// List godoc
// @Summary      Listar órdenes de producción
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.ProductionOrderResponse
// @Router       /api/production-orders [get]
func (h *ProductionHandler) List(c *fiber.Ctx) error {
	orders, err := h.engine.ListOrders(c.Context())
	if err != nil {
		return fail(c, err)
	}
	out := make([]*dto.ProductionOrderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, dto.ToProductionOrderResponse(o))
	}
	return c.JSON(out)
}

// ReportOutput godoc
// @Summary      Reportar producción acumulada (consume materiales, acredita producto)
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                   true  "ID de la orden"
// @Param        body  body  dto.ReportOutputRequest  true  "Cantidad acumulada"
// @Success      200   {object}  dto.ProductionOrderResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      423   {object}  dto.ErrorResponse
// @Router       /api/production-orders/{id}/output [post]
func (h *ProductionHandler) ReportOutput(c *fiber.Ctx) error {
	var in dto.ReportOutputRequest
	if err := c.BodyParser(&in); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
	}
	if in.ProductID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "product_id es requerido"})
	}
	order, err := h.engine.ReportOutput(c.Context(), c.Params("id"), in.ProductID, in.ProducedQuantity, GetUserID(c))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToProductionOrderResponse(order))
}

// Cancel godoc
// @Summary      Cancelar orden de producción
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "ID de la orden"
// @Success      200  {object}  dto.ProductionOrderResponse
// @Failure      422  {object}  dto.ErrorResponse
// @Router       /api/production-orders/{id}/cancel [post]
func (h *ProductionHandler) Cancel(c *fiber.Ctx) error {
	order, err := h.engine.CancelOrder(c.Context(), c.Params("id"))
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToProductionOrderResponse(order))
}

// Requirements godoc
// @Summary      Demanda agregada de materias primas (MRP)
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        deficit_only  query  bool  false  "Solo materiales con déficit"
// @Success      200  {array}  dto.MaterialRequirementResponse
// @Router       /api/production/requirements [get]
func (h *ProductionHandler) Requirements(c *fiber.Ctx) error {
	var (
		reqs []mrp.MaterialRequirement
		err  error
	)
	if c.QueryBool("deficit_only", false) {
		reqs, err = h.aggregator.Deficits(c.Context())
	} else {
		reqs, err = h.aggregator.ComputeRequirements(c.Context())
	}
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(dto.ToRequirementResponses(reqs))
}
