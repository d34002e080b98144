package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/fulfillment"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// OrderItemRequest renglón de una orden de venta.
type OrderItemRequest struct {
	ProductID         string          `json:"product_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
}

// CreateOrderRequest body para POST /api/orders.
type CreateOrderRequest struct {
	Reference string             `json:"reference"`
	Priority  string             `json:"priority"` // normal | high | urgent
	Items     []OrderItemRequest `json:"items"`
}

// SetOrderStatusRequest body para POST /api/orders/:id/status.
type SetOrderStatusRequest struct {
	Status string `json:"status"`
}

// OrderItemResponse renglón con su estado de ensamble.
type OrderItemResponse struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityAssembled decimal.Decimal `json:"quantity_assembled"`
	Assembled         bool            `json:"assembled"`
}

// OrderHistoryResponse entrada de auditoría.
type OrderHistoryResponse struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
}

// OrderResponse orden completa para la UI.
type OrderResponse struct {
	ID        string                 `json:"id"`
	Reference string                 `json:"reference,omitempty"`
	Priority  string                 `json:"priority"`
	Status    string                 `json:"status"`
	Items     []OrderItemResponse    `json:"items"`
	History   []OrderHistoryResponse `json:"history"`
	CreatedAt time.Time              `json:"created_at"`
}

// ToOrderResponse mapea una orden del dominio.
func ToOrderResponse(o *entity.SalesOrder) *OrderResponse {
	resp := &OrderResponse{
		ID:        o.ID,
		Reference: o.Reference,
		Priority:  o.Priority.String(),
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	for i := range o.Items {
		it := &o.Items[i]
		resp.Items = append(resp.Items, OrderItemResponse{
			ID:                it.ID,
			ProductID:         it.ProductID,
			QuantityRequested: it.QuantityRequested,
			QuantityAssembled: it.QuantityAssembled,
			Assembled:         it.Assembled(),
		})
	}
	for _, h := range o.History {
		resp.History = append(resp.History, OrderHistoryResponse{
			Timestamp: h.Timestamp,
			Actor:     h.Actor,
			Action:    h.Action,
			Detail:    h.Detail,
		})
	}
	return resp
}

// ItemShortageResponse faltante de un renglón.
type ItemShortageResponse struct {
	ItemID    string          `json:"item_id"`
	ProductID string          `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Assembled decimal.Decimal `json:"assembled"`
	OnHand    decimal.Decimal `json:"on_hand"`
	Shortage  decimal.Decimal `json:"shortage"`
}

// ShortageResponse reporte de faltantes de la orden.
type ShortageResponse struct {
	OrderID       string                 `json:"order_id"`
	Priority      string                 `json:"priority"`
	Status        string                 `json:"status"`
	Items         []ItemShortageResponse `json:"items"`
	TotalShortage decimal.Decimal        `json:"total_shortage"`
}

// ToShortageResponse mapea el reporte de faltantes.
func ToShortageResponse(r *fulfillment.ShortageReport) *ShortageResponse {
	resp := &ShortageResponse{
		OrderID:       r.OrderID,
		Priority:      r.Priority.String(),
		Status:        r.Status,
		TotalShortage: r.TotalShortage,
	}
	for _, it := range r.Items {
		resp.Items = append(resp.Items, ItemShortageResponse{
			ItemID:    it.ItemID,
			ProductID: it.ProductID,
			Requested: it.Requested,
			Assembled: it.Assembled,
			OnHand:    it.OnHand,
			Shortage:  it.Shortage,
		})
	}
	return resp
}

// SeizureStepResponse una reasignación aplicada.
type SeizureStepResponse struct {
	DonorOrderID string          `json:"donor_order_id"`
	ProductID    string          `json:"product_id"`
	Quantity     decimal.Decimal `json:"quantity"`
}

// SeizureResponse resultado de POST /api/orders/:id/seize.
type SeizureResponse struct {
	OrderID   string                `json:"order_id"`
	Steps     []SeizureStepResponse `json:"steps"`
	Remaining decimal.Decimal       `json:"remaining_shortage"`
}

// ToSeizureResponse mapea el resultado de la reasignación.
func ToSeizureResponse(r *fulfillment.SeizureResult) *SeizureResponse {
	resp := &SeizureResponse{OrderID: r.OrderID, Remaining: r.Remaining}
	for _, st := range r.Steps {
		resp.Steps = append(resp.Steps, SeizureStepResponse{
			DonorOrderID: st.DonorOrderID,
			ProductID:    st.ProductID,
			Quantity:     st.Quantity,
		})
	}
	return resp
}
