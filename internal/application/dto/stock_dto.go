package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// AdjustStockRequest body para POST /api/stock/adjustments.
// Delta firmado; reason libre ("purchase receipt" para recepciones de compra).
type AdjustStockRequest struct {
	ItemID string          `json:"item_id"`
	Class  string          `json:"class"` // product | material
	Delta  decimal.Decimal `json:"delta"`
	Reason string          `json:"reason"`
}

// StockQuantityResponse cantidad puntual de un ítem.
type StockQuantityResponse struct {
	ItemID   string          `json:"item_id"`
	Class    string          `json:"class"`
	Quantity decimal.Decimal `json:"quantity"`
}

// MovementResponse un registro del historial de movimientos.
type MovementResponse struct {
	ID          string          `json:"id"`
	ItemID      string          `json:"item_id"`
	Class       string          `json:"class"`
	Type        string          `json:"type"`
	Delta       decimal.Decimal `json:"delta"`
	NewQuantity decimal.Decimal `json:"new_quantity"`
	Reason      string          `json:"reason"`
	Actor       string          `json:"actor"`
	CreatedAt   time.Time       `json:"created_at"`
}

// ToMovementResponse mapea un movimiento del dominio.
func ToMovementResponse(m *entity.StockMovement) MovementResponse {
	return MovementResponse{
		ID:          m.ID,
		ItemID:      m.ItemID,
		Class:       m.Class,
		Type:        m.Type,
		Delta:       m.Delta,
		NewQuantity: m.NewQuantity,
		Reason:      m.Reason,
		Actor:       m.Actor,
		CreatedAt:   m.CreatedAt,
	}
}
