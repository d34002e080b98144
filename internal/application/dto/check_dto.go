package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// CreateCheckRequest body para POST /api/inventory-checks.
type CreateCheckRequest struct {
	BlindMode bool `json:"blind_mode"`
}

// RecordCountRequest body para POST /api/inventory-checks/:id/counts.
type RecordCountRequest struct {
	StockItemID    string          `json:"stock_item_id"`
	ActualQuantity decimal.Decimal `json:"actual_quantity"`
}

// CompleteCheckRequest body para POST /api/inventory-checks/:id/complete.
type CompleteCheckRequest struct {
	Notes string `json:"notes"`
}

// CheckItemResponse renglón de conteo. En modo blind y estado counting,
// Expected y Difference van en nil: la política es de presentación, el dato
// almacenado no cambia.
type CheckItemResponse struct {
	StockItemID string           `json:"stock_item_id"`
	Expected    *decimal.Decimal `json:"expected_quantity,omitempty"`
	Actual      *decimal.Decimal `json:"actual_quantity,omitempty"`
	Difference  *decimal.Decimal `json:"difference,omitempty"`
}

// CheckResponse sesión de conteo para la UI de bodega.
type CheckResponse struct {
	ID          string              `json:"id"`
	BlindMode   bool                `json:"blind_mode"`
	Status      string              `json:"status"`
	Items       []CheckItemResponse `json:"items"`
	Notes       string              `json:"notes,omitempty"`
	CreatedAt   time.Time           `json:"created_at"`
	CompletedAt *time.Time          `json:"completed_at,omitempty"`
}

// ToCheckResponse mapea la sesión aplicando la ocultación de modo blind.
func ToCheckResponse(c *entity.InventoryCheck) *CheckResponse {
	hideExpected := c.BlindMode && c.Status == entity.CheckStatusCounting
	resp := &CheckResponse{
		ID:          c.ID,
		BlindMode:   c.BlindMode,
		Status:      c.Status,
		Notes:       c.Notes,
		CreatedAt:   c.CreatedAt,
		CompletedAt: c.CompletedAt,
	}
	for i := range c.Items {
		item := &c.Items[i]
		ci := CheckItemResponse{StockItemID: item.StockItemID}
		if !hideExpected {
			q := item.ExpectedQuantity
			ci.Expected = &q
			if item.Difference != nil {
				d := *item.Difference
				ci.Difference = &d
			}
		}
		if item.ActualQuantity != nil {
			a := *item.ActualQuantity
			ci.Actual = &a
		}
		resp.Items = append(resp.Items, ci)
	}
	return resp
}
