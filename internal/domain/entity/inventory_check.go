package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados del conteo de inventario: setup → counting → review → completed | cancelled.
const (
	CheckStatusSetup     = "setup"
	CheckStatusCounting  = "counting"
	CheckStatusReview    = "review"
	CheckStatusCompleted = "completed"
	CheckStatusCancelled = "cancelled"
)

// CheckActive indica si el conteo bloquea la creación de otro (counting o review).
func CheckActive(status string) bool {
	return status == CheckStatusCounting || status == CheckStatusReview
}

// InventoryCheckItem renglón de conteo. ExpectedQuantity se congela al crear
// la sesión; ActualQuantity solo se escribe durante counting; Difference se
// calcula al pasar a review.
type InventoryCheckItem struct {
	StockItemID      string
	ExpectedQuantity decimal.Decimal
	ActualQuantity   *decimal.Decimal
	Difference       *decimal.Decimal
}

// Counted indica si el renglón fue contado.
func (i *InventoryCheckItem) Counted() bool {
	return i.ActualQuantity != nil
}

// InventoryCheck sesión de conteo físico (blind u open).
// En modo blind la cantidad esperada se oculta en la capa de presentación
// durante counting; el dato almacenado es idéntico en ambos modos.
type InventoryCheck struct {
	ID          string
	BlindMode   bool
	Status      string
	Items       []InventoryCheckItem
	Notes       string
	CreatedBy   string
	CreatedAt   time.Time
	CompletedAt *time.Time
}

// Item devuelve el renglón del ítem de stock, o nil.
func (c *InventoryCheck) Item(stockItemID string) *InventoryCheckItem {
	for i := range c.Items {
		if c.Items[i].StockItemID == stockItemID {
			return &c.Items[i]
		}
	}
	return nil
}
