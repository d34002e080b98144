package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de movimiento del ledger.
const (
	MovementTypeAdjust         = "adjust"
	MovementTypeAssembly       = "order_assembly"
	MovementTypeProduction     = "production_output"
	MovementTypeConsumption    = "material_consumption"
	MovementTypePurchase       = "purchase_receipt"
	MovementTypeReconciliation = "inventory_reconciliation"
)

// StockMovement registro inmutable de historial de movimientos (append-only).
// Cada mutación confirmada del ledger genera exactamente uno por ítem.
type StockMovement struct {
	ID          string
	ItemID      string
	Class       string // product | material
	Type        string
	Delta       decimal.Decimal
	NewQuantity decimal.Decimal
	Reason      string
	Actor       string
	CreatedAt   time.Time
}
