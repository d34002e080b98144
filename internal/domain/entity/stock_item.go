package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Clases de ítem del libro de stock. El ledger direcciona producto terminado
// y materia prima por la misma vía (clase + id).
const (
	ClassProduct  = "product"
	ClassMaterial = "material"
)

// StockItem representa un producto terminado vendible.
// QuantityOnHand nunca queda negativa tras una mutación confirmada.
type StockItem struct {
	ID                string
	Name              string
	SKU               string
	QuantityOnHand    decimal.Decimal
	LowStockThreshold decimal.Decimal
	Location          string
	UnitMeasure       string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// BelowThreshold indica si el producto está bajo su umbral de stock mínimo.
func (s *StockItem) BelowThreshold() bool {
	return s.QuantityOnHand.LessThan(s.LowStockThreshold)
}
