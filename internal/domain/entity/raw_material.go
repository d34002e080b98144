package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// RawMaterial representa una materia prima consumida por producción
// y corregida por reconciliación de inventario.
type RawMaterial struct {
	ID             string
	Name           string
	QuantityOnHand decimal.Decimal
	Unit           string // kg, m, unidad, etc.
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
