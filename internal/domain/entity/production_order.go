package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Estados de la orden de producción.
const (
	ProductionStatusPlanned    = "planned"
	ProductionStatusInProgress = "in_progress"
	ProductionStatusCompleted  = "completed"
	ProductionStatusCancelled  = "cancelled"
)

// ProductionActive indica si la orden cuenta para la agregación de demanda (MRP).
func ProductionActive(status string) bool {
	return status != ProductionStatusCompleted && status != ProductionStatusCancelled
}

// ProductionOrderItem renglón de producción con snapshot de BOM.
// BOMSnapshot se copia del resolver al crear la orden y no cambia más:
// ediciones posteriores del BOM no alteran el consumo de órdenes en curso.
type ProductionOrderItem struct {
	ID               string
	ProductID        string
	PlannedQuantity  decimal.Decimal
	ProducedQuantity decimal.Decimal
	BOMVersion       int
	BOMSnapshot      []BOMLine
}

// Remaining unidades pendientes de producir.
func (i *ProductionOrderItem) Remaining() decimal.Decimal {
	r := i.PlannedQuantity.Sub(i.ProducedQuantity)
	if r.IsNegative() {
		return decimal.Zero
	}
	return r
}

// ProductionOrder orden de producción.
type ProductionOrder struct {
	ID        string
	Reference string
	Status    string
	Items     []ProductionOrderItem
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ItemByProduct devuelve el renglón del producto, o nil.
func (o *ProductionOrder) ItemByProduct(productID string) *ProductionOrderItem {
	for i := range o.Items {
		if o.Items[i].ProductID == productID {
			return &o.Items[i]
		}
	}
	return nil
}

// Done indica si todos los renglones alcanzaron la cantidad planificada.
func (o *ProductionOrder) Done() bool {
	for i := range o.Items {
		if o.Items[i].ProducedQuantity.LessThan(o.Items[i].PlannedQuantity) {
			return false
		}
	}
	return len(o.Items) > 0
}
