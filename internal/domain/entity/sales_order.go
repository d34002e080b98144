package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Prioridad de una orden de venta. El orden numérico define quién puede
// reasignar stock de quién (solo prioridad estrictamente mayor sobre menor).
type OrderPriority int

const (
	PriorityNormal OrderPriority = iota
	PriorityHigh
	PriorityUrgent
)

// ParsePriority convierte el texto de la API a prioridad. ok=false si no es válida.
func ParsePriority(s string) (OrderPriority, bool) {
	switch s {
	case "normal":
		return PriorityNormal, true
	case "high":
		return PriorityHigh, true
	case "urgent":
		return PriorityUrgent, true
	}
	return PriorityNormal, false
}

func (p OrderPriority) String() string {
	switch p {
	case PriorityHigh:
		return "high"
	case PriorityUrgent:
		return "urgent"
	default:
		return "normal"
	}
}

// Estados de la orden de venta.
const (
	OrderStatusNew                = "new"
	OrderStatusAwaitingProduction = "awaiting_production"
	OrderStatusReadyToAssemble    = "ready_to_assemble"
	OrderStatusAssembling         = "assembling"
	OrderStatusAssembled          = "assembled"
	OrderStatusShipped            = "shipped"
	OrderStatusDelivered          = "delivered"
	OrderStatusCancelled          = "cancelled"
)

// orderTransitions transiciones válidas de la máquina de estados.
// Cancelled es alcanzable desde cualquier estado no terminal.
var orderTransitions = map[string][]string{
	OrderStatusNew:                {OrderStatusAwaitingProduction, OrderStatusReadyToAssemble, OrderStatusCancelled},
	OrderStatusAwaitingProduction: {OrderStatusReadyToAssemble, OrderStatusCancelled},
	OrderStatusReadyToAssemble:    {OrderStatusAssembling, OrderStatusAwaitingProduction, OrderStatusCancelled},
	OrderStatusAssembling:         {OrderStatusAssembled, OrderStatusAwaitingProduction, OrderStatusCancelled},
	OrderStatusAssembled:          {OrderStatusShipped, OrderStatusAwaitingProduction, OrderStatusCancelled},
	OrderStatusShipped:            {OrderStatusDelivered, OrderStatusCancelled},
	OrderStatusDelivered:          {},
	OrderStatusCancelled:          {},
}

// CanTransition valida una transición de estado de la orden.
// AwaitingProduction como destino desde Assembled/Assembling/ReadyToAssemble
// solo ocurre por democión durante una reasignación (seizure).
func CanTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderTerminal indica si el estado es terminal (no admite más transiciones).
func OrderTerminal(status string) bool {
	return status == OrderStatusDelivered || status == OrderStatusCancelled
}

// SalesOrderItem renglón de una orden de venta.
// QuantityAssembled son las unidades ya ensambladas, es decir, ya debitadas
// del ledger a nombre de esta orden. Solo la reasignación por prioridad puede
// reducirla; el ensamble solo la aumenta.
type SalesOrderItem struct {
	ID                string
	ProductID         string
	QuantityRequested decimal.Decimal
	QuantityAssembled decimal.Decimal
}

// Assembled indica si el renglón está completamente ensamblado.
func (i *SalesOrderItem) Assembled() bool {
	return i.QuantityAssembled.GreaterThanOrEqual(i.QuantityRequested)
}

// Pending unidades aún no ensambladas del renglón.
func (i *SalesOrderItem) Pending() decimal.Decimal {
	p := i.QuantityRequested.Sub(i.QuantityAssembled)
	if p.IsNegative() {
		return decimal.Zero
	}
	return p
}

// OrderHistoryEntry entrada de auditoría append-only de la orden.
type OrderHistoryEntry struct {
	Timestamp time.Time
	Actor     string
	Action    string
	Detail    string
}

// SalesOrder orden de venta con prioridad, renglones e historial de auditoría.
type SalesOrder struct {
	ID        string
	Reference string
	Priority  OrderPriority
	Status    string
	Items     []SalesOrderItem
	History   []OrderHistoryEntry
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Item devuelve el renglón por ID, o nil.
func (o *SalesOrder) Item(itemID string) *SalesOrderItem {
	for i := range o.Items {
		if o.Items[i].ID == itemID {
			return &o.Items[i]
		}
	}
	return nil
}

// FullyAssembled indica si todos los renglones están ensamblados.
func (o *SalesOrder) FullyAssembled() bool {
	for i := range o.Items {
		if !o.Items[i].Assembled() {
			return false
		}
	}
	return len(o.Items) > 0
}

// AppendHistory agrega una entrada de auditoría a la orden.
func (o *SalesOrder) AppendHistory(actor, action, detail string) {
	o.History = append(o.History, OrderHistoryEntry{
		Timestamp: time.Now().UTC(),
		Actor:     actor,
		Action:    action,
		Detail:    detail,
	})
}

// PreAssembly indica si la orden todavía admite agregar o quitar renglones.
func (o *SalesOrder) PreAssembly() bool {
	return o.Status == OrderStatusNew || o.Status == OrderStatusAwaitingProduction
}
