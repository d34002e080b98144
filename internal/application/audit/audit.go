package audit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Tipos de evento de auditoría emitidos por el motor.
const (
	EventStockMovement  = "stock_movement"
	EventOrderSeizure   = "order_seizure"
	EventCheckCompleted = "inventory_check_completed"
)

// Event registro inmutable para el colaborador externo de auditoría.
// El motor solo emite; la persistencia del log es responsabilidad del consumidor.
type Event struct {
	Type         string
	Actor        string
	ItemID       string
	Class        string
	MovementType string
	Delta        decimal.Decimal
	NewQuantity  decimal.Decimal
	Reason       string
	OrderID      string
	CheckID      string
	Detail       string
	At           time.Time
}

// Emitter puerto hacia el colaborador de auditoría. Emit no debe bloquear
// operaciones del ledger; implementaciones lentas deben encolar internamente.
type Emitter interface {
	Emit(ev Event)
}

// NopEmitter descarta eventos (útil en tests que no los verifican).
type NopEmitter struct{}

func (NopEmitter) Emit(Event) {}

// Recorder acumula eventos en memoria para aserciones en tests.
type Recorder struct {
	Events []Event
}

func (r *Recorder) Emit(ev Event) { r.Events = append(r.Events, ev) }
