package events

import (
	"github.com/rs/zerolog"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/pkg/metrics"
)

// LogEmitter implementación del colaborador de auditoría: escribe un registro
// estructurado inmutable por evento y actualiza los contadores Prometheus.
// El log de auditoría externo consume estos registros; el motor no los persiste.
type LogEmitter struct {
	log zerolog.Logger
}

var _ audit.Emitter = (*LogEmitter)(nil)

// NewLogEmitter construye el emisor sobre el sublogger de auditoría
// (logger.Component en la composición).
func NewLogEmitter(log zerolog.Logger) *LogEmitter {
	return &LogEmitter{log: log}
}

// Emit publica el evento. Nunca bloquea al llamador.
func (e *LogEmitter) Emit(ev audit.Event) {
	rec := e.log.Info().
		Str("event", ev.Type).
		Str("actor", ev.Actor).
		Time("at", ev.At)

	switch ev.Type {
	case audit.EventStockMovement:
		rec = rec.
			Str("class", ev.Class).
			Str("item_id", ev.ItemID).
			Str("movement_type", ev.MovementType).
			Str("delta", ev.Delta.String()).
			Str("new_quantity", ev.NewQuantity.String()).
			Str("reason", ev.Reason)
		metrics.MovementsTotal.WithLabelValues(ev.Class, ev.MovementType).Inc()
	case audit.EventOrderSeizure:
		rec = rec.Str("order_id", ev.OrderID).Str("detail", ev.Detail)
		metrics.SeizuresTotal.Inc()
	case audit.EventCheckCompleted:
		rec = rec.Str("check_id", ev.CheckID).Str("detail", ev.Detail)
		metrics.ChecksCompletedTotal.Inc()
	}
	rec.Msg("evento de auditoría")
}
