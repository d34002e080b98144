package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Contadores del motor de stock, expuestos en GET /metrics.
var (
	MovementsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stock_movements_total",
		Help: "Movimientos confirmados del ledger por clase de ítem y tipo.",
	}, []string{"class", "type"})

	SeizuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "order_seizures_total",
		Help: "Reasignaciones de stock por prioridad confirmadas.",
	})

	ChecksCompletedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "inventory_checks_completed_total",
		Help: "Sesiones de conteo de inventario completadas.",
	})
)
