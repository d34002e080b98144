package fulfillment_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/fulfillment"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// seedDonor siembra una orden donante con un renglón de prod-mesa ya
// ensamblado (el débito del ledger ocurrió en su momento; aquí solo interesa
// el reclamo).
func seedDonor(t *testing.T, f *fixture, id string, priority entity.OrderPriority, createdAt time.Time, assembled string) {
	t.Helper()
	require.NoError(t, f.store.Repos().Orders.Create(&entity.SalesOrder{
		ID:       id,
		Priority: priority,
		Status:   entity.OrderStatusAssembled,
		Items: []entity.SalesOrderItem{{
			ID:                id + "-item",
			ProductID:         "prod-mesa",
			QuantityRequested: dec(assembled),
			QuantityAssembled: dec(assembled),
		}},
		CreatedAt: createdAt,
		UpdatedAt: createdAt,
	}))
}

func totalAssembled(t *testing.T, f *fixture, orderIDs ...string) decimal.Decimal {
	t.Helper()
	total := decimal.Zero
	for _, id := range orderIDs {
		o, err := f.store.Repos().Orders.GetByID(id)
		require.NoError(t, err)
		require.NotNil(t, o)
		for i := range o.Items {
			total = total.Add(o.Items[i].QuantityAssembled)
		}
	}
	return total
}

// Una orden urgente con faltante reclama lo ensamblado de una orden normal: la
// donante queda demovida a awaiting_production y el ledger no se toca.
func TestSeize_ReasignaDeOrdenMenosPrioritaria(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedDonor(t, f, "so-donante", entity.PriorityNormal, time.Now().UTC().Add(-time.Hour), "3")

	acquirer, err := f.tracker.CreateOrder(ctx, "SO-URG", entity.PriorityUrgent, []fulfillment.OrderItemInput{
		{ProductID: "prod-mesa", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)

	res, err := f.tracker.Seize(ctx, acquirer.ID, "ana")
	require.NoError(t, err)
	require.Len(t, res.Steps, 1)
	assert.Equal(t, "so-donante", res.Steps[0].DonorOrderID)
	assert.True(t, res.Steps[0].Quantity.Equal(dec("3")))
	assert.True(t, res.Remaining.IsZero())

	got, err := f.tracker.Get(ctx, acquirer.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAssembled, got.Status)
	assert.True(t, got.Items[0].QuantityAssembled.Equal(dec("3")))

	donor, err := f.tracker.Get(ctx, "so-donante")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAwaitingProduction, donor.Status)
	assert.True(t, donor.Items[0].QuantityAssembled.IsZero())

	// El total ensamblado entre órdenes se conserva exacto.
	assert.True(t, totalAssembled(t, f, acquirer.ID, "so-donante").Equal(dec("3")))

	// La reasignación nunca mueve stock en mano.
	onHand, err := f.stock.Get(ctx, entity.ClassProduct, "prod-mesa")
	require.NoError(t, err)
	assert.True(t, onHand.IsZero())
	movs, err := f.stock.Movements(ctx, entity.ClassProduct, "prod-mesa", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, movs, "la reasignación no registra movimientos de ledger")

	// Historial doble: la donante registra la pérdida y la adquirente la toma.
	assert.Equal(t, "stock_seized", donor.History[len(donor.History)-1].Action)
	var acquired bool
	for _, h := range got.History {
		if h.Action == "stock_acquired" {
			acquired = true
		}
	}
	assert.True(t, acquired)

	// Y queda el evento de auditoría.
	var seizureEvents int
	for _, ev := range f.rec.Events {
		if ev.Type == audit.EventOrderSeizure {
			seizureEvents++
		}
	}
	assert.Equal(t, 1, seizureEvents)
}

func TestSeize_SinFaltanteEsInvalido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Con 5 sillas en mano una orden de 2 no tiene faltante.
	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityUrgent, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("2")},
	}, "ana")
	require.NoError(t, err)

	_, err = f.tracker.Seize(ctx, order.ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// La igualdad de prioridad no habilita el reclamo: solo prioridad
// estrictamente mayor sobre menor.
func TestSeize_EmpateDePrioridadNoEsDonante(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedDonor(t, f, "so-donante", entity.PriorityNormal, time.Now().UTC().Add(-time.Hour), "3")

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-mesa", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)

	_, err = f.tracker.Seize(ctx, order.ID, "ana")
	assert.ErrorIs(t, err, domain.ErrSeizureNoDonors)
}

// Entre donantes de igual prioridad pierde primero la orden más antigua.
func TestSeize_DesempatePorAntiguedad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	now := time.Now().UTC()

	seedDonor(t, f, "so-vieja", entity.PriorityNormal, now.Add(-2*time.Hour), "2")
	seedDonor(t, f, "so-nueva", entity.PriorityNormal, now.Add(-time.Hour), "2")

	order, err := f.tracker.CreateOrder(ctx, "SO-URG", entity.PriorityUrgent, []fulfillment.OrderItemInput{
		{ProductID: "prod-mesa", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)

	res, err := f.tracker.Seize(ctx, order.ID, "ana")
	require.NoError(t, err)
	require.Len(t, res.Steps, 2)
	assert.Equal(t, "so-vieja", res.Steps[0].DonorOrderID)
	assert.True(t, res.Steps[0].Quantity.Equal(dec("2")))
	assert.Equal(t, "so-nueva", res.Steps[1].DonorOrderID)
	assert.True(t, res.Steps[1].Quantity.Equal(dec("1")))

	vieja, _ := f.tracker.Get(ctx, "so-vieja")
	nueva, _ := f.tracker.Get(ctx, "so-nueva")
	assert.True(t, vieja.Items[0].QuantityAssembled.IsZero())
	assert.True(t, nueva.Items[0].QuantityAssembled.Equal(dec("1")))

	assert.True(t, totalAssembled(t, f, order.ID, "so-vieja", "so-nueva").Equal(dec("4")))
}

// Si los donantes no alcanzan, se toma lo que haya y el resto queda reportado.
func TestSeize_FaltanteRestante(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	seedDonor(t, f, "so-donante", entity.PriorityNormal, time.Now().UTC().Add(-time.Hour), "2")

	order, err := f.tracker.CreateOrder(ctx, "SO-URG", entity.PriorityUrgent, []fulfillment.OrderItemInput{
		{ProductID: "prod-mesa", QuantityRequested: dec("5")},
	}, "ana")
	require.NoError(t, err)

	res, err := f.tracker.Seize(ctx, order.ID, "ana")
	require.NoError(t, err)
	assert.True(t, res.Remaining.Equal(dec("3")))

	got, err := f.tracker.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].QuantityAssembled.Equal(dec("2")))
	assert.NotEqual(t, entity.OrderStatusAssembled, got.Status,
		"con faltante restante la orden no puede quedar ensamblada")
}

func TestSeize_OrdenTerminalRechazada(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityUrgent, []fulfillment.OrderItemInput{
		{ProductID: "prod-mesa", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)
	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusCancelled, "ana")
	require.NoError(t, err)

	_, err = f.tracker.Seize(ctx, order.ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}
