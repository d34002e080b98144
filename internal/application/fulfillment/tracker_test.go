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
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/infrastructure/memory"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fixture struct {
	store   *memory.Store
	stock   *ledger.Ledger
	tracker *fulfillment.Tracker
	rec     *audit.Recorder
}

// newFixture dos productos sembrados: silla (5 en mano) y mesa (0 en mano).
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-silla", Name: "Silla", SKU: "SKU-S1", QuantityOnHand: dec("5"),
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-mesa", Name: "Mesa", SKU: "SKU-M1", QuantityOnHand: dec("0"),
		CreatedAt: now, UpdatedAt: now,
	}))
	rec := &audit.Recorder{}
	stock := ledger.New(store.TxRunner(), store.Repos(), rec, 2*time.Second)
	tracker := fulfillment.NewTracker(store.TxRunner(), stock, store.Repos().Orders, rec)
	return &fixture{store: store, stock: stock, tracker: tracker, rec: rec}
}

func TestCreateOrder_ValidaProductoYCantidad(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, nil, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-nope", QuantityRequested: dec("1")},
	}, "ana")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)

	_, err = f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("0")},
	}, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityHigh, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusNew, order.Status)
	assert.NotEmpty(t, order.History, "la creación queda en el historial")
}

func TestShortage_CalculaFaltantePorRenglon(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("8")},
		{ProductID: "prod-mesa", QuantityRequested: dec("2")},
	}, "ana")
	require.NoError(t, err)

	report, err := f.tracker.Shortage(ctx, order.ID)
	require.NoError(t, err)
	require.Len(t, report.Items, 2)
	assert.True(t, report.Items[0].Shortage.Equal(dec("3")), "8 pedidas, 5 en mano")
	assert.True(t, report.Items[1].Shortage.Equal(dec("2")), "2 pedidas, 0 en mano")
	assert.True(t, report.TotalShortage.Equal(dec("5")))
}

func TestSetStatus_ReadyToAssembleExigeFaltanteCero(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("8")},
	}, "ana")
	require.NoError(t, err)

	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// Reponer stock: ahora sí.
	_, err = f.stock.Adjust(ctx, "compras", ledger.Adjustment{
		ItemID: "prod-silla", Class: entity.ClassProduct,
		Type: entity.MovementTypePurchase, Delta: dec("3"), Reason: "purchase receipt",
	})
	require.NoError(t, err)

	got, err := f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReadyToAssemble, got.Status)
}

func TestSetStatus_TransicionInvalida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("1")},
	}, "ana")
	require.NoError(t, err)

	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusShipped, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	// Assembled nunca se alcanza vía SetStatus sin renglones ensamblados.
	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusAssembled, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestAddRemoveItem_SoloPreEnsamble(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("2")},
	}, "ana")
	require.NoError(t, err)

	order, err = f.tracker.AddItem(ctx, order.ID, fulfillment.OrderItemInput{
		ProductID: "prod-silla", QuantityRequested: dec("1"),
	}, "ana")
	require.NoError(t, err)
	require.Len(t, order.Items, 2)

	order, err = f.tracker.RemoveItem(ctx, order.ID, order.Items[1].ID, "ana")
	require.NoError(t, err)
	require.Len(t, order.Items, 1)

	// Tras pasar a ready_to_assemble los renglones quedan congelados.
	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	require.NoError(t, err)
	_, err = f.tracker.AddItem(ctx, order.ID, fulfillment.OrderItemInput{
		ProductID: "prod-silla", QuantityRequested: dec("1"),
	}, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	_, err = f.tracker.RemoveItem(ctx, order.ID, order.Items[0].ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// El ensamble debita el ledger exactamente una vez por renglón y al completar
// el último renglón la orden pasa a assembled.
func TestAssembleItem_DebitaUnaVezYCompleta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("3")},
	}, "ana")
	require.NoError(t, err)
	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	require.NoError(t, err)

	got, err := f.tracker.AssembleItem(ctx, order.ID, order.Items[0].ID, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusAssembled, got.Status)
	assert.True(t, got.Items[0].Assembled())

	onHand, _ := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	assert.True(t, onHand.Equal(dec("2")), "5 en mano menos 3 ensambladas")

	movs, err := f.stock.Movements(ctx, entity.ClassProduct, "prod-silla", 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeAssembly, movs[0].Type)
	assert.True(t, movs[0].Delta.Equal(dec("-3")))

	// Reintentar el mismo renglón no duplica el débito.
	_, err = f.tracker.AssembleItem(ctx, order.ID, order.Items[0].ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
	onHand, _ = f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	assert.True(t, onHand.Equal(dec("2")))
}

func TestAssembleItem_RechazaSinStock(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("5")},
	}, "ana")
	require.NoError(t, err)
	_, err = f.tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	require.NoError(t, err)

	// Otro consumidor vacía el stock entre el ready y el ensamble.
	_, err = f.stock.Adjust(ctx, "otro", ledger.Adjustment{
		ItemID: "prod-silla", Class: entity.ClassProduct, Delta: dec("-4"), Reason: "ajuste",
	})
	require.NoError(t, err)

	_, err = f.tracker.AssembleItem(ctx, order.ID, order.Items[0].ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	// La orden no avanzó y nada quedó marcado como ensamblado.
	got, err := f.tracker.Get(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.OrderStatusReadyToAssemble, got.Status)
	assert.True(t, got.Items[0].QuantityAssembled.IsZero())
}

// Toda mutación de la fila de la orden serializa por el lock de la orden,
// también fuera del ensamble: un cambio de estado o de renglones no puede
// pisar un ensamble o una reasignación en vuelo.
func TestMutacionesDeOrden_SerializanPorLockDeOrden(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-silla", Name: "Silla", SKU: "SKU-S1", QuantityOnHand: dec("5"),
		CreatedAt: now, UpdatedAt: now,
	}))
	stock := ledger.New(store.TxRunner(), store.Repos(), audit.NopEmitter{}, 50*time.Millisecond)
	tracker := fulfillment.NewTracker(store.TxRunner(), stock, store.Repos().Orders, audit.NopEmitter{})
	ctx := context.Background()

	order, err := tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("2")},
	}, "ana")
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = stock.Locked([]string{ledger.OrderLockKey(order.ID)}, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err = tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	_, err = tracker.AddItem(ctx, order.ID, fulfillment.OrderItemInput{
		ProductID: "prod-silla", QuantityRequested: dec("1"),
	}, "ana")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	_, err = tracker.RemoveItem(ctx, order.ID, order.Items[0].ID, "ana")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	close(release)

	// Liberado el lock, la transición procede y queda registrada.
	require.Eventually(t, func() bool {
		got, err := tracker.SetStatus(ctx, order.ID, entity.OrderStatusReadyToAssemble, "ana")
		return err == nil && got.Status == entity.OrderStatusReadyToAssemble
	}, time.Second, 10*time.Millisecond)
}

func TestAssembleItem_EstadoInvalido(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.tracker.CreateOrder(ctx, "SO-1", entity.PriorityNormal, []fulfillment.OrderItemInput{
		{ProductID: "prod-silla", QuantityRequested: dec("1")},
	}, "ana")
	require.NoError(t, err)

	// En estado new no se ensambla.
	_, err = f.tracker.AssembleItem(ctx, order.ID, order.Items[0].ID, "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}
