package reconciliation_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/application/reconciliation"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/infrastructure/memory"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fixture struct {
	store  *memory.Store
	stock  *ledger.Ledger
	engine *reconciliation.Engine
	rec    *audit.Recorder
}

// newFixture dos productos: silla con 100 en mano y mesa con 40.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-silla", Name: "Silla", SKU: "SKU-S1", QuantityOnHand: dec("100"),
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-mesa", Name: "Mesa", SKU: "SKU-M1", QuantityOnHand: dec("40"),
		CreatedAt: now, UpdatedAt: now,
	}))
	rec := &audit.Recorder{}
	stock := ledger.New(store.TxRunner(), store.Repos(), rec, 2*time.Second)
	engine := reconciliation.NewEngine(store.TxRunner(), stock, store.Repos().Checks, store.Repos().Items, rec)
	return &fixture{store: store, stock: stock, engine: engine, rec: rec}
}

// Ciclo completo: contar 97 sillas contra 100 esperadas deja diferencia −3 y
// al completar el ledger queda en 97 con su movimiento de reconciliación.
func TestCicloCompleto_AplicaCorrecciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCounting, check.Status)
	require.Len(t, check.Items, 2)
	assert.True(t, check.Item("prod-silla").ExpectedQuantity.Equal(dec("100")),
		"la cantidad esperada se congela al crear la sesión")

	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("97"))
	require.NoError(t, err)
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-mesa", dec("40"))
	require.NoError(t, err)

	check, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusReview, check.Status)
	require.NotNil(t, check.Item("prod-silla").Difference)
	assert.True(t, check.Item("prod-silla").Difference.Equal(dec("-3")))
	assert.True(t, check.Item("prod-mesa").Difference.IsZero())

	check, err = f.engine.Complete(ctx, check.ID, "conteo trimestral", "ana")
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCompleted, check.Status)
	assert.NotNil(t, check.CompletedAt)

	qty, err := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("97")))

	// La mesa coincidió: sin ajuste ni movimiento.
	qty, err = f.stock.Get(ctx, entity.ClassProduct, "prod-mesa")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("40")))
	movs, err := f.stock.Movements(ctx, entity.ClassProduct, "prod-mesa", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, movs)

	movs, err = f.stock.Movements(ctx, entity.ClassProduct, "prod-silla", 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeReconciliation, movs[0].Type)
	assert.True(t, movs[0].Delta.Equal(dec("-3")))
	assert.Equal(t, "inventory reconciliation", movs[0].Reason)
}

func TestCreate_SoloUnConteoActivo(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)

	_, err = f.engine.Create(ctx, false, "ana")
	assert.ErrorIs(t, err, domain.ErrActiveCheckExists)

	// En review sigue contando como activo.
	_, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, false, "ana")
	assert.ErrorIs(t, err, domain.ErrActiveCheckExists)

	// Cancelar libera el cupo.
	_, err = f.engine.Cancel(ctx, check.ID)
	require.NoError(t, err)
	_, err = f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)
}

func TestRecordCount_SobreescribeYValida(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)

	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("-1"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.RecordCount(ctx, check.ID, "prod-nope", dec("1"))
	assert.ErrorIs(t, err, domain.ErrNotFound)

	// Un recuento corrige al anterior sin dejar rastro del primero.
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("90"))
	require.NoError(t, err)
	got, err := f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("95"))
	require.NoError(t, err)
	assert.True(t, got.Item("prod-silla").ActualQuantity.Equal(dec("95")))

	// Fuera de counting ya no se cuenta.
	_, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("96"))
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// Los ítems no contados quedan con diferencia cero y no generan ajuste.
func TestEnterReview_NoContadosSinAjuste(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("97"))
	require.NoError(t, err)

	check, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	mesa := check.Item("prod-mesa")
	assert.Nil(t, mesa.ActualQuantity)
	require.NotNil(t, mesa.Difference)
	assert.True(t, mesa.Difference.IsZero())

	_, err = f.engine.Complete(ctx, check.ID, "", "ana")
	require.NoError(t, err)
	qty, err := f.stock.Get(ctx, entity.ClassProduct, "prod-mesa")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("40")), "lo no contado no se ajusta")
}

// Reentrar a review sin conteos nuevos recalcula el mismo conjunto de
// diferencias: la revisión es idempotente, no una transición de una sola vía.
func TestEnterReview_Idempotente(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("97"))
	require.NoError(t, err)

	first, err := f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	second, err := f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusReview, second.Status)

	require.Len(t, second.Items, len(first.Items))
	for i := range first.Items {
		assert.Equal(t, first.Items[i].StockItemID, second.Items[i].StockItemID)
		require.NotNil(t, second.Items[i].Difference)
		assert.True(t, first.Items[i].Difference.Equal(*second.Items[i].Difference))
	}

	// La sesión completa con normalidad después de la doble revisión.
	_, err = f.engine.Complete(ctx, check.ID, "", "ana")
	require.NoError(t, err)
	qty, err := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("97")))
}

func TestComplete_SoloDesdeReview(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)

	_, err = f.engine.Complete(ctx, check.ID, "", "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)

	_, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)
	_, err = f.engine.Complete(ctx, check.ID, "", "ana")
	require.NoError(t, err)

	// Completar dos veces no reaplica ajustes.
	_, err = f.engine.Complete(ctx, check.ID, "", "ana")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestCancel_NoTocaElLedger(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)
	_, err = f.engine.RecordCount(ctx, check.ID, "prod-silla", dec("10"))
	require.NoError(t, err)
	_, err = f.engine.EnterReview(ctx, check.ID)
	require.NoError(t, err)

	got, err := f.engine.Cancel(ctx, check.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.CheckStatusCancelled, got.Status)

	qty, err := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	require.NoError(t, err)
	assert.True(t, qty.Equal(dec("100")), "cancelar descarta las diferencias sin aplicarlas")
	movs, err := f.stock.Movements(ctx, entity.ClassProduct, "prod-silla", 10, 0)
	require.NoError(t, err)
	assert.Empty(t, movs)

	_, err = f.engine.Cancel(ctx, check.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

// RestoreActive rearma la marca de conteo activo tras un reinicio del proceso.
func TestRestoreActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	check, err := f.engine.Create(ctx, false, "ana")
	require.NoError(t, err)

	// Un motor nuevo sobre el mismo store (mismo proceso reiniciado).
	fresh := reconciliation.NewEngine(f.store.TxRunner(), f.stock, f.store.Repos().Checks, f.store.Repos().Items, audit.NopEmitter{})
	require.NoError(t, fresh.RestoreActive())

	_, err = fresh.Create(ctx, false, "ana")
	assert.ErrorIs(t, err, domain.ErrActiveCheckExists)

	active, err := fresh.GetActive(ctx)
	require.NoError(t, err)
	assert.Equal(t, check.ID, active.ID)
}
