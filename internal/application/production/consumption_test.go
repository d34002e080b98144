package production_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/bom"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/application/production"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/infrastructure/memory"
)

func dec(s string) decimal.Decimal {
	d, _ := decimal.NewFromString(s)
	return d
}

type fixture struct {
	store    *memory.Store
	stock    *ledger.Ledger
	resolver *bom.Resolver
	engine   *production.Engine
}

// newFixture producto silla con BOM de 2 kg de acero por unidad y 15 kg de
// acero en stock.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-silla", Name: "Silla", SKU: "SKU-S1", QuantityOnHand: dec("0"),
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Repos().Materials.Create(&entity.RawMaterial{
		ID: "mat-acero", Name: "Acero", QuantityOnHand: dec("15"), Unit: "kg",
		CreatedAt: now, UpdatedAt: now,
	}))

	stock := ledger.New(store.TxRunner(), store.Repos(), audit.NopEmitter{}, 2*time.Second)
	resolver := bom.NewResolver(store.Repos().BOMs, store.Repos().Items, store.Repos().Materials)
	_, err := resolver.SaveVersion(context.Background(), "prod-silla", []entity.BOMLine{
		{MaterialID: "mat-acero", QuantityPerUnit: dec("2"), Unit: "kg"},
	})
	require.NoError(t, err)

	engine := production.NewEngine(store.TxRunner(), stock, resolver, store.Repos().Production)
	return &fixture{store: store, stock: stock, resolver: resolver, engine: engine}
}

func TestCreateOrder_CongelaSnapshotDeBOM(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)
	require.Len(t, order.Items, 1)
	assert.Equal(t, 1, order.Items[0].BOMVersion)

	// Editar el BOM después de crear la orden no altera el consumo de la orden.
	_, err = f.resolver.SaveVersion(ctx, "prod-silla", []entity.BOMLine{
		{MaterialID: "mat-acero", QuantityPerUnit: dec("5"), Unit: "kg"},
	})
	require.NoError(t, err)

	got, err := f.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Items[0].BOMVersion)
	assert.True(t, got.Items[0].BOMSnapshot[0].QuantityPerUnit.Equal(dec("2")),
		"el snapshot debe conservar la versión vigente al crear la orden")
}

func TestCreateOrder_ProductoSinBOM(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()
	require.NoError(t, f.store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-sin-bom", Name: "x", SKU: "SKU-X", QuantityOnHand: dec("0"),
		CreatedAt: now, UpdatedAt: now,
	}))

	_, err := f.engine.CreateOrder(context.Background(), "OP-002", []production.OrderItemInput{
		{ProductID: "prod-sin-bom", PlannedQuantity: dec("1")},
	})
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)
}

// Con 15 kg de acero y 2 kg por silla, reportar 8 sillas exigiría 16 kg:
// el reporte completo se rechaza y no queda consumo parcial.
func TestReportOutput_InsuficienteSinConsumoParcial(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("8"), "op")
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	acero, err := f.stock.Get(ctx, entity.ClassMaterial, "mat-acero")
	require.NoError(t, err)
	assert.True(t, acero.Equal(dec("15")), "el acero no debe haberse tocado")
	silla, err := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	require.NoError(t, err)
	assert.True(t, silla.IsZero())

	got, err := f.engine.GetOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.True(t, got.Items[0].ProducedQuantity.IsZero())
}

func TestReportOutput_DebitaMateriasYAcreditaProducto(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	// 7 sillas consumen 14 kg de los 15 disponibles.
	got, err := f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("7"), "op")
	require.NoError(t, err)
	assert.Equal(t, entity.ProductionStatusInProgress, got.Status)
	assert.True(t, got.Items[0].ProducedQuantity.Equal(dec("7")))

	acero, _ := f.stock.Get(ctx, entity.ClassMaterial, "mat-acero")
	assert.True(t, acero.Equal(dec("1")))
	silla, _ := f.stock.Get(ctx, entity.ClassProduct, "prod-silla")
	assert.True(t, silla.Equal(dec("7")))

	movs, err := f.stock.Movements(ctx, entity.ClassMaterial, "mat-acero", 10, 0)
	require.NoError(t, err)
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementTypeConsumption, movs[0].Type)
	assert.True(t, movs[0].Delta.Equal(dec("-14")))
}

// El reporte es acumulado: reportar 7 y luego 9 consume solo el incremento.
func TestReportOutput_Acumulado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	// Stock extra para cubrir las 10 sillas completas.
	_, err := f.stock.Adjust(ctx, "compras", ledger.Adjustment{
		ItemID: "mat-acero", Class: entity.ClassMaterial,
		Type: entity.MovementTypePurchase, Delta: dec("10"), Reason: "purchase receipt",
	})
	require.NoError(t, err)

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("7"), "op")
	require.NoError(t, err)
	got, err := f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("10"), "op")
	require.NoError(t, err)

	assert.Equal(t, entity.ProductionStatusCompleted, got.Status,
		"al alcanzar lo planificado la orden se completa")
	acero, _ := f.stock.Get(ctx, entity.ClassMaterial, "mat-acero")
	assert.True(t, acero.Equal(dec("5")), "25 kg iniciales menos 10×2 kg")

	// Reportar de nuevo la misma cantidad acumulada es un no-op… pero la orden
	// ya está completa, así que se rechaza por estado.
	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("10"), "op")
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}

func TestReportOutput_Validaciones(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("11"), "op")
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "no puede exceder lo planificado")

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("-1"), "op")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-otro", dec("1"), "op")
	assert.ErrorIs(t, err, domain.ErrUnknownProduct)

	_, err = f.engine.ReportOutput(ctx, "po-nope", "prod-silla", dec("1"), "op")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// Reportar una cantidad acumulada menor a la registrada (retroceso) se rechaza.
func TestReportOutput_RetrocesoRechazado(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("5"), "op")
	require.NoError(t, err)
	_, err = f.engine.ReportOutput(ctx, order.ID, "prod-silla", dec("3"), "op")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// El reporte toma el lock de la orden además de los de ítems: dos reportes
// sobre la misma orden nunca corren en paralelo aunque sus materiales sean
// disjuntos, porque ambos reescriben la fila completa de la orden.
func TestReportOutput_SerializaPorOrden(t *testing.T) {
	store := memory.NewStore()
	now := time.Now().UTC()
	require.NoError(t, store.Repos().Items.Create(&entity.StockItem{
		ID: "prod-silla", Name: "Silla", SKU: "SKU-S1", QuantityOnHand: dec("0"),
		CreatedAt: now, UpdatedAt: now,
	}))
	require.NoError(t, store.Repos().Materials.Create(&entity.RawMaterial{
		ID: "mat-acero", Name: "Acero", QuantityOnHand: dec("15"), Unit: "kg",
		CreatedAt: now, UpdatedAt: now,
	}))
	stock := ledger.New(store.TxRunner(), store.Repos(), audit.NopEmitter{}, 50*time.Millisecond)
	resolver := bom.NewResolver(store.Repos().BOMs, store.Repos().Items, store.Repos().Materials)
	_, err := resolver.SaveVersion(context.Background(), "prod-silla", []entity.BOMLine{
		{MaterialID: "mat-acero", QuantityPerUnit: dec("2"), Unit: "kg"},
	})
	require.NoError(t, err)
	engine := production.NewEngine(store.TxRunner(), stock, resolver, store.Repos().Production)

	order, err := engine.CreateOrder(context.Background(), "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("5")},
	})
	require.NoError(t, err)

	held := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = stock.Locked([]string{ledger.ProductionLockKey(order.ID)}, func() error {
			close(held)
			<-release
			return nil
		})
	}()
	<-held

	_, err = engine.ReportOutput(context.Background(), order.ID, "prod-silla", dec("1"), "op")
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	close(release)

	// Sin el lock ajeno el mismo reporte procede.
	require.Eventually(t, func() bool {
		_, err := engine.ReportOutput(context.Background(), order.ID, "prod-silla", dec("1"), "op")
		return err == nil
	}, time.Second, 10*time.Millisecond)
}

func TestCancelOrder(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	order, err := f.engine.CreateOrder(ctx, "OP-001", []production.OrderItemInput{
		{ProductID: "prod-silla", PlannedQuantity: dec("10")},
	})
	require.NoError(t, err)

	got, err := f.engine.CancelOrder(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.ProductionStatusCancelled, got.Status)

	_, err = f.engine.CancelOrder(ctx, order.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidStateTransition)
}
