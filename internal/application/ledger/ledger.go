package ledger

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// Ledger libro de stock autoritativo para productos terminados y materias
// primas. Toda lectura/escritura de cantidades pasa por aquí: las mutaciones a
// un mismo ítem se serializan con un lock exclusivo por ID y las operaciones
// multi-ítem adquieren todos los locks en orden global (claves ordenadas) para
// evitar deadlocks entre operaciones concurrentes que comparten materiales.
type Ledger struct {
	tx          TxRunner
	reads       RepoSet
	emitter     audit.Emitter
	locks       *lockMap
	lockTimeout time.Duration
}

// New construye el ledger. reads son repositorios atados al pool (solo lectura);
// las escrituras siempre van por txRunner.
func New(txRunner TxRunner, reads RepoSet, emitter audit.Emitter, lockTimeout time.Duration) *Ledger {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Ledger{
		tx:          txRunner,
		reads:       reads,
		emitter:     emitter,
		locks:       newLockMap(),
		lockTimeout: lockTimeout,
	}
}

// Adjustment delta firmado sobre un ítem del ledger. Si Absolute no es nil la
// operación fija la cantidad en ese valor (exención de reconciliación: es la
// única vía por la que una corrección puede "saltarse" el chequeo de delta,
// nunca el de negatividad).
type Adjustment struct {
	ItemID   string
	Class    string // entity.ClassProduct | entity.ClassMaterial
	Type     string // tipo de movimiento (entity.MovementType*)
	Delta    decimal.Decimal
	Absolute *decimal.Decimal
	Reason   string
}

// LockKey clave de lock global de un ítem.
func LockKey(class, itemID string) string {
	return class + "/" + itemID
}

// OrderLockKey clave de lock de una orden de venta (usada por la reasignación).
func OrderLockKey(orderID string) string {
	return "order/" + orderID
}

// ProductionLockKey clave de lock de una orden de producción: serializa los
// reportes de salida que comparten la fila de la orden aunque toquen
// materiales disjuntos.
func ProductionLockKey(orderID string) string {
	return "production/" + orderID
}

// Locked adquiere los locks de keys en orden global, ejecuta fn y los libera.
// Espera acotada por el timeout configurado; al vencer devuelve ErrLockTimeout
// sin ejecutar fn. fn no debe hacer I/O no acotada con los locks tomados.
func (l *Ledger) Locked(keys []string, fn func() error) error {
	ks := dedupeSorted(keys)
	acquired := make([]string, 0, len(ks))
	for _, k := range ks {
		if !l.locks.acquire(k, l.lockTimeout) {
			for i := len(acquired) - 1; i >= 0; i-- {
				l.locks.release(acquired[i])
			}
			return domain.ErrLockTimeout
		}
		acquired = append(acquired, k)
	}
	defer func() {
		for i := len(acquired) - 1; i >= 0; i-- {
			l.locks.release(acquired[i])
		}
	}()
	return fn()
}

// Apply aplica los ajustes dentro de la transacción del llamador, que debe
// tener tomados los locks de todos los ítems (ver Locked). Valida que ninguna
// cantidad resulte negativa y persiste un movimiento por ajuste. Devuelve los
// movimientos generados para que el llamador los emita tras el commit.
func (l *Ledger) Apply(r RepoSet, actor string, adjs []Adjustment) ([]*entity.StockMovement, error) {
	movements := make([]*entity.StockMovement, 0, len(adjs))
	now := time.Now().UTC()
	for _, adj := range adjs {
		current, err := l.currentQuantity(r, adj.Class, adj.ItemID)
		if err != nil {
			return nil, err
		}
		delta := adj.Delta
		if adj.Absolute != nil {
			delta = adj.Absolute.Sub(current)
		}
		newQty := current.Add(delta)
		if newQty.IsNegative() {
			return nil, domain.ErrInsufficientStock
		}
		if err := l.updateQuantity(r, adj.Class, adj.ItemID, newQty); err != nil {
			return nil, err
		}
		movType := adj.Type
		if movType == "" {
			movType = entity.MovementTypeAdjust
		}
		mov := &entity.StockMovement{
			ID:          uuid.New().String(),
			ItemID:      adj.ItemID,
			Class:       adj.Class,
			Type:        movType,
			Delta:       delta,
			NewQuantity: newQty,
			Reason:      adj.Reason,
			Actor:       actor,
			CreatedAt:   now,
		}
		if err := r.Movements.Create(mov); err != nil {
			return nil, err
		}
		movements = append(movements, mov)
	}
	return movements, nil
}

// Adjust aplica un ajuste único de forma atómica y devuelve la cantidad
// resultante. Es la operación que usan compras (delta positivo, "purchase
// receipt") y los ajustes manuales.
func (l *Ledger) Adjust(ctx context.Context, actor string, adj Adjustment) (decimal.Decimal, error) {
	movs, err := l.AdjustBatch(ctx, actor, []Adjustment{adj})
	if err != nil {
		return decimal.Zero, err
	}
	return movs[0].NewQuantity, nil
}

// AdjustBatch aplica un conjunto de ajustes como una sola unidad: locks de
// todos los ítems en orden global, una transacción, y o se confirman todos los
// deltas o ninguno (los débitos multi-material de producción dependen de esto).
func (l *Ledger) AdjustBatch(ctx context.Context, actor string, adjs []Adjustment) ([]*entity.StockMovement, error) {
	if len(adjs) == 0 {
		return nil, domain.ErrInvalidInput
	}
	keys := make([]string, 0, len(adjs))
	for _, adj := range adjs {
		if adj.ItemID == "" || (adj.Class != entity.ClassProduct && adj.Class != entity.ClassMaterial) {
			return nil, domain.ErrInvalidInput
		}
		keys = append(keys, LockKey(adj.Class, adj.ItemID))
	}
	var movements []*entity.StockMovement
	err := l.Locked(keys, func() error {
		return l.tx.Run(ctx, func(r RepoSet) error {
			movs, err := l.Apply(r, actor, adjs)
			if err != nil {
				return err
			}
			movements = movs
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	l.EmitMovements(movements)
	return movements, nil
}

// Get lectura puntual de la cantidad en mano de un ítem. Sin efectos.
func (l *Ledger) Get(ctx context.Context, class, itemID string) (decimal.Decimal, error) {
	_ = ctx
	return l.currentQuantity(l.reads, class, itemID)
}

// Movements historial de movimientos de un ítem, más reciente primero.
func (l *Ledger) Movements(ctx context.Context, class, itemID string, limit, offset int) ([]*entity.StockMovement, error) {
	_ = ctx
	if limit <= 0 {
		limit = 50
	}
	return l.reads.Movements.ListByItem(class, itemID, limit, offset)
}

// EmitMovements emite un evento de auditoría por movimiento. Llamar después
// del commit, nunca dentro de la transacción.
func (l *Ledger) EmitMovements(movs []*entity.StockMovement) {
	for _, m := range movs {
		l.emitter.Emit(audit.Event{
			Type:         audit.EventStockMovement,
			Actor:        m.Actor,
			ItemID:       m.ItemID,
			Class:        m.Class,
			MovementType: m.Type,
			Delta:        m.Delta,
			NewQuantity:  m.NewQuantity,
			Reason:       m.Reason,
			At:           m.CreatedAt,
		})
	}
}

func (l *Ledger) currentQuantity(r RepoSet, class, itemID string) (decimal.Decimal, error) {
	switch class {
	case entity.ClassProduct:
		item, err := r.Items.GetByID(itemID)
		if err != nil {
			return decimal.Zero, err
		}
		if item == nil {
			return decimal.Zero, domain.ErrUnknownProduct
		}
		return item.QuantityOnHand, nil
	case entity.ClassMaterial:
		mat, err := r.Materials.GetByID(itemID)
		if err != nil {
			return decimal.Zero, err
		}
		if mat == nil {
			return decimal.Zero, domain.ErrUnknownMaterial
		}
		return mat.QuantityOnHand, nil
	}
	return decimal.Zero, domain.ErrInvalidInput
}

func (l *Ledger) updateQuantity(r RepoSet, class, itemID string, qty decimal.Decimal) error {
	if class == entity.ClassProduct {
		return r.Items.UpdateQuantity(itemID, qty)
	}
	return r.Materials.UpdateQuantity(itemID, qty)
}

// dedupeSorted ordena y deduplica las claves de lock (orden global fijo).
func dedupeSorted(keys []string) []string {
	ks := append([]string(nil), keys...)
	sort.Strings(ks)
	out := ks[:0]
	for i, k := range ks {
		if i == 0 || k != ks[i-1] {
			out = append(out, k)
		}
	}
	return out
}
