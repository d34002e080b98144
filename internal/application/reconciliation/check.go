package reconciliation

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// Engine motor de reconciliación de inventario físico. Ciclo
// setup → counting → review → completed | cancelled, con un único conteo
// activo en todo el sistema.
type Engine struct {
	txRunner ledger.TxRunner
	stock    *ledger.Ledger
	checks   repository.InventoryCheckRepository
	items    repository.StockItemRepository
	emitter  audit.Emitter

	// Marca de conteo activo a nivel de proceso: Create hace compare-and-set
	// aquí antes de tocar el store; el recheck dentro de la tx cubre el caso
	// de un conteo activo persistido por un proceso anterior.
	mu       sync.Mutex
	activeID string
}

// NewEngine construye el motor de reconciliación.
func NewEngine(txRunner ledger.TxRunner, stock *ledger.Ledger, checks repository.InventoryCheckRepository, items repository.StockItemRepository, emitter audit.Emitter) *Engine {
	return &Engine{txRunner: txRunner, stock: stock, checks: checks, items: items, emitter: emitter}
}

// Create abre una sesión de conteo congelando la cantidad esperada de cada
// producto activo en este instante y pasa a counting. ErrActiveCheckExists si
// ya hay un conteo en counting o review.
func (e *Engine) Create(ctx context.Context, blindMode bool, actor string) (*entity.InventoryCheck, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeID != "" {
		return nil, domain.ErrActiveCheckExists
	}

	check := &entity.InventoryCheck{
		ID:        uuid.New().String(),
		BlindMode: blindMode,
		Status:    entity.CheckStatusSetup,
		CreatedBy: actor,
		CreatedAt: time.Now().UTC(),
	}
	err := e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
		if active, err := r.Checks.GetActive(); err != nil {
			return err
		} else if active != nil {
			return domain.ErrActiveCheckExists
		}
		items, err := r.Items.List()
		if err != nil {
			return err
		}
		for _, it := range items {
			check.Items = append(check.Items, entity.InventoryCheckItem{
				StockItemID:      it.ID,
				ExpectedQuantity: it.QuantityOnHand,
			})
		}
		check.Status = entity.CheckStatusCounting
		return r.Checks.Create(check)
	})
	if err != nil {
		return nil, err
	}
	e.activeID = check.ID
	return check, nil
}

// GetActive devuelve el conteo activo, o ErrNotFound si no hay.
func (e *Engine) GetActive(ctx context.Context) (*entity.InventoryCheck, error) {
	_ = ctx
	check, err := e.checks.GetActive()
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, domain.ErrNotFound
	}
	return check, nil
}

// Get devuelve un conteo por ID.
func (e *Engine) Get(ctx context.Context, checkID string) (*entity.InventoryCheck, error) {
	_ = ctx
	check, err := e.checks.GetByID(checkID)
	if err != nil {
		return nil, err
	}
	if check == nil {
		return nil, domain.ErrNotFound
	}
	return check, nil
}

// RecordCount registra (o corrige) la cantidad contada de un ítem. Solo en
// counting; la sobreescritura antes de review es válida.
func (e *Engine) RecordCount(ctx context.Context, checkID, stockItemID string, actual decimal.Decimal) (*entity.InventoryCheck, error) {
	if actual.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	var updated *entity.InventoryCheck
	err := e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
		check, err := r.Checks.GetByID(checkID)
		if err != nil {
			return err
		}
		if check == nil {
			return domain.ErrNotFound
		}
		if check.Status != entity.CheckStatusCounting {
			return domain.ErrInvalidStateTransition
		}
		item := check.Item(stockItemID)
		if item == nil {
			return domain.ErrNotFound
		}
		q := actual
		item.ActualQuantity = &q
		item.Difference = nil // se recalcula al entrar a review
		updated = check
		return r.Checks.Update(check)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// EnterReview pasa counting → review calculando difference = actual − expected
// para cada ítem contado; los no contados quedan con diferencia cero y no se
// ajustan. El cálculo es determinista e idempotente: reentrar a review sin
// conteos nuevos recalcula y devuelve el mismo conjunto de diferencias.
func (e *Engine) EnterReview(ctx context.Context, checkID string) (*entity.InventoryCheck, error) {
	var updated *entity.InventoryCheck
	err := e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
		check, err := r.Checks.GetByID(checkID)
		if err != nil {
			return err
		}
		if check == nil {
			return domain.ErrNotFound
		}
		if check.Status != entity.CheckStatusCounting && check.Status != entity.CheckStatusReview {
			return domain.ErrInvalidStateTransition
		}
		for i := range check.Items {
			item := &check.Items[i]
			if item.ActualQuantity == nil {
				d := decimal.Zero
				item.Difference = &d
				continue
			}
			d := item.ActualQuantity.Sub(item.ExpectedQuantity)
			item.Difference = &d
		}
		check.Status = entity.CheckStatusReview
		updated = check
		return r.Checks.Update(check)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Complete aplica las correcciones: un ajuste del ledger por cada ítem contado
// con diferencia no nula (razón "inventory reconciliation", fijando el valor
// absoluto contado) y pasa a completed. Todo-o-nada: si un ajuste falla, el
// conteo permanece en review y no se aplica corrección alguna.
func (e *Engine) Complete(ctx context.Context, checkID, notes, actor string) (*entity.InventoryCheck, error) {
	check, err := e.Get(ctx, checkID)
	if err != nil {
		return nil, err
	}
	if check.Status != entity.CheckStatusReview {
		return nil, domain.ErrInvalidStateTransition
	}

	var adjs []ledger.Adjustment
	var keys []string
	for i := range check.Items {
		item := &check.Items[i]
		if item.ActualQuantity == nil || item.Difference == nil || item.Difference.IsZero() {
			continue
		}
		abs := *item.ActualQuantity
		adjs = append(adjs, ledger.Adjustment{
			ItemID:   item.StockItemID,
			Class:    entity.ClassProduct,
			Type:     entity.MovementTypeReconciliation,
			Absolute: &abs,
			Reason:   "inventory reconciliation",
		})
		keys = append(keys, ledger.LockKey(entity.ClassProduct, item.StockItemID))
	}

	var movements []*entity.StockMovement
	var updated *entity.InventoryCheck
	err = e.stock.Locked(keys, func() error {
		return e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Checks.GetByID(checkID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != entity.CheckStatusReview {
				return domain.ErrInvalidStateTransition
			}
			if len(adjs) > 0 {
				movs, err := e.stock.Apply(r, actor, adjs)
				if err != nil {
					return err
				}
				movements = movs
			}
			now := time.Now().UTC()
			current.Status = entity.CheckStatusCompleted
			current.Notes = notes
			current.CompletedAt = &now
			updated = current
			return r.Checks.Update(current)
		})
	})
	if err != nil {
		return nil, err
	}

	e.stock.EmitMovements(movements)
	e.emitter.Emit(audit.Event{
		Type:    audit.EventCheckCompleted,
		Actor:   actor,
		CheckID: checkID,
		Detail:  notes,
		At:      time.Now().UTC(),
	})
	e.clearActive(checkID)
	return updated, nil
}

// Cancel descarta la sesión desde cualquier estado no terminal sin tocar el
// ledger.
func (e *Engine) Cancel(ctx context.Context, checkID string) (*entity.InventoryCheck, error) {
	var updated *entity.InventoryCheck
	err := e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
		check, err := r.Checks.GetByID(checkID)
		if err != nil {
			return err
		}
		if check == nil {
			return domain.ErrNotFound
		}
		if check.Status == entity.CheckStatusCompleted || check.Status == entity.CheckStatusCancelled {
			return domain.ErrInvalidStateTransition
		}
		check.Status = entity.CheckStatusCancelled
		updated = check
		return r.Checks.Update(check)
	})
	if err != nil {
		return nil, err
	}
	e.clearActive(checkID)
	return updated, nil
}

// RestoreActive recarga la marca de conteo activo desde el store (arranque).
func (e *Engine) RestoreActive() error {
	check, err := e.checks.GetActive()
	if err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if check != nil {
		e.activeID = check.ID
	}
	return nil
}

func (e *Engine) clearActive(checkID string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.activeID == checkID {
		e.activeID = ""
	}
}
