package memory

import (
	"context"
	"sync"

	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// Store backing store en memoria para el motor de stock. Se usa en tests y en
// modo STORE_DRIVER=memory (demos y desarrollo sin PostgreSQL). Las lecturas
// toman RLock; dentro de una transacción el runner ya posee el lock exclusivo
// y los repos operan sin volver a bloquear.
type Store struct {
	mu         sync.RWMutex
	items      map[string]*entity.StockItem
	materials  map[string]*entity.RawMaterial
	movements  []*entity.StockMovement
	orders     map[string]*entity.SalesOrder
	production map[string]*entity.ProductionOrder
	boms       map[string][]*entity.BOM
	checks     map[string]*entity.InventoryCheck
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		items:      make(map[string]*entity.StockItem),
		materials:  make(map[string]*entity.RawMaterial),
		orders:     make(map[string]*entity.SalesOrder),
		production: make(map[string]*entity.ProductionOrder),
		boms:       make(map[string][]*entity.BOM),
		checks:     make(map[string]*entity.InventoryCheck),
	}
}

// Repos repositorios atados al store para lecturas fuera de transacción.
func (s *Store) Repos() ledger.RepoSet {
	return s.repoSet(false)
}

// TxRunner runner transaccional: lock exclusivo + snapshot con rollback.
func (s *Store) TxRunner() ledger.TxRunner {
	return &txRunner{s: s}
}

func (s *Store) repoSet(tx bool) ledger.RepoSet {
	return ledger.RepoSet{
		Items:      &stockItemRepo{s: s, tx: tx},
		Materials:  &rawMaterialRepo{s: s, tx: tx},
		Movements:  &movementRepo{s: s, tx: tx},
		Orders:     &salesOrderRepo{s: s, tx: tx},
		Production: &productionOrderRepo{s: s, tx: tx},
		BOMs:       &bomRepo{s: s, tx: tx},
		Checks:     &checkRepo{s: s, tx: tx},
	}
}

// txRunner implementa ledger.TxRunner con semántica todo-o-nada: toma una copia
// profunda del estado y la restaura si fn devuelve error.
type txRunner struct {
	s *Store
}

var _ ledger.TxRunner = (*txRunner)(nil)

func (t *txRunner) Run(ctx context.Context, fn func(r ledger.RepoSet) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	snap := t.s.snapshot()
	if err := fn(t.s.repoSet(true)); err != nil {
		t.s.restore(snap)
		return err
	}
	return nil
}

type storeSnapshot struct {
	items      map[string]*entity.StockItem
	materials  map[string]*entity.RawMaterial
	movements  []*entity.StockMovement
	orders     map[string]*entity.SalesOrder
	production map[string]*entity.ProductionOrder
	boms       map[string][]*entity.BOM
	checks     map[string]*entity.InventoryCheck
}

func (s *Store) snapshot() storeSnapshot {
	snap := storeSnapshot{
		items:      make(map[string]*entity.StockItem, len(s.items)),
		materials:  make(map[string]*entity.RawMaterial, len(s.materials)),
		movements:  append([]*entity.StockMovement(nil), s.movements...),
		orders:     make(map[string]*entity.SalesOrder, len(s.orders)),
		production: make(map[string]*entity.ProductionOrder, len(s.production)),
		boms:       make(map[string][]*entity.BOM, len(s.boms)),
		checks:     make(map[string]*entity.InventoryCheck, len(s.checks)),
	}
	for k, v := range s.items {
		snap.items[k] = cloneItem(v)
	}
	for k, v := range s.materials {
		snap.materials[k] = cloneMaterial(v)
	}
	for k, v := range s.orders {
		snap.orders[k] = cloneOrder(v)
	}
	for k, v := range s.production {
		snap.production[k] = cloneProduction(v)
	}
	for k, v := range s.boms {
		snap.boms[k] = append([]*entity.BOM(nil), v...)
	}
	for k, v := range s.checks {
		snap.checks[k] = cloneCheck(v)
	}
	return snap
}

func (s *Store) restore(snap storeSnapshot) {
	s.items = snap.items
	s.materials = snap.materials
	s.movements = snap.movements
	s.orders = snap.orders
	s.production = snap.production
	s.boms = snap.boms
	s.checks = snap.checks
}
