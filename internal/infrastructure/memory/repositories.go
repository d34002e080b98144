package memory

import (
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// Verificación de interfaces.
var (
	_ repository.StockItemRepository       = (*stockItemRepo)(nil)
	_ repository.RawMaterialRepository     = (*rawMaterialRepo)(nil)
	_ repository.StockMovementRepository   = (*movementRepo)(nil)
	_ repository.SalesOrderRepository      = (*salesOrderRepo)(nil)
	_ repository.ProductionOrderRepository = (*productionOrderRepo)(nil)
	_ repository.BOMRepository             = (*bomRepo)(nil)
	_ repository.InventoryCheckRepository  = (*checkRepo)(nil)
)

// lockShared toma RLock salvo dentro de una tx (el runner ya posee el lock).
func lockShared(s *Store, tx bool) func() {
	if tx {
		return func() {}
	}
	s.mu.RLock()
	return s.mu.RUnlock
}

func lockExclusive(s *Store, tx bool) func() {
	if tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

// ── Stock items ──────────────────────────────────────────────────────────────

type stockItemRepo struct {
	s  *Store
	tx bool
}

func (r *stockItemRepo) GetByID(id string) (*entity.StockItem, error) {
	defer lockShared(r.s, r.tx)()
	item, ok := r.s.items[id]
	if !ok {
		return nil, nil
	}
	return cloneItem(item), nil
}

func (r *stockItemRepo) List() ([]*entity.StockItem, error) {
	defer lockShared(r.s, r.tx)()
	out := make([]*entity.StockItem, 0, len(r.s.items))
	for _, v := range r.s.items {
		out = append(out, cloneItem(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *stockItemRepo) Create(item *entity.StockItem) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.items[item.ID] = cloneItem(item)
	return nil
}

func (r *stockItemRepo) UpdateQuantity(id string, quantity decimal.Decimal) error {
	defer lockExclusive(r.s, r.tx)()
	item, ok := r.s.items[id]
	if !ok {
		return domain.ErrNotFound
	}
	item.QuantityOnHand = quantity
	return nil
}

// ── Materias primas ──────────────────────────────────────────────────────────

type rawMaterialRepo struct {
	s  *Store
	tx bool
}

func (r *rawMaterialRepo) GetByID(id string) (*entity.RawMaterial, error) {
	defer lockShared(r.s, r.tx)()
	mat, ok := r.s.materials[id]
	if !ok {
		return nil, nil
	}
	return cloneMaterial(mat), nil
}

func (r *rawMaterialRepo) List() ([]*entity.RawMaterial, error) {
	defer lockShared(r.s, r.tx)()
	out := make([]*entity.RawMaterial, 0, len(r.s.materials))
	for _, v := range r.s.materials {
		out = append(out, cloneMaterial(v))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *rawMaterialRepo) Create(material *entity.RawMaterial) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.materials[material.ID] = cloneMaterial(material)
	return nil
}

func (r *rawMaterialRepo) UpdateQuantity(id string, quantity decimal.Decimal) error {
	defer lockExclusive(r.s, r.tx)()
	mat, ok := r.s.materials[id]
	if !ok {
		return domain.ErrNotFound
	}
	mat.QuantityOnHand = quantity
	return nil
}

// ── Movimientos (append-only) ────────────────────────────────────────────────

type movementRepo struct {
	s  *Store
	tx bool
}

func (r *movementRepo) Create(movement *entity.StockMovement) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.movements = append(r.s.movements, cloneMovement(movement))
	return nil
}

func (r *movementRepo) ListByItem(class, itemID string, limit, offset int) ([]*entity.StockMovement, error) {
	defer lockShared(r.s, r.tx)()
	var matched []*entity.StockMovement
	for i := len(r.s.movements) - 1; i >= 0; i-- { // más reciente primero
		m := r.s.movements[i]
		if m.Class == class && m.ItemID == itemID {
			matched = append(matched, cloneMovement(m))
		}
	}
	if offset >= len(matched) {
		return nil, nil
	}
	matched = matched[offset:]
	if limit > 0 && limit < len(matched) {
		matched = matched[:limit]
	}
	return matched, nil
}

// ── Órdenes de venta ─────────────────────────────────────────────────────────

type salesOrderRepo struct {
	s  *Store
	tx bool
}

func (r *salesOrderRepo) GetByID(id string) (*entity.SalesOrder, error) {
	defer lockShared(r.s, r.tx)()
	o, ok := r.s.orders[id]
	if !ok {
		return nil, nil
	}
	return cloneOrder(o), nil
}

func (r *salesOrderRepo) List(statuses ...string) ([]*entity.SalesOrder, error) {
	defer lockShared(r.s, r.tx)()
	want := make(map[string]bool, len(statuses))
	for _, s := range statuses {
		want[s] = true
	}
	out := make([]*entity.SalesOrder, 0, len(r.s.orders))
	for _, o := range r.s.orders {
		if len(want) == 0 || want[o.Status] {
			out = append(out, cloneOrder(o))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *salesOrderRepo) Create(order *entity.SalesOrder) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

func (r *salesOrderRepo) Update(order *entity.SalesOrder) error {
	defer lockExclusive(r.s, r.tx)()
	if _, ok := r.s.orders[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.orders[order.ID] = cloneOrder(order)
	return nil
}

// ── Órdenes de producción ────────────────────────────────────────────────────

type productionOrderRepo struct {
	s  *Store
	tx bool
}

func (r *productionOrderRepo) GetByID(id string) (*entity.ProductionOrder, error) {
	defer lockShared(r.s, r.tx)()
	o, ok := r.s.production[id]
	if !ok {
		return nil, nil
	}
	return cloneProduction(o), nil
}

func (r *productionOrderRepo) ListActive() ([]*entity.ProductionOrder, error) {
	all, err := r.List()
	if err != nil {
		return nil, err
	}
	out := all[:0]
	for _, o := range all {
		if entity.ProductionActive(o.Status) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *productionOrderRepo) List() ([]*entity.ProductionOrder, error) {
	defer lockShared(r.s, r.tx)()
	out := make([]*entity.ProductionOrder, 0, len(r.s.production))
	for _, o := range r.s.production {
		out = append(out, cloneProduction(o))
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (r *productionOrderRepo) Create(order *entity.ProductionOrder) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.production[order.ID] = cloneProduction(order)
	return nil
}

func (r *productionOrderRepo) Update(order *entity.ProductionOrder) error {
	defer lockExclusive(r.s, r.tx)()
	if _, ok := r.s.production[order.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.production[order.ID] = cloneProduction(order)
	return nil
}

// ── BOM versionado ───────────────────────────────────────────────────────────

type bomRepo struct {
	s  *Store
	tx bool
}

func (r *bomRepo) GetLatest(productID string) (*entity.BOM, error) {
	defer lockShared(r.s, r.tx)()
	versions := r.s.boms[productID]
	if len(versions) == 0 {
		return nil, nil
	}
	return cloneBOM(versions[len(versions)-1]), nil
}

func (r *bomRepo) GetVersion(productID string, version int) (*entity.BOM, error) {
	defer lockShared(r.s, r.tx)()
	for _, b := range r.s.boms[productID] {
		if b.Version == version {
			return cloneBOM(b), nil
		}
	}
	return nil, nil
}

func (r *bomRepo) Versions(productID string) ([]*entity.BOM, error) {
	defer lockShared(r.s, r.tx)()
	versions := r.s.boms[productID]
	out := make([]*entity.BOM, 0, len(versions))
	for _, b := range versions {
		out = append(out, cloneBOM(b))
	}
	return out, nil
}

func (r *bomRepo) SaveVersion(bom *entity.BOM) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.boms[bom.ProductID] = append(r.s.boms[bom.ProductID], cloneBOM(bom))
	return nil
}

// ── Conteos de inventario ────────────────────────────────────────────────────

type checkRepo struct {
	s  *Store
	tx bool
}

func (r *checkRepo) GetByID(id string) (*entity.InventoryCheck, error) {
	defer lockShared(r.s, r.tx)()
	c, ok := r.s.checks[id]
	if !ok {
		return nil, nil
	}
	return cloneCheck(c), nil
}

func (r *checkRepo) GetActive() (*entity.InventoryCheck, error) {
	defer lockShared(r.s, r.tx)()
	for _, c := range r.s.checks {
		if entity.CheckActive(c.Status) {
			return cloneCheck(c), nil
		}
	}
	return nil, nil
}

func (r *checkRepo) Create(check *entity.InventoryCheck) error {
	defer lockExclusive(r.s, r.tx)()
	r.s.checks[check.ID] = cloneCheck(check)
	return nil
}

func (r *checkRepo) Update(check *entity.InventoryCheck) error {
	defer lockExclusive(r.s, r.tx)()
	if _, ok := r.s.checks[check.ID]; !ok {
		return domain.ErrNotFound
	}
	r.s.checks[check.ID] = cloneCheck(check)
	return nil
}
