package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

var _ repository.ProductionOrderRepository = (*ProductionOrderRepo)(nil)

// ProductionOrderRepo órdenes de producción sobre PostgreSQL. Los renglones
// (incluido el snapshot de BOM) se guardan como JSONB.
type ProductionOrderRepo struct {
	q Querier
}

// NewProductionOrderRepository construye el adaptador de persistencia para órdenes de producción.
func NewProductionOrderRepository(q Querier) *ProductionOrderRepo {
	return &ProductionOrderRepo{q: q}
}

type productionItemRow struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	PlannedQuantity  decimal.Decimal `json:"planned_quantity"`
	ProducedQuantity decimal.Decimal `json:"produced_quantity"`
	BOMVersion       int             `json:"bom_version"`
	BOMSnapshot      []bomLineRow    `json:"bom_snapshot"`
}

func marshalProductionItems(items []entity.ProductionOrderItem) ([]byte, error) {
	rows := make([]productionItemRow, len(items))
	for i, it := range items {
		snap := make([]bomLineRow, len(it.BOMSnapshot))
		for j, l := range it.BOMSnapshot {
			snap[j] = bomLineRow{MaterialID: l.MaterialID, QuantityPerUnit: l.QuantityPerUnit, Unit: l.Unit}
		}
		rows[i] = productionItemRow{
			ID:               it.ID,
			ProductID:        it.ProductID,
			PlannedQuantity:  it.PlannedQuantity,
			ProducedQuantity: it.ProducedQuantity,
			BOMVersion:       it.BOMVersion,
			BOMSnapshot:      snap,
		}
	}
	return json.Marshal(rows)
}

func unmarshalProductionItems(data []byte) ([]entity.ProductionOrderItem, error) {
	var rows []productionItemRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	items := make([]entity.ProductionOrderItem, len(rows))
	for i, r := range rows {
		snap := make([]entity.BOMLine, len(r.BOMSnapshot))
		for j, l := range r.BOMSnapshot {
			snap[j] = entity.BOMLine{MaterialID: l.MaterialID, QuantityPerUnit: l.QuantityPerUnit, Unit: l.Unit}
		}
		items[i] = entity.ProductionOrderItem{
			ID:               r.ID,
			ProductID:        r.ProductID,
			PlannedQuantity:  r.PlannedQuantity,
			ProducedQuantity: r.ProducedQuantity,
			BOMVersion:       r.BOMVersion,
			BOMSnapshot:      snap,
		}
	}
	return items, nil
}

// GetByID obtiene una orden de producción por ID. Devuelve (nil, nil) si no existe.
func (r *ProductionOrderRepo) GetByID(id string) (*entity.ProductionOrder, error) {
	query := `
		SELECT id, reference, status, items, created_at, updated_at
		FROM production_orders WHERE id = $1`
	var o entity.ProductionOrder
	var items []byte
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&o.ID, &o.Reference, &o.Status, &items, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get production order: %w", err)
	}
	if o.Items, err = unmarshalProductionItems(items); err != nil {
		return nil, fmt.Errorf("decode production order: %w", err)
	}
	return &o, nil
}

// ListActive lista las órdenes que cuentan para el MRP (ni completed ni cancelled).
func (r *ProductionOrderRepo) ListActive() ([]*entity.ProductionOrder, error) {
	query := `
		SELECT id, reference, status, items, created_at, updated_at
		FROM production_orders
		WHERE status NOT IN ($1, $2)
		ORDER BY created_at, id`
	return r.list(query, entity.ProductionStatusCompleted, entity.ProductionStatusCancelled)
}

// List lista todas las órdenes de producción.
func (r *ProductionOrderRepo) List() ([]*entity.ProductionOrder, error) {
	query := `
		SELECT id, reference, status, items, created_at, updated_at
		FROM production_orders ORDER BY created_at, id`
	return r.list(query)
}

func (r *ProductionOrderRepo) list(query string, args ...any) ([]*entity.ProductionOrder, error) {
	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list production orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.ProductionOrder
	for rows.Next() {
		var o entity.ProductionOrder
		var items []byte
		if err := rows.Scan(&o.ID, &o.Reference, &o.Status, &items, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan production order: %w", err)
		}
		if o.Items, err = unmarshalProductionItems(items); err != nil {
			return nil, fmt.Errorf("decode production order: %w", err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// Create persiste una orden de producción con su snapshot de BOM por renglón.
func (r *ProductionOrderRepo) Create(order *entity.ProductionOrder) error {
	items, err := marshalProductionItems(order.Items)
	if err != nil {
		return fmt.Errorf("encode production order: %w", err)
	}
	query := `
		INSERT INTO production_orders (id, reference, status, items, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err = r.q.Exec(context.Background(), query,
		order.ID, order.Reference, order.Status, items, order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert production order: %w", err)
	}
	return nil
}

// Update reescribe el agregado completo.
func (r *ProductionOrderRepo) Update(order *entity.ProductionOrder) error {
	items, err := marshalProductionItems(order.Items)
	if err != nil {
		return fmt.Errorf("encode production order: %w", err)
	}
	query := `
		UPDATE production_orders
		SET status = $2, items = $3, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query, order.ID, order.Status, items)
	if err != nil {
		return fmt.Errorf("update production order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
