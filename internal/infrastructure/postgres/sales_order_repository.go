package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

var _ repository.SalesOrderRepository = (*SalesOrderRepo)(nil)

// SalesOrderRepo órdenes de venta sobre PostgreSQL. Los renglones y el
// historial viajan como JSONB: la orden siempre se lee y escribe como un
// agregado completo, lo que simplifica la comparación de frescura del tracker.
type SalesOrderRepo struct {
	q Querier
}

// NewSalesOrderRepository construye el adaptador de persistencia para órdenes de venta.
func NewSalesOrderRepository(q Querier) *SalesOrderRepo {
	return &SalesOrderRepo{q: q}
}

type salesOrderItemRow struct {
	ID                string          `json:"id"`
	ProductID         string          `json:"product_id"`
	QuantityRequested decimal.Decimal `json:"quantity_requested"`
	QuantityAssembled decimal.Decimal `json:"quantity_assembled"`
}

type orderHistoryRow struct {
	Timestamp time.Time `json:"timestamp"`
	Actor     string    `json:"actor"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail,omitempty"`
}

func marshalOrderAggregate(o *entity.SalesOrder) (items, history []byte, err error) {
	itemRows := make([]salesOrderItemRow, len(o.Items))
	for i, it := range o.Items {
		itemRows[i] = salesOrderItemRow{
			ID:                it.ID,
			ProductID:         it.ProductID,
			QuantityRequested: it.QuantityRequested,
			QuantityAssembled: it.QuantityAssembled,
		}
	}
	histRows := make([]orderHistoryRow, len(o.History))
	for i, h := range o.History {
		histRows[i] = orderHistoryRow{Timestamp: h.Timestamp, Actor: h.Actor, Action: h.Action, Detail: h.Detail}
	}
	if items, err = json.Marshal(itemRows); err != nil {
		return nil, nil, err
	}
	if history, err = json.Marshal(histRows); err != nil {
		return nil, nil, err
	}
	return items, history, nil
}

func unmarshalOrderAggregate(o *entity.SalesOrder, items, history []byte) error {
	var itemRows []salesOrderItemRow
	if err := json.Unmarshal(items, &itemRows); err != nil {
		return err
	}
	o.Items = make([]entity.SalesOrderItem, len(itemRows))
	for i, it := range itemRows {
		o.Items[i] = entity.SalesOrderItem{
			ID:                it.ID,
			ProductID:         it.ProductID,
			QuantityRequested: it.QuantityRequested,
			QuantityAssembled: it.QuantityAssembled,
		}
	}
	var histRows []orderHistoryRow
	if err := json.Unmarshal(history, &histRows); err != nil {
		return err
	}
	o.History = make([]entity.OrderHistoryEntry, len(histRows))
	for i, h := range histRows {
		o.History[i] = entity.OrderHistoryEntry{Timestamp: h.Timestamp, Actor: h.Actor, Action: h.Action, Detail: h.Detail}
	}
	return nil
}

// GetByID obtiene una orden por ID. Devuelve (nil, nil) si no existe.
func (r *SalesOrderRepo) GetByID(id string) (*entity.SalesOrder, error) {
	query := `
		SELECT id, reference, priority, status, items, history, created_at, updated_at
		FROM sales_orders WHERE id = $1`
	var o entity.SalesOrder
	var priority int
	var items, history []byte
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&o.ID, &o.Reference, &priority, &o.Status, &items, &history, &o.CreatedAt, &o.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get sales order: %w", err)
	}
	o.Priority = entity.OrderPriority(priority)
	if err := unmarshalOrderAggregate(&o, items, history); err != nil {
		return nil, fmt.Errorf("decode sales order: %w", err)
	}
	return &o, nil
}

// List lista órdenes, opcionalmente filtradas por estado, en orden de creación.
func (r *SalesOrderRepo) List(statuses ...string) ([]*entity.SalesOrder, error) {
	query := `
		SELECT id, reference, priority, status, items, history, created_at, updated_at
		FROM sales_orders`
	args := []any{}
	if len(statuses) > 0 {
		query += ` WHERE status = ANY($1)`
		args = append(args, statuses)
	}
	query += ` ORDER BY created_at, id`

	rows, err := r.q.Query(context.Background(), query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sales orders: %w", err)
	}
	defer rows.Close()

	var orders []*entity.SalesOrder
	for rows.Next() {
		var o entity.SalesOrder
		var priority int
		var items, history []byte
		if err := rows.Scan(&o.ID, &o.Reference, &priority, &o.Status, &items, &history, &o.CreatedAt, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan sales order: %w", err)
		}
		o.Priority = entity.OrderPriority(priority)
		if err := unmarshalOrderAggregate(&o, items, history); err != nil {
			return nil, fmt.Errorf("decode sales order: %w", err)
		}
		orders = append(orders, &o)
	}
	return orders, rows.Err()
}

// Create persiste una orden nueva con sus renglones e historial inicial.
func (r *SalesOrderRepo) Create(order *entity.SalesOrder) error {
	items, history, err := marshalOrderAggregate(order)
	if err != nil {
		return fmt.Errorf("encode sales order: %w", err)
	}
	query := `
		INSERT INTO sales_orders (id, reference, priority, status, items, history, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.q.Exec(context.Background(), query,
		order.ID, order.Reference, int(order.Priority), order.Status, items, history,
		order.CreatedAt, order.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert sales order: %w", err)
	}
	return nil
}

// Update reescribe el agregado completo (estado, renglones e historial).
func (r *SalesOrderRepo) Update(order *entity.SalesOrder) error {
	items, history, err := marshalOrderAggregate(order)
	if err != nil {
		return fmt.Errorf("encode sales order: %w", err)
	}
	query := `
		UPDATE sales_orders
		SET priority = $2, status = $3, items = $4, history = $5, updated_at = now()
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		order.ID, int(order.Priority), order.Status, items, history,
	)
	if err != nil {
		return fmt.Errorf("update sales order: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
