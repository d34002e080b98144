package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

var _ repository.StockItemRepository = (*StockItemRepo)(nil)

// StockItemRepo implementación del puerto StockItemRepository sobre PostgreSQL (usable con pool o tx).
type StockItemRepo struct {
	q Querier
}

// NewStockItemRepository construye el adaptador de persistencia para productos terminados.
func NewStockItemRepository(q Querier) *StockItemRepo {
	return &StockItemRepo{q: q}
}

// GetByID obtiene un producto terminado por ID. Devuelve (nil, nil) si no existe.
func (r *StockItemRepo) GetByID(id string) (*entity.StockItem, error) {
	query := `
		SELECT id, name, sku, quantity_on_hand, low_stock_threshold, location, unit_measure, created_at, updated_at
		FROM stock_items WHERE id = $1`
	var it entity.StockItem
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&it.ID, &it.Name, &it.SKU, &it.QuantityOnHand, &it.LowStockThreshold,
		&it.Location, &it.UnitMeasure, &it.CreatedAt, &it.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get stock item: %w", err)
	}
	return &it, nil
}

// List lista todos los productos terminados en orden estable.
func (r *StockItemRepo) List() ([]*entity.StockItem, error) {
	query := `
		SELECT id, name, sku, quantity_on_hand, low_stock_threshold, location, unit_measure, created_at, updated_at
		FROM stock_items ORDER BY created_at, id`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list stock items: %w", err)
	}
	defer rows.Close()

	var items []*entity.StockItem
	for rows.Next() {
		var it entity.StockItem
		if err := rows.Scan(
			&it.ID, &it.Name, &it.SKU, &it.QuantityOnHand, &it.LowStockThreshold,
			&it.Location, &it.UnitMeasure, &it.CreatedAt, &it.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan stock item: %w", err)
		}
		items = append(items, &it)
	}
	return items, rows.Err()
}

// Create persiste un nuevo producto terminado.
func (r *StockItemRepo) Create(item *entity.StockItem) error {
	query := `
		INSERT INTO stock_items (id, name, sku, quantity_on_hand, low_stock_threshold, location, unit_measure, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := r.q.Exec(context.Background(), query,
		item.ID, item.Name, item.SKU, item.QuantityOnHand, item.LowStockThreshold,
		item.Location, item.UnitMeasure, item.CreatedAt, item.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert stock item: %w", err)
	}
	return nil
}

// UpdateQuantity fija la cantidad en mano. Solo el ledger llama este método.
func (r *StockItemRepo) UpdateQuantity(id string, quantity decimal.Decimal) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE stock_items SET quantity_on_hand = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("update stock item quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUnknownProduct
	}
	return nil
}
