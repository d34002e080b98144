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

var _ repository.InventoryCheckRepository = (*InventoryCheckRepo)(nil)

// InventoryCheckRepo sesiones de conteo físico sobre PostgreSQL. Los renglones
// se guardan como JSONB; el índice parcial sobre status respalda la regla de
// una sola sesión activa.
type InventoryCheckRepo struct {
	q Querier
}

// NewInventoryCheckRepository construye el adaptador de persistencia para conteos.
func NewInventoryCheckRepository(q Querier) *InventoryCheckRepo {
	return &InventoryCheckRepo{q: q}
}

type checkItemRow struct {
	StockItemID      string           `json:"stock_item_id"`
	ExpectedQuantity decimal.Decimal  `json:"expected_quantity"`
	ActualQuantity   *decimal.Decimal `json:"actual_quantity,omitempty"`
	Difference       *decimal.Decimal `json:"difference,omitempty"`
}

func marshalCheckItems(items []entity.InventoryCheckItem) ([]byte, error) {
	rows := make([]checkItemRow, len(items))
	for i, it := range items {
		rows[i] = checkItemRow{
			StockItemID:      it.StockItemID,
			ExpectedQuantity: it.ExpectedQuantity,
			ActualQuantity:   it.ActualQuantity,
			Difference:       it.Difference,
		}
	}
	return json.Marshal(rows)
}

func unmarshalCheckItems(data []byte) ([]entity.InventoryCheckItem, error) {
	var rows []checkItemRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	items := make([]entity.InventoryCheckItem, len(rows))
	for i, r := range rows {
		items[i] = entity.InventoryCheckItem{
			StockItemID:      r.StockItemID,
			ExpectedQuantity: r.ExpectedQuantity,
			ActualQuantity:   r.ActualQuantity,
			Difference:       r.Difference,
		}
	}
	return items, nil
}

// GetByID obtiene una sesión por ID. Devuelve (nil, nil) si no existe.
func (r *InventoryCheckRepo) GetByID(id string) (*entity.InventoryCheck, error) {
	query := `
		SELECT id, blind_mode, status, items, notes, created_by, created_at, completed_at
		FROM inventory_checks WHERE id = $1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, id))
}

// GetActive obtiene la sesión en counting o review, o (nil, nil) si no hay.
func (r *InventoryCheckRepo) GetActive() (*entity.InventoryCheck, error) {
	query := `
		SELECT id, blind_mode, status, items, notes, created_by, created_at, completed_at
		FROM inventory_checks
		WHERE status IN ($1, $2)
		ORDER BY created_at LIMIT 1`
	return r.scanOne(r.q.QueryRow(context.Background(), query,
		entity.CheckStatusCounting, entity.CheckStatusReview))
}

// Create persiste una sesión nueva con su snapshot de cantidades esperadas.
func (r *InventoryCheckRepo) Create(check *entity.InventoryCheck) error {
	items, err := marshalCheckItems(check.Items)
	if err != nil {
		return fmt.Errorf("encode inventory check: %w", err)
	}
	query := `
		INSERT INTO inventory_checks (id, blind_mode, status, items, notes, created_by, created_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.q.Exec(context.Background(), query,
		check.ID, check.BlindMode, check.Status, items, check.Notes,
		check.CreatedBy, check.CreatedAt, check.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrActiveCheckExists
		}
		return fmt.Errorf("insert inventory check: %w", err)
	}
	return nil
}

// Update reescribe el agregado completo.
func (r *InventoryCheckRepo) Update(check *entity.InventoryCheck) error {
	items, err := marshalCheckItems(check.Items)
	if err != nil {
		return fmt.Errorf("encode inventory check: %w", err)
	}
	query := `
		UPDATE inventory_checks
		SET status = $2, items = $3, notes = $4, completed_at = $5
		WHERE id = $1`
	cmd, err := r.q.Exec(context.Background(), query,
		check.ID, check.Status, items, check.Notes, check.CompletedAt,
	)
	if err != nil {
		return fmt.Errorf("update inventory check: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (r *InventoryCheckRepo) scanOne(row pgx.Row) (*entity.InventoryCheck, error) {
	var c entity.InventoryCheck
	var items []byte
	err := row.Scan(&c.ID, &c.BlindMode, &c.Status, &items, &c.Notes, &c.CreatedBy, &c.CreatedAt, &c.CompletedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get inventory check: %w", err)
	}
	if c.Items, err = unmarshalCheckItems(items); err != nil {
		return nil, fmt.Errorf("decode inventory check: %w", err)
	}
	return &c, nil
}
