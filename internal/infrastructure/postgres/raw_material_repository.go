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

var _ repository.RawMaterialRepository = (*RawMaterialRepo)(nil)

// RawMaterialRepo implementación del puerto RawMaterialRepository sobre PostgreSQL.
type RawMaterialRepo struct {
	q Querier
}

// NewRawMaterialRepository construye el adaptador de persistencia para materias primas.
func NewRawMaterialRepository(q Querier) *RawMaterialRepo {
	return &RawMaterialRepo{q: q}
}

// GetByID obtiene una materia prima por ID. Devuelve (nil, nil) si no existe.
func (r *RawMaterialRepo) GetByID(id string) (*entity.RawMaterial, error) {
	query := `
		SELECT id, name, quantity_on_hand, unit, created_at, updated_at
		FROM raw_materials WHERE id = $1`
	var m entity.RawMaterial
	err := r.q.QueryRow(context.Background(), query, id).Scan(
		&m.ID, &m.Name, &m.QuantityOnHand, &m.Unit, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get raw material: %w", err)
	}
	return &m, nil
}

// List lista todas las materias primas en orden estable.
func (r *RawMaterialRepo) List() ([]*entity.RawMaterial, error) {
	query := `
		SELECT id, name, quantity_on_hand, unit, created_at, updated_at
		FROM raw_materials ORDER BY created_at, id`
	rows, err := r.q.Query(context.Background(), query)
	if err != nil {
		return nil, fmt.Errorf("list raw materials: %w", err)
	}
	defer rows.Close()

	var mats []*entity.RawMaterial
	for rows.Next() {
		var m entity.RawMaterial
		if err := rows.Scan(&m.ID, &m.Name, &m.QuantityOnHand, &m.Unit, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan raw material: %w", err)
		}
		mats = append(mats, &m)
	}
	return mats, rows.Err()
}

// Create persiste una nueva materia prima.
func (r *RawMaterialRepo) Create(material *entity.RawMaterial) error {
	query := `
		INSERT INTO raw_materials (id, name, quantity_on_hand, unit, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := r.q.Exec(context.Background(), query,
		material.ID, material.Name, material.QuantityOnHand, material.Unit,
		material.CreatedAt, material.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrInvalidInput
		}
		return fmt.Errorf("insert raw material: %w", err)
	}
	return nil
}

// UpdateQuantity fija la cantidad en mano. Solo el ledger llama este método.
func (r *RawMaterialRepo) UpdateQuantity(id string, quantity decimal.Decimal) error {
	cmd, err := r.q.Exec(context.Background(),
		`UPDATE raw_materials SET quantity_on_hand = $2, updated_at = now() WHERE id = $1`,
		id, quantity,
	)
	if err != nil {
		return fmt.Errorf("update raw material quantity: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrUnknownMaterial
	}
	return nil
}
