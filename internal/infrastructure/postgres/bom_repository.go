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

var _ repository.BOMRepository = (*BOMRepo)(nil)

// BOMRepo versiones de lista de materiales sobre PostgreSQL.
// Las líneas se guardan como JSONB: se leen y escriben siempre como un todo,
// y las versiones guardadas nunca se modifican.
type BOMRepo struct {
	q Querier
}

// NewBOMRepository construye el adaptador de persistencia para BOMs.
func NewBOMRepository(q Querier) *BOMRepo {
	return &BOMRepo{q: q}
}

type bomLineRow struct {
	MaterialID      string          `json:"material_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	Unit            string          `json:"unit"`
}

func marshalBOMLines(lines []entity.BOMLine) ([]byte, error) {
	rows := make([]bomLineRow, len(lines))
	for i, l := range lines {
		rows[i] = bomLineRow{MaterialID: l.MaterialID, QuantityPerUnit: l.QuantityPerUnit, Unit: l.Unit}
	}
	return json.Marshal(rows)
}

func unmarshalBOMLines(data []byte) ([]entity.BOMLine, error) {
	var rows []bomLineRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	lines := make([]entity.BOMLine, len(rows))
	for i, r := range rows {
		lines[i] = entity.BOMLine{MaterialID: r.MaterialID, QuantityPerUnit: r.QuantityPerUnit, Unit: r.Unit}
	}
	return lines, nil
}

// GetLatest obtiene la versión vigente del BOM de un producto. (nil, nil) si no hay.
func (r *BOMRepo) GetLatest(productID string) (*entity.BOM, error) {
	query := `
		SELECT product_id, version, lines, created_at
		FROM bom_versions WHERE product_id = $1
		ORDER BY version DESC LIMIT 1`
	return r.scanOne(r.q.QueryRow(context.Background(), query, productID))
}

// GetVersion obtiene una versión específica. (nil, nil) si no existe.
func (r *BOMRepo) GetVersion(productID string, version int) (*entity.BOM, error) {
	query := `
		SELECT product_id, version, lines, created_at
		FROM bom_versions WHERE product_id = $1 AND version = $2`
	return r.scanOne(r.q.QueryRow(context.Background(), query, productID, version))
}

// Versions lista todas las versiones de un producto, de la más vieja a la vigente.
func (r *BOMRepo) Versions(productID string) ([]*entity.BOM, error) {
	query := `
		SELECT product_id, version, lines, created_at
		FROM bom_versions WHERE product_id = $1 ORDER BY version`
	rows, err := r.q.Query(context.Background(), query, productID)
	if err != nil {
		return nil, fmt.Errorf("list bom versions: %w", err)
	}
	defer rows.Close()

	var boms []*entity.BOM
	for rows.Next() {
		var b entity.BOM
		var lines []byte
		if err := rows.Scan(&b.ProductID, &b.Version, &lines, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan bom version: %w", err)
		}
		if b.Lines, err = unmarshalBOMLines(lines); err != nil {
			return nil, fmt.Errorf("decode bom lines: %w", err)
		}
		boms = append(boms, &b)
	}
	return boms, rows.Err()
}

// SaveVersion persiste una versión nueva. El constraint único (product_id, version)
// rechaza escrituras concurrentes de la misma versión.
func (r *BOMRepo) SaveVersion(bom *entity.BOM) error {
	lines, err := marshalBOMLines(bom.Lines)
	if err != nil {
		return fmt.Errorf("encode bom lines: %w", err)
	}
	query := `
		INSERT INTO bom_versions (product_id, version, lines, created_at)
		VALUES ($1, $2, $3, $4)`
	_, err = r.q.Exec(context.Background(), query, bom.ProductID, bom.Version, lines, bom.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrConcurrentModification
		}
		return fmt.Errorf("insert bom version: %w", err)
	}
	return nil
}

func (r *BOMRepo) scanOne(row pgx.Row) (*entity.BOM, error) {
	var b entity.BOM
	var lines []byte
	err := row.Scan(&b.ProductID, &b.Version, &lines, &b.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get bom version: %w", err)
	}
	if b.Lines, err = unmarshalBOMLines(lines); err != nil {
		return nil, fmt.Errorf("decode bom lines: %w", err)
	}
	return &b, nil
}
