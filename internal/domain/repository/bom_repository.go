package repository

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// BOMRepository versiones de lista de materiales por producto.
// Las versiones guardadas son inmutables; GetLatest devuelve (nil, nil) si el
// producto no tiene BOM (no es elegible para producción).
type BOMRepository interface {
	GetLatest(productID string) (*entity.BOM, error)
	GetVersion(productID string, version int) (*entity.BOM, error)
	Versions(productID string) ([]*entity.BOM, error)
	SaveVersion(bom *entity.BOM) error
}
