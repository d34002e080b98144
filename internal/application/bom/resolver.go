package bom

import (
	"context"
	"time"

	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// Resolver resuelve la lista de materiales vigente de un producto terminado.
// Cada edición crea una versión nueva; los snapshots tomados por órdenes de
// producción abiertas nunca se ven afectados por ediciones posteriores.
type Resolver struct {
	boms      repository.BOMRepository
	items     repository.StockItemRepository
	materials repository.RawMaterialRepository
}

// NewResolver construye el resolver.
func NewResolver(boms repository.BOMRepository, items repository.StockItemRepository, materials repository.RawMaterialRepository) *Resolver {
	return &Resolver{boms: boms, items: items, materials: materials}
}

// Resolve devuelve la versión vigente del BOM del producto.
// ErrUnknownProduct si el producto no tiene BOM: entonces no es elegible
// para producción.
func (r *Resolver) Resolve(ctx context.Context, productID string) (*entity.BOM, error) {
	_ = ctx
	b, err := r.boms.GetLatest(productID)
	if err != nil {
		return nil, err
	}
	if b == nil {
		return nil, domain.ErrUnknownProduct
	}
	return b, nil
}

// SaveVersion guarda una edición del BOM como versión nueva (latest+1).
// Valida que el producto exista y que cada línea referencie una materia prima
// conocida con cantidad positiva.
func (r *Resolver) SaveVersion(ctx context.Context, productID string, lines []entity.BOMLine) (*entity.BOM, error) {
	_ = ctx
	if len(lines) == 0 {
		return nil, domain.ErrInvalidInput
	}
	item, err := r.items.GetByID(productID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, domain.ErrUnknownProduct
	}
	for _, ln := range lines {
		if !ln.QuantityPerUnit.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
		mat, err := r.materials.GetByID(ln.MaterialID)
		if err != nil {
			return nil, err
		}
		if mat == nil {
			return nil, domain.ErrUnknownMaterial
		}
	}
	version := 1
	if latest, err := r.boms.GetLatest(productID); err != nil {
		return nil, err
	} else if latest != nil {
		version = latest.Version + 1
	}
	b := &entity.BOM{
		ProductID: productID,
		Version:   version,
		Lines:     append([]entity.BOMLine(nil), lines...),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.boms.SaveVersion(b); err != nil {
		return nil, err
	}
	return b, nil
}

// Versions devuelve el historial de versiones del producto.
func (r *Resolver) Versions(ctx context.Context, productID string) ([]*entity.BOM, error) {
	_ = ctx
	versions, err := r.boms.Versions(productID)
	if err != nil {
		return nil, err
	}
	if len(versions) == 0 {
		return nil, domain.ErrUnknownProduct
	}
	return versions, nil
}
