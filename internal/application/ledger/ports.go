package ledger

import (
	"context"

	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// RepoSet repositorios atados a una misma transacción (o al pool para lecturas).
type RepoSet struct {
	Items      repository.StockItemRepository
	Materials  repository.RawMaterialRepository
	Movements  repository.StockMovementRepository
	Orders     repository.SalesOrderRepository
	Production repository.ProductionOrderRepository
	BOMs       repository.BOMRepository
	Checks     repository.InventoryCheckRepository
}

// TxRunner ejecuta una función dentro de una transacción del backing store,
// pasando repositorios atados a esa tx. Garantiza atomicidad: o todo lo que
// hace fn se confirma, o nada.
type TxRunner interface {
	Run(ctx context.Context, fn func(r RepoSet) error) error
}
