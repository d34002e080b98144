package repository

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// StockMovementRepository historial de movimientos append-only por ítem.
type StockMovementRepository interface {
	Create(movement *entity.StockMovement) error
	ListByItem(class, itemID string, limit, offset int) ([]*entity.StockMovement, error)
}
