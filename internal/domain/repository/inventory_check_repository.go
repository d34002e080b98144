package repository

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// InventoryCheckRepository sesiones de conteo físico.
type InventoryCheckRepository interface {
	GetByID(id string) (*entity.InventoryCheck, error)
	// GetActive devuelve el conteo en counting o review, o (nil, nil) si no hay.
	GetActive() (*entity.InventoryCheck, error)
	Create(check *entity.InventoryCheck) error
	Update(check *entity.InventoryCheck) error
}
