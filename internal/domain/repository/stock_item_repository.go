package repository

import (
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// StockItemRepository acceso a productos terminados. GetByID devuelve (nil, nil)
// si el ítem no existe.
type StockItemRepository interface {
	GetByID(id string) (*entity.StockItem, error)
	List() ([]*entity.StockItem, error)
	Create(item *entity.StockItem) error
	UpdateQuantity(id string, quantity decimal.Decimal) error
}
