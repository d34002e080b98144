package repository

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// ProductionOrderRepository acceso a órdenes de producción.
type ProductionOrderRepository interface {
	GetByID(id string) (*entity.ProductionOrder, error)
	// ListActive devuelve las órdenes que cuentan para el MRP
	// (excluye completed y cancelled).
	ListActive() ([]*entity.ProductionOrder, error)
	List() ([]*entity.ProductionOrder, error)
	Create(order *entity.ProductionOrder) error
	Update(order *entity.ProductionOrder) error
}
