package repository

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// SalesOrderRepository acceso a órdenes de venta. GetByID devuelve (nil, nil)
// si la orden no existe. List con statuses vacío devuelve todas.
type SalesOrderRepository interface {
	GetByID(id string) (*entity.SalesOrder, error)
	List(statuses ...string) ([]*entity.SalesOrder, error)
	Create(order *entity.SalesOrder) error
	Update(order *entity.SalesOrder) error
}
