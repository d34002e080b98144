package repository

import (
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// RawMaterialRepository acceso a materias primas. GetByID devuelve (nil, nil)
// si la materia no existe.
type RawMaterialRepository interface {
	GetByID(id string) (*entity.RawMaterial, error)
	List() ([]*entity.RawMaterial, error)
	Create(material *entity.RawMaterial) error
	UpdateQuantity(id string, quantity decimal.Decimal) error
}
