package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// BOMLine consumo de una materia prima por unidad de producto terminado.
type BOMLine struct {
	MaterialID      string
	QuantityPerUnit decimal.Decimal
	Unit            string
}

// BOM lista de materiales versionada de un producto. Cada edición crea una
// versión nueva; las versiones existentes son inmutables (las órdenes de
// producción abiertas conservan su snapshot).
type BOM struct {
	ProductID string
	Version   int
	Lines     []BOMLine
	CreatedAt time.Time
}

// CloneLines devuelve una copia de las líneas para usar como snapshot.
func (b *BOM) CloneLines() []BOMLine {
	out := make([]BOMLine, len(b.Lines))
	copy(out, b.Lines)
	return out
}
