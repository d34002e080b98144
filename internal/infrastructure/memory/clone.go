package memory

import "github.com/grupoandino/stock-engine/internal/domain/entity"

// Copias profundas: los repos devuelven y guardan copias para que ninguna
// referencia externa pueda mutar el estado del store sin pasar por una tx.

func cloneItem(v *entity.StockItem) *entity.StockItem {
	c := *v
	return &c
}

func cloneMaterial(v *entity.RawMaterial) *entity.RawMaterial {
	c := *v
	return &c
}

func cloneMovement(v *entity.StockMovement) *entity.StockMovement {
	c := *v
	return &c
}

func cloneOrder(v *entity.SalesOrder) *entity.SalesOrder {
	c := *v
	c.Items = append([]entity.SalesOrderItem(nil), v.Items...)
	c.History = append([]entity.OrderHistoryEntry(nil), v.History...)
	return &c
}

func cloneProduction(v *entity.ProductionOrder) *entity.ProductionOrder {
	c := *v
	c.Items = make([]entity.ProductionOrderItem, len(v.Items))
	for i := range v.Items {
		c.Items[i] = v.Items[i]
		c.Items[i].BOMSnapshot = append([]entity.BOMLine(nil), v.Items[i].BOMSnapshot...)
	}
	return &c
}

func cloneBOM(v *entity.BOM) *entity.BOM {
	c := *v
	c.Lines = append([]entity.BOMLine(nil), v.Lines...)
	return &c
}

func cloneCheck(v *entity.InventoryCheck) *entity.InventoryCheck {
	c := *v
	c.Items = make([]entity.InventoryCheckItem, len(v.Items))
	for i := range v.Items {
		c.Items[i] = v.Items[i]
		if v.Items[i].ActualQuantity != nil {
			q := *v.Items[i].ActualQuantity
			c.Items[i].ActualQuantity = &q
		}
		if v.Items[i].Difference != nil {
			d := *v.Items[i].Difference
			c.Items[i].Difference = &d
		}
	}
	return &c
}
