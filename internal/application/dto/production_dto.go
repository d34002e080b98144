package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/mrp"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// ProductionItemRequest renglón para crear una orden de producción.
type ProductionItemRequest struct {
	ProductID       string          `json:"product_id"`
	PlannedQuantity decimal.Decimal `json:"planned_quantity"`
}

// CreateProductionOrderRequest body para POST /api/production-orders.
type CreateProductionOrderRequest struct {
	Reference string                  `json:"reference"`
	Items     []ProductionItemRequest `json:"items"`
}

// ReportOutputRequest body para POST /api/production-orders/:id/output.
// ProducedQuantity es acumulada, no incremental.
type ReportOutputRequest struct {
	ProductID        string          `json:"product_id"`
	ProducedQuantity decimal.Decimal `json:"produced_quantity"`
}

// BOMLineResponse línea de consumo por unidad.
type BOMLineResponse struct {
	MaterialID      string          `json:"material_id"`
	QuantityPerUnit decimal.Decimal `json:"quantity_per_unit"`
	Unit            string          `json:"unit"`
}

// ProductionItemResponse renglón de producción con su snapshot.
type ProductionItemResponse struct {
	ID               string            `json:"id"`
	ProductID        string            `json:"product_id"`
	PlannedQuantity  decimal.Decimal   `json:"planned_quantity"`
	ProducedQuantity decimal.Decimal   `json:"produced_quantity"`
	BOMVersion       int               `json:"bom_version"`
	BOMSnapshot      []BOMLineResponse `json:"bom_snapshot"`
}

// ProductionOrderResponse orden de producción completa.
type ProductionOrderResponse struct {
	ID        string                   `json:"id"`
	Reference string                   `json:"reference,omitempty"`
	Status    string                   `json:"status"`
	Items     []ProductionItemResponse `json:"items"`
	CreatedAt time.Time                `json:"created_at"`
}

// ToProductionOrderResponse mapea una orden de producción del dominio.
func ToProductionOrderResponse(o *entity.ProductionOrder) *ProductionOrderResponse {
	resp := &ProductionOrderResponse{
		ID:        o.ID,
		Reference: o.Reference,
		Status:    o.Status,
		CreatedAt: o.CreatedAt,
	}
	for i := range o.Items {
		it := &o.Items[i]
		pi := ProductionItemResponse{
			ID:               it.ID,
			ProductID:        it.ProductID,
			PlannedQuantity:  it.PlannedQuantity,
			ProducedQuantity: it.ProducedQuantity,
			BOMVersion:       it.BOMVersion,
		}
		for _, ln := range it.BOMSnapshot {
			pi.BOMSnapshot = append(pi.BOMSnapshot, BOMLineResponse{
				MaterialID:      ln.MaterialID,
				QuantityPerUnit: ln.QuantityPerUnit,
				Unit:            ln.Unit,
			})
		}
		resp.Items = append(resp.Items, pi)
	}
	return resp
}

// MaterialRequirementResponse demanda agregada de una materia prima.
type MaterialRequirementResponse struct {
	MaterialID         string          `json:"material_id"`
	Unit               string          `json:"unit"`
	TotalRequired      decimal.Decimal `json:"total_required"`
	InStock            decimal.Decimal `json:"in_stock"`
	Deficit            decimal.Decimal `json:"deficit"`
	ContributingOrders []string        `json:"contributing_orders"`
}

// ToRequirementResponses mapea la salida del agregador MRP.
func ToRequirementResponses(reqs []mrp.MaterialRequirement) []MaterialRequirementResponse {
	out := make([]MaterialRequirementResponse, 0, len(reqs))
	for _, r := range reqs {
		out = append(out, MaterialRequirementResponse{
			MaterialID:         r.MaterialID,
			Unit:               r.Unit,
			TotalRequired:      r.TotalRequired,
			InStock:            r.InStock,
			Deficit:            r.Deficit,
			ContributingOrders: r.ContributingOrders,
		})
	}
	return out
}

// SaveBOMRequest body para PUT /api/boms/:productId (crea versión nueva).
type SaveBOMRequest struct {
	Lines []BOMLineResponse `json:"lines"`
}

// BOMResponse versión de BOM.
type BOMResponse struct {
	ProductID string            `json:"product_id"`
	Version   int               `json:"version"`
	Lines     []BOMLineResponse `json:"lines"`
	CreatedAt time.Time         `json:"created_at"`
}

// ToBOMResponse mapea una versión de BOM.
func ToBOMResponse(b *entity.BOM) *BOMResponse {
	resp := &BOMResponse{ProductID: b.ProductID, Version: b.Version, CreatedAt: b.CreatedAt}
	for _, ln := range b.Lines {
		resp.Lines = append(resp.Lines, BOMLineResponse{
			MaterialID:      ln.MaterialID,
			QuantityPerUnit: ln.QuantityPerUnit,
			Unit:            ln.Unit,
		})
	}
	return resp
}
