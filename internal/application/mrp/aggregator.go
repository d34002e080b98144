package mrp

import (
	"context"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// MaterialRequirement demanda agregada de una materia prima sobre todas las
// órdenes de producción activas, contrastada contra el stock en mano.
// Derivado, nunca persistido.
type MaterialRequirement struct {
	MaterialID         string
	Unit               string
	TotalRequired      decimal.Decimal
	InStock            decimal.Decimal
	Deficit            decimal.Decimal
	ContributingOrders []string
}

// Aggregator agregador de demanda (MRP). Solo lee; puede llamarse a cualquier
// frecuencia y dos llamadas sin escrituras intermedias devuelven exactamente
// la misma salida en el mismo orden.
type Aggregator struct {
	production repository.ProductionOrderRepository
	materials  repository.RawMaterialRepository
}

// NewAggregator construye el agregador.
func NewAggregator(production repository.ProductionOrderRepository, materials repository.RawMaterialRepository) *Aggregator {
	return &Aggregator{production: production, materials: materials}
}

// ComputeRequirements explota el snapshot de BOM de cada renglón activo por
// (planificado − producido), acumula por materia prima y calcula el déficit.
// Orden de salida: déficit descendente, empates por MaterialID ascendente.
func (a *Aggregator) ComputeRequirements(ctx context.Context) ([]MaterialRequirement, error) {
	_ = ctx
	orders, err := a.production.ListActive()
	if err != nil {
		return nil, err
	}

	required := make(map[string]decimal.Decimal)
	units := make(map[string]string)
	contributors := make(map[string]map[string]bool)

	for _, po := range orders {
		for i := range po.Items {
			item := &po.Items[i]
			remaining := item.Remaining()
			if remaining.IsZero() {
				continue
			}
			for _, line := range item.BOMSnapshot {
				need := remaining.Mul(line.QuantityPerUnit)
				required[line.MaterialID] = required[line.MaterialID].Add(need)
				if units[line.MaterialID] == "" {
					units[line.MaterialID] = line.Unit
				}
				if contributors[line.MaterialID] == nil {
					contributors[line.MaterialID] = make(map[string]bool)
				}
				contributors[line.MaterialID][po.ID] = true
			}
		}
	}

	out := make([]MaterialRequirement, 0, len(required))
	for materialID, total := range required {
		inStock := decimal.Zero
		if mat, err := a.materials.GetByID(materialID); err != nil {
			return nil, err
		} else if mat != nil {
			inStock = mat.QuantityOnHand
			if units[materialID] == "" {
				units[materialID] = mat.Unit
			}
		}
		deficit := total.Sub(inStock)
		if deficit.IsNegative() {
			deficit = decimal.Zero
		}
		orderIDs := make([]string, 0, len(contributors[materialID]))
		for id := range contributors[materialID] {
			orderIDs = append(orderIDs, id)
		}
		sort.Strings(orderIDs)
		out = append(out, MaterialRequirement{
			MaterialID:         materialID,
			Unit:               units[materialID],
			TotalRequired:      total,
			InStock:            inStock,
			Deficit:            deficit,
			ContributingOrders: orderIDs,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].Deficit.Equal(out[j].Deficit) {
			return out[i].Deficit.GreaterThan(out[j].Deficit)
		}
		return out[i].MaterialID < out[j].MaterialID
	})
	return out, nil
}

// Deficits filtra los requerimientos con déficit positivo (lo que compras
// usa para pre-poblar una solicitud de compra).
func (a *Aggregator) Deficits(ctx context.Context) ([]MaterialRequirement, error) {
	reqs, err := a.ComputeRequirements(ctx)
	if err != nil {
		return nil, err
	}
	out := reqs[:0]
	for _, r := range reqs {
		if r.Deficit.IsPositive() {
			out = append(out, r)
		}
	}
	return out, nil
}
