package production

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/bom"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// Engine motor de consumo de producción: al reportar salida debita materias
// primas según el snapshot de BOM y acredita el producto terminado, todo en
// una sola unidad atómica a través del ledger.
type Engine struct {
	txRunner   ledger.TxRunner
	stock      *ledger.Ledger
	resolver   *bom.Resolver
	production repository.ProductionOrderRepository
}

// NewEngine construye el motor.
func NewEngine(txRunner ledger.TxRunner, stock *ledger.Ledger, resolver *bom.Resolver, production repository.ProductionOrderRepository) *Engine {
	return &Engine{txRunner: txRunner, stock: stock, resolver: resolver, production: production}
}

// OrderItemInput renglón para crear una orden de producción.
type OrderItemInput struct {
	ProductID       string
	PlannedQuantity decimal.Decimal
}

// CreateOrder crea la orden tomando el snapshot de BOM de cada producto en
// este instante. Ediciones posteriores del BOM no tocan órdenes en curso:
// el snapshot es copia, nunca referencia.
func (e *Engine) CreateOrder(ctx context.Context, reference string, items []OrderItemInput) (*entity.ProductionOrder, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	order := &entity.ProductionOrder{
		ID:        uuid.New().String(),
		Reference: reference,
		Status:    entity.ProductionStatusPlanned,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, in := range items {
		if !in.PlannedQuantity.IsPositive() {
			return nil, domain.ErrInvalidInput
		}
		b, err := e.resolver.Resolve(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, entity.ProductionOrderItem{
			ID:               uuid.New().String(),
			ProductID:        in.ProductID,
			PlannedQuantity:  in.PlannedQuantity,
			ProducedQuantity: decimal.Zero,
			BOMVersion:       b.Version,
			BOMSnapshot:      b.CloneLines(),
		})
	}
	if err := e.production.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

// GetOrder devuelve una orden de producción.
func (e *Engine) GetOrder(ctx context.Context, id string) (*entity.ProductionOrder, error) {
	_ = ctx
	order, err := e.production.GetByID(id)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// ListOrders lista todas las órdenes de producción.
func (e *Engine) ListOrders(ctx context.Context) ([]*entity.ProductionOrder, error) {
	_ = ctx
	return e.production.List()
}

// ReportOutput registra la cantidad producida acumulada de un producto de la
// orden. Para el incremento Δ = producido − anterior debita cada materia del
// snapshot por Δ×cantidadPorUnidad y acredita el terminado por Δ. Si algún
// débito dejaría una materia en negativo, el reporte completo se rechaza con
// ErrInsufficientStock y no se registra consumo parcial alguno.
func (e *Engine) ReportOutput(ctx context.Context, orderID, productID string, produced decimal.Decimal, actor string) (*entity.ProductionOrder, error) {
	order, err := e.production.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	if !entity.ProductionActive(order.Status) {
		return nil, domain.ErrInvalidStateTransition
	}
	item := order.ItemByProduct(productID)
	if item == nil {
		return nil, domain.ErrUnknownProduct
	}
	if produced.IsNegative() || produced.GreaterThan(item.PlannedQuantity) {
		return nil, domain.ErrInvalidInput
	}
	delta := produced.Sub(item.ProducedQuantity)
	if delta.IsNegative() {
		return nil, domain.ErrInvalidInput
	}
	if delta.IsZero() {
		return order, nil
	}

	adjs := make([]ledger.Adjustment, 0, len(item.BOMSnapshot)+1)
	keys := make([]string, 0, len(item.BOMSnapshot)+1)
	for _, line := range item.BOMSnapshot {
		adjs = append(adjs, ledger.Adjustment{
			ItemID: line.MaterialID,
			Class:  entity.ClassMaterial,
			Type:   entity.MovementTypeConsumption,
			Delta:  delta.Mul(line.QuantityPerUnit).Neg(),
			Reason: fmt.Sprintf("consumo producción %s", order.ID),
		})
		keys = append(keys, ledger.LockKey(entity.ClassMaterial, line.MaterialID))
	}
	adjs = append(adjs, ledger.Adjustment{
		ItemID: productID,
		Class:  entity.ClassProduct,
		Type:   entity.MovementTypeProduction,
		Delta:  delta,
		Reason: fmt.Sprintf("salida producción %s", order.ID),
	})
	keys = append(keys, ledger.LockKey(entity.ClassProduct, productID))
	// El lock de la orden serializa reportes de productos distintos de la misma
	// orden: sin él, dos tx con materiales disjuntos reescribirían la fila
	// completa y el segundo commit pisaría lo producido por el primero.
	keys = append(keys, ledger.ProductionLockKey(orderID))

	var movements []*entity.StockMovement
	var updated *entity.ProductionOrder
	err = e.stock.Locked(keys, func() error {
		return e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			// Releer la orden dentro de la tx: otro reporte pudo avanzarla.
			current, err := r.Production.GetByID(orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			curItem := current.ItemByProduct(productID)
			if curItem == nil {
				return domain.ErrUnknownProduct
			}
			if !curItem.ProducedQuantity.Equal(item.ProducedQuantity) {
				return domain.ErrConcurrentModification
			}
			movs, err := e.stock.Apply(r, actor, adjs)
			if err != nil {
				return err
			}
			curItem.ProducedQuantity = produced
			if current.Status == entity.ProductionStatusPlanned {
				current.Status = entity.ProductionStatusInProgress
			}
			if current.Done() {
				current.Status = entity.ProductionStatusCompleted
			}
			current.UpdatedAt = time.Now().UTC()
			if err := r.Production.Update(current); err != nil {
				return err
			}
			movements = movs
			updated = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	e.stock.EmitMovements(movements)
	return updated, nil
}

// CancelOrder cancela una orden no completada. No revierte consumos ya
// confirmados; solo saca la orden del conjunto activo del MRP.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (*entity.ProductionOrder, error) {
	var updated *entity.ProductionOrder
	err := e.stock.Locked([]string{ledger.ProductionLockKey(orderID)}, func() error {
		return e.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			order, err := r.Production.GetByID(orderID)
			if err != nil {
				return err
			}
			if order == nil {
				return domain.ErrNotFound
			}
			if order.Status == entity.ProductionStatusCompleted || order.Status == entity.ProductionStatusCancelled {
				return domain.ErrInvalidStateTransition
			}
			order.Status = entity.ProductionStatusCancelled
			order.UpdatedAt = time.Now().UTC()
			if err := r.Production.Update(order); err != nil {
				return err
			}
			updated = order
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}
