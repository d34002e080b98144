package fulfillment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
	"github.com/grupoandino/stock-engine/internal/domain/repository"
)

// Tracker vista por orden de venta de requerido vs. disponible. Calcula
// faltantes, ejecuta el ensamble (único punto que debita stock a nombre de la
// orden) y gobierna la máquina de estados de la orden.
type Tracker struct {
	txRunner ledger.TxRunner
	stock    *ledger.Ledger
	orders   repository.SalesOrderRepository
	emitter  audit.Emitter
}

// NewTracker construye el tracker.
func NewTracker(txRunner ledger.TxRunner, stock *ledger.Ledger, orders repository.SalesOrderRepository, emitter audit.Emitter) *Tracker {
	return &Tracker{txRunner: txRunner, stock: stock, orders: orders, emitter: emitter}
}

// ItemShortage faltante de un renglón: lo pendiente de ensamblar que el stock
// en mano no cubre. Los renglones ya ensamblados no aportan faltante (ya
// fueron debitados del ledger).
type ItemShortage struct {
	ItemID    string
	ProductID string
	Requested decimal.Decimal
	Assembled decimal.Decimal
	OnHand    decimal.Decimal
	Shortage  decimal.Decimal
}

// ShortageReport faltantes de una orden.
type ShortageReport struct {
	OrderID       string
	Priority      entity.OrderPriority
	Status        string
	Items         []ItemShortage
	TotalShortage decimal.Decimal
}

// OrderItemInput renglón para crear una orden o agregar a una existente.
type OrderItemInput struct {
	ProductID         string
	QuantityRequested decimal.Decimal
}

// CreateOrder crea una orden de venta en estado New.
func (t *Tracker) CreateOrder(ctx context.Context, reference string, priority entity.OrderPriority, items []OrderItemInput, actor string) (*entity.SalesOrder, error) {
	if len(items) == 0 {
		return nil, domain.ErrInvalidInput
	}
	now := time.Now().UTC()
	order := &entity.SalesOrder{
		ID:        uuid.New().String(),
		Reference: reference,
		Priority:  priority,
		Status:    entity.OrderStatusNew,
		CreatedAt: now,
		UpdatedAt: now,
	}
	for _, in := range items {
		item, err := t.buildItem(ctx, in)
		if err != nil {
			return nil, err
		}
		order.Items = append(order.Items, *item)
	}
	order.AppendHistory(actor, "created", fmt.Sprintf("orden creada con %d renglones, prioridad %s", len(order.Items), priority))
	if err := t.orders.Create(order); err != nil {
		return nil, err
	}
	return order, nil
}

func (t *Tracker) buildItem(ctx context.Context, in OrderItemInput) (*entity.SalesOrderItem, error) {
	if !in.QuantityRequested.IsPositive() {
		return nil, domain.ErrInvalidInput
	}
	// Valida que el producto exista en el ledger.
	if _, err := t.stock.Get(ctx, entity.ClassProduct, in.ProductID); err != nil {
		return nil, err
	}
	return &entity.SalesOrderItem{
		ID:                uuid.New().String(),
		ProductID:         in.ProductID,
		QuantityRequested: in.QuantityRequested,
		QuantityAssembled: decimal.Zero,
	}, nil
}

// Get devuelve la orden.
func (t *Tracker) Get(ctx context.Context, orderID string) (*entity.SalesOrder, error) {
	_ = ctx
	order, err := t.orders.GetByID(orderID)
	if err != nil {
		return nil, err
	}
	if order == nil {
		return nil, domain.ErrNotFound
	}
	return order, nil
}

// AddItem agrega un renglón. Solo mientras la orden está pre-ensamble. La
// mutación corre bajo el lock de la orden y en transacción, como toda
// escritura de la fila de la orden.
func (t *Tracker) AddItem(ctx context.Context, orderID string, in OrderItemInput, actor string) (*entity.SalesOrder, error) {
	var updated *entity.SalesOrder
	err := t.stock.Locked([]string{ledger.OrderLockKey(orderID)}, func() error {
		order, err := t.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !order.PreAssembly() {
			return domain.ErrInvalidStateTransition
		}
		item, err := t.buildItem(ctx, in)
		if err != nil {
			return err
		}
		from := order.Status
		return t.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Orders.GetByID(orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != from {
				return domain.ErrConcurrentModification
			}
			current.Items = append(current.Items, *item)
			current.AppendHistory(actor, "item_added", fmt.Sprintf("producto %s x %s", in.ProductID, in.QuantityRequested))
			current.UpdatedAt = time.Now().UTC()
			if err := r.Orders.Update(current); err != nil {
				return err
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// RemoveItem quita un renglón. Solo mientras la orden está pre-ensamble.
func (t *Tracker) RemoveItem(ctx context.Context, orderID, itemID, actor string) (*entity.SalesOrder, error) {
	var updated *entity.SalesOrder
	err := t.stock.Locked([]string{ledger.OrderLockKey(orderID)}, func() error {
		return t.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Orders.GetByID(orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if !current.PreAssembly() {
				return domain.ErrInvalidStateTransition
			}
			idx := -1
			for i := range current.Items {
				if current.Items[i].ID == itemID {
					idx = i
					break
				}
			}
			if idx < 0 {
				return domain.ErrNotFound
			}
			removed := current.Items[idx]
			current.Items = append(current.Items[:idx], current.Items[idx+1:]...)
			current.AppendHistory(actor, "item_removed", fmt.Sprintf("producto %s x %s", removed.ProductID, removed.QuantityRequested))
			current.UpdatedAt = time.Now().UTC()
			if err := r.Orders.Update(current); err != nil {
				return err
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Shortage calcula el faltante por renglón y el total de la orden:
// max(0, (pedido − ensamblado) − stockEnMano) por renglón.
func (t *Tracker) Shortage(ctx context.Context, orderID string) (*ShortageReport, error) {
	order, err := t.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	return t.shortageOf(ctx, order)
}

func (t *Tracker) shortageOf(ctx context.Context, order *entity.SalesOrder) (*ShortageReport, error) {
	report := &ShortageReport{
		OrderID:       order.ID,
		Priority:      order.Priority,
		Status:        order.Status,
		TotalShortage: decimal.Zero,
	}
	for i := range order.Items {
		item := &order.Items[i]
		onHand, err := t.stock.Get(ctx, entity.ClassProduct, item.ProductID)
		if err != nil {
			return nil, err
		}
		shortage := item.Pending().Sub(onHand)
		if shortage.IsNegative() {
			shortage = decimal.Zero
		}
		report.Items = append(report.Items, ItemShortage{
			ItemID:    item.ID,
			ProductID: item.ProductID,
			Requested: item.QuantityRequested,
			Assembled: item.QuantityAssembled,
			OnHand:    onHand,
			Shortage:  shortage,
		})
		report.TotalShortage = report.TotalShortage.Add(shortage)
	}
	return report, nil
}

// SetStatus aplica una transición de la máquina de estados. ReadyToAssemble
// exige faltante total cero; Assembled solo se alcanza vía AssembleItem.
// Corre bajo el lock de la orden para no pisar un ensamble o una reasignación
// en vuelo; la tx revalida el estado leído antes de escribir.
func (t *Tracker) SetStatus(ctx context.Context, orderID, to, actor string) (*entity.SalesOrder, error) {
	var updated *entity.SalesOrder
	err := t.stock.Locked([]string{ledger.OrderLockKey(orderID)}, func() error {
		order, err := t.Get(ctx, orderID)
		if err != nil {
			return err
		}
		if !entity.CanTransition(order.Status, to) {
			return domain.ErrInvalidStateTransition
		}
		switch to {
		case entity.OrderStatusReadyToAssemble:
			report, err := t.shortageOf(ctx, order)
			if err != nil {
				return err
			}
			if report.TotalShortage.IsPositive() {
				return domain.ErrInsufficientStock
			}
		case entity.OrderStatusAssembled:
			// El débito de stock ocurre en AssembleItem, nunca aquí.
			if !order.FullyAssembled() {
				return domain.ErrInvalidStateTransition
			}
		}
		from := order.Status
		return t.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Orders.GetByID(orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != from {
				return domain.ErrConcurrentModification
			}
			current.Status = to
			current.AppendHistory(actor, "status_changed", fmt.Sprintf("%s → %s", from, to))
			current.UpdatedAt = time.Now().UTC()
			if err := r.Orders.Update(current); err != nil {
				return err
			}
			updated = current
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssembleItem ensambla el resto pendiente de un renglón: debita el ledger por
// esa cantidad (razón "order assembly") y marca las unidades como ensambladas,
// en una sola transacción. Es one-way por renglón; solo la reasignación por
// prioridad puede revertirlo. Al ensamblar el último renglón la orden pasa a
// Assembled: como cada unidad se debita exactamente una vez al ensamblarse,
// un reintento no puede duplicar débitos.
func (t *Tracker) AssembleItem(ctx context.Context, orderID, itemID, actor string) (*entity.SalesOrder, error) {
	order, err := t.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != entity.OrderStatusReadyToAssemble && order.Status != entity.OrderStatusAssembling {
		return nil, domain.ErrInvalidStateTransition
	}
	item := order.Item(itemID)
	if item == nil {
		return nil, domain.ErrNotFound
	}
	pending := item.Pending()
	if pending.IsZero() {
		return nil, domain.ErrInvalidStateTransition
	}

	keys := []string{
		ledger.LockKey(entity.ClassProduct, item.ProductID),
		ledger.OrderLockKey(orderID),
	}
	var movements []*entity.StockMovement
	var updated *entity.SalesOrder
	err = t.stock.Locked(keys, func() error {
		return t.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Orders.GetByID(orderID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			curItem := current.Item(itemID)
			if curItem == nil {
				return domain.ErrNotFound
			}
			// Frescura: si otro actor ensambló o reasignó en el interín, abortar.
			if !curItem.QuantityAssembled.Equal(item.QuantityAssembled) || current.Status != order.Status {
				return domain.ErrConcurrentModification
			}
			movs, err := t.stock.Apply(r, actor, []ledger.Adjustment{{
				ItemID: curItem.ProductID,
				Class:  entity.ClassProduct,
				Type:   entity.MovementTypeAssembly,
				Delta:  pending.Neg(),
				Reason: "order assembly",
			}})
			if err != nil {
				return err
			}
			curItem.QuantityAssembled = curItem.QuantityRequested
			current.AppendHistory(actor, "item_assembled", fmt.Sprintf("producto %s x %s", curItem.ProductID, pending))
			if current.Status == entity.OrderStatusReadyToAssemble {
				current.Status = entity.OrderStatusAssembling
			}
			if current.FullyAssembled() {
				current.Status = entity.OrderStatusAssembled
				current.AppendHistory(actor, "status_changed", fmt.Sprintf("%s → %s", entity.OrderStatusAssembling, entity.OrderStatusAssembled))
			}
			current.UpdatedAt = time.Now().UTC()
			if err := r.Orders.Update(current); err != nil {
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
	t.stock.EmitMovements(movements)
	return updated, nil
}
