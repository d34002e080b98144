package fulfillment

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/grupoandino/stock-engine/internal/application/audit"
	"github.com/grupoandino/stock-engine/internal/application/ledger"
	"github.com/grupoandino/stock-engine/internal/domain"
	"github.com/grupoandino/stock-engine/internal/domain/entity"
)

// ReclaimStep una reasignación planificada: qty unidades ensambladas del
// renglón donorItem pasan a acreditarse al renglón del adquirente.
type ReclaimStep struct {
	DonorOrderID string
	DonorItemID  string
	ProductID    string
	Quantity     decimal.Decimal

	// assembledSeen cantidad ensamblada observada en el pre-scan; en el commit
	// se exige que siga idéntica (optimista al planear, pesimista al confirmar).
	assembledSeen decimal.Decimal
}

// SeizureResult resultado de una reasignación por prioridad.
type SeizureResult struct {
	OrderID   string
	Steps     []ReclaimStep
	Remaining decimal.Decimal // faltante que ningún donante pudo cubrir
}

// Seize reasigna stock ya ensamblado de órdenes de prioridad estrictamente
// menor hacia la orden con faltante. Dos fases: un plan puro contra un
// snapshot y un commit bajo lock de todas las órdenes afectadas con recheck de
// frescura (mismatch → ErrConcurrentModification, nada se aplica). La
// operación nunca toca el ledger: mueve reclamos entre órdenes, la cantidad en
// mano no cambia porque ninguna orden ha despachado.
func (t *Tracker) Seize(ctx context.Context, orderID, actor string) (*SeizureResult, error) {
	acquirer, err := t.Get(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if entity.OrderTerminal(acquirer.Status) || acquirer.Status == entity.OrderStatusShipped {
		return nil, domain.ErrInvalidStateTransition
	}

	report, err := t.shortageOf(ctx, acquirer)
	if err != nil {
		return nil, err
	}
	if report.TotalShortage.IsZero() {
		return nil, domain.ErrInvalidInput
	}

	steps, remaining, err := t.planReclaim(ctx, acquirer, report)
	if err != nil {
		return nil, err
	}
	if len(steps) == 0 {
		return nil, domain.ErrSeizureNoDonors
	}

	if err := t.commitReclaim(ctx, acquirer, steps, actor); err != nil {
		return nil, err
	}

	t.emitter.Emit(audit.Event{
		Type:    audit.EventOrderSeizure,
		Actor:   actor,
		OrderID: orderID,
		Detail:  fmt.Sprintf("%d reasignaciones, faltante restante %s", len(steps), remaining),
		At:      time.Now().UTC(),
	})
	return &SeizureResult{OrderID: orderID, Steps: steps, Remaining: remaining}, nil
}

// planReclaim fase 1: función pura sobre el snapshot. Para cada renglón con
// faltante recorre los donantes válidos — órdenes activas no despachadas de
// prioridad estrictamente menor (los empates quedan excluidos) con unidades
// ensambladas del producto — del de menor prioridad hacia arriba, y dentro de
// la misma prioridad pierde primero la orden de creación más antigua.
func (t *Tracker) planReclaim(ctx context.Context, acquirer *entity.SalesOrder, report *ShortageReport) ([]ReclaimStep, decimal.Decimal, error) {
	_ = ctx
	all, err := t.orders.List()
	if err != nil {
		return nil, decimal.Zero, err
	}
	var donors []*entity.SalesOrder
	for _, o := range all {
		if o.ID == acquirer.ID {
			continue
		}
		if o.Priority >= acquirer.Priority {
			continue
		}
		if entity.OrderTerminal(o.Status) || o.Status == entity.OrderStatusShipped || o.Status == entity.OrderStatusDelivered {
			continue
		}
		donors = append(donors, o)
	}
	sort.SliceStable(donors, func(i, j int) bool {
		if donors[i].Priority != donors[j].Priority {
			return donors[i].Priority < donors[j].Priority
		}
		if !donors[i].CreatedAt.Equal(donors[j].CreatedAt) {
			return donors[i].CreatedAt.Before(donors[j].CreatedAt)
		}
		return donors[i].ID < donors[j].ID
	})

	var steps []ReclaimStep
	remaining := decimal.Zero
	for _, short := range report.Items {
		need := short.Shortage
		if need.IsZero() {
			continue
		}
		for _, donor := range donors {
			if need.IsZero() {
				break
			}
			for i := range donor.Items {
				if need.IsZero() {
					break
				}
				dItem := &donor.Items[i]
				if dItem.ProductID != short.ProductID || !dItem.QuantityAssembled.IsPositive() {
					continue
				}
				take := decimal.Min(need, dItem.QuantityAssembled)
				steps = append(steps, ReclaimStep{
					DonorOrderID:  donor.ID,
					DonorItemID:   dItem.ID,
					ProductID:     dItem.ProductID,
					Quantity:      take,
					assembledSeen: dItem.QuantityAssembled,
				})
				// Reflejar el consumo en el snapshot local para que un segundo
				// renglón del mismo producto no cuente dos veces al donante.
				dItem.QuantityAssembled = dItem.QuantityAssembled.Sub(take)
				need = need.Sub(take)
			}
		}
		remaining = remaining.Add(need)
	}
	return steps, remaining, nil
}

// commitReclaim fase 2: bajo lock de todas las órdenes afectadas, releer y
// exigir que cada donante conserve exactamente el estado ensamblado observado;
// cualquier desfase aborta la reasignación completa.
func (t *Tracker) commitReclaim(ctx context.Context, acquirer *entity.SalesOrder, steps []ReclaimStep, actor string) error {
	keys := []string{ledger.OrderLockKey(acquirer.ID)}
	for _, st := range steps {
		keys = append(keys, ledger.OrderLockKey(st.DonorOrderID))
	}
	return t.stock.Locked(keys, func() error {
		return t.txRunner.Run(ctx, func(r ledger.RepoSet) error {
			current, err := r.Orders.GetByID(acquirer.ID)
			if err != nil {
				return err
			}
			if current == nil {
				return domain.ErrNotFound
			}
			if current.Status != acquirer.Status {
				return domain.ErrConcurrentModification
			}

			// Agrupar pasos por donante y releerlos una sola vez.
			donorIDs := make([]string, 0, len(steps))
			seen := make(map[string]bool)
			for _, st := range steps {
				if !seen[st.DonorOrderID] {
					seen[st.DonorOrderID] = true
					donorIDs = append(donorIDs, st.DonorOrderID)
				}
			}
			donors := make(map[string]*entity.SalesOrder, len(donorIDs))
			for _, id := range donorIDs {
				d, err := r.Orders.GetByID(id)
				if err != nil {
					return err
				}
				if d == nil {
					return domain.ErrConcurrentModification
				}
				donors[id] = d
			}

			// Recheck de frescura antes de mutar nada.
			observed := make(map[string]decimal.Decimal)
			for _, st := range steps {
				key := st.DonorOrderID + "/" + st.DonorItemID
				if _, ok := observed[key]; !ok {
					donor := donors[st.DonorOrderID]
					dItem := donor.Item(st.DonorItemID)
					if dItem == nil {
						return domain.ErrConcurrentModification
					}
					observed[key] = dItem.QuantityAssembled
				}
				if !observed[key].Equal(st.assembledSeen) {
					return domain.ErrConcurrentModification
				}
				observed[key] = observed[key].Sub(st.Quantity)
			}

			// Aplicar: mover el reclamo, demover donantes, historial doble.
			for _, st := range steps {
				donor := donors[st.DonorOrderID]
				dItem := donor.Item(st.DonorItemID)
				dItem.QuantityAssembled = dItem.QuantityAssembled.Sub(st.Quantity)

				switch donor.Status {
				case entity.OrderStatusAssembled, entity.OrderStatusReadyToAssemble, entity.OrderStatusAssembling:
					if donor.Status != entity.OrderStatusAwaitingProduction {
						donor.AppendHistory(actor, "status_changed", fmt.Sprintf("%s → %s (seizure)", donor.Status, entity.OrderStatusAwaitingProduction))
						donor.Status = entity.OrderStatusAwaitingProduction
					}
				}
				donor.AppendHistory(actor, "stock_seized",
					fmt.Sprintf("producto %s x %s reasignado a orden %s (prioridad %s)", st.ProductID, st.Quantity, current.ID, current.Priority))

				// Repartir lo reclamado entre los renglones pendientes del producto;
				// el total ensamblado entre órdenes se conserva exacto.
				pending := st.Quantity
				for i := range current.Items {
					if pending.IsZero() {
						break
					}
					aItem := &current.Items[i]
					if aItem.ProductID != st.ProductID || aItem.Assembled() {
						continue
					}
					room := aItem.QuantityRequested.Sub(aItem.QuantityAssembled)
					grant := decimal.Min(room, pending)
					aItem.QuantityAssembled = aItem.QuantityAssembled.Add(grant)
					pending = pending.Sub(grant)
				}
				current.AppendHistory(actor, "stock_acquired",
					fmt.Sprintf("producto %s x %s tomado de orden %s", st.ProductID, st.Quantity, donor.ID))
			}

			if current.FullyAssembled() {
				if current.Status != entity.OrderStatusAssembled {
					current.AppendHistory(actor, "status_changed", fmt.Sprintf("%s → %s (seizure)", current.Status, entity.OrderStatusAssembled))
					current.Status = entity.OrderStatusAssembled
				}
			}

			now := time.Now().UTC()
			current.UpdatedAt = now
			if err := r.Orders.Update(current); err != nil {
				return err
			}
			for _, id := range donorIDs {
				donors[id].UpdatedAt = now
				if err := r.Orders.Update(donors[id]); err != nil {
					return err
				}
			}
			return nil
		})
	})
}
