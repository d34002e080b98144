package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/grupoandino/stock-engine/internal/application/ledger"
)

var _ ledger.TxRunner = (*TxRunner)(nil)

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
// Garantiza la atomicidad todo-o-nada de las mutaciones del motor.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// NewRepoSet repos atados a un Querier (pool para lecturas, tx para escrituras).
func NewRepoSet(q Querier) ledger.RepoSet {
	return ledger.RepoSet{
		Items:      NewStockItemRepository(q),
		Materials:  NewRawMaterialRepository(q),
		Movements:  NewStockMovementRepository(q),
		Orders:     NewSalesOrderRepository(q),
		Production: NewProductionOrderRepository(q),
		BOMs:       NewBOMRepository(q),
		Checks:     NewInventoryCheckRepository(q),
	}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(repos ledger.RepoSet) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(NewRepoSet(tx)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
