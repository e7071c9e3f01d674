package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/autoplanner-api/internal/domain/repository"
)

var _ repository.AccountTxRunner = (*TxRunner)(nil)

// TxBeginner lo que TxRunner necesita del pool (*pgxpool.Pool lo cumple).
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// TxRunner ejecuta callbacks dentro de una transacción PostgreSQL.
type TxRunner struct {
	db        TxBeginner
	opTimeout time.Duration
}

// NewTxRunner construye el runner con el pool.
func NewTxRunner(db TxBeginner, opTimeout time.Duration) *TxRunner {
	return &TxRunner{db: db, opTimeout: opTimeout}
}

// Run inicia una transacción, ejecuta fn con repos atados a la tx y hace Commit o Rollback.
func (r *TxRunner) Run(ctx context.Context, fn func(users repository.UserRepository, businesses repository.BusinessRepository) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(context.WithoutCancel(ctx)) }()

	if err := fn(NewUserRepository(tx, r.opTimeout), NewBusinessRepository(tx, r.opTimeout)); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
