package database

import (
	"context"
	"database/sql"

	apperror "stockledger/internal/errors"
)

// Executor é o subconjunto comum entre *sql.DB e *sql.Tx usado pelos repositórios.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type txKey struct{}

type txState struct {
	tx         *sql.Tx
	afterHooks []func()
}

// Transactor abre transações e as propaga pelo context.
// Repositórios chamados com esse context usam a mesma *sql.Tx.
type Transactor struct {
	db *sql.DB
}

// NewTransactor cria um Transactor sobre o pool informado.
func NewTransactor(db *sql.DB) *Transactor {
	return &Transactor{db: db}
}

// WithinTx executa fn dentro de uma transação. Erro em fn faz rollback;
// chamadas aninhadas reaproveitam a transação externa.
func (t *Transactor) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if InTx(ctx) {
		return fn(ctx)
	}

	tx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return apperror.NewDBError("failed to start tx", err)
	}

	state := &txState{tx: tx}
	if err := fn(context.WithValue(ctx, txKey{}, state)); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return apperror.NewDBError("failed to commit tx", err)
	}

	for _, hook := range state.afterHooks {
		hook()
	}
	return nil
}

// InTx indica se o context carrega uma transação aberta.
func InTx(ctx context.Context) bool {
	_, ok := ctx.Value(txKey{}).(*txState)
	return ok
}

// ExecutorFrom devolve a transação do context, ou o pool quando não há transação.
func ExecutorFrom(ctx context.Context, db *sql.DB) Executor {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		return state.tx
	}
	return db
}

// AfterCommit agenda fn para depois do commit da transação corrente.
// Fora de transação, fn roda imediatamente.
func AfterCommit(ctx context.Context, fn func()) {
	if state, ok := ctx.Value(txKey{}).(*txState); ok {
		state.afterHooks = append(state.afterHooks, fn)
		return
	}
	fn()
}
