// Package tx provides the transactional boundary shared by services: a
// mutation and its audit record commit together or not at all.
package tx

import (
	"context"
	"database/sql"
	"sync"
	"time"

	dErrors "hearth/pkg/domain-errors"
)

// Runner executes fn inside a transaction. Nested calls join the outer one.
type Runner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Executor is the subset of *sql.DB and *sql.Tx used by postgres stores.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const defaultTimeout = 5 * time.Second

type ctxKeyTx struct{}

// WithTx attaches an open transaction to ctx.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	return context.WithValue(ctx, ctxKeyTx{}, tx)
}

// From returns the transaction attached to ctx, if any.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(ctxKeyTx{}).(*sql.Tx)
	return tx, ok && tx != nil
}

// Conn returns the transaction in ctx or falls back to db.
func Conn(ctx context.Context, db *sql.DB) Executor {
	if tx, ok := From(ctx); ok {
		return tx
	}
	return db
}

func withDefaultTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout == 0 {
		timeout = defaultTimeout
	}
	if _, hasDeadline := ctx.Deadline(); hasDeadline {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, timeout)
}

func aborted(err error) error {
	return dErrors.Wrap(err, dErrors.CodeUnavailable, "transaction aborted: context cancelled")
}

// Postgres runs fn inside a database/sql transaction.
type Postgres struct {
	db      *sql.DB
	timeout time.Duration
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (t *Postgres) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	sqlTx, err := t.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "begin transaction")
	}
	defer func() {
		_ = sqlTx.Rollback() //nolint:errcheck // no-op after commit
	}()

	if err := fn(WithTx(ctx, sqlTx)); err != nil {
		return err
	}
	if err := sqlTx.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "commit transaction")
	}
	return nil
}

type ctxKeyMemTx struct{}

// InMemory serializes mutations against in-memory stores. It gives isolation
// but cannot roll back writes already applied before fn fails.
type InMemory struct {
	mu      sync.Mutex
	timeout time.Duration
}

func NewInMemory() *InMemory {
	return &InMemory{}
}

func (t *InMemory) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	if ctx.Value(ctxKeyMemTx{}) == t {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, t.timeout)
	defer cancel()

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return aborted(err)
	}
	return fn(context.WithValue(ctx, ctxKeyMemTx{}, t))
}
