package tx

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	dErrors "audittrail/pkg/domain-errors"
)

// SQL runs transactions against a database/sql pool.
type SQL struct {
	db      *sql.DB
	timeout time.Duration
}

// SQLOption configures a SQL runner.
type SQLOption func(*SQL)

// WithTimeout bounds transactions whose context carries no deadline.
func WithTimeout(d time.Duration) SQLOption {
	return func(s *SQL) { s.timeout = d }
}

func NewSQL(db *sql.DB, opts ...SQLOption) *SQL {
	s := &SQL{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *SQL) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	if _, ok := From(ctx); ok {
		return fn(ctx)
	}

	ctx, cancel := withDefaultTimeout(ctx, s.timeout)
	defer cancel()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		_ = tx.Rollback() //nolint:errcheck // rollback after commit is no-op; error already captured
	}()

	if err := fn(WithTx(ctx, tx)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
