package outbox

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"hearth/internal/audit"
	"hearth/pkg/platform/tx"
)

const maxBatch = 1000

// PostgresStore persists records in audit_outbox. Appends join the caller's
// transaction.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, record *Record) error {
	query := `
		INSERT INTO audit_outbox (id, action, resource_kind, payload, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		record.ID,
		string(record.Action),
		record.ResourceKind,
		record.Payload,
		record.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert outbox record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FetchPending(ctx context.Context, limit int) ([]*Record, error) {
	if limit <= 0 {
		return nil, nil
	}
	limit = min(limit, maxBatch)

	query := `
		SELECT id, action, resource_kind, payload, created_at
		FROM audit_outbox
		WHERE published_at IS NULL
		ORDER BY created_at, id
		LIMIT $1
	`
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch pending outbox records: %w", err)
	}
	defer rows.Close()

	var out []*Record
	for rows.Next() {
		var (
			r      Record
			action string
		)
		if err := rows.Scan(&r.ID, &action, &r.ResourceKind, &r.Payload, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan outbox record: %w", err)
		}
		r.Action = audit.Action(action)
		out = append(out, &r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outbox records: %w", err)
	}
	return out, nil
}

func (s *PostgresStore) MarkPublished(ctx context.Context, id string, at time.Time) error {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE audit_outbox SET published_at = $2 WHERE id = $1 AND published_at IS NULL`, id, at)
	if err != nil {
		return fmt.Errorf("mark outbox record published: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotPending
	}
	return nil
}

func (s *PostgresStore) CountPending(ctx context.Context) (int64, error) {
	var n int64
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx,
		`SELECT COUNT(*) FROM audit_outbox WHERE published_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count pending outbox records: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) DeletePublishedBefore(ctx context.Context, before time.Time) (int64, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM audit_outbox WHERE published_at IS NOT NULL AND published_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("delete published outbox records: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
