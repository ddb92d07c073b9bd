package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"hearth/internal/audit"
	"hearth/pkg/domain"
	"hearth/pkg/platform/tx"
)

// PostgresStore persists entries in audit_log. Appends join the caller's
// transaction so an entry commits with the mutation it describes.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Append(ctx context.Context, entry *audit.Entry) error {
	var details []byte
	if len(entry.Details) > 0 {
		var err error
		if details, err = json.Marshal(entry.Details); err != nil {
			return fmt.Errorf("marshal audit details: %w", err)
		}
	}

	query := `
		INSERT INTO audit_log (
			id, actor_id, actor_label, action, resource_kind,
			resource_id, details, request_id, created_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		entry.ID,
		uuid.UUID(entry.ActorID),
		entry.ActorLabel,
		string(entry.Action),
		entry.ResourceKind,
		nullString(entry.ResourceID),
		details,
		nullString(entry.RequestID),
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) Query(ctx context.Context, filter audit.Filter, page domain.Page) (domain.PageResult[*audit.Entry], error) {
	where, args := filterClause(filter)
	args = append(args, page.Limit+1, page.Offset)

	query := fmt.Sprintf(`
		SELECT id, actor_id, actor_label, action, resource_kind,
			   resource_id, details, request_id, created_at
		FROM audit_log
		%s
		ORDER BY created_at DESC, id DESC
		LIMIT $%d OFFSET $%d
	`, where, len(args)-1, len(args))

	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PageResult[*audit.Entry]{}, fmt.Errorf("query audit log: %w", err)
	}
	defer rows.Close()

	var entries []*audit.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return domain.PageResult[*audit.Entry]{}, err
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return domain.PageResult[*audit.Entry]{}, fmt.Errorf("iterate audit log: %w", err)
	}
	return domain.NewPageResult(entries, page), nil
}

func filterClause(f audit.Filter) (string, []any) {
	var conds []string
	var args []any
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if !f.ActorID.IsNil() {
		add("actor_id = $%d", uuid.UUID(f.ActorID))
	}
	if f.Action != "" {
		add("action = $%d", string(f.Action))
	}
	if f.ResourceKind != "" {
		add("resource_kind = $%d", f.ResourceKind)
	}
	if f.ResourceID != "" {
		add("resource_id = $%d", f.ResourceID)
	}
	if !f.From.IsZero() {
		add("created_at >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("created_at < $%d", f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conds, " AND "), args
}

func scanEntry(rows *sql.Rows) (*audit.Entry, error) {
	var (
		e          audit.Entry
		actorID    uuid.UUID
		action     string
		resourceID sql.NullString
		details    []byte
		requestID  sql.NullString
	)
	if err := rows.Scan(&e.ID, &actorID, &e.ActorLabel, &action, &e.ResourceKind,
		&resourceID, &details, &requestID, &e.CreatedAt); err != nil {
		return nil, fmt.Errorf("scan audit entry: %w", err)
	}
	e.ActorID = domain.UserID(actorID)
	e.Action = audit.Action(action)
	e.ResourceID = resourceID.String
	e.RequestID = requestID.String
	if len(details) > 0 {
		if err := json.Unmarshal(details, &e.Details); err != nil {
			return nil, fmt.Errorf("unmarshal audit details: %w", err)
		}
	}
	return &e, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
