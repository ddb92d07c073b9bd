package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"hearth/internal/impersonation/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
)

const sessionColumns = `id, actor_id, target_id, target_tenant_id, started_at, ended_at, action_count`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, session *models.Session) error {
	query := `INSERT INTO impersonation_sessions (` + sessionColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(session.ID),
		uuid.UUID(session.ActorID),
		uuid.UUID(session.TargetID),
		uuid.UUID(session.TargetTenantID),
		session.StartedAt,
		nullTime(session.EndedAt),
		session.ActionCount,
	)
	if err != nil {
		return fmt.Errorf("create impersonation session: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.SessionID) (*models.Session, error) {
	query := `SELECT ` + sessionColumns + ` FROM impersonation_sessions WHERE id = $1`
	session, err := scanSession(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("impersonation session not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find impersonation session: %w", err)
	}
	return session, nil
}

// MarkEnded only touches rows whose ended_at is still null, so concurrent
// ends resolve to a single winner.
func (s *PostgresStore) MarkEnded(ctx context.Context, id domain.SessionID, at time.Time) (bool, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE impersonation_sessions SET ended_at = $2 WHERE id = $1 AND ended_at IS NULL`,
		uuid.UUID(id), at)
	if err != nil {
		return false, fmt.Errorf("end impersonation session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("end impersonation session rows: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) Delete(ctx context.Context, session *models.Session) error {
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`DELETE FROM impersonation_sessions WHERE id = $1`, uuid.UUID(session.ID))
	if err != nil {
		return fmt.Errorf("delete impersonation session: %w", err)
	}
	return nil
}

// Reopen undoes a MarkEnded whose ended_at is still endedAt.
func (s *PostgresStore) Reopen(ctx context.Context, id domain.SessionID, endedAt time.Time) (bool, error) {
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx,
		`UPDATE impersonation_sessions SET ended_at = NULL WHERE id = $1 AND ended_at = $2`,
		uuid.UUID(id), endedAt)
	if err != nil {
		return false, fmt.Errorf("reopen impersonation session: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("reopen impersonation session rows: %w", err)
	}
	return rows == 1, nil
}

func (s *PostgresStore) IncrementActions(ctx context.Context, id domain.SessionID) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE impersonation_sessions SET action_count = action_count + 1 WHERE id = $1`,
		uuid.UUID(id))
	if err != nil {
		return fmt.Errorf("increment impersonation actions: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("increment impersonation actions rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListOpenByActor(ctx context.Context, actorID domain.UserID, since time.Time) ([]*models.Session, error) {
	query := `
		SELECT ` + sessionColumns + `
		FROM impersonation_sessions
		WHERE actor_id = $1 AND ended_at IS NULL AND started_at > $2
		ORDER BY started_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, uuid.UUID(actorID), since)
	if err != nil {
		return nil, fmt.Errorf("list open impersonation sessions: %w", err)
	}
	defer rows.Close()
	return collectSessions(rows)
}

func (s *PostgresStore) CountOpenByTenant(ctx context.Context, tenantID domain.TenantID, since time.Time) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM impersonation_sessions WHERE target_tenant_id = $1 AND ended_at IS NULL AND started_at > $2`,
		uuid.UUID(tenantID), since).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count open impersonation sessions: %w", err)
	}
	return n, nil
}

func (s *PostgresStore) History(ctx context.Context, filter models.HistoryFilter, page domain.Page) (domain.PageResult[*models.Session], error) {
	where, args := historyClause(filter)
	args = append(args, page.Limit+1, page.Offset)
	query := `SELECT ` + sessionColumns + ` FROM impersonation_sessions` + where +
		` ORDER BY started_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PageResult[*models.Session]{}, fmt.Errorf("query impersonation history: %w", err)
	}
	defer rows.Close()
	sessions, err := collectSessions(rows)
	if err != nil {
		return domain.PageResult[*models.Session]{}, err
	}
	return domain.NewPageResult(sessions, page), nil
}

func historyClause(f models.HistoryFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, cond+" $"+strconv.Itoa(len(args)))
	}
	if !f.ActorID.IsNil() {
		add("actor_id =", uuid.UUID(f.ActorID))
	}
	if !f.TargetID.IsNil() {
		add("target_id =", uuid.UUID(f.TargetID))
	}
	if !f.From.IsZero() {
		add("started_at >=", f.From)
	}
	if !f.To.IsZero() {
		add("started_at <", f.To)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSession(row scanner) (*models.Session, error) {
	var session models.Session
	var id, actorID, targetID, targetTenant uuid.UUID
	var endedAt sql.NullTime
	if err := row.Scan(&id, &actorID, &targetID, &targetTenant, &session.StartedAt, &endedAt, &session.ActionCount); err != nil {
		return nil, err
	}
	session.ID = domain.SessionID(id)
	session.ActorID = domain.UserID(actorID)
	session.TargetID = domain.UserID(targetID)
	session.TargetTenantID = domain.TenantID(targetTenant)
	if endedAt.Valid {
		t := endedAt.Time
		session.EndedAt = &t
	}
	return &session, nil
}

func collectSessions(rows *sql.Rows) ([]*models.Session, error) {
	out := make([]*models.Session, 0)
	for rows.Next() {
		session, err := scanSession(rows)
		if err != nil {
			return nil, fmt.Errorf("scan impersonation session: %w", err)
		}
		out = append(out, session)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate impersonation sessions: %w", err)
	}
	return out, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
