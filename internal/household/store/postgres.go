package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"hearth/internal/household/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
)

const householdColumns = `id, name, status, plan, subscription_status, suspended_at, suspend_reason, created_at, updated_at`

// PostgresStore persists households. Reads inside a transaction lock the row
// so concurrent transitions serialize.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, h *models.Household) error {
	if h == nil {
		return fmt.Errorf("household is required")
	}
	query := `
		INSERT INTO households (` + householdColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	plan, subStatus := subscriptionArgs(h.Subscription)
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(h.ID),
		h.Name,
		string(h.Status),
		plan,
		subStatus,
		nullTime(h.SuspendedAt),
		nullString(h.SuspendReason),
		h.CreatedAt,
		h.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("household name must be unique: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create household: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, h *models.Household) error {
	if h == nil {
		return fmt.Errorf("household is required")
	}
	query := `
		UPDATE households
		SET name = $2, status = $3, plan = $4, subscription_status = $5,
		    suspended_at = $6, suspend_reason = $7, updated_at = $8
		WHERE id = $1
	`
	plan, subStatus := subscriptionArgs(h.Subscription)
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(h.ID),
		h.Name,
		string(h.Status),
		plan,
		subStatus,
		nullTime(h.SuspendedAt),
		nullString(h.SuspendReason),
		h.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update household: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update household rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.TenantID) (*models.Household, error) {
	query := `SELECT ` + householdColumns + ` FROM households WHERE id = $1`
	if _, inTx := tx.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	h, err := scanHousehold(tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find household by id: %w", err)
	}
	return h, nil
}

// FindStatus reads only the status column. It backs the per-request
// suspension check and never takes a lock.
func (s *PostgresStore) FindStatus(ctx context.Context, id domain.TenantID) (domain.TenantStatus, error) {
	var status string
	err := s.db.QueryRowContext(ctx, `SELECT status FROM households WHERE id = $1`, uuid.UUID(id)).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find household status: %w", err)
	}
	return domain.TenantStatus(status), nil
}

// FindSubscription returns nil without error when the household has no plan on record.
func (s *PostgresStore) FindSubscription(ctx context.Context, id domain.TenantID) (*domain.Subscription, error) {
	var plan, status sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT plan, subscription_status FROM households WHERE id = $1`, uuid.UUID(id)).Scan(&plan, &status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find household subscription: %w", err)
	}
	return toSubscription(plan, status), nil
}

func (s *PostgresStore) List(ctx context.Context, filter models.ListFilter, page domain.Page) (domain.PageResult[*models.Household], error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}
	if filter.Status != "" {
		add("status = $%d", string(filter.Status))
	}
	if filter.Plan != "" {
		add("plan = $%d", string(filter.Plan))
	}
	if filter.Search != "" {
		add("name ILIKE '%%' || $%d || '%%'", filter.Search)
	}
	where := ""
	if len(conds) > 0 {
		where = "WHERE " + strings.Join(conds, " AND ")
	}
	args = append(args, page.Limit+1, page.Offset)

	query := fmt.Sprintf(`SELECT %s FROM households %s ORDER BY created_at DESC, id LIMIT $%d OFFSET $%d`,
		householdColumns, where, len(args)-1, len(args))
	rows, err := tx.Conn(ctx, s.db).QueryContext(ctx, query, args...)
	if err != nil {
		return domain.PageResult[*models.Household]{}, fmt.Errorf("list households: %w", err)
	}
	defer rows.Close()

	var out []*models.Household
	for rows.Next() {
		h, err := scanHousehold(rows)
		if err != nil {
			return domain.PageResult[*models.Household]{}, fmt.Errorf("scan household: %w", err)
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return domain.PageResult[*models.Household]{}, fmt.Errorf("iterate households: %w", err)
	}
	return domain.NewPageResult(out, page), nil
}

func (s *PostgresStore) Count(ctx context.Context) (int, error) {
	var count int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM households`).Scan(&count); err != nil {
		return 0, fmt.Errorf("count households: %w", err)
	}
	return count, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanHousehold(r row) (*models.Household, error) {
	var (
		h             models.Household
		id            uuid.UUID
		status        string
		plan          sql.NullString
		subStatus     sql.NullString
		suspendedAt   sql.NullTime
		suspendReason sql.NullString
	)
	if err := r.Scan(&id, &h.Name, &status, &plan, &subStatus, &suspendedAt, &suspendReason, &h.CreatedAt, &h.UpdatedAt); err != nil {
		return nil, err
	}
	h.ID = domain.TenantID(id)
	h.Status = domain.TenantStatus(status)
	h.Subscription = toSubscription(plan, subStatus)
	if suspendedAt.Valid {
		at := suspendedAt.Time
		h.SuspendedAt = &at
	}
	h.SuspendReason = suspendReason.String
	return &h, nil
}

func toSubscription(plan, status sql.NullString) *domain.Subscription {
	if !plan.Valid {
		return nil
	}
	return &domain.Subscription{Plan: domain.Plan(plan.String), Status: domain.SubscriptionStatus(status.String)}
}

func subscriptionArgs(sub *domain.Subscription) (sql.NullString, sql.NullString) {
	if sub == nil {
		return sql.NullString{}, sql.NullString{}
	}
	return nullString(string(sub.Plan)), nullString(string(sub.Status))
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
