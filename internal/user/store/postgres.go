package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"hearth/internal/user/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
)

const userColumns = `id, tenant_id, email, display_name, role, password_hash, must_change_password, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, u *models.User) error {
	query := `INSERT INTO users (` + userColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		nullTenant(u.TenantID),
		u.Email,
		u.DisplayName,
		string(u.Role),
		u.PasswordHash,
		u.MustChangePassword,
		u.CreatedAt,
		u.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return fmt.Errorf("email already registered: %w", sentinel.ErrConflict)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, u *models.User) error {
	query := `
		UPDATE users
		SET display_name = $2, role = $3, password_hash = $4, must_change_password = $5, updated_at = $6
		WHERE id = $1
	`
	res, err := tx.Conn(ctx, s.db).ExecContext(ctx, query,
		uuid.UUID(u.ID),
		u.DisplayName,
		string(u.Role),
		u.PasswordHash,
		u.MustChangePassword,
		u.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update user rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, id domain.UserID) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	if _, inTx := tx.From(ctx); inTx {
		query += ` FOR UPDATE`
	}
	var (
		u        models.User
		userID   uuid.UUID
		tenantID uuid.NullUUID
		role     string
	)
	err := tx.Conn(ctx, s.db).QueryRowContext(ctx, query, uuid.UUID(id)).Scan(
		&userID, &tenantID, &u.Email, &u.DisplayName, &role,
		&u.PasswordHash, &u.MustChangePassword, &u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("user not found: %w", sentinel.ErrNotFound)
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	u.ID = domain.UserID(userID)
	if tenantID.Valid {
		u.TenantID = domain.TenantID(tenantID.UUID)
	}
	u.Role = domain.Role(role)
	return &u, nil
}

func (s *PostgresStore) CountByTenant(ctx context.Context, tenantID domain.TenantID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users WHERE tenant_id = $1`, uuid.UUID(tenantID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count users by household: %w", err)
	}
	return n, nil
}

func nullTenant(id domain.TenantID) uuid.NullUUID {
	return uuid.NullUUID{UUID: uuid.UUID(id), Valid: !id.IsNil()}
}
