package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"hearth/internal/quota"
	"hearth/pkg/domain"
)

// countQueries holds one fixed query per kind so no table name is ever built
// from input.
var countQueries = map[quota.ResourceKind]string{
	quota.ResourceMembers:        `SELECT COUNT(*) FROM users WHERE tenant_id = $1`,
	quota.ResourceTasks:          `SELECT COUNT(*) FROM tasks WHERE household_id = $1 AND deleted_at IS NULL`,
	quota.ResourceVehicles:       `SELECT COUNT(*) FROM vehicles WHERE household_id = $1 AND deleted_at IS NULL`,
	quota.ResourcePets:           `SELECT COUNT(*) FROM pets WHERE household_id = $1 AND deleted_at IS NULL`,
	quota.ResourceChildren:       `SELECT COUNT(*) FROM children WHERE household_id = $1 AND deleted_at IS NULL`,
	quota.ResourceEmployees:      `SELECT COUNT(*) FROM employees WHERE household_id = $1 AND deleted_at IS NULL`,
	quota.ResourceInventoryItems: `SELECT COUNT(*) FROM inventory_items WHERE household_id = $1 AND deleted_at IS NULL`,
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Count(ctx context.Context, tenantID domain.TenantID, kind quota.ResourceKind) (int, error) {
	query, ok := countQueries[kind]
	if !ok {
		return 0, fmt.Errorf("no counter for resource kind %q", kind)
	}
	var n int
	if err := s.db.QueryRowContext(ctx, query, uuid.UUID(tenantID)).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", kind, err)
	}
	return n, nil
}
