package store

import (
	"context"
	"database/sql"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/user/models"
	"hearth/pkg/domain"
	"hearth/pkg/platform/sentinel"
	"hearth/pkg/platform/tx"
	"hearth/pkg/testutil"
)

var columns = []string{"id", "tenant_id", "email", "display_name", "role", "password_hash", "must_change_password", "created_at", "updated_at"}

func newUser(t *testing.T, tenant domain.TenantID, email string, role domain.Role) *models.User {
	t.Helper()
	u, err := models.NewUser(domain.NewUserID(), tenant, email, "Someone", role, testutil.FixedTime)
	require.NoError(t, err)
	return u
}

func TestInMemory(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	u := newUser(t, testutil.TestIDs.TenantID1, "a@example.com", domain.RoleParent)
	require.NoError(t, s.Create(ctx, u))

	t.Run("duplicate email conflicts", func(t *testing.T) {
		err := s.Create(ctx, newUser(t, testutil.TestIDs.TenantID2, "a@example.com", domain.RoleMember))
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})

	t.Run("returns copies", func(t *testing.T) {
		got, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		got.Role = domain.RoleAdmin

		again, err := s.FindByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RoleParent, again.Role)
	})

	t.Run("update of unknown user", func(t *testing.T) {
		err := s.Update(ctx, newUser(t, testutil.TestIDs.TenantID1, "b@example.com", domain.RoleMember))
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})

	t.Run("counts per household", func(t *testing.T) {
		require.NoError(t, s.Create(ctx, newUser(t, testutil.TestIDs.TenantID1, "c@example.com", domain.RoleMember)))
		n, err := s.CountByTenant(ctx, testutil.TestIDs.TenantID1)
		require.NoError(t, err)
		assert.Equal(t, 2, n)
	})
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db, mock
}

func TestPostgres_Create(t *testing.T) {
	t.Run("super admin has a null tenant", func(t *testing.T) {
		db, mock := newMock(t)
		u := newUser(t, domain.TenantID{}, "ops@example.com", domain.RoleSuperAdmin)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO users")).
			WithArgs(u.ID.String(), nil, "ops@example.com", "Someone", "SUPER_ADMIN", "", false, testutil.FixedTime, testutil.FixedTime).
			WillReturnResult(sqlmock.NewResult(0, 1))

		require.NoError(t, NewPostgres(db).Create(context.Background(), u))
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("unique violation is a conflict", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectExec("INSERT INTO users").WillReturnError(&pgconn.PgError{Code: "23505"})

		err := NewPostgres(db).Create(context.Background(), newUser(t, testutil.TestIDs.TenantID1, "x@example.com", domain.RoleMember))
		assert.ErrorIs(t, err, sentinel.ErrConflict)
	})
}

func TestPostgres_FindByID(t *testing.T) {
	id := testutil.TestIDs.UserID1

	t.Run("maps the row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery(regexp.QuoteMeta("FROM users WHERE id = $1")).
			WithArgs(id.String()).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id.String(), testutil.TestIDs.TenantID1.String(), "a@example.com", "Pat", "PARENT", "hash", true,
				testutil.FixedTime, testutil.FixedTime))

		u, err := NewPostgres(db).FindByID(context.Background(), id)
		require.NoError(t, err)
		assert.Equal(t, id, u.ID)
		assert.Equal(t, testutil.TestIDs.TenantID1, u.TenantID)
		assert.Equal(t, domain.RoleParent, u.Role)
		assert.True(t, u.MustChangePassword)
	})

	t.Run("locks inside a transaction", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectBegin()
		mock.ExpectQuery(`FROM users WHERE id = \$1 FOR UPDATE`).
			WillReturnRows(sqlmock.NewRows(columns).AddRow(
				id.String(), nil, "ops@example.com", "Ops", "SUPER_ADMIN", "", false, testutil.FixedTime, testutil.FixedTime))
		mock.ExpectCommit()

		err := tx.NewPostgres(db).RunInTx(context.Background(), func(ctx context.Context) error {
			u, err := NewPostgres(db).FindByID(ctx, id)
			if err == nil {
				assert.True(t, u.TenantID.IsNil())
			}
			return err
		})
		require.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing row", func(t *testing.T) {
		db, mock := newMock(t)
		mock.ExpectQuery("FROM users").WillReturnError(sql.ErrNoRows)

		_, err := NewPostgres(db).FindByID(context.Background(), id)
		assert.ErrorIs(t, err, sentinel.ErrNotFound)
	})
}

func TestPostgres_Update(t *testing.T) {
	db, mock := newMock(t)
	u := newUser(t, testutil.TestIDs.TenantID1, "a@example.com", domain.RoleMember)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE users")).WillReturnResult(sqlmock.NewResult(0, 0))

	err := NewPostgres(db).Update(context.Background(), u)
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CountByTenant(t *testing.T) {
	db, mock := newMock(t)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM users WHERE tenant_id = $1")).
		WithArgs(testutil.TestIDs.TenantID1.String()).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(4))

	n, err := NewPostgres(db).CountByTenant(context.Background(), testutil.TestIDs.TenantID1)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
}
