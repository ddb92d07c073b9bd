package store

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hearth/internal/audit"
	"hearth/pkg/domain"
	"hearth/pkg/testutil"
)

func entryAt(id string, at time.Time, action audit.Action) *audit.Entry {
	return &audit.Entry{
		ID:           id,
		ActorID:      testutil.TestIDs.SuperAdminID,
		Action:       action,
		ResourceKind: audit.ResourceHousehold,
		ResourceID:   testutil.TestIDs.TenantID1.String(),
		CreatedAt:    at,
	}
}

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()
	base := testutil.FixedTime

	require.NoError(t, s.Append(ctx, entryAt("01A", base, audit.ActionHouseholdSuspend)))
	require.NoError(t, s.Append(ctx, entryAt("01C", base.Add(time.Second), audit.ActionHouseholdUnsuspend)))
	require.NoError(t, s.Append(ctx, entryAt("01B", base.Add(time.Second), audit.ActionPlanChange)))

	t.Run("newest first", func(t *testing.T) {
		res, err := s.Query(ctx, audit.Filter{}, domain.Page{Limit: 10})
		require.NoError(t, err)
		var got []string
		for _, e := range res.Items {
			got = append(got, e.ID)
		}
		assert.Equal(t, []string{"01C", "01B", "01A"}, got)
	})

	t.Run("append copies the entry", func(t *testing.T) {
		e := entryAt("01D", base.Add(time.Hour), audit.ActionRoleChange)
		e.Details = map[string]any{"role": "ADMIN"}
		require.NoError(t, s.Append(ctx, e))
		e.Details["role"] = "SUPER_ADMIN"

		res, err := s.Query(ctx, audit.Filter{Action: audit.ActionRoleChange}, domain.Page{Limit: 10})
		require.NoError(t, err)
		require.Len(t, res.Items, 1)
		assert.Equal(t, "ADMIN", res.Items[0].Details["role"])
	})

	t.Run("offset past the end is empty", func(t *testing.T) {
		res, err := s.Query(ctx, audit.Filter{}, domain.Page{Limit: 10, Offset: 50})
		require.NoError(t, err)
		assert.Empty(t, res.Items)
		assert.False(t, res.HasMore)
	})
}

func TestPostgresStore_Append(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	e := entryAt("01HV", testutil.FixedTime, audit.ActionHouseholdSuspend)
	e.Details = map[string]any{"reason": "fraud"}
	e.RequestID = "req-1"

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO audit_log")).
		WithArgs("01HV", uuid.UUID(e.ActorID).String(), "", "HOUSEHOLD_SUSPEND", "household",
			e.ResourceID, []byte(`{"reason":"fraud"}`), "req-1", testutil.FixedTime).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, NewPostgres(db).Append(context.Background(), e))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_AppendError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec("INSERT INTO audit_log").WillReturnError(errors.New("connection reset"))

	err = NewPostgres(db).Append(context.Background(), entryAt("01HV", testutil.FixedTime, audit.ActionPlanChange))
	assert.ErrorContains(t, err, "insert audit entry")
}

func TestPostgresStore_Query(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	from := testutil.FixedTime.Add(-time.Hour)
	columns := []string{"id", "actor_id", "actor_label", "action", "resource_kind",
		"resource_id", "details", "request_id", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("01B", testutil.TestIDs.SuperAdminID.String(), "ops@hearth", "PLAN_CHANGE", "household",
			"h1", []byte(`{"to":"PREMIUM"}`), "req-2", testutil.FixedTime).
		AddRow("01A", testutil.TestIDs.SuperAdminID.String(), "", "PLAN_CHANGE", "household",
			nil, nil, nil, testutil.FixedTime.Add(-time.Minute)).
		AddRow("019", testutil.TestIDs.SuperAdminID.String(), "", "PLAN_CHANGE", "household",
			nil, nil, nil, testutil.FixedTime.Add(-2*time.Minute))

	mock.ExpectQuery(`FROM audit_log\s+WHERE action = \$1 AND created_at >= \$2\s+ORDER BY created_at DESC, id DESC\s+LIMIT \$3 OFFSET \$4`).
		WithArgs("PLAN_CHANGE", from, 3, 0).
		WillReturnRows(rows)

	res, err := NewPostgres(db).Query(context.Background(),
		audit.Filter{Action: audit.ActionPlanChange, From: from}, domain.Page{Limit: 2})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.True(t, res.HasMore)
	assert.Equal(t, "PREMIUM", res.Items[0].Details["to"])
	assert.Equal(t, testutil.TestIDs.SuperAdminID, res.Items[0].ActorID)
	assert.Empty(t, res.Items[1].ResourceID)
	assert.Nil(t, res.Items[1].Details)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFilterClause(t *testing.T) {
	where, args := filterClause(audit.Filter{})
	assert.Empty(t, where)
	assert.Empty(t, args)

	where, args = filterClause(audit.Filter{
		ActorID:      testutil.TestIDs.SuperAdminID,
		ResourceKind: audit.ResourceUser,
		ResourceID:   "u1",
		To:           testutil.FixedTime,
	})
	assert.Equal(t, "WHERE actor_id = $1 AND resource_kind = $2 AND resource_id = $3 AND created_at < $4", where)
	assert.Len(t, args, 4)
}
