package testutil

import (
	"time"

	"github.com/google/uuid"

	"hearth/pkg/domain"
)

// TestIDs provides deterministic IDs for tests.
var TestIDs = struct {
	SuperAdminID  domain.UserID
	SuperAdmin2ID domain.UserID
	UserID1       domain.UserID
	UserID2       domain.UserID
	TenantID1     domain.TenantID
	TenantID2     domain.TenantID
	SessionID1    domain.SessionID
	SessionID2    domain.SessionID
}{
	SuperAdminID:  domain.UserID(uuid.MustParse("00000000-0000-0000-0000-0000000000a1")),
	SuperAdmin2ID: domain.UserID(uuid.MustParse("00000000-0000-0000-0000-0000000000a2")),
	UserID1:       domain.UserID(uuid.MustParse("11111111-1111-1111-1111-111111111111")),
	UserID2:       domain.UserID(uuid.MustParse("22222222-2222-2222-2222-222222222222")),
	TenantID1:     domain.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000001")),
	TenantID2:     domain.TenantID(uuid.MustParse("aaaa0000-0000-0000-0000-000000000002")),
	SessionID1:    domain.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000001")),
	SessionID2:    domain.SessionID(uuid.MustParse("eeee0000-0000-0000-0000-000000000002")),
}

// FixedTime is the reference instant used by time-sensitive tests.
var FixedTime = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// SuperAdmin returns a super admin principal with no household.
func SuperAdmin() *domain.Principal {
	return &domain.Principal{SubjectID: TestIDs.SuperAdminID, Role: domain.RoleSuperAdmin}
}

// Member returns a principal with the given role inside TenantID1.
func Member(role domain.Role) *domain.Principal {
	return &domain.Principal{
		SubjectID:    TestIDs.UserID1,
		Role:         role,
		TenantID:     TestIDs.TenantID1,
		TenantStatus: domain.TenantStatusActive,
	}
}
