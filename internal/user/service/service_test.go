package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"hearth/internal/audit"
	auditstore "hearth/internal/audit/store"
	"hearth/internal/user/models"
	"hearth/internal/user/store"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
	"hearth/pkg/secrets"
	"hearth/pkg/testutil"
)

type statuses map[domain.TenantID]domain.TenantStatus

func (m statuses) TenantStatus(_ context.Context, id domain.TenantID) (domain.TenantStatus, error) {
	st, ok := m[id]
	if !ok {
		return "", dErrors.New(dErrors.CodeNotFound, "household not found")
	}
	return st, nil
}

type ServiceSuite struct {
	suite.Suite
	ctx     context.Context
	trail   *audit.Service
	service *Service
	parent  *models.User
	member  *models.User
	admin   *models.User
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	var err error
	s.trail, err = audit.NewService(auditstore.NewInMemory())
	s.Require().NoError(err)
	s.service, err = New(store.NewInMemory(),
		statuses{testutil.TestIDs.TenantID1: domain.TenantStatusSuspended},
		s.trail,
		WithHasher(secrets.NewHasher(bcrypt.MinCost)),
	)
	s.Require().NoError(err)

	s.parent, err = s.service.Create(s.ctx, testutil.TestIDs.TenantID1, "parent@example.com", "Pat", domain.RoleParent)
	s.Require().NoError(err)
	s.member, err = s.service.Create(s.ctx, testutil.TestIDs.TenantID1, "kid@example.com", "Kim", domain.RoleMember)
	s.Require().NoError(err)
	s.admin, err = s.service.Create(s.ctx, domain.TenantID{}, "ops@example.com", "Ops", domain.RoleSuperAdmin)
	s.Require().NoError(err)
}

func (s *ServiceSuite) auditCount(action audit.Action) int {
	res, err := s.trail.Query(s.ctx, audit.Filter{Action: action}, domain.Page{})
	s.Require().NoError(err)
	return len(res.Items)
}

func (s *ServiceSuite) TestFindPrincipal() {
	p, err := s.service.FindPrincipal(s.ctx, s.parent.ID)
	s.Require().NoError(err)
	s.Equal(&domain.Principal{
		SubjectID:    s.parent.ID,
		Role:         domain.RoleParent,
		TenantID:     testutil.TestIDs.TenantID1,
		TenantStatus: domain.TenantStatusSuspended,
	}, p)

	p, err = s.service.FindPrincipal(s.ctx, s.admin.ID)
	s.Require().NoError(err)
	s.False(p.HasTenant())

	_, err = s.service.FindPrincipal(s.ctx, testutil.TestIDs.UserID2)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestResetPassword() {
	s.Run("returns a password matching the stored hash and audits once", func() {
		password, err := s.service.ResetPassword(s.ctx, testutil.SuperAdmin(), s.parent.ID)
		s.Require().NoError(err)
		s.Len(password, secrets.TemporaryPasswordLength)

		u, err := s.service.Get(s.ctx, s.parent.ID)
		s.Require().NoError(err)
		s.True(u.MustChangePassword)
		s.NoError(secrets.Verify(password, u.PasswordHash))
		s.Equal(1, s.auditCount(audit.ActionPasswordReset))
	})

	s.Run("audit details never contain the password", func() {
		res, err := s.trail.Query(s.ctx, audit.Filter{Action: audit.ActionPasswordReset}, domain.Page{})
		s.Require().NoError(err)
		s.Equal([]string{"household_id"}, keys(res.Items[0].Details))
	})

	s.Run("household admins cannot reset", func() {
		_, err := s.service.ResetPassword(s.ctx, testutil.Member(domain.RoleAdmin), s.parent.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("super admin passwords are out of reach", func() {
		_, err := s.service.ResetPassword(s.ctx, testutil.SuperAdmin(), s.admin.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		s.Equal(1, s.auditCount(audit.ActionPasswordReset))
	})
}

func (s *ServiceSuite) TestChangeRole() {
	s.Run("super admin changes any household user", func() {
		u, err := s.service.ChangeRole(s.ctx, testutil.SuperAdmin(), s.member.ID, domain.RoleStaff)
		s.Require().NoError(err)
		s.Equal(domain.RoleStaff, u.Role)
		s.Equal(1, s.auditCount(audit.ActionRoleChange))
	})

	s.Run("household admin changes users of their own household", func() {
		actor := &domain.Principal{SubjectID: testutil.TestIDs.UserID1, Role: domain.RoleAdmin, TenantID: testutil.TestIDs.TenantID1}
		_, err := s.service.ChangeRole(s.ctx, actor, s.member.ID, domain.RoleMember)
		s.Require().NoError(err)
	})

	s.Run("household admin of another household is forbidden", func() {
		actor := &domain.Principal{SubjectID: testutil.TestIDs.UserID1, Role: domain.RoleAdmin, TenantID: testutil.TestIDs.TenantID2}
		_, err := s.service.ChangeRole(s.ctx, actor, s.member.ID, domain.RoleParent)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("parents cannot change roles", func() {
		actor := &domain.Principal{SubjectID: s.parent.ID, Role: domain.RoleParent, TenantID: testutil.TestIDs.TenantID1}
		_, err := s.service.ChangeRole(s.ctx, actor, s.member.ID, domain.RoleParent)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("SUPER_ADMIN is never granted", func() {
		_, err := s.service.ChangeRole(s.ctx, testutil.SuperAdmin(), s.member.ID, domain.RoleSuperAdmin)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("no-op change is a conflict", func() {
		_, err := s.service.ChangeRole(s.ctx, testutil.SuperAdmin(), s.member.ID, domain.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("own role is off limits", func() {
		actor := &domain.Principal{SubjectID: s.parent.ID, Role: domain.RoleAdmin, TenantID: testutil.TestIDs.TenantID1}
		_, err := s.service.ChangeRole(s.ctx, actor, s.parent.ID, domain.RoleMember)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Equal(2, s.auditCount(audit.ActionRoleChange))
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
