package impersonation

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks TokenIssuer,Directory

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hearth/internal/audit"
	auditstore "hearth/internal/audit/store"
	"hearth/internal/guard"
	"hearth/internal/impersonation/mocks"
	"hearth/internal/impersonation/models"
	"hearth/internal/impersonation/store"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/requestcontext"
	"hearth/pkg/testutil"
)

type ServiceSuite struct {
	suite.Suite
	ctrl      *gomock.Controller
	tokens    *mocks.MockTokenIssuer
	directory *mocks.MockDirectory
	store     *store.InMemory
	trail     *audit.Service
	service   *Service
	ctx       context.Context
	target    *domain.Principal
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.tokens = mocks.NewMockTokenIssuer(s.ctrl)
	s.directory = mocks.NewMockDirectory(s.ctrl)
	s.store = store.NewInMemory()
	var err error
	s.trail, err = audit.NewService(auditstore.NewInMemory())
	s.Require().NoError(err)
	s.service, err = New(s.store, s.tokens, s.directory, s.trail)
	s.Require().NoError(err)

	s.ctx = requestcontext.WithTime(context.Background(), testutil.FixedTime)
	s.ctx = requestcontext.WithClientMetadata(s.ctx, "10.0.0.1",
		"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	s.target = &domain.Principal{
		SubjectID:    testutil.TestIDs.UserID1,
		Role:         domain.RoleParent,
		TenantID:     testutil.TestIDs.TenantID1,
		TenantStatus: domain.TenantStatusActive,
	}
}

func (s *ServiceSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *ServiceSuite) auditEntries(action audit.Action) []*audit.Entry {
	res, err := s.trail.Query(s.ctx, audit.Filter{Action: action}, domain.Page{})
	s.Require().NoError(err)
	return res.Items
}

func (s *ServiceSuite) start() *StartResult {
	s.directory.EXPECT().FindPrincipal(gomock.Any(), s.target.SubjectID).Return(s.target, nil)
	s.tokens.EXPECT().
		IssueImpersonation(gomock.Any(), s.target, gomock.Any(), testutil.TestIDs.SuperAdminID, SessionDuration).
		Return("imp.token.value", testutil.FixedTime.Add(SessionDuration), nil)
	res, err := s.service.Start(s.ctx, testutil.SuperAdmin(), s.target.SubjectID)
	s.Require().NoError(err)
	return res
}

func (s *ServiceSuite) TestStart() {
	res := s.start()
	s.Equal("imp.token.value", res.Token)
	s.Equal(30*time.Minute, res.ExpiresIn)
	s.Same(s.target, res.Target)

	session, err := s.store.FindByID(s.ctx, res.SessionID)
	s.Require().NoError(err)
	s.Equal(testutil.TestIDs.SuperAdminID, session.ActorID)
	s.Equal(testutil.TestIDs.TenantID1, session.TargetTenantID)
	s.Equal(testutil.FixedTime, session.StartedAt)

	entries := s.auditEntries(audit.ActionImpersonationStart)
	s.Require().Len(entries, 1)
	s.Equal(res.SessionID.String(), entries[0].ResourceID)
	s.Contains(entries[0].Details["device"], "Chrome on")
	s.Equal(testutil.TestIDs.UserID1.String(), entries[0].Details["target_user_id"])
}

func (s *ServiceSuite) TestStartDenials() {
	s.Run("non super admin actor", func() {
		_, err := s.service.Start(s.ctx, testutil.Member(domain.RoleAdmin), s.target.SubjectID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("already impersonating", func() {
		actor := testutil.Member(domain.RoleParent)
		actor.Impersonation = &domain.Impersonation{SessionID: testutil.TestIDs.SessionID1, ImpersonatedBy: testutil.TestIDs.SuperAdminID}
		_, err := s.service.Start(s.ctx, actor, testutil.TestIDs.UserID2)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("unknown target", func() {
		s.directory.EXPECT().FindPrincipal(gomock.Any(), testutil.TestIDs.UserID2).
			Return(nil, dErrors.New(dErrors.CodeNotFound, "user not found"))
		_, err := s.service.Start(s.ctx, testutil.SuperAdmin(), testutil.TestIDs.UserID2)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("super admin target", func() {
		s.directory.EXPECT().FindPrincipal(gomock.Any(), testutil.TestIDs.SuperAdmin2ID).
			Return(&domain.Principal{SubjectID: testutil.TestIDs.SuperAdmin2ID, Role: domain.RoleSuperAdmin}, nil)
		_, err := s.service.Start(s.ctx, testutil.SuperAdmin(), testutil.TestIDs.SuperAdmin2ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("directory outage", func() {
		s.directory.EXPECT().FindPrincipal(gomock.Any(), testutil.TestIDs.UserID2).Return(nil, errors.New("dial tcp: refused"))
		_, err := s.service.Start(s.ctx, testutil.SuperAdmin(), testutil.TestIDs.UserID2)
		s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))
	})

	s.Empty(s.auditEntries(audit.ActionImpersonationStart))
}

func (s *ServiceSuite) TestStartFailsWhenAuditFails() {
	recorder := new(failingRecorder)
	recorder.On("Record", mock.Anything, mock.Anything).Return(nil, dErrors.New(dErrors.CodeUnavailable, "audit down"))
	svc, err := New(s.store, s.tokens, s.directory, recorder)
	s.Require().NoError(err)

	s.directory.EXPECT().FindPrincipal(gomock.Any(), gomock.Any()).Return(s.target, nil)
	s.tokens.EXPECT().IssueImpersonation(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).
		Return("t", testutil.FixedTime.Add(SessionDuration), nil)

	res, err := svc.Start(s.ctx, testutil.SuperAdmin(), s.target.SubjectID)
	s.Nil(res)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	active, err := s.service.ListActive(s.ctx, testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)
	s.Empty(active, "an unaudited session must not stay open")
	n, err := s.service.CountActiveForHousehold(s.ctx, s.target.TenantID)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *ServiceSuite) TestEndRetriesAfterAuditFailure() {
	res := s.start()
	recorder := &flakyRecorder{next: s.trail, failures: 1}
	svc, err := New(s.store, s.tokens, s.directory, recorder)
	s.Require().NoError(err)

	_, err = svc.End(s.ctx, res.SessionID, testutil.TestIDs.SuperAdminID)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	session, err := s.store.FindByID(s.ctx, res.SessionID)
	s.Require().NoError(err)
	s.Nil(session.EndedAt, "an unaudited end is undone")

	out, err := svc.End(s.ctx, res.SessionID, testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)
	s.False(out.AlreadyEnded)
	s.Len(s.auditEntries(audit.ActionImpersonationEnd), 1)

	out, err = svc.End(s.ctx, res.SessionID, testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)
	s.True(out.AlreadyEnded)
	s.Len(s.auditEntries(audit.ActionImpersonationEnd), 1)
}

func (s *ServiceSuite) TestEnd() {
	res := s.start()
	later := requestcontext.WithTime(s.ctx, testutil.FixedTime.Add(12*time.Minute))

	s.Run("stranger cannot end", func() {
		_, err := s.service.End(later, res.SessionID, testutil.TestIDs.SuperAdmin2ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("initiator ends", func() {
		out, err := s.service.End(later, res.SessionID, testutil.TestIDs.SuperAdminID)
		s.Require().NoError(err)
		s.False(out.AlreadyEnded)
		s.Equal(12*time.Minute, *out.Session.Duration())
	})

	s.Run("second end is idempotent", func() {
		out, err := s.service.End(later, res.SessionID, testutil.TestIDs.SuperAdminID)
		s.Require().NoError(err)
		s.True(out.AlreadyEnded)
	})

	s.Run("unknown session", func() {
		_, err := s.service.End(later, testutil.TestIDs.SessionID2, testutil.TestIDs.SuperAdminID)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	entries := s.auditEntries(audit.ActionImpersonationEnd)
	s.Require().Len(entries, 1)
	s.Equal(int64((12 * time.Minute).Milliseconds()), entries[0].Details["duration_ms"])
}

func (s *ServiceSuite) TestConcurrentEndAuditsOnce() {
	res := s.start()

	result := testutil.RunConcurrent(20, func(int) error {
		out, err := s.service.End(s.ctx, res.SessionID, testutil.TestIDs.SuperAdminID)
		if err != nil {
			return err
		}
		if out.Session.EndedAt == nil {
			return errors.New("session not ended")
		}
		return nil
	})
	s.Equal(int32(20), result.Successes)
	s.Len(s.auditEntries(audit.ActionImpersonationEnd), 1)
}

func (s *ServiceSuite) TestListActive() {
	res := s.start()

	active, err := s.service.ListActive(requestcontext.WithTime(s.ctx, testutil.FixedTime.Add(29*time.Minute)), testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)
	s.Require().Len(active, 1)
	s.Equal(res.SessionID, active[0].ID)

	active, err = s.service.ListActive(requestcontext.WithTime(s.ctx, testutil.FixedTime.Add(30*time.Minute)), testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)
	s.Empty(active, "expired at exactly 30 minutes")

	active, err = s.service.ListActive(s.ctx, testutil.TestIDs.SuperAdmin2ID)
	s.Require().NoError(err)
	s.Empty(active)

	n, err := s.service.CountActiveForHousehold(s.ctx, testutil.TestIDs.TenantID1)
	s.Require().NoError(err)
	s.Equal(1, n)
}

func (s *ServiceSuite) TestHistory() {
	first := s.start()
	_, err := s.service.End(s.ctx, first.SessionID, testutil.TestIDs.SuperAdminID)
	s.Require().NoError(err)

	res, err := s.service.History(s.ctx, models.HistoryFilter{TargetID: s.target.SubjectID}, domain.Page{})
	s.Require().NoError(err)
	s.Require().Len(res.Items, 1)
	s.NotNil(res.Items[0].Duration())
	s.Equal(domain.DefaultPageLimit, res.Limit)

	_, err = s.service.History(s.ctx, models.HistoryFilter{From: testutil.FixedTime, To: testutil.FixedTime}, domain.Page{})
	s.True(dErrors.HasCode(err, dErrors.CodeBadRequest))
}

func (s *ServiceSuite) TestLogActionIsAtomic() {
	res := s.start()

	result := testutil.RunConcurrent(100, func(int) error {
		return s.service.LogAction(s.ctx, res.SessionID)
	})
	s.Equal(int32(100), result.Successes)

	session, err := s.store.FindByID(s.ctx, res.SessionID)
	s.Require().NoError(err)
	s.Equal(100, session.ActionCount)

	s.True(dErrors.HasCode(s.service.LogAction(s.ctx, testutil.TestIDs.SessionID2), dErrors.CodeNotFound))
}

func (s *ServiceSuite) TestTrackActions() {
	res := s.start()
	impersonated := *s.target
	impersonated.Impersonation = &domain.Impersonation{SessionID: res.SessionID, ImpersonatedBy: testutil.TestIDs.SuperAdminID}

	write := guard.Operation{Name: "task.create", Method: http.MethodPost}
	read := guard.Operation{Name: "task.list", Method: http.MethodGet}

	s.service.TrackActions(s.ctx, &guard.Decision{Principal: &impersonated, Operation: write})
	s.service.TrackActions(s.ctx, &guard.Decision{Principal: &impersonated, Operation: read})
	s.service.TrackActions(s.ctx, &guard.Decision{Principal: s.target, Operation: write})

	s.Eventually(func() bool {
		session, err := s.store.FindByID(s.ctx, res.SessionID)
		return err == nil && session.ActionCount == 1
	}, time.Second, 5*time.Millisecond)
}

type failingRecorder struct {
	mock.Mock
}

func (f *failingRecorder) Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error) {
	args := f.Called(ctx, entry)
	e, _ := args.Get(0).(*audit.Entry)
	return e, args.Error(1)
}

// flakyRecorder fails the first failures writes, then delegates.
type flakyRecorder struct {
	next     audit.Recorder
	failures int
}

func (f *flakyRecorder) Record(ctx context.Context, entry audit.Entry) (*audit.Entry, error) {
	if f.failures > 0 {
		f.failures--
		return nil, dErrors.New(dErrors.CodeUnavailable, "audit down")
	}
	return f.next.Record(ctx, entry)
}

func TestNew_RequiresCollaborators(t *testing.T) {
	ctrl := gomock.NewController(t)
	trail, err := audit.NewService(auditstore.NewInMemory())
	require.NoError(t, err)

	_, err = New(nil, mocks.NewMockTokenIssuer(ctrl), mocks.NewMockDirectory(ctrl), trail)
	assert.Error(t, err)
	_, err = New(store.NewInMemory(), nil, mocks.NewMockDirectory(ctrl), trail)
	assert.Error(t, err)
	_, err = New(store.NewInMemory(), mocks.NewMockTokenIssuer(ctrl), nil, trail)
	assert.Error(t, err)
	_, err = New(store.NewInMemory(), mocks.NewMockTokenIssuer(ctrl), mocks.NewMockDirectory(ctrl), nil)
	assert.Error(t, err)
}
