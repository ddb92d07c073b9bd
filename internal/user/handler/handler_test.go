package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"hearth/internal/guard/guardtest"
	"hearth/internal/user/handler/mocks"
	"hearth/internal/user/models"
	"hearth/pkg/domain"
	dErrors "hearth/pkg/domain-errors"
	"hearth/pkg/testutil"
)

type HandlerSuite struct {
	suite.Suite
	ctrl    *gomock.Controller
	service *mocks.MockService
	guard   *guardtest.Guard
	router  http.Handler
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	s.guard = guardtest.As(testutil.SuperAdmin())
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	New(s.service, logger, nil).Register(r, s.guard)
	s.router = r
}

func (s *HandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *HandlerSuite) do(method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *HandlerSuite) TestResetPassword() {
	id := testutil.TestIDs.UserID2
	path := "/admin/users/" + id.String() + "/reset-password"

	s.Run("returns the temporary password once", func() {
		s.service.EXPECT().ResetPassword(gomock.Any(), s.guard.Principal, id).Return("Tmp-pass-123456a", nil)

		rec := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusOK, rec.Code)
		s.Equal("no-store", rec.Header().Get("Cache-Control"))

		var body ResetPasswordResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("Tmp-pass-123456a", body.TemporaryPassword)
		s.Equal(id.String(), body.UserID)
	})

	s.Run("bad user id", func() {
		rec := s.do(http.MethodPost, "/admin/users/nope/reset-password", "")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("forbidden target", func() {
		s.service.EXPECT().ResetPassword(gomock.Any(), gomock.Any(), id).
			Return("", dErrors.New(dErrors.CodeForbidden, "super admin passwords cannot be reset here"))

		rec := s.do(http.MethodPost, path, "")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Equal(OpResetPassword.Name, s.guard.Operations()[0])
}

func (s *HandlerSuite) TestChangeRole() {
	id := testutil.TestIDs.UserID2
	path := "/admin/users/" + id.String() + "/role"

	s.Run("normalizes the role", func() {
		s.service.EXPECT().ChangeRole(gomock.Any(), s.guard.Principal, id, domain.RoleStaff).
			Return(&models.User{ID: id, TenantID: testutil.TestIDs.TenantID1, Email: "k@example.com", Role: domain.RoleStaff}, nil)

		rec := s.do(http.MethodPut, path, `{"role":" staff "}`)
		s.Equal(http.StatusOK, rec.Code)

		var body UserResponse
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("STAFF", body.Role)
		s.Equal(testutil.TestIDs.TenantID1.String(), body.HouseholdID)
	})

	s.Run("unknown role fails validation", func() {
		rec := s.do(http.MethodPut, path, `{"role":"OWNER"}`)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("no-op change", func() {
		s.service.EXPECT().ChangeRole(gomock.Any(), gomock.Any(), id, domain.RoleMember).
			Return(nil, dErrors.New(dErrors.CodeConflict, "user already has role MEMBER"))

		rec := s.do(http.MethodPut, path, `{"role":"MEMBER"}`)
		s.Equal(http.StatusConflict, rec.Code)
	})
}

func (s *HandlerSuite) TestDeniedByGuard() {
	s.guard.Deny = dErrors.New(dErrors.CodeForbiddenRole, "operation requires ADMIN")

	rec := s.do(http.MethodPut, "/admin/users/"+testutil.TestIDs.UserID2.String()+"/role", `{"role":"MEMBER"}`)
	s.Equal(http.StatusForbidden, rec.Code)
}
