package domainerrors

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/suite"
)

// DomainErrorsSuite tests the domain error primitives.
//
// Denials are branched on by code across every layer, so the invariants
// "wrapped domain errors preserve original code" and "errors.Is matches by
// code" are load bearing.
type DomainErrorsSuite struct {
	suite.Suite
}

func TestDomainErrorsSuite(t *testing.T) {
	suite.Run(t, new(DomainErrorsSuite))
}

func (s *DomainErrorsSuite) TestErrorInterface() {
	s.Run("returns message when present", func() {
		err := &Error{Code: CodeNotFound, Message: "household not found"}
		s.Equal("household not found", err.Error())
	})

	s.Run("returns code when message is empty", func() {
		err := &Error{Code: CodeTenantSuspended}
		s.Equal("tenant_suspended", err.Error())
	})
}

func (s *DomainErrorsSuite) TestIsMatching() {
	s.Run("matches by code only", func() {
		err1 := &Error{Code: CodeForbiddenRole, Message: "admin required"}
		err2 := &Error{Code: CodeForbiddenRole, Message: "parent required"}
		s.True(err1.Is(err2))
	})

	s.Run("does not match different codes", func() {
		s.False((&Error{Code: CodeQuotaExceeded}).Is(&Error{Code: CodeFeatureUnavailable}))
	})

	s.Run("does not match non-domain errors", func() {
		s.False((&Error{Code: CodeNotFound}).Is(errors.New("not found")))
	})

	s.Run("works with errors.Is through chain", func() {
		inner := &Error{Code: CodeNotFound, Message: "original"}
		wrapped := fmt.Errorf("loading session: %w", inner)
		s.True(errors.Is(wrapped, &Error{Code: CodeNotFound}))
	})
}

func (s *DomainErrorsSuite) TestWrap() {
	s.Run("preserves original domain code and details when wrapping domain error", func() {
		original := WithDetails(CodeQuotaExceeded, "member limit reached", map[string]any{"max": 3})
		wrapped := Wrap(original, CodeInternal, "cannot add member")

		var domainErr *Error
		s.Require().True(errors.As(wrapped, &domainErr))
		s.Equal(CodeQuotaExceeded, domainErr.Code)
		s.Equal("cannot add member", domainErr.Message)
		s.Equal(3, domainErr.Details["max"])
	})

	s.Run("uses provided code when wrapping non-domain error", func() {
		original := errors.New("connection refused")
		wrapped := Wrap(original, CodeUnavailable, "storage unavailable")

		s.True(HasCode(wrapped, CodeUnavailable))
		s.True(errors.Is(wrapped, original))
	})
}

func (s *DomainErrorsSuite) TestWithDetails() {
	s.Run("copies details so callers cannot mutate the error", func() {
		details := map[string]any{"max": 3}
		err := WithDetails(CodeQuotaExceeded, "limit", details)
		details["max"] = 99

		s.Equal(3, DetailsOf(err)["max"])
	})

	s.Run("returns nil details for foreign errors", func() {
		s.Nil(DetailsOf(errors.New("x")))
	})
}

func (s *DomainErrorsSuite) TestHasCodeAndCodeOf() {
	s.Run("finds code through error chain", func() {
		inner := New(CodeNoTenant, "no household")
		wrapped := Wrap(inner, CodeInternal, "wrapped")
		s.True(HasCode(wrapped, CodeNoTenant))
		s.Equal(CodeNoTenant, CodeOf(wrapped))
	})

	s.Run("returns false for nil error", func() {
		s.False(HasCode(nil, CodeNotFound))
	})

	s.Run("foreign errors report internal", func() {
		s.Equal(CodeInternal, CodeOf(errors.New("boom")))
	})
}
