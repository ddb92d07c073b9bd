// Package domain provides type-safe identifiers and the caller identity shared
// by the authorization layers.
package domain

import (
	"github.com/google/uuid"

	dErrors "hearth/pkg/domain-errors"
)

// Each identifier is its own type so a UserID cannot be passed where a
// TenantID is expected.
type (
	UserID    uuid.UUID
	TenantID  uuid.UUID
	SessionID uuid.UUID
)

// ParseUserID and friends are for trust boundaries: route params, query
// strings and token claims. The nil UUID is rejected.
func ParseUserID(s string) (UserID, error)       { return parseID[UserID](s, "user ID") }
func ParseTenantID(s string) (TenantID, error)   { return parseID[TenantID](s, "household ID") }
func ParseSessionID(s string) (SessionID, error) { return parseID[SessionID](s, "session ID") }

func NewUserID() UserID       { return UserID(uuid.New()) }
func NewTenantID() TenantID   { return TenantID(uuid.New()) }
func NewSessionID() SessionID { return SessionID(uuid.New()) }

func (id UserID) String() string    { return uuid.UUID(id).String() }
func (id TenantID) String() string  { return uuid.UUID(id).String() }
func (id SessionID) String() string { return uuid.UUID(id).String() }

func (id UserID) IsNil() bool    { return isNil(id) }
func (id TenantID) IsNil() bool  { return isNil(id) }
func (id SessionID) IsNil() bool { return isNil(id) }

func isNil[T ~[16]byte](id T) bool {
	return uuid.UUID(id) == uuid.Nil
}

func parseID[T ~[16]byte](s, label string) (T, error) {
	var zero T
	switch u, err := uuid.Parse(s); {
	case s == "":
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be empty")
	case err != nil:
		return zero, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label+" format")
	case u == uuid.Nil:
		return zero, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	default:
		return T(u), nil
	}
}
