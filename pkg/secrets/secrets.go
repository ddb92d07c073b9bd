// Package secrets generates and hashes one-time credentials.
package secrets

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/bcrypt"

	dErrors "hearth/pkg/domain-errors"
)

// Unambiguous characters only: no 0/O, 1/l/I.
const passwordAlphabet = "abcdefghijkmnpqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"

const TemporaryPasswordLength = 16

// TemporaryPassword returns a random password a user can type by hand.
func TemporaryPassword() (string, error) {
	limit := byte(256 - 256%len(passwordAlphabet))
	out := make([]byte, 0, TemporaryPasswordLength)
	buf := make([]byte, TemporaryPasswordLength*2)
	for len(out) < TemporaryPasswordLength {
		if _, err := rand.Read(buf); err != nil {
			return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not generate password")
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, passwordAlphabet[int(b)%len(passwordAlphabet)])
			if len(out) == TemporaryPasswordLength {
				break
			}
		}
	}
	return string(out), nil
}

// Hasher hashes secrets with bcrypt at a fixed cost.
type Hasher struct {
	cost int
}

// NewHasher returns a hasher using cost, or bcrypt.DefaultCost when cost is zero.
func NewHasher(cost int) *Hasher {
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{cost: cost}
}

func (h *Hasher) Hash(secret string) (string, error) {
	if secret == "" {
		return "", dErrors.New(dErrors.CodeValidation, "secret cannot be empty")
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(secret), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", dErrors.New(dErrors.CodeValidation, "secret is too long")
		}
		return "", dErrors.Wrap(err, dErrors.CodeInternal, "could not hash secret")
	}
	return string(hashed), nil
}

// Verify checks a plaintext secret against a bcrypt hash.
func Verify(secret, hash string) error {
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(secret)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return dErrors.New(dErrors.CodeUnauthenticated, "invalid secret")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "could not verify secret")
	}
	return nil
}
