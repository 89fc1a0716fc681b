// Package token issues and checks single-use capability secrets for booking
// reschedule and cancel links.
package token

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"time"

	"planner/internal/domain"
)

// ErrInvalidToken is returned for every rejection reason. Callers must not
// tell a wrong secret apart from an expired or used one.
var ErrInvalidToken = errors.New("invalid or expired token")

const secretBytes = 32

type Service struct {
	pepper string
	now    func() time.Time
}

func NewService(pepper string, now func() time.Time) *Service {
	if now == nil {
		now = time.Now
	}
	return &Service{pepper: pepper, now: now}
}

// Issued holds a freshly generated secret. Secret goes to the invitee once;
// only Hash is persisted.
type Issued struct {
	Kind      domain.TokenKind
	Secret    string
	Hash      string
	ExpiresAt time.Time
}

func (i Issued) Record(bookingID int64) *domain.ActionToken {
	return &domain.ActionToken{
		BookingID: bookingID,
		Kind:      i.Kind,
		TokenHash: i.Hash,
		ExpiresAt: i.ExpiresAt,
	}
}

func (s *Service) Issue(kind domain.TokenKind, expiresAt time.Time) (Issued, error) {
	if !kind.Valid() {
		return Issued{}, errors.New("unknown token kind")
	}
	buf := make([]byte, secretBytes)
	if _, err := rand.Read(buf); err != nil {
		return Issued{}, err
	}
	secret := hex.EncodeToString(buf)
	return Issued{
		Kind:      kind,
		Secret:    secret,
		Hash:      s.Hash(secret),
		ExpiresAt: expiresAt,
	}, nil
}

// IssuePair issues the reschedule and cancel tokens of one booking.
func (s *Service) IssuePair(expiresAt time.Time) (reschedule, cancel Issued, err error) {
	if reschedule, err = s.Issue(domain.TokenKindReschedule, expiresAt); err != nil {
		return Issued{}, Issued{}, err
	}
	if cancel, err = s.Issue(domain.TokenKindCancel, expiresAt); err != nil {
		return Issued{}, Issued{}, err
	}
	return reschedule, cancel, nil
}

func (s *Service) Hash(secret string) string {
	sum := sha256.Sum256([]byte(secret + s.pepper))
	return hex.EncodeToString(sum[:])
}

// Validate reports whether a stored token is still usable. It has no side
// effects.
func (s *Service) Validate(t domain.ActionToken) bool {
	if t.IsUsed() {
		return false
	}
	return !t.IsExpired(s.now())
}

// Verified is a token that passed Verify for a given kind. It can only be
// obtained from Verify, so mutations that take a Verified cannot run on an
// unchecked token.
type Verified struct {
	id        int64
	bookingID int64
	kind      domain.TokenKind
}

func (v Verified) ID() int64              { return v.id }
func (v Verified) BookingID() int64       { return v.bookingID }
func (v Verified) Kind() domain.TokenKind { return v.kind }

// Verify checks a stored token located by the hash of a presented secret.
// t may be nil when no row matched.
func (s *Service) Verify(secret string, t *domain.ActionToken, want domain.TokenKind) (Verified, error) {
	if t == nil || secret == "" {
		return Verified{}, ErrInvalidToken
	}
	if subtle.ConstantTimeCompare([]byte(s.Hash(secret)), []byte(t.TokenHash)) != 1 {
		return Verified{}, ErrInvalidToken
	}
	if t.Kind != want || !s.Validate(*t) {
		return Verified{}, ErrInvalidToken
	}
	return Verified{id: t.ID, bookingID: t.BookingID, kind: t.Kind}, nil
}
