package domain

import "time"

type TokenKind string

const (
	TokenKindReschedule TokenKind = "reschedule"
	TokenKindCancel     TokenKind = "cancel"
)

func (k TokenKind) Valid() bool {
	return k == TokenKindReschedule || k == TokenKindCancel
}

// ActionToken authorizes one reschedule or cancel of a booking without a login.
//
// Security notes:
// - The raw secret is never stored, only its SHA-256 hash (TokenHash).
// - A token with UsedAt set or ExpiresAt in the past is permanently invalid.
type ActionToken struct {
	ID int64 `json:"id" gorm:"primaryKey"`

	BookingID int64    `json:"booking_id" gorm:"index;not null"`
	Booking   *Booking `json:"-" gorm:"foreignKey:BookingID;constraint:OnDelete:RESTRICT"`

	Kind      TokenKind `json:"kind" gorm:"size:16;not null"`
	TokenHash string    `json:"-" gorm:"size:64;uniqueIndex;not null"`

	CreatedAt time.Time  `json:"created_at"`
	ExpiresAt time.Time  `json:"expires_at" gorm:"index;not null"`
	UsedAt    *time.Time `json:"used_at" gorm:"index"`
}

func (t *ActionToken) IsExpired(now time.Time) bool {
	return !now.Before(t.ExpiresAt)
}

func (t *ActionToken) IsUsed() bool {
	return t.UsedAt != nil
}
