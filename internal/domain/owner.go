package domain

import "time"

const RoleOwner = "owner"

// Owner is an account that publishes scheduling links.
type Owner struct {
	ID           int64  `json:"id" gorm:"primaryKey"`
	Email        string `json:"email" gorm:"size:320;uniqueIndex;not null" validate:"required,email"`
	PasswordHash string `json:"-" gorm:"not null"`
	Name         string `json:"name" gorm:"size:200;not null"`

	FailedLoginAttempts int        `json:"-" gorm:"not null;default:0"`
	LockedUntil         *time.Time `json:"-"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Owner) TableName() string { return "owners" }

func (o *Owner) IsLocked(now time.Time) bool {
	return o.LockedUntil != nil && o.LockedUntil.After(now)
}
