package auth

import (
	"context"
	"time"

	"planner/internal/domain"
)

// OwnerRepositoryInterface lists the methods the auth service uses.
type OwnerRepositoryInterface interface {
	Create(ctx context.Context, o *domain.Owner) error
	GetByEmail(ctx context.Context, email string) (*domain.Owner, error)
	GetByID(ctx context.Context, id int64) (*domain.Owner, error)
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	UpdateName(ctx context.Context, id int64, name string) error
	RecordLoginFailure(ctx context.Context, id int64, attempts int, lockedUntil *time.Time) error
	ResetLoginFailures(ctx context.Context, id int64) error
}

type jwtService interface {
	GenerateToken(userID int64, role string) (string, error)
}
