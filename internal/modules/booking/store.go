package booking

import (
	"context"

	"planner/internal/repository"
)

type repoStore struct {
	*repository.BookingRepository
}

// NewStore adapts the gorm booking repository to Store.
func NewStore(repo *repository.BookingRepository) Store {
	return repoStore{BookingRepository: repo}
}

func (s repoStore) Transaction(ctx context.Context, fn func(tx Tx) error) error {
	return s.WithinTransaction(ctx, func(tx *repository.BookingRepository) error {
		return fn(tx)
	})
}
