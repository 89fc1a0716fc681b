package repository

import (
	"context"
	"time"

	"planner/internal/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingRepository stores bookings and their action tokens. Methods run on
// whatever *gorm.DB the repository wraps, so the same type serves inside and
// outside WithinTransaction.
type BookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

// WithinTransaction runs fn with a repository bound to one database
// transaction. fn must use only the repository it is given.
func (r *BookingRepository) WithinTransaction(ctx context.Context, fn func(tx *BookingRepository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&BookingRepository{db: tx})
	})
}

// LockConfiguration takes a row lock on the configuration so that concurrent
// booking transactions for it run one after another. SQLite ignores the
// locking clause and serializes writers on its own.
func (r *BookingRepository) LockConfiguration(ctx context.Context, id int64) (*domain.SchedulingConfiguration, error) {
	var c domain.SchedulingConfiguration
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *BookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(b).Error
}

func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	if err := r.db.WithContext(ctx).First(&b, id).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *BookingRepository) GetForUpdate(ctx context.Context, id int64) (*domain.Booking, error) {
	var b domain.Booking
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&b, id).Error
	if err != nil {
		return nil, err
	}
	return &b, nil
}

// UpdateSchedule writes the time fields and status of b.
func (r *BookingRepository) UpdateSchedule(ctx context.Context, b *domain.Booking) error {
	b.StartTime = b.StartTime.UTC()
	b.EndTime = b.EndTime.UTC()
	return r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ?", b.ID).
		Updates(map[string]any{
			"start_time":   b.StartTime,
			"end_time":     b.EndTime,
			"status":       b.Status,
			"cancelled_at": b.CancelledAt,
			"updated_at":   time.Now().UTC(),
		}).Error
}

// ListActiveOverlapping returns non-cancelled bookings of a configuration
// overlapping [from, to), except excludeID.
func (r *BookingRepository) ListActiveOverlapping(ctx context.Context, configID int64, from, to time.Time, excludeID int64) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("configuration_id = ? AND status <> ? AND id <> ?", configID, domain.BookingCancelled, excludeID).
		Where("start_time < ? AND end_time > ?", to.UTC(), from.UTC()).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}

// CountActiveStarting counts non-cancelled bookings of a configuration that
// start in [from, to), except excludeID.
func (r *BookingRepository) CountActiveStarting(ctx context.Context, configID int64, from, to time.Time, excludeID int64) (int64, error) {
	var cnt int64
	err := r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("configuration_id = ? AND status <> ? AND id <> ?", configID, domain.BookingCancelled, excludeID).
		Where("start_time >= ? AND start_time < ?", from.UTC(), to.UTC()).
		Count(&cnt).Error
	return cnt, err
}

// ListByConfiguration returns every booking, cancelled included, starting in
// [from, to).
func (r *BookingRepository) ListByConfiguration(ctx context.Context, configID int64, from, to time.Time) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Where("configuration_id = ? AND start_time >= ? AND start_time < ?", configID, from.UTC(), to.UTC()).
		Order("start_time ASC, id ASC").
		Find(&out).Error
	return out, err
}

func (r *BookingRepository) CreateTokens(ctx context.Context, tokens ...*domain.ActionToken) error {
	if len(tokens) == 0 {
		return nil
	}
	for _, t := range tokens {
		t.ExpiresAt = t.ExpiresAt.UTC()
	}
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(tokens).Error
}

func (r *BookingRepository) GetTokenByHash(ctx context.Context, hash string) (*domain.ActionToken, error) {
	var t domain.ActionToken
	if err := r.db.WithContext(ctx).Where("token_hash = ?", hash).First(&t).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *BookingRepository) GetTokenByHashForUpdate(ctx context.Context, hash string) (*domain.ActionToken, error) {
	var t domain.ActionToken
	err := r.db.WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("token_hash = ?", hash).
		First(&t).Error
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// ConsumeToken sets used_at if the token is still unused. It reports false
// when another transaction got there first.
func (r *BookingRepository) ConsumeToken(ctx context.Context, id int64, now time.Time) (bool, error) {
	tx := r.db.WithContext(ctx).Model(&domain.ActionToken{}).
		Where("id = ? AND used_at IS NULL", id).
		Update("used_at", now.UTC())
	return tx.RowsAffected == 1, tx.Error
}

// RetireTokens marks every outstanding token of a booking as used.
func (r *BookingRepository) RetireTokens(ctx context.Context, bookingID int64, now time.Time) error {
	return r.db.WithContext(ctx).Model(&domain.ActionToken{}).
		Where("booking_id = ? AND used_at IS NULL", bookingID).
		Update("used_at", now.UTC()).Error
}

// MarkSynced stores the external calendar reference and clears the pending
// flag, but only while the row still has the status and times of synced.
// A booking changed after the snapshot stays pending and reports false.
func (r *BookingRepository) MarkSynced(ctx context.Context, synced *domain.Booking, externalID, conferenceLink *string) (bool, error) {
	db := r.db.WithContext(ctx)
	refs := map[string]any{}
	if externalID != nil {
		refs["external_event_id"] = *externalID
	}
	if conferenceLink != nil {
		refs["conference_link"] = *conferenceLink
	}
	if len(refs) > 0 {
		if err := db.Model(&domain.Booking{}).Where("id = ?", synced.ID).UpdateColumns(refs).Error; err != nil {
			return false, err
		}
	}

	res := db.Model(&domain.Booking{}).
		Where("id = ? AND status = ? AND start_time = ? AND end_time = ?",
			synced.ID, synced.Status, synced.StartTime.UTC(), synced.EndTime.UTC()).
		UpdateColumn("calendar_sync_pending", false)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *BookingRepository) MarkSyncPending(ctx context.Context, id int64) error {
	return r.db.WithContext(ctx).Model(&domain.Booking{}).
		Where("id = ?", id).
		Update("calendar_sync_pending", true).Error
}

// ListSyncPending returns bookings waiting for calendar reconciliation with
// their configuration preloaded.
func (r *BookingRepository) ListSyncPending(ctx context.Context, limit int) ([]domain.Booking, error) {
	var out []domain.Booking
	err := r.db.WithContext(ctx).
		Preload("Configuration").
		Where("calendar_sync_pending = ?", true).
		Order("updated_at ASC, id ASC").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// PurgeTokens deletes tokens that expired before cutoff. Their hashes can no
// longer authorize anything.
func (r *BookingRepository) PurgeTokens(ctx context.Context, cutoff time.Time) (int64, error) {
	tx := r.db.WithContext(ctx).Where("expires_at < ?", cutoff.UTC()).Delete(&domain.ActionToken{})
	return tx.RowsAffected, tx.Error
}
