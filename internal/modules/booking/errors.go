package booking

import "errors"

var (
	ErrValidation       = errors.New("validation error")
	ErrLinkNotFound     = errors.New("scheduling link not found")
	ErrSchedulingPaused = errors.New("scheduling link is paused")
	ErrInvalidDuration  = errors.New("duration is not offered by this link")
	ErrStartInPast      = errors.New("start time is in the past")
	ErrBeyondHorizon    = errors.New("start time is beyond the booking horizon")
	ErrDailyCapReached  = errors.New("daily booking limit reached")
	ErrSlotUnavailable  = errors.New("slot no longer available")
	// ErrInvalidToken covers wrong, expired, used and mismatched tokens alike.
	ErrInvalidToken = errors.New("invalid or expired link")
)
