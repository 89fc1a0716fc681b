package settings

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrForbidden        = errors.New("forbidden")
	ErrUnknownProvider  = errors.New("unknown calendar provider")
	ErrInvalidDurations = errors.New("invalid duration options")
	ErrInvalidHours     = errors.New("invalid working hours")
	ErrInvalidRange     = errors.New("invalid range")
)
