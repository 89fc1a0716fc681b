package availability

import "errors"

var (
	ErrLinkNotFound     = errors.New("scheduling link not found")
	ErrSchedulingPaused = errors.New("scheduling link is paused")
	ErrInvalidRange     = errors.New("invalid time range")
	ErrRangeTooLong     = errors.New("time range too long")
)
