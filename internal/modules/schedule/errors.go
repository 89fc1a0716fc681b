package schedule

import "errors"

var (
	ErrNoBlocks          = errors.New("no blocks to validate")
	ErrTooManyBlocks     = errors.New("too many blocks")
	ErrUnknownConfidence = errors.New("unknown confidence value")
)
