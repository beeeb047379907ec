package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrInvalidStatus     = errors.New("invalid generation status")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrMalformedResponse = errors.New("malformed ai response")
	ErrProviderFailure   = errors.New("provider failure")
	ErrPaused            = errors.New("generation paused")
	ErrLocked            = errors.New("pipeline locked by another worker")
	ErrCancelled         = errors.New("generation cancelled")
)
