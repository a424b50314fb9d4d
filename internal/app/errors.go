package service

import "errors"

// Sentinel kinds for service errors. The HTTP layer maps these to 400,
// except ErrNotStarted (503) and ErrSearchNotFound (404).
var (
	ErrNotStarted        = errors.New("service not started")
	ErrMissingClient     = errors.New("client is required")
	ErrTooManyCandidates = errors.New("too many candidates")
	ErrEmptyBatch        = errors.New("at least one profile is required")
	ErrInvalidDate       = errors.New("invalid date, expected YYYY-MM-DD")
	ErrInvalidLimit      = errors.New("invalid limit")
	ErrInvalidBatchID    = errors.New("invalid batch id, expected a UUID")
	ErrMissingName       = errors.New("search name is required")
	ErrSearchNotFound    = errors.New("saved search not found")
)
