package repository

import "errors"

// Sentinel kinds for store errors.
var (
	ErrInvalidLimit   = errors.New("invalid limit")
	ErrEmptyBatch     = errors.New("no profiles to store")
	ErrMissingPath    = errors.New("database path is required")
	ErrStore          = errors.New("store failure")
	ErrBatchExists    = errors.New("batch already logged")
	ErrSearchNotFound = errors.New("saved search not found")
)
