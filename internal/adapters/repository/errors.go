package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound     = errors.New("report not found")
	ErrMissingID    = errors.New("report has no result id")
	ErrInvalidLimit = errors.New("invalid report limit")
)
