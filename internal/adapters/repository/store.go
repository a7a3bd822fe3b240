// Package repository keeps scored reports so clients can fetch them after
// asynchronous scoring.
package repository

import (
	"context"

	"github.com/okian/songlab/internal/domain/model"
)

// Store provides read/write access to scored reports keyed by result ID.
type Store interface {
	// Save stores the report under its ResultID, replacing any previous one.
	Save(ctx context.Context, r model.Report) error

	// Get returns the report for id, or ErrNotFound.
	Get(ctx context.Context, id string) (model.Report, error)

	// Recent returns up to n reports, newest first.
	Recent(ctx context.Context, n int) ([]model.Report, error)

	// Len returns the number of stored reports.
	Len(ctx context.Context) int
}
