// Package store persists verification history behind a driver-agnostic
// interface with SQLite and PostgreSQL implementations.
package store

import (
	"context"

	"github.com/ttb-tools/labelcheck/internal/model"
)

// DefaultMaxEntries caps retained history; the oldest entries are pruned
// on every save once the cap is exceeded.
const DefaultMaxEntries = 50

// HistoryFilter specifies criteria for listing verification history.
type HistoryFilter struct {
	Status model.OverallStatus `json:"status,omitempty"`
	Limit  int                 `json:"limit,omitempty"`
	Offset int                 `json:"offset,omitempty"`
}

// Store defines the persistence interface for verification history.
type Store interface {
	SaveEntry(ctx context.Context, app model.Application, verdict model.Verdict) (*model.HistoryEntry, error)
	GetEntry(ctx context.Context, id string) (*model.HistoryEntry, error)
	ListEntries(ctx context.Context, filter HistoryFilter) ([]model.HistoryEntry, error)
	ClearEntries(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}
