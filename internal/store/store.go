// Package store persists index snapshots keyed by an opaque project identifier.
package store

import (
	"context"

	"github.com/karakuri/shirabe/internal/models"
)

// Store persists and restores whole index snapshots. Keys are opaque project
// identifiers supplied by the caller and never interpreted.
type Store interface {
	// Save serializes idx under key, overwriting any prior record and
	// creating missing storage locations.
	Save(ctx context.Context, key string, idx *models.Index) error
	// Load returns the most recently saved snapshot for key, or (nil, nil)
	// when none exists. A corrupt record is quarantined, not fatal: the bad
	// bytes are moved aside and the key reports absent so the caller can
	// rebuild from scratch.
	Load(ctx context.Context, key string) (*models.Index, error)
	// Exists reports whether a snapshot is stored for key.
	Exists(ctx context.Context, key string) (bool, error)
	// Delete removes the snapshot for key; absent keys are a no-op.
	Delete(ctx context.Context, key string) error
	// Size returns the stored byte size for key, 0 when absent.
	Size(ctx context.Context, key string) (int64, error)
	Close() error
}
