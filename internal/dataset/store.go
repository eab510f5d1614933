// Package dataset holds the process-wide current dataset.
package dataset

import (
	"sync/atomic"

	"ngx_scraper/internal/models"
)

// Store is safe for concurrent use. Publish swaps the whole snapshot, so a
// reader holds either the previous dataset or the new one, never a mix.
type Store struct {
	current atomic.Pointer[models.Snapshot]
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{}
}

// Publish makes snapshot the current dataset. Empty snapshots are refused so
// a run that found nothing cannot replace good data; it reports whether the
// snapshot was published. The caller must not modify snapshot afterwards.
func (s *Store) Publish(snapshot *models.Snapshot) bool {
	if snapshot == nil || len(snapshot.Records) == 0 {
		return false
	}
	s.current.Store(snapshot)
	return true
}

// Current returns the latest published snapshot, or nil before the first publish.
func (s *Store) Current() *models.Snapshot {
	return s.current.Load()
}

// Records returns the current records, or an empty slice.
func (s *Store) Records() []models.Record {
	if snap := s.Current(); snap != nil {
		return snap.Records
	}
	return []models.Record{}
}
