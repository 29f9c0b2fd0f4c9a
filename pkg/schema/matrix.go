package schema

import "sync"

// SyncMatrix arbitrates between two virtual privileges on a model (spec
// §4.3): "alter model" (DDL: ALTER/DROP MODEL, exclusive, rewrites the
// schema or removes the model outright) and "new or revise data" (DML:
// INSERT/UPDATE/DELETE/UPSERT, which may run concurrently with each other
// and with a lazy per-row schema upgrade, but never concurrently with an
// alter). It is a readers-writer lock in spirit, named for the privileges
// it arbitrates rather than for the mechanism, matching the teacher's
// preference for domain-named locking helpers (pkg/storage.Table.mu) over
// a bare sync.RWMutex sprinkled through call sites.
type SyncMatrix struct {
	mu sync.RWMutex
}

// NewSyncMatrix returns a matrix with no privilege held.
func NewSyncMatrix() *SyncMatrix { return &SyncMatrix{} }

// AcquireData takes the "new or revise data" privilege, shared across any
// number of concurrent DML operations.
func (s *SyncMatrix) AcquireData() { s.mu.RLock() }

// ReleaseData releases a previously acquired "new or revise data" privilege.
func (s *SyncMatrix) ReleaseData() { s.mu.RUnlock() }

// AcquireAlter takes the "alter model" privilege, exclusive against every
// other DML or DDL operation on the model.
func (s *SyncMatrix) AcquireAlter() { s.mu.Lock() }

// ReleaseAlter releases a previously acquired "alter model" privilege.
func (s *SyncMatrix) ReleaseAlter() { s.mu.Unlock() }

// WithData runs fn holding the "new or revise data" privilege.
func (s *SyncMatrix) WithData(fn func() error) error {
	s.AcquireData()
	defer s.ReleaseData()
	return fn()
}

// WithAlter runs fn holding the "alter model" privilege.
func (s *SyncMatrix) WithAlter(fn func() error) error {
	s.AcquireAlter()
	defer s.ReleaseAlter()
	return fn()
}
