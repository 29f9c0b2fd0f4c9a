package schema

import (
	"sync"

	"github.com/skytable/skytable-sub005/pkg/value"
)

// payload is the reference-counted, lock-guarded body of a Row: "a mapping
// from field name to value cell, the schema version at which the payload
// was last materialized, and the journal revision at which the payload was
// last written" (spec §3). Row clones share a payload via refcount
// (Row.Clone/Row.Release); nothing is freed when the count reaches zero.
type payload struct {
	mu       sync.RWMutex
	refcount int32
	fields   map[string]value.Value
	version  uint64 // schema version this payload was last materialized at
	revision uint64 // journal revision this payload was last written at
}

// Row pairs an exclusive primary key cell with a shared payload (spec §3).
type Row struct {
	key value.PrimaryKey
	p   *payload
}

// NewRow constructs a fresh row at the model's current schema version.
func NewRow(key value.PrimaryKey, fields map[string]value.Value, version, revision uint64) *Row {
	return &Row{
		key: key,
		p: &payload{
			refcount: 1,
			fields:   fields,
			version:  version,
			revision: revision,
		},
	}
}

// Key returns the row's primary key.
func (r *Row) Key() value.PrimaryKey { return r.key }

// Clone returns a new Row handle sharing this row's payload, incrementing
// its reference count. Used when a reader needs to hand out a row without
// transferring exclusive ownership.
func (r *Row) Clone() *Row {
	r.p.mu.Lock()
	r.p.refcount++
	r.p.mu.Unlock()
	return &Row{key: r.key, p: r.p}
}

// Release drops this handle's reference. The payload is only ever memory
// managed by Go's garbage collector; refcount here tracks logical ownership
// in case a future on-disk eviction path needs "last reference" semantics,
// not manual deallocation.
func (r *Row) Release() {
	r.p.mu.Lock()
	r.p.refcount--
	r.p.mu.Unlock()
}

// upgrader is implemented by Model (model.go avoids an import cycle by
// having Model satisfy this directly) and supplies the current schema
// version plus the deltas needed to bring a stale payload forward.
type upgrader interface {
	CurrentVersion() uint64
	UpgradesAfter(fromVersion uint64) []DeltaPart
}

// View upgrades the payload to the model's current schema version if
// necessary, then returns a read-only snapshot of its fields (spec §4.2):
// "first upgrade-locks the payload, reads txn_revised_schema_version...
// if current model version <= payload version: downgrade to read lock and
// serve. otherwise: apply every delta strictly after the payload version...
// record the new revised version on the payload, downgrade to read."
//
// Go has no native upgradable RWLock, so this simulates one with
// double-checked locking: an optimistic read-lock fast path, and on a stale
// hit, a full write lock with the version check repeated in case a
// concurrent reader already performed the upgrade.
func (r *Row) View(u upgrader) map[string]value.Value {
	r.p.mu.RLock()
	current := u.CurrentVersion()
	if r.p.version >= current {
		snap := cloneFields(r.p.fields)
		r.p.mu.RUnlock()
		return snap
	}
	r.p.mu.RUnlock()

	r.p.mu.Lock()
	current = u.CurrentVersion()
	if r.p.version < current {
		for _, part := range u.UpgradesAfter(r.p.version) {
			applyDelta(r.p.fields, part)
		}
		r.p.version = current
	}
	snap := cloneFields(r.p.fields)
	r.p.mu.Unlock()
	return snap
}

// Mutate upgrades the payload (as View does) then applies fn under an
// exclusive lock, recording the journal revision the mutation was written
// at. fn must not retain the map it is given beyond the call.
func (r *Row) Mutate(u upgrader, revision uint64, fn func(fields map[string]value.Value) error) error {
	r.p.mu.Lock()
	defer r.p.mu.Unlock()
	current := u.CurrentVersion()
	if r.p.version < current {
		for _, part := range u.UpgradesAfter(r.p.version) {
			applyDelta(r.p.fields, part)
		}
		r.p.version = current
	}
	if err := fn(r.p.fields); err != nil {
		return err
	}
	r.p.revision = revision
	return nil
}

func applyDelta(fields map[string]value.Value, part DeltaPart) {
	switch part.Kind {
	case FieldAdd:
		if _, exists := fields[part.Field]; !exists {
			fields[part.Field] = value.Null()
		}
	case FieldRem:
		delete(fields, part.Field)
	}
}

// ViewRaw returns a snapshot of the payload's fields as currently stored,
// without checking or applying schema upgrades. Used when serializing a row
// that the caller knows was just materialized at the model's current
// version, e.g. immediately after insert.
func (r *Row) ViewRaw() map[string]value.Value {
	r.p.mu.RLock()
	defer r.p.mu.RUnlock()
	return cloneFields(r.p.fields)
}

func cloneFields(fields map[string]value.Value) map[string]value.Value {
	out := make(map[string]value.Value, len(fields))
	for k, v := range fields {
		out[k] = v.Clone()
	}
	return out
}
