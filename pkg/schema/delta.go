package schema

import (
	"sort"
	"sync"

	"github.com/skytable/skytable-sub005/pkg/value"
)

// DeltaKind distinguishes an additive from a subtractive schema change
// (spec §4.2).
type DeltaKind uint8

const (
	FieldAdd DeltaKind = iota
	FieldRem
)

// DeltaPart is one schema change, recorded at a specific schema version.
type DeltaPart struct {
	Version uint64
	Kind    DeltaKind
	Field   string
	Tag     value.Tag // only meaningful for FieldAdd
	Null    bool      // only meaningful for FieldAdd
}

// DeltaState is a model's ordered, monotonically increasing delta history:
// "an ordered map version -> DeltaPart" (spec §4.2). Deltas are appended
// under the model's alter lock (see matrix.go); readers walking
// UpgradesAfter hold mu only long enough to copy the slice header — the
// slice is only ever appended to, never
// mutated in place, so a reader holding an old slice header sees a
// consistent prefix.
type DeltaState struct {
	mu      sync.Mutex
	parts   []DeltaPart
	version uint64
}

// NewDeltaState returns an empty delta history at schema version 0.
func NewDeltaState() *DeltaState {
	return &DeltaState{}
}

// CurrentVersion returns the model's current schema version.
func (d *DeltaState) CurrentVersion() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version
}

// Append records a new delta, assigning it the next schema version.
// Must be called under the model's alter lock so versions stay ordered.
func (d *DeltaState) Append(kind DeltaKind, field string, tag value.Tag, nullable bool) DeltaPart {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.version++
	part := DeltaPart{Version: d.version, Kind: kind, Field: field, Tag: tag, Null: nullable}
	d.parts = append(d.parts, part)
	return part
}

// snapshot returns the current version and a read-only view of the delta
// slice. Safe to call without holding mu for longer than the copy, since
// appends only grow the backing slice (never mutate existing elements).
func (d *DeltaState) snapshot() (uint64, []DeltaPart) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.version, d.parts
}

// UpgradesAfter returns every delta strictly after fromVersion, up to and
// including the model's current version, in version order (spec §4.2:
// "apply every delta strictly after the payload version").
func (d *DeltaState) UpgradesAfter(fromVersion uint64) []DeltaPart {
	version, parts := d.snapshot()
	if fromVersion >= version {
		return nil
	}
	idx := sort.Search(len(parts), func(i int) bool { return parts[i].Version > fromVersion })
	out := make([]DeltaPart, len(parts)-idx)
	copy(out, parts[idx:])
	return out
}
