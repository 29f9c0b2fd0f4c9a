package schema

import (
	"sync"

	"github.com/google/uuid"
	"github.com/skytable/skytable-sub005/pkg/mtchm"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// Model is a schemaful row container: an ordered field schema, a lock-free
// row index keyed by primary key, and the schema-delta history that lets
// readers upgrade stale rows lazily (spec §3, §4.2).
type Model struct {
	UUID  uuid.UUID
	Space string
	Name  string

	Sync   *SyncMatrix
	fields FieldSet // protected by fieldsMu
	fieldsMu sync.RWMutex

	delta *DeltaState
	rows  *mtchm.Tree[value.PrimaryKey, *Row]
}

// NewModel constructs a model with the given initial schema. fields[0] is
// the primary key field (FieldSet.Validate is the caller's responsibility,
// typically in the CREATE MODEL statement handler).
func NewModel(space, name string, fields FieldSet) *Model {
	return &Model{
		UUID:   uuid.New(),
		Space:  space,
		Name:   name,
		Sync:   NewSyncMatrix(),
		fields: append(FieldSet(nil), fields...),
		delta:  NewDeltaState(),
		rows: mtchm.New[value.PrimaryKey, *Row](
			func(k value.PrimaryKey) uint64 { return mtchm.HashBytes(k.Bytes()) },
			func(a, b value.PrimaryKey) bool { return a.Equal(b) },
		),
	}
}

// CurrentVersion satisfies the upgrader interface consumed by Row.
func (m *Model) CurrentVersion() uint64 { return m.delta.CurrentVersion() }

// UpgradesAfter satisfies the upgrader interface consumed by Row.
func (m *Model) UpgradesAfter(fromVersion uint64) []DeltaPart { return m.delta.UpgradesAfter(fromVersion) }

// Schema returns a snapshot of the model's current ordered field list.
func (m *Model) Schema() FieldSet {
	m.fieldsMu.RLock()
	defer m.fieldsMu.RUnlock()
	return append(FieldSet(nil), m.fields...)
}

// AlterAddField appends a new nullable or defaulted field to the schema and
// records the corresponding delta. Existing rows are not touched; they pick
// up the new field lazily the next time Row.View or Row.Mutate runs (spec
// §4.2). Held under the model's "alter model" privilege, exclusive against
// every concurrent DML operation on the model.
func (m *Model) AlterAddField(f Field) {
	m.Sync.AcquireAlter()
	defer m.Sync.ReleaseAlter()
	m.fieldsMu.Lock()
	m.fields = append(m.fields, f)
	m.fieldsMu.Unlock()
	m.delta.Append(FieldAdd, f.Name, f.Tag, f.Nullable)
}

// AlterRemoveField drops a field from the schema, refusing to remove the
// primary key (index 0).
func (m *Model) AlterRemoveField(name string) error {
	m.Sync.AcquireAlter()
	defer m.Sync.ReleaseAlter()
	m.fieldsMu.Lock()
	defer m.fieldsMu.Unlock()
	if len(m.fields) == 0 || m.fields[0].Name == name {
		return &badSchemaError{"cannot remove the primary key field"}
	}
	idx := -1
	for i, f := range m.fields {
		if f.Name == name {
			idx = i
			break
		}
	}
	if idx < 0 {
		return &badSchemaError{"no such field: " + name}
	}
	m.fields = append(m.fields[:idx], m.fields[idx+1:]...)
	m.delta.Append(FieldRem, name, value.TagNull, true)
	return nil
}

// InsertRow adds a fresh row, refusing if the primary key already exists.
// Held under the "new or revise data" privilege, shared with other DML but
// exclusive against a concurrent ALTER/DROP MODEL.
func (m *Model) InsertRow(row *Row) error {
	m.Sync.AcquireData()
	defer m.Sync.ReleaseData()
	return m.rows.Insert(row.Key(), row)
}

// GetRow looks up a row by primary key under the given tree guard.
func (m *Model) GetRow(guard *mtchm.Guard, key value.PrimaryKey) (*Row, bool) {
	m.Sync.AcquireData()
	defer m.Sync.ReleaseData()
	return m.rows.Get(guard, key)
}

// DeleteRow removes a row, returning it if present.
func (m *Model) DeleteRow(key value.PrimaryKey) (*Row, bool) {
	m.Sync.AcquireData()
	defer m.Sync.ReleaseData()
	return m.rows.Delete(key)
}

// PinRows returns a guard suitable for GetRow / iteration.
func (m *Model) PinRows() *mtchm.Guard { return m.rows.Pin() }

// IterateRows walks every row in the model; fn returning false stops early.
func (m *Model) IterateRows(guard *mtchm.Guard, fn func(key value.PrimaryKey, row *Row) bool) {
	m.rows.Iterate(guard, fn)
}

// RowCount returns the number of rows, for diagnostics only (non-linearizable).
func (m *Model) RowCount() int { return m.rows.Len() }
