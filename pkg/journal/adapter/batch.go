package adapter

import (
	schemaerrors "github.com/skytable/skytable-sub005/pkg/errors"
	"github.com/skytable/skytable-sub005/pkg/journal"
	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// Batch event kinds for the per-model journal (spec §4.7: "a batch event
// references a set of row keys and applies inserts/updates/deletes").
const (
	EventRowInsert journal.EventKind = journal.FirstServerEventKind + iota
	EventRowUpdate
	EventRowDelete
)

type rowDoc struct {
	Key    valueDoc            `bson:"key"`
	Fields map[string]valueDoc `bson:"fields,omitempty"`
}

type batchPayload struct {
	Rows []rowDoc `bson:"rows"`
}

func encodeFields(fields map[string]value.Value) map[string]valueDoc {
	out := make(map[string]valueDoc, len(fields))
	for k, v := range fields {
		out[k] = encodeValue(v)
	}
	return out
}

func decodeFields(docs map[string]valueDoc) map[string]value.Value {
	out := make(map[string]value.Value, len(docs))
	for k, v := range docs {
		out[k] = decodeValue(v)
	}
	return out
}

// EncodeInsertBatch encodes a batch of freshly inserted rows.
func EncodeInsertBatch(rows []*schema.Row) ([]byte, error) {
	docs := make([]rowDoc, len(rows))
	for i, r := range rows {
		docs[i] = rowDoc{Key: encodeValue(r.Key().Value()), Fields: encodeFields(r.ViewRaw())}
	}
	return marshal(batchPayload{Rows: docs})
}

// EncodeUpdateBatch encodes a batch of rows after mutation.
func EncodeUpdateBatch(rows []*schema.Row) ([]byte, error) {
	return EncodeInsertBatch(rows)
}

// EncodeDeleteBatch encodes the set of primary keys removed in one batch.
func EncodeDeleteBatch(keys []value.PrimaryKey) ([]byte, error) {
	docs := make([]rowDoc, len(keys))
	for i, k := range keys {
		docs[i] = rowDoc{Key: encodeValue(k.Value())}
	}
	return marshal(batchPayload{Rows: docs})
}

// ApplyBatch replays one decoded batch frame against a model, used during
// recovery. schema_version is the model's version at the time the batch was
// recorded, letting the model's lazy-upgrade path (schema.Row.View) bring
// replayed rows forward to the model's current schema on next read.
func ApplyBatch(m *schema.Model, kind journal.EventKind, payload []byte, schemaVersion uint64) error {
	var p batchPayload
	if err := unmarshal(payload, &p); err != nil {
		return err
	}
	for _, doc := range p.Rows {
		pk, err := value.NewPrimaryKey(decodeValue(doc.Key))
		if err != nil {
			return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
		}
		switch kind {
		case EventRowInsert, EventRowUpdate:
			row := schema.NewRow(pk, decodeFields(doc.Fields), schemaVersion, 0)
			if kind == EventRowInsert {
				if err := m.InsertRow(row); err != nil {
					return &schemaerrors.RestoreDataConflictError{Detail: err.Error()}
				}
			} else {
				guard := m.PinRows()
				existing, ok := m.GetRow(guard, pk)
				guard.Unpin()
				if !ok {
					return &schemaerrors.RestoreDataConflictError{Detail: "update replay target row missing"}
				}
				_ = existing.Mutate(m, 0, func(fields map[string]value.Value) error {
					for k, v := range decodeFields(doc.Fields) {
						fields[k] = v
					}
					return nil
				})
			}
		case EventRowDelete:
			if _, ok := m.DeleteRow(pk); !ok {
				return &schemaerrors.RestoreDataConflictError{Detail: "delete replay target row missing"}
			}
		default:
			return &schemaerrors.UnknownEventKindError{Kind: uint64(kind)}
		}
	}
	return nil
}
