package schema

import "github.com/skytable/skytable-sub005/pkg/value"

// Field is one entry of a model's ordered schema: a field name, its
// declared type tag, and whether null is permitted (spec §3, "ordered
// schema: sequence of (field name, type spec, nullability)").
type Field struct {
	Name     string
	Tag      value.Tag
	Nullable bool
}

// FieldSet is the ordered schema of a model. By convention (spec §3) index
// 0 is the primary key field.
type FieldSet []Field

// PrimaryKeyField returns the model's sole primary key field, always the
// first declared field.
func (fs FieldSet) PrimaryKeyField() Field { return fs[0] }

// Lookup returns the field named name and whether it exists.
func (fs FieldSet) Lookup(name string) (Field, bool) {
	for _, f := range fs {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Validate enforces spec §3's schema invariants: exactly one primary key
// field (the first one), no duplicate names, and a legal primary key type
// (string or uint).
func (fs FieldSet) Validate() error {
	if len(fs) == 0 {
		return &badSchemaError{"model must declare at least one field"}
	}
	seen := make(map[string]struct{}, len(fs))
	for _, f := range fs {
		if _, dup := seen[f.Name]; dup {
			return &badSchemaError{"duplicate field name: " + f.Name}
		}
		seen[f.Name] = struct{}{}
	}
	pk := fs.PrimaryKeyField()
	if pk.Tag != value.TagString && pk.Tag != value.TagUint {
		return &badSchemaError{"primary key field must be string or uint"}
	}
	if pk.Nullable {
		return &badSchemaError{"primary key field cannot be nullable"}
	}
	return nil
}

type badSchemaError struct{ reason string }

func (e *badSchemaError) Error() string { return "bad model definition: " + e.reason }
