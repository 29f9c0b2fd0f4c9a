// Package schema implements the model/space metadata layer: field
// definitions, the schema-delta engine, rows, models, and spaces (spec §3,
// §4.2). It generalizes the teacher's pkg/storage (Table/Index/TableMetaData)
// and pkg/types (Comparable key classes) from a fixed five-type column
// store into the spec's schemaful, versioned row model.
package schema

import "github.com/skytable/skytable-sub005/pkg/value"

// Dict is a property dictionary, e.g. the `WITH { ... }` clause attached to
// a space or model (spec §6). Supplemented from
// original_source/server/src/engine/data/{dict,md_dict}.rs: a dictionary
// value may itself be null, a scalar, or a nested Dict one level deep.
type Dict map[string]DictValue

// DictValue is either a scalar value.Value or a nested Dict.
type DictValue struct {
	Scalar value.Value
	Nested Dict
	isDict bool
}

func Scalar(v value.Value) DictValue   { return DictValue{Scalar: v} }
func NestedDict(d Dict) DictValue      { return DictValue{Nested: d, isDict: true} }
func (d DictValue) IsNested() bool     { return d.isDict }

// Clone returns a deep copy of the dictionary.
func (d Dict) Clone() Dict {
	if d == nil {
		return nil
	}
	out := make(Dict, len(d))
	for k, v := range d {
		if v.isDict {
			out[k] = NestedDict(v.Nested.Clone())
		} else {
			out[k] = Scalar(v.Scalar.Clone())
		}
	}
	return out
}
