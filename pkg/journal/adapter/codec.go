// Package adapter implements the two journal adapters described in spec
// §4.7: the GNS adapter (space/model/user DDL events) and the per-model
// batch adapter (row-level DML events). Both encode their payloads with
// BSON (go.mongodb.org/mongo-driver/v2/bson), the same library the teacher
// uses in pkg/storage/bson.go to serialize row documents, repurposed here
// to serialize journal event payloads instead of on-disk row pages.
package adapter

import (
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/skytable/skytable-sub005/pkg/schema"
	"github.com/skytable/skytable-sub005/pkg/value"
)

// valueDoc is the BSON-friendly shape of a value.Value: a tag discriminator
// plus exactly one populated field, chosen so a decoder never has to guess
// the dynamic Go type BSON handed back for an empty interface.
type valueDoc struct {
	Tag  uint8      `bson:"tag"`
	B    bool       `bson:"b,omitempty"`
	U    uint64     `bson:"u,omitempty"`
	I    int64      `bson:"i,omitempty"`
	F    float64    `bson:"f,omitempty"`
	Bin  []byte     `bson:"bin,omitempty"`
	Str  string     `bson:"str,omitempty"`
	List []valueDoc `bson:"list,omitempty"`
}

func encodeValue(v value.Value) valueDoc {
	d := valueDoc{Tag: uint8(v.Tag())}
	switch v.Tag() {
	case value.TagBool:
		d.B, _ = v.Bool()
	case value.TagUint:
		d.U, _ = v.Uint()
	case value.TagSint:
		d.I, _ = v.Sint()
	case value.TagFloat:
		d.F, _ = v.Float()
	case value.TagBinary:
		d.Bin, _ = v.Binary()
	case value.TagString:
		s, _ := v.AsString()
		d.Str = s
	case value.TagList:
		items, _ := v.List()
		d.List = make([]valueDoc, len(items))
		for i, item := range items {
			d.List[i] = encodeValue(item)
		}
	}
	return d
}

func decodeValue(d valueDoc) value.Value {
	switch value.Tag(d.Tag) {
	case value.TagNull:
		return value.Null()
	case value.TagBool:
		return value.Bool(d.B)
	case value.TagUint:
		return value.Uint(d.U)
	case value.TagSint:
		return value.Sint(d.I)
	case value.TagFloat:
		return value.Float(d.F)
	case value.TagBinary:
		return value.Binary(d.Bin)
	case value.TagString:
		return value.String(d.Str)
	case value.TagList:
		items := make([]value.Value, len(d.List))
		for i, item := range d.List {
			items[i] = decodeValue(item)
		}
		return value.List(items)
	default:
		return value.Null()
	}
}

// dictDoc mirrors schema.Dict: a map of names to either a scalar valueDoc
// or a nested dictDoc, again using explicit discrimination rather than
// BSON's dynamic-typed bson.M so decode never has to sniff types.
type dictDoc struct {
	Scalar *valueDoc          `bson:"scalar,omitempty"`
	Nested map[string]dictDoc `bson:"nested,omitempty"`
}

func encodeDict(d schema.Dict) map[string]dictDoc {
	if d == nil {
		return nil
	}
	out := make(map[string]dictDoc, len(d))
	for k, v := range d {
		if v.IsNested() {
			out[k] = dictDoc{Nested: encodeDict(v.Nested)}
		} else {
			enc := encodeValue(v.Scalar)
			out[k] = dictDoc{Scalar: &enc}
		}
	}
	return out
}

func decodeDict(docs map[string]dictDoc) schema.Dict {
	if docs == nil {
		return nil
	}
	out := make(schema.Dict, len(docs))
	for k, v := range docs {
		if v.Scalar != nil {
			out[k] = schema.Scalar(decodeValue(*v.Scalar))
		} else {
			out[k] = schema.NestedDict(decodeDict(v.Nested))
		}
	}
	return out
}

func encodeFieldSet(fs schema.FieldSet) []fieldDoc {
	out := make([]fieldDoc, len(fs))
	for i, f := range fs {
		out[i] = fieldDoc{Name: f.Name, Tag: uint8(f.Tag), Nullable: f.Nullable}
	}
	return out
}

func decodeFieldSet(docs []fieldDoc) schema.FieldSet {
	out := make(schema.FieldSet, len(docs))
	for i, d := range docs {
		out[i] = schema.Field{Name: d.Name, Tag: value.Tag(d.Tag), Nullable: d.Nullable}
	}
	return out
}

type fieldDoc struct {
	Name     string `bson:"name"`
	Tag      uint8  `bson:"tag"`
	Nullable bool   `bson:"nullable"`
}

func marshal(v any) ([]byte, error) {
	b, err := bson.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("adapter: marshal payload: %w", err)
	}
	return b, nil
}

func unmarshal(b []byte, v any) error {
	if err := bson.Unmarshal(b, v); err != nil {
		return fmt.Errorf("adapter: unmarshal payload: %w", err)
	}
	return nil
}
