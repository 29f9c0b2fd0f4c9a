package value

import (
	"encoding/binary"
	"fmt"
)

// PrimaryKey is a restricted Value: string or unsigned int only, with a
// stable byte representation used for hashing into the MTCHM (spec §3,
// "Primary key cell"). It generalizes the teacher's types.Comparable key
// types (IntKey, VarcharKey) to the two classes the spec allows as primary
// keys.
type PrimaryKey struct {
	v Value
}

// NewPrimaryKey validates that v is a string or unsigned-int value and
// wraps it. Any other tag is a bad model definition (illegal PK type).
func NewPrimaryKey(v Value) (PrimaryKey, error) {
	switch v.Tag() {
	case TagString, TagUint:
		return PrimaryKey{v: v}, nil
	default:
		return PrimaryKey{}, fmt.Errorf("illegal primary key type: %s", v.Tag())
	}
}

// Value returns the underlying scalar.
func (k PrimaryKey) Value() Value { return k.v }

// Tag returns the underlying tag (always TagString or TagUint).
func (k PrimaryKey) Tag() Tag { return k.v.Tag() }

// Bytes returns the stable byte representation used for hashing. Strings
// are UTF-8 bytes;
// unsigned ints are big-endian encoded so that byte-lexicographic order
// matches numeric order (useful for range scans).
func (k PrimaryKey) Bytes() []byte {
	switch k.v.Tag() {
	case TagString:
		s, _ := k.v.AsString()
		return []byte(s)
	case TagUint:
		u, _ := k.v.Uint()
		var buf [8]byte
		binary.BigEndian.PutUint64(buf[:], u)
		return buf[:]
	default:
		return nil
	}
}

// Equal reports whether two primary keys are the same tag and value.
func (k PrimaryKey) Equal(other PrimaryKey) bool {
	return k.v.Equal(other.v)
}

func (k PrimaryKey) String() string {
	return k.v.String()
}
