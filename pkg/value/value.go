// Package value implements the tagged scalar representation shared by row
// payloads, primary keys, and query literals. It generalizes the teacher's
// typed key cells (pkg/types.Comparable: IntKey, VarcharKey, FloatKey,
// BoolKey, DateKey) into a single discriminated union that also covers
// null, binary blobs, and lists, per spec §3 ("Value cell").
package value

import (
	"bytes"
	"fmt"
)

// Tag discriminates the scalar class stored in a Value. Equality and
// arithmetic are defined only within the same Tag class (spec §4.3).
type Tag uint8

const (
	TagNull Tag = iota
	TagBool
	TagUint
	TagSint
	TagFloat
	TagBinary
	TagString
	TagList
)

func (t Tag) String() string {
	switch t {
	case TagNull:
		return "null"
	case TagBool:
		return "bool"
	case TagUint:
		return "uint"
	case TagSint:
		return "sint"
	case TagFloat:
		return "float"
	case TagBinary:
		return "binary"
	case TagString:
		return "string"
	case TagList:
		return "list"
	default:
		return "unknown"
	}
}

// Value is a tagged union over: null, bool, unsigned int (64-bit), signed
// int (64-bit), float (64-bit), binary blob, UTF-8 string, and list of
// Values. Only one of the payload fields is meaningful for a given Tag.
type Value struct {
	tag  Tag
	b    bool
	u    uint64
	i    int64
	f    float64
	bin  []byte
	str  string
	list []Value
}

func Null() Value                { return Value{tag: TagNull} }
func Bool(b bool) Value          { return Value{tag: TagBool, b: b} }
func Uint(u uint64) Value        { return Value{tag: TagUint, u: u} }
func Sint(i int64) Value         { return Value{tag: TagSint, i: i} }
func Float(f float64) Value      { return Value{tag: TagFloat, f: f} }
func Binary(b []byte) Value      { return Value{tag: TagBinary, bin: append([]byte(nil), b...)} }
func String(s string) Value      { return Value{tag: TagString, str: s} }
func List(items []Value) Value   { return Value{tag: TagList, list: items} }

func (v Value) Tag() Tag     { return v.tag }
func (v Value) IsNull() bool { return v.tag == TagNull }

func (v Value) Bool() (bool, bool)     { return v.b, v.tag == TagBool }
func (v Value) Uint() (uint64, bool)   { return v.u, v.tag == TagUint }
func (v Value) Sint() (int64, bool)    { return v.i, v.tag == TagSint }
func (v Value) Float() (float64, bool) { return v.f, v.tag == TagFloat }
func (v Value) Binary() ([]byte, bool) { return v.bin, v.tag == TagBinary }
func (v Value) AsString() (string, bool) { return v.str, v.tag == TagString }
func (v Value) List() ([]Value, bool)  { return v.list, v.tag == TagList }

// IsNumeric reports whether the value's tag belongs to the numeric class
// (uint, sint, float) eligible for compound arithmetic assignment (spec
// §4.3).
func (v Value) IsNumeric() bool {
	switch v.tag {
	case TagUint, TagSint, TagFloat:
		return true
	default:
		return false
	}
}

// Equal defines equality only within the same tag class, per spec §4.3:
// "equality is defined only within the same class". Cross-class comparison
// always returns false, including null vs anything but null.
func (v Value) Equal(other Value) bool {
	if v.tag != other.tag {
		return false
	}
	switch v.tag {
	case TagNull:
		return true
	case TagBool:
		return v.b == other.b
	case TagUint:
		return v.u == other.u
	case TagSint:
		return v.i == other.i
	case TagFloat:
		return v.f == other.f
	case TagBinary:
		return bytes.Equal(v.bin, other.bin)
	case TagString:
		return v.str == other.str
	case TagList:
		if len(v.list) != len(other.list) {
			return false
		}
		for i := range v.list {
			if !v.list[i].Equal(other.list[i]) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

func (v Value) asFloat64() (float64, bool) {
	switch v.tag {
	case TagUint:
		return float64(v.u), true
	case TagSint:
		return float64(v.i), true
	case TagFloat:
		return v.f, true
	default:
		return 0, false
	}
}

// CompoundOp is a compound arithmetic assignment operator: +=, -=, *=, /=.
type CompoundOp uint8

const (
	OpAddAssign CompoundOp = iota
	OpSubAssign
	OpMulAssign
	OpDivAssign
)

// ErrTypeMismatch is returned when a compound assignment operand pairing is
// not numeric-numeric with a matching target tag (spec §4.3,
// ConstraintViolationFieldTypedef).
var ErrTypeMismatch = fmt.Errorf("operand types are not compatible for compound assignment")

// ApplyCompound computes target OP operand, preserving target's tag class.
// It fails unless both operands are numeric and the result can be
// represented in target's own tag (spec §4.3: "defined only when both
// operands are numeric and the target field's tag matches").
func ApplyCompound(target Value, op CompoundOp, operand Value) (Value, error) {
	if !target.IsNumeric() || !operand.IsNumeric() {
		return Value{}, ErrTypeMismatch
	}
	tf, _ := target.asFloat64()
	of, _ := operand.asFloat64()

	var result float64
	switch op {
	case OpAddAssign:
		result = tf + of
	case OpSubAssign:
		result = tf - of
	case OpMulAssign:
		result = tf * of
	case OpDivAssign:
		if of == 0 {
			return Value{}, fmt.Errorf("division by zero")
		}
		result = tf / of
	default:
		return Value{}, fmt.Errorf("unknown compound operator")
	}

	switch target.tag {
	case TagUint:
		if result < 0 {
			return Value{}, ErrTypeMismatch
		}
		return Uint(uint64(result)), nil
	case TagSint:
		return Sint(int64(result)), nil
	case TagFloat:
		return Float(result), nil
	default:
		return Value{}, ErrTypeMismatch
	}
}

// Clone returns a deep copy of the value (relevant only for Binary/List,
// whose backing storage is shared by default on assignment).
func (v Value) Clone() Value {
	switch v.tag {
	case TagBinary:
		return Binary(v.bin)
	case TagList:
		items := make([]Value, len(v.list))
		for i, it := range v.list {
			items[i] = it.Clone()
		}
		return List(items)
	default:
		return v
	}
}

// String renders the value for diagnostics and logging (spec §4.4 notes
// that source text must stay safe to log; this is never fed back into the
// tokenizer).
func (v Value) String() string {
	switch v.tag {
	case TagNull:
		return "null"
	case TagBool:
		return fmt.Sprintf("%t", v.b)
	case TagUint:
		return fmt.Sprintf("%d", v.u)
	case TagSint:
		return fmt.Sprintf("%d", v.i)
	case TagFloat:
		return fmt.Sprintf("%f", v.f)
	case TagBinary:
		return fmt.Sprintf("%x", v.bin)
	case TagString:
		return v.str
	case TagList:
		return fmt.Sprintf("%v", v.list)
	default:
		return "<invalid>"
	}
}
