package characteristic

import (
	"encoding/base64"
	"fmt"
)

// ValueKind tags the dynamic type held by a Value, since a
// characteristic's value can be a bool, a number of several widths, a
// string, or raw bytes depending on its declared format.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindBool
	KindUint
	KindInt
	KindFloat
	KindString
	KindTlv8
	KindData
)

// Value is the tagged union every characteristic's current value is
// stored as. Exactly one of the typed fields is meaningful, selected by
// Kind; Width further disambiguates a KindUint value's declared bit width
// (8/16/32/64) for JSON/TLV coercion.
type Value struct {
	Kind  ValueKind
	B     bool
	U     uint64
	Width int
	I     int64
	F     float64
	S     string
	Bytes []byte // Tlv8 or Data payload
}

func Null() Value                { return Value{Kind: KindNull} }
func BoolValue(b bool) Value     { return Value{Kind: KindBool, B: b} }
func UintValue(u uint64, width int) Value {
	return Value{Kind: KindUint, U: u, Width: width}
}
func IntValue(i int64) Value     { return Value{Kind: KindInt, I: i} }
func FloatValue(f float64) Value { return Value{Kind: KindFloat, F: f} }
func StringValue(s string) Value { return Value{Kind: KindString, S: s} }
func Tlv8Value(b []byte) Value   { return Value{Kind: KindTlv8, Bytes: b} }
func DataValue(b []byte) Value   { return Value{Kind: KindData, Bytes: b} }

// IsNull reports whether this is the explicit-null sentinel value, which
// allows as an alternative to matching the declared format.
func (v Value) IsNull() bool { return v.Kind == KindNull }

// JSON renders the value the way HAP's JSON characteristic bodies expect:
// booleans and numbers as JSON scalars, strings as JSON strings, and
// tlv8/data payloads as base64 strings.
func (v Value) JSON() (interface{}, error) {
	switch v.Kind {
	case KindNull:
		return nil, nil
	case KindBool:
		return v.B, nil
	case KindUint:
		return v.U, nil
	case KindInt:
		return v.I, nil
	case KindFloat:
		return v.F, nil
	case KindString:
		return v.S, nil
	case KindTlv8, KindData:
		return base64.StdEncoding.EncodeToString(v.Bytes), nil
	default:
		return nil, fmt.Errorf("characteristic: unknown value kind %d", v.Kind)
	}
}

// Equal reports whether two values carry the same kind and payload, used
// by SetValue to decide whether change listeners fire.
func (v Value) Equal(other Value) bool {
	if v.Kind != other.Kind {
		return false
	}
	switch v.Kind {
	case KindNull:
		return true
	case KindBool:
		return v.B == other.B
	case KindUint:
		return v.U == other.U && v.Width == other.Width
	case KindInt:
		return v.I == other.I
	case KindFloat:
		return v.F == other.F
	case KindString:
		return v.S == other.S
	case KindTlv8, KindData:
		if len(v.Bytes) != len(other.Bytes) {
			return false
		}
		for i := range v.Bytes {
			if v.Bytes[i] != other.Bytes[i] {
				return false
			}
		}
		return true
	}
	return false
}
