// Package tlv8 implements Apple's type-length-value wire format used by
// every HAP pairing endpoint: a 1-byte type, a 1-byte length (0-255), and
// the value. Values longer than 255 bytes are split into consecutive
// records sharing the same type, reassembled on decode.
//
// Marshal/Unmarshal work off `tlv8:"N"` struct tags, so callers declare
// a payload shape once and get both directions for free.
package tlv8

import (
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
)

// Separator is the zero-length type-0xFF record HAP uses to terminate a
// logical entry within a list (used by list-pairings).
const Separator byte = 0xFF

// ErrMalformed is returned when a TLV byte stream is truncated mid-record.
var ErrMalformed = errors.New("tlv8: malformed stream")

// Record is one logical (type, value) pair after fragment reassembly.
type Record struct {
	Type  byte
	Value []byte
}

// EncodeList serializes records in order, fragmenting any value longer
// than 255 bytes into consecutive same-type chunks, and emitting a single
// zero-length record for a value of length exactly 0.
func EncodeList(records []Record) []byte {
	var out []byte
	for _, r := range records {
		if len(r.Value) == 0 {
			out = append(out, r.Type, 0)
			continue
		}
		remaining := r.Value
		for len(remaining) > 0 {
			chunk := remaining
			if len(chunk) > 255 {
				chunk = chunk[:255]
			}
			out = append(out, r.Type, byte(len(chunk)))
			out = append(out, chunk...)
			remaining = remaining[len(chunk):]
		}
	}
	return out
}

// DecodeList parses a TLV byte stream into logical records, coalescing
// only *consecutive* same-type fragments — a later, non-adjacent record
// of the same type starts a new logical entry.
func DecodeList(data []byte) ([]Record, error) {
	var records []Record
	i := 0
	for i < len(data) {
		if i+2 > len(data) {
			return nil, ErrMalformed
		}
		t := data[i]
		var value []byte
		for i < len(data) && data[i] == t {
			l := int(data[i+1])
			start := i + 2
			end := start + l
			if end > len(data) {
				return nil, ErrMalformed
			}
			value = append(value, data[start:end]...)
			i = end
			if l < 255 {
				break
			}
		}
		records = append(records, Record{Type: t, Value: value})
	}
	return records, nil
}

// Marshal encodes v, a struct whose fields carry `tlv8:"N"` tags, into a
// TLV8 byte stream. Supported field types: byte/uint8, []byte, string,
// and any type implementing encoding.BinaryMarshaler is not required —
// byte and []byte cover every field HAP's pairing messages use.
func Marshal(v interface{}) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, fmt.Errorf("tlv8: Marshal requires a struct, got %s", rv.Kind())
	}

	var records []Record
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("tlv8")
		if tag == "" || tag == "-" {
			continue
		}
		typ, err := strconv.Atoi(tag)
		if err != nil {
			return nil, fmt.Errorf("tlv8: invalid tag %q on field %s", tag, field.Name)
		}

		fv := rv.Field(i)
		value, skip, err := fieldToBytes(fv)
		if err != nil {
			return nil, err
		}
		if skip {
			continue
		}
		records = append(records, Record{Type: byte(typ), Value: value})
	}
	return EncodeList(records), nil
}

func fieldToBytes(fv reflect.Value) (value []byte, skip bool, err error) {
	switch fv.Kind() {
	case reflect.Uint8:
		return []byte{byte(fv.Uint())}, false, nil
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.Uint8 {
			return nil, false, fmt.Errorf("tlv8: unsupported slice type %s", fv.Type())
		}
		if fv.IsNil() {
			return nil, true, nil
		}
		return fv.Bytes(), false, nil
	case reflect.String:
		if fv.Len() == 0 {
			return nil, true, nil
		}
		return []byte(fv.String()), false, nil
	default:
		return nil, false, fmt.Errorf("tlv8: unsupported field kind %s", fv.Kind())
	}
}

// Unmarshal decodes a TLV8 byte stream into v, a pointer to a struct
// whose fields carry `tlv8:"N"` tags.
func Unmarshal(data []byte, v interface{}) error {
	records, err := DecodeList(data)
	if err != nil {
		return err
	}
	return unmarshalRecords(records, v)
}

// UnmarshalReader reads all of r and decodes it as TLV8 into v.
func UnmarshalReader(r io.Reader, v interface{}) error {
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	return Unmarshal(data, v)
}

func unmarshalRecords(records []Record, v interface{}) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("tlv8: Unmarshal requires a pointer to struct")
	}
	rv = rv.Elem()
	rt := rv.Type()

	byType := make(map[byte][]byte, len(records))
	for _, r := range records {
		byType[r.Type] = r.Value
	}

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		tag := field.Tag.Get("tlv8")
		if tag == "" || tag == "-" {
			continue
		}
		typ, err := strconv.Atoi(tag)
		if err != nil {
			return fmt.Errorf("tlv8: invalid tag %q on field %s", tag, field.Name)
		}
		value, ok := byType[byte(typ)]
		if !ok {
			continue
		}
		fv := rv.Field(i)
		if err := bytesToField(fv, value); err != nil {
			return fmt.Errorf("tlv8: field %s: %w", field.Name, err)
		}
	}
	return nil
}

func bytesToField(fv reflect.Value, value []byte) error {
	switch fv.Kind() {
	case reflect.Uint8:
		if len(value) == 0 {
			fv.SetUint(0)
			return nil
		}
		fv.SetUint(uint64(value[0]))
		return nil
	case reflect.Slice:
		if fv.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Errorf("unsupported slice type %s", fv.Type())
		}
		cp := make([]byte, len(value))
		copy(cp, value)
		fv.SetBytes(cp)
		return nil
	case reflect.String:
		fv.SetString(string(value))
		return nil
	default:
		return fmt.Errorf("unsupported field kind %s", fv.Kind())
	}
}
