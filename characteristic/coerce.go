package characteristic

import (
	"encoding/base64"
	"fmt"
	"math"

	"github.com/hapcore/hap/status"
)

// Coerce converts a raw JSON-decoded value (as produced by encoding/json:
// bool, float64, string) into a Value matching c's declared format,
// applying c's range/length/validValues/validValuesRanges constraints.
// Used by the PUT /characteristics handler.
func Coerce(c *Characteristic, raw interface{}) (Value, error) {
	switch c.Format {
	case FormatBool:
		b, ok := raw.(bool)
		if !ok {
			return Value{}, status.New(status.InvalidValue)
		}
		return BoolValue(b), nil

	case FormatUint8, FormatUint16, FormatUint32, FormatUint64, FormatInt:
		f, ok := raw.(float64)
		if !ok {
			return Value{}, status.New(status.InvalidValue)
		}
		i := int64(f)
		if float64(i) != f {
			return Value{}, status.New(status.InvalidValue)
		}
		if err := checkNumericConstraints(c, f); err != nil {
			return Value{}, err
		}
		if c.Format == FormatInt {
			return IntValue(i), nil
		}
		width := map[Format]int{FormatUint8: 8, FormatUint16: 16, FormatUint32: 32, FormatUint64: 64}[c.Format]
		return UintValue(uint64(i), width), nil

	case FormatFloat:
		f, ok := raw.(float64)
		if !ok {
			return Value{}, status.New(status.InvalidValue)
		}
		if err := checkNumericConstraints(c, f); err != nil {
			return Value{}, err
		}
		return FloatValue(f), nil

	case FormatString:
		s, ok := raw.(string)
		if !ok {
			return Value{}, status.New(status.InvalidValue)
		}
		if c.MaxLen != nil && len(s) > *c.MaxLen {
			return Value{}, status.New(status.InvalidValue)
		}
		return StringValue(s), nil

	case FormatTlv8, FormatData:
		s, ok := raw.(string)
		if !ok {
			return Value{}, status.New(status.InvalidValue)
		}
		b, err := base64.StdEncoding.DecodeString(s)
		if err != nil {
			return Value{}, status.New(status.InvalidValue)
		}
		if c.MaxLen != nil && len(b) > *c.MaxLen {
			return Value{}, status.New(status.InvalidValue)
		}
		if c.Format == FormatTlv8 {
			return Tlv8Value(b), nil
		}
		return DataValue(b), nil

	default:
		return Value{}, fmt.Errorf("characteristic: unsupported format %q", c.Format)
	}
}

func checkNumericConstraints(c *Characteristic, f float64) error {
	if c.MinValue != nil && f < *c.MinValue {
		return status.New(status.InvalidValue)
	}
	if c.MaxValue != nil && f > *c.MaxValue {
		return status.New(status.InvalidValue)
	}
	if len(c.ValidValues) > 0 {
		found := false
		for _, vv := range c.ValidValues {
			if int64(f) == vv {
				found = true
				break
			}
		}
		if !found {
			return status.New(status.InvalidValue)
		}
	}
	if len(c.ValidValuesRanges) > 0 {
		found := false
		for _, r := range c.ValidValuesRanges {
			if int64(f) >= r.Start && int64(f) <= r.End {
				found = true
				break
			}
		}
		if !found {
			return status.New(status.InvalidValue)
		}
	}
	if c.MinStep != nil && *c.MinStep > 0 && c.MinValue != nil {
		steps := (f - *c.MinValue) / *c.MinStep
		if math.Abs(steps-math.Round(steps)) > 1e-9 {
			return status.New(status.InvalidValue)
		}
	}
	return nil
}
