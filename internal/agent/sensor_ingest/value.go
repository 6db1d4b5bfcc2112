package sensor_ingest

import (
	"encoding/json"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

var ErrInvalidValue = errors.New("invalid sensor value")

// Value is a normalized sensor reading: nil, bool, float64 or string.
// Every Value is safe to compare with ==.
type Value = any

// Normalize converts a decoded reading to a Value. All numeric kinds become
// float64 so 1, 1.0 and uint64(1) compare equal. Objects and arrays are rejected.
func Normalize(v any) (Value, error) {
	switch val := v.(type) {
	case nil, bool, string, float64:
		return val, nil
	case float32:
		return float64(val), nil
	case int:
		return float64(val), nil
	case int8:
		return float64(val), nil
	case int16:
		return float64(val), nil
	case int32:
		return float64(val), nil
	case int64:
		return float64(val), nil
	case uint:
		return float64(val), nil
	case uint8:
		return float64(val), nil
	case uint16:
		return float64(val), nil
	case uint32:
		return float64(val), nil
	case uint64:
		return float64(val), nil
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return nil, errors.Wrapf(ErrInvalidValue, "number %q", val.String())
		}
		return f, nil
	default:
		return nil, errors.Wrapf(ErrInvalidValue, "unsupported type %T", v)
	}
}

// NormalizeSetting is Normalize for configured values, which arrive as strings
// when they come from the environment: "true"/"false" become bool and numeric
// text becomes float64.
func NormalizeSetting(v any) (Value, error) {
	s, ok := v.(string)
	if !ok {
		return Normalize(v)
	}
	trimmed := strings.TrimSpace(s)
	switch strings.ToLower(trimmed) {
	case "true":
		return true, nil
	case "false":
		return false, nil
	}
	if f, err := strconv.ParseFloat(trimmed, 64); err == nil {
		return f, nil
	}
	return s, nil
}
