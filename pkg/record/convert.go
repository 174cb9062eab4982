package record

import (
	"encoding/json"
	"fmt"
	"math"
)

// toInt64 accepts any Go integer, whole floats and json.Number.
func toInt64(data any) (int64, error) {
	switch v := data.(type) {
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		if uint64(v) > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		if v > math.MaxInt64 {
			return 0, fmt.Errorf("value %d overflows int64", v)
		}
		return int64(v), nil
	case float32:
		return toInt64(float64(v))
	case float64:
		if v != math.Trunc(v) || v < math.MinInt64 || v >= math.MaxInt64 {
			return 0, fmt.Errorf("value %v is not an integer", v)
		}
		return int64(v), nil
	case json.Number:
		return v.Int64()
	default:
		return 0, fmt.Errorf("cannot convert %T to integer", data)
	}
}

func toUint(data any, bits int) (uint64, error) {
	v, err := toInt64(data)
	if err != nil {
		return 0, err
	}
	if v < 0 || uint64(v) > (uint64(1)<<bits)-1 {
		return 0, fmt.Errorf("value %d out of range for u%d", v, bits)
	}
	return uint64(v), nil
}

func toInt(data any, bits int) (int64, error) {
	v, err := toInt64(data)
	if err != nil {
		return 0, err
	}
	limit := int64(1) << (bits - 1)
	if v < -limit || v >= limit {
		return 0, fmt.Errorf("value %d out of range for s%d", v, bits)
	}
	return v, nil
}

func toFloat64(data any) (float64, error) {
	switch v := data.(type) {
	case float32:
		return float64(v), nil
	case float64:
		return v, nil
	case json.Number:
		return v.Float64()
	default:
		i, err := toInt64(data)
		if err != nil {
			return 0, fmt.Errorf("cannot convert %T to float", data)
		}
		return float64(i), nil
	}
}
