package criteria

import (
	"encoding/json"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// strictEqual compares without type juggling: "25" never equals 25. Numeric kinds are
// compared by value so an int read from Go code equals the float64 decoded from JSON.
func strictEqual(actual, candidate any) bool {
	left, leftNumeric := numericValue(actual)
	right, rightNumeric := numericValue(candidate)

	if leftNumeric || rightNumeric {
		return leftNumeric && rightNumeric && left == right
	}

	return reflect.DeepEqual(actual, candidate)
}

func numericValue(value any) (float64, bool) {
	switch v := value.(type) {
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	case float32:
		return float64(v), true
	case float64:
		return v, true
	case json.Number:
		f, err := v.Float64()

		return f, err == nil
	default:
		return 0, false
	}
}

// normalizeOrdinal maps a value onto a number for ordering comparisons: numbers and
// numeric strings as-is, dates as epoch seconds. The second result is false when the
// value is neither.
func normalizeOrdinal(value any) (float64, bool) {
	if n, ok := numericValue(value); ok {
		return n, true
	}

	switch v := value.(type) {
	case time.Time:
		return float64(v.Unix()), true
	case *time.Time:
		if v == nil {
			return 0, false
		}

		return float64(v.Unix()), true
	case string:
		trimmed := strings.TrimSpace(v)
		if trimmed == "" {
			return 0, false
		}

		if n, err := strconv.ParseFloat(trimmed, 64); err == nil {
			return n, true
		}

		parsed, err := dateparse.ParseIn(trimmed, time.UTC)
		if err != nil {
			return 0, false
		}

		return float64(parsed.Unix()), true
	default:
		return 0, false
	}
}
