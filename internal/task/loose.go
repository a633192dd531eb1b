package task

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// String renders a decoded JSON value as text. Nil becomes the empty string.
func String(v interface{}) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	default:
		return cast.ToString(x)
	}
}

// Int interprets a decoded JSON value as a whole number, truncating
// fractions. Numeric strings are accepted. It reports false for anything that
// is not a number.
func Int(v interface{}) (int, bool) {
	f, ok := Float(v)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return int(f), true
}

// Float interprets a decoded JSON value as a float. Strings are trimmed and
// parsed. Booleans and nulls are rejected.
func Float(v interface{}) (float64, bool) {
	switch x := v.(type) {
	case nil, bool:
		return 0, false
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(x), 64)
		return f, err == nil
	default:
		f, err := cast.ToFloat64E(x)
		return f, err == nil
	}
}

// Truthy reports whether a decoded JSON value is non-empty: nil, false, zero,
// empty strings, empty lists and empty objects are all false.
func Truthy(v interface{}) bool {
	switch x := v.(type) {
	case nil:
		return false
	case bool:
		return x
	case string:
		return x != ""
	case []interface{}:
		return len(x) > 0
	case map[string]interface{}:
		return len(x) > 0
	case json.Number:
		f, err := x.Float64()
		return err != nil || f != 0
	default:
		f, err := cast.ToFloat64E(x)
		return err != nil || f != 0
	}
}
