package mask

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cast"
)

// DecodeRLE expands a brush run-length list into a mask of the given size.
//
// Parameters:
//   - runs: alternating background/foreground run lengths, starting with
//     background.
//   - width, height: target mask dimensions in pixels. Both must be positive.
//
// Returns:
//   - *Mask: the decoded mask.
//   - error: a *DecodeError if the dimensions are not positive.
//
// # Algorithm
//
// The decoder walks the flattened (row-major) mask with a current value that
// starts as background:
//
//  1. A positive run of length L writes L consecutive positions with the
//     current value, then flips it.
//  2. A zero or negative run flips the current value without consuming any
//     positions.
//  3. Decoding stops once width*height positions have been consumed. Any
//     positions not covered by the list stay background. Runs longer than
//     the remaining positions are clipped, however large.
//
// For example, [0, 1, 1, 2, 3] over a 1x7 grid yields
// [T, F, T, T, F, F, F]: the leading zero flips to foreground before the
// first run is written.
func DecodeRLE(runs []int, width, height int) (*Mask, error) {
	if width <= 0 || height <= 0 {
		return nil, decodeErrorf("rle", "invalid dimensions %dx%d", width, height)
	}

	m := New(width, height)
	total := len(m.Pix)
	value := false
	idx := 0

	for _, count := range runs {
		if count <= 0 {
			value = !value
			continue
		}
		end := total
		if count < total-idx {
			end = idx + count
		}
		if value {
			for i := idx; i < end; i++ {
				m.Pix[i] = true
			}
		}
		idx = end
		value = !value
		if idx >= total {
			break
		}
	}

	return m, nil
}

// EncodeRLE is the inverse of DecodeRLE. The returned list always starts with
// a background run, which is zero when the first pixel is foreground.
func EncodeRLE(m *Mask) []int {
	if m == nil || len(m.Pix) == 0 {
		return nil
	}

	runs := make([]int, 0, 16)
	current := false
	length := 0
	for _, v := range m.Pix {
		if v == current {
			length++
			continue
		}
		runs = append(runs, length)
		current = v
		length = 1
	}
	return append(runs, length)
}

// RunLengths converts a loosely typed payload, as produced by decoding
// annotation JSON, into a run-length list.
//
// The payload must be a list whose entries are integral numbers that fit an
// int. Strings, booleans, nulls, fractional and out-of-range numbers are
// rejected with a *DecodeError.
func RunLengths(v interface{}) ([]int, error) {
	switch list := v.(type) {
	case []int:
		return append([]int(nil), list...), nil
	case []interface{}:
		runs := make([]int, len(list))
		for i, item := range list {
			f, err := number(item)
			if err != nil {
				return nil, decodeErrorf("rle", "entry %d: %v", i, err)
			}
			if f != math.Trunc(f) || math.IsInf(f, 0) {
				return nil, decodeErrorf("rle", "entry %d: %v is not an integer", i, item)
			}
			// float64(math.MaxInt) rounds up to 2^63, which int cannot hold.
			if f >= float64(math.MaxInt) || f < float64(math.MinInt) {
				return nil, decodeErrorf("rle", "entry %d: %v is out of range", i, item)
			}
			runs[i] = int(f)
		}
		return runs, nil
	case nil:
		return nil, decodeErrorf("rle", "missing run-length list")
	default:
		return nil, decodeErrorf("rle", "expected a list, got %T", v)
	}
}

// number extracts a float from a JSON-decoded numeric value.
func number(v interface{}) (float64, error) {
	switch x := v.(type) {
	case json.Number:
		return x.Float64()
	case string, bool, nil:
		return 0, fmt.Errorf("%v (%T) is not a number", v, v)
	default:
		f, err := cast.ToFloat64E(x)
		if err != nil {
			return 0, err
		}
		if math.IsNaN(f) {
			return 0, fmt.Errorf("NaN is not a number")
		}
		return f, nil
	}
}
