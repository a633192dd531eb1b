package export

import (
	"strings"

	"github.com/ironsheep/segexport/internal/task"
)

// OverrideLookup returns a precomputed intensity for a region id. Annotators
// sometimes record a measured value in a textarea attached to the region; when
// present it replaces the gray mean computed from pixels.
type OverrideLookup func(regionID string) (float64, bool)

// NoOverrides never supplies a value.
func NoOverrides(string) (float64, bool) { return 0, false }

// TextualOverrides scans an annotation's textarea results and returns a lookup
// over the ones whose first text entry parses as a number. Later results for
// the same region id replace earlier ones.
func TextualOverrides(results []task.Result) OverrideLookup {
	values := make(map[string]float64)
	for _, res := range results {
		if !res.ID.Valid() || strings.ToLower(res.Type) != typeTextArea {
			continue
		}
		p := decodePayload(res.Value)
		if f, ok := firstText(p.Text); ok {
			values[res.ID.String()] = f
		}
	}
	if len(values) == 0 {
		return NoOverrides
	}
	return func(regionID string) (float64, bool) {
		f, ok := values[regionID]
		return f, ok
	}
}

func firstText(v interface{}) (float64, bool) {
	list, ok := v.([]interface{})
	if !ok || len(list) == 0 {
		return 0, false
	}
	return task.Float(strings.TrimSpace(task.String(list[0])))
}
