package export

import (
	"fmt"
	"strings"

	"github.com/go-viper/mapstructure/v2"

	"github.com/ironsheep/segexport/internal/mask"
	"github.com/ironsheep/segexport/internal/task"
)

// Kind is the shape type of an exported region.
type Kind string

// Region kinds written to the shape_type column.
const (
	KindMask    Kind = "mask"
	KindPolygon Kind = "polygon"
)

// Result types that identify a region kind on their own.
const (
	typeBrushLabels   = "brushlabels"
	typePolygonLabels = "polygonlabels"
	typeTextArea      = "textarea"
)

// payload is the typed view of a result's value object. Payload fields stay
// loosely typed; they are validated when the mask is built.
type payload struct {
	Format         string      `mapstructure:"format"`
	RLE            interface{} `mapstructure:"rle"`
	Points         interface{} `mapstructure:"points"`
	BrushLabels    interface{} `mapstructure:"brushlabels"`
	PolygonLabels  interface{} `mapstructure:"polygonlabels"`
	Text           interface{} `mapstructure:"text"`
	OriginalWidth  interface{} `mapstructure:"original_width"`
	OriginalHeight interface{} `mapstructure:"original_height"`
}

func decodePayload(value map[string]interface{}) payload {
	var p payload
	if len(value) == 0 {
		return p
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &p,
	})
	if err != nil {
		return p
	}
	if err := dec.Decode(value); err != nil {
		// A non-string format is the only field that can fail; keep the rest.
		p.Format = ""
	}
	return p
}

// shape is the kind-specific part of a region. Exactly one of brushShape and
// polygonShape implements it.
type shape interface {
	kind() Kind
}

type brushShape struct {
	rle interface{}
}

type polygonShape struct {
	points interface{}
}

func (brushShape) kind() Kind   { return KindMask }
func (polygonShape) kind() Kind { return KindPolygon }

// classify decides the region kind of a result and returns its own label.
// Brush detection wins over polygon detection when both apply.
func classify(resultType string, p payload) (shape, string, error) {
	t := strings.ToLower(resultType)
	_, rleIsList := p.RLE.([]interface{})
	if t == typeBrushLabels || (p.Format == "rle" && rleIsList) {
		return brushShape{rle: p.RLE}, joinLabels(p.BrushLabels), nil
	}
	if t == typePolygonLabels || hasPoints(p.Points) {
		return polygonShape{points: p.Points}, joinLabels(p.PolygonLabels), nil
	}
	return nil, "", ErrUnrecognizedShape
}

func hasPoints(v interface{}) bool {
	list, ok := v.([]interface{})
	return ok && len(list) > 0
}

// rasterize builds the mask for a shape. Polygons also return their vertices
// in pixel coordinates.
func rasterize(s shape, width, height int) (*mask.Mask, []mask.Point, error) {
	switch s := s.(type) {
	case brushShape:
		runs, err := mask.RunLengths(s.rle)
		if err != nil {
			return nil, nil, err
		}
		m, err := mask.DecodeRLE(runs, width, height)
		return m, nil, err
	case polygonShape:
		pts, err := mask.PercentPoints(s.points)
		if err != nil {
			return nil, nil, err
		}
		px := mask.PercentToPixels(pts, width, height)
		return mask.RasterizePolygon(px, width, height), px, nil
	default:
		return nil, nil, fmt.Errorf("%w: %T", ErrUnrecognizedShape, s)
	}
}

// joinLabels flattens a label list into "a;b;c". A scalar is rendered as-is
// and an empty value yields "".
func joinLabels(v interface{}) string {
	if !task.Truthy(v) {
		return ""
	}
	list, ok := v.([]interface{})
	if !ok {
		return task.String(v)
	}
	parts := make([]string, len(list))
	for i, item := range list {
		parts[i] = task.String(item)
	}
	return strings.Join(parts, ";")
}

// prescanLabels maps region ids to the first-found label of any result in the
// annotation, so shape-only results can borrow the label of a sibling record.
func prescanLabels(results []task.Result) map[string]string {
	labels := make(map[string]string)
	for _, res := range results {
		if !res.ID.Valid() {
			continue
		}
		p := decodePayload(res.Value)
		label := ""
		if task.Truthy(p.BrushLabels) {
			label = joinLabels(p.BrushLabels)
		} else if task.Truthy(p.PolygonLabels) {
			label = joinLabels(p.PolygonLabels)
		}
		if label != "" {
			labels[res.ID.String()] = label
		}
	}
	return labels
}

// regionID returns the result id, or a synthesized "<type>-<index>" id for
// anonymous results. The second value reports whether the id was
// synthesized. Synthesized ids only name the row: they take no part in
// dedup, label or override lookups, so they cannot match a real id.
func regionID(res task.Result, index int) (string, bool) {
	if res.ID.Valid() {
		return res.ID.String(), false
	}
	return fmt.Sprintf("%s-%d", strings.ToLower(res.Type), index), true
}

// explicitSize returns the original image size recorded on the result,
// preferring the result level over the value level.
func explicitSize(res task.Result, p payload) (int, int) {
	return firstPositive(res.OriginalWidth, p.OriginalWidth), firstPositive(res.OriginalHeight, p.OriginalHeight)
}

func firstPositive(values ...interface{}) int {
	for _, v := range values {
		if !task.Truthy(v) {
			continue
		}
		if n, ok := task.Int(v); ok && n > 0 {
			return n
		}
	}
	return 0
}
