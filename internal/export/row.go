package export

import (
	"math"
	"strconv"
	"strings"

	"github.com/ironsheep/segexport/internal/imaging"
	"github.com/ironsheep/segexport/internal/mask"
)

// Columns is the fixed header of every exported table.
var Columns = []string{
	"image_filename",
	"task_id",
	"annotation_id",
	"region_id",
	"label",
	"shape_type",
	"bbox_x_px",
	"bbox_y_px",
	"x_length_px",
	"y_length_px",
	"area_px",
	"mean_gray",
	"mean_r",
	"mean_g",
	"mean_b",
	"polygon_points_px",
}

// Row is one exported region.
type Row struct {
	ImageFilename string `json:"image_filename"`
	TaskID        string `json:"task_id"`
	AnnotationID  string `json:"annotation_id"`
	RegionID      string `json:"region_id"`
	Label         string `json:"label"`
	Shape         Kind   `json:"shape_type"`

	mask.Geometry
	imaging.Intensities

	// PolygonPoints holds the pixel-space vertices for polygon regions.
	PolygonPoints [][2]float64 `json:"polygon_points_px,omitempty"`
}

// Record renders the row in Columns order. decimals < 0 keeps full float
// precision; otherwise floats are rounded to that many places.
func (r Row) Record(decimals int) []string {
	return []string{
		r.ImageFilename,
		r.TaskID,
		r.AnnotationID,
		r.RegionID,
		r.Label,
		string(r.Shape),
		strconv.Itoa(r.X),
		strconv.Itoa(r.Y),
		strconv.Itoa(r.Width),
		strconv.Itoa(r.Height),
		strconv.Itoa(r.Area),
		optionalFloat(r.Gray, decimals),
		optionalFloat(r.R, decimals),
		optionalFloat(r.G, decimals),
		optionalFloat(r.B, decimals),
		formatPoints(r.PolygonPoints, decimals),
	}
}

func pixelPoints(points []mask.Point) [][2]float64 {
	if len(points) == 0 {
		return nil
	}
	out := make([][2]float64, len(points))
	for i, p := range points {
		out[i] = [2]float64{p.X, p.Y}
	}
	return out
}

func optionalFloat(v *float64, decimals int) string {
	if v == nil {
		return ""
	}
	return FormatFloat(*v, decimals)
}

// formatPoints renders vertices as "[[x, y], [x, y]]". No vertices render as
// the empty string.
func formatPoints(points [][2]float64, decimals int) string {
	if len(points) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteByte('[')
	for i, p := range points {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteByte('[')
		b.WriteString(FormatFloat(p[0], decimals))
		b.WriteString(", ")
		b.WriteString(FormatFloat(p[1], decimals))
		b.WriteByte(']')
	}
	b.WriteByte(']')
	return b.String()
}

// FormatFloat writes f in shortest round-trip form. Integral values keep a
// trailing ".0", and exponents below -4 or from 16 up switch to scientific
// notation ("1e+16", "1.5e-05"). With decimals >= 0 the value is rounded to
// that many places first.
func FormatFloat(f float64, decimals int) string {
	switch {
	case math.IsNaN(f):
		return "nan"
	case math.IsInf(f, 1):
		return "inf"
	case math.IsInf(f, -1):
		return "-inf"
	}

	if decimals >= 0 {
		if rounded, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', decimals, 64), 64); err == nil {
			f = rounded
		}
	}
	if f == 0 {
		if math.Signbit(f) {
			return "-0.0"
		}
		return "0.0"
	}

	sci := strconv.FormatFloat(f, 'e', -1, 64)
	exp := 0
	if i := strings.IndexByte(sci, 'e'); i >= 0 {
		exp, _ = strconv.Atoi(sci[i+1:])
	}
	if exp < -4 || exp >= 16 {
		return sci
	}

	s := strconv.FormatFloat(f, 'f', -1, 64)
	if !strings.ContainsRune(s, '.') {
		s += ".0"
	}
	return s
}
