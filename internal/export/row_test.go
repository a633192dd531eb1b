package export

import (
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/ironsheep/segexport/internal/imaging"
	"github.com/ironsheep/segexport/internal/mask"
)

func TestFormatFloat(t *testing.T) {
	tests := []struct {
		in       float64
		decimals int
		want     string
	}{
		{124, -1, "124.0"},
		{0, -1, "0.0"},
		{127.5, -1, "127.5"},
		{1.0 / 3.0, -1, "0.3333333333333333"},
		{0.1 + 0.2, -1, "0.30000000000000004"},
		{0.0001, -1, "0.0001"},
		{0.00001, -1, "1e-05"},
		{0.000015, -1, "1.5e-05"},
		{1e15, -1, "1000000000000000.0"},
		{1e16, -1, "1e+16"},
		{-2.5, -1, "-2.5"},
		{math.Inf(1), -1, "inf"},
		{math.Inf(-1), -1, "-inf"},
		{math.NaN(), -1, "nan"},
		{1.0 / 3.0, 2, "0.33"},
		{2.0, 3, "2.0"},
		{127.456, 0, "127.0"},
	}
	for _, tt := range tests {
		if got := FormatFloat(tt.in, tt.decimals); got != tt.want {
			t.Errorf("FormatFloat(%v, %d) = %q, want %q", tt.in, tt.decimals, got, tt.want)
		}
	}
}

func TestRow_Record(t *testing.T) {
	gray := 87.25
	row := Row{
		ImageFilename: "a.png",
		TaskID:        "7",
		AnnotationID:  "3",
		RegionID:      "r1",
		Label:         "Cell;Nucleus",
		Shape:         KindPolygon,
		Geometry:      mask.Geometry{X: 1, Y: 2, Width: 3, Height: 4, Area: 5},
		Intensities:   imaging.Intensities{Gray: &gray},
		PolygonPoints: [][2]float64{{1, 2}, {3.5, 4}},
	}

	want := []string{
		"a.png", "7", "3", "r1", "Cell;Nucleus", "polygon",
		"1", "2", "3", "4", "5",
		"87.25", "", "", "",
		"[[1.0, 2.0], [3.5, 4.0]]",
	}
	if diff := cmp.Diff(want, row.Record(-1)); diff != "" {
		t.Errorf("record mismatch (-want +got):\n%s", diff)
	}
	if len(want) != len(Columns) {
		t.Fatalf("record has %d fields, header has %d", len(want), len(Columns))
	}

	row.PolygonPoints = nil
	if got := row.Record(1)[15]; got != "" {
		t.Errorf("points without vertices: got %q, want empty", got)
	}
	if got := row.Record(1)[11]; got != "87.2" && got != "87.3" {
		t.Errorf("rounded gray: got %q", got)
	}
}
