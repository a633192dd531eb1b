// Package report summarizes export results for terminal output.
package report

import (
	"fmt"
	"sort"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/montanaflynn/stats"

	"github.com/ironsheep/segexport/internal/export"
)

// NoLabel is shown for regions without a label.
const NoLabel = "(none)"

// LabelSummary aggregates the regions that share a label.
type LabelSummary struct {
	Label    string `json:"label"`
	Regions  int    `json:"regions"`
	Masks    int    `json:"masks"`
	Polygons int    `json:"polygons"`

	MeanArea   float64 `json:"mean_area_px"`
	MedianArea float64 `json:"median_area_px"`

	// MeanGray averages the gray means of regions that have one.
	MeanGray *float64 `json:"mean_gray,omitempty"`

	// MeanColor is the "#rrggbb" average of regions with color channels, or
	// empty when none have them.
	MeanColor string `json:"mean_color,omitempty"`
}

type accumulator struct {
	summary LabelSummary
	areas   stats.Float64Data
	grays   stats.Float64Data
	r, g, b stats.Float64Data
}

// Summarize groups rows by label, sorted by descending region count and then
// by label.
func Summarize(rows []export.Row) []LabelSummary {
	byLabel := make(map[string]*accumulator)
	for _, row := range rows {
		label := row.Label
		if label == "" {
			label = NoLabel
		}
		acc, ok := byLabel[label]
		if !ok {
			acc = &accumulator{summary: LabelSummary{Label: label}}
			byLabel[label] = acc
		}

		acc.summary.Regions++
		switch row.Shape {
		case export.KindMask:
			acc.summary.Masks++
		case export.KindPolygon:
			acc.summary.Polygons++
		}
		acc.areas = append(acc.areas, float64(row.Area))
		if row.Gray != nil {
			acc.grays = append(acc.grays, *row.Gray)
		}
		if row.R != nil && row.G != nil && row.B != nil {
			acc.r = append(acc.r, *row.R)
			acc.g = append(acc.g, *row.G)
			acc.b = append(acc.b, *row.B)
		}
	}

	out := make([]LabelSummary, 0, len(byLabel))
	for _, acc := range byLabel {
		out = append(out, acc.finish())
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Regions != out[j].Regions {
			return out[i].Regions > out[j].Regions
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func (a *accumulator) finish() LabelSummary {
	s := a.summary
	s.MeanArea, _ = stats.Mean(a.areas)
	s.MedianArea, _ = stats.Median(a.areas)
	if len(a.grays) > 0 {
		gray, _ := stats.Mean(a.grays)
		s.MeanGray = &gray
	}
	if len(a.r) > 0 {
		r, _ := stats.Mean(a.r)
		g, _ := stats.Mean(a.g)
		b, _ := stats.Mean(a.b)
		s.MeanColor = colorful.Color{R: r / 255, G: g / 255, B: b / 255}.Clamped().Hex()
	}
	return s
}

// LabelTable renders label summaries as a table.
func LabelTable(summaries []LabelSummary) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Label", "Regions", "Masks", "Polygons", "Mean area", "Median area", "Mean gray", "Mean color"})
	for _, s := range summaries {
		gray := ""
		if s.MeanGray != nil {
			gray = strconv.FormatFloat(*s.MeanGray, 'f', 1, 64)
		}
		tw.AppendRow(table.Row{
			s.Label,
			s.Regions,
			s.Masks,
			s.Polygons,
			strconv.FormatFloat(s.MeanArea, 'f', 1, 64),
			strconv.FormatFloat(s.MedianArea, 'f', 1, 64),
			gray,
			s.MeanColor,
		})
	}

	configs := []table.ColumnConfig{{Number: 1, Align: text.AlignLeft}}
	for i := 2; i <= 7; i++ {
		configs = append(configs, table.ColumnConfig{Number: i, Align: text.AlignRight, AlignHeader: text.AlignLeft})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

// StatsTable renders the per-reason counters of a run.
func StatsTable(s export.Stats) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Outcome", "Count"})
	for _, line := range []struct {
		name  string
		count int
	}{
		{"tasks", s.Tasks},
		{"annotations", s.Annotations},
		{"results", s.Results},
		{"rows", s.Rows},
		{"skipped: no image reference", s.NoImage},
		{"skipped: unrecognized shape", s.Unrecognized},
		{"skipped: duplicate region", s.Duplicates},
		{"skipped: size unavailable", s.SizeUnavailable},
		{"skipped: decode failed", s.DecodeFailed},
		{"images unavailable", s.ImagesUnavailable},
		{"textual overrides", s.OverridesUsed},
	} {
		tw.AppendRow(table.Row{line.name, line.count})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})
	return tw.Render()
}

// Render returns the full summary of a run: counters, then labels.
func Render(res *export.Result) string {
	out := fmt.Sprintf("Export %s\n%s\n", res.RunID, StatsTable(res.Stats))
	if summaries := Summarize(res.Rows()); len(summaries) > 0 {
		out += LabelTable(summaries) + "\n"
	}
	return out
}
