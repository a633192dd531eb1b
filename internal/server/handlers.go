package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"os"

	"go.uber.org/multierr"

	"github.com/ironsheep/segexport/internal/export"
	"github.com/ironsheep/segexport/internal/imaging"
	"github.com/ironsheep/segexport/internal/mask"
	"github.com/ironsheep/segexport/internal/report"
	"github.com/ironsheep/segexport/internal/task"
)

// ToolCallParams represents the parameters for a tools/call MCP request.
type ToolCallParams struct {
	// Name is the tool to invoke (e.g., "segmentation_export").
	Name string `json:"name"`

	// Arguments contains the tool-specific parameters as JSON.
	Arguments json.RawMessage `json:"arguments"`
}

// handleToolsCall processes a tools/call request and executes the specified tool.
//
// The response wraps the tool result in MCP's content format:
//
//	{
//	  "content": [{"type": "text", "text": "<JSON result>"}]
//	}
//
// Tool execution errors return a JSON-RPC error response with code -32000.
func (s *Server) handleToolsCall(ctx context.Context, req *MCPRequest) *MCPResponse {
	var params ToolCallParams
	if err := json.Unmarshal(req.Params, &params); err != nil {
		return s.errorResponse(req.ID, -32602, "Invalid params", err.Error())
	}

	result, err := s.executeTool(ctx, params.Name, params.Arguments)
	if err != nil {
		return s.errorResponse(req.ID, -32000, "Tool execution failed", err.Error())
	}

	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"content": []map[string]interface{}{
				{
					"type": "text",
					"text": mustMarshalJSON(result),
				},
			},
		},
	}
}

// executeTool dispatches tool execution to the appropriate handler function.
func (s *Server) executeTool(ctx context.Context, name string, args json.RawMessage) (interface{}, error) {
	switch name {
	case "segmentation_export":
		return s.handleSegmentationExport(ctx, args)
	case "region_stats":
		return s.handleRegionStats(ctx, args)
	case "image_dimensions":
		return s.handleImageDimensions(ctx, args)
	default:
		return nil, fmt.Errorf("unknown tool: %s", name)
	}
}

// errorResponse creates a JSON-RPC error response with the given details.
func (s *Server) errorResponse(id interface{}, code int, message, data string) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      id,
		Error: &MCPError{
			Code:    code,
			Message: message,
			Data:    data,
		},
	}
}

// mustMarshalJSON converts a value to pretty-printed JSON string.
// On marshal failure, returns an empty string.
func mustMarshalJSON(v interface{}) string {
	b, _ := json.MarshalIndent(v, "", "  ")
	return string(b)
}

func decodeArgs(args json.RawMessage, v interface{}) error {
	if len(args) == 0 {
		return errors.New("missing arguments")
	}
	return json.Unmarshal(args, v)
}

// loadImage opens an image reference through the resolver, caching by
// resolved URL. Failures are not kept so a file can appear between calls, and
// the cache holds at most imageCacheEntries images.
func (s *Server) loadImage(ctx context.Context, ref string, allowRemote bool) (image.Image, error) {
	src := s.resolver.Resolve(ctx, ref)
	img, err := s.cache.Load(src.URL, func() (image.Image, error) {
		return s.resolver.Open(ctx, src, allowRemote)
	})
	if err != nil {
		s.cache.Evict(src.URL)
	}
	return img, err
}

// === Export Handlers ===

type segmentationExportArgs struct {
	TasksPath        string `json:"tasks_path"`
	OutputDir        string `json:"output_dir"`
	ProjectID        string `json:"project_id"`
	AllowRemoteFetch *bool  `json:"allow_remote_fetch"`
	IncludeRows      bool   `json:"include_rows"`
}

type exportTableInfo struct {
	Name string `json:"name"`
	Rows int    `json:"rows"`
}

type segmentationExportResult struct {
	RunID       string                `json:"run_id"`
	Archive     string                `json:"archive"`
	Filename    string                `json:"filename"`
	ContentType string                `json:"content_type"`
	Stats       export.Stats          `json:"stats"`
	Tables      []exportTableInfo     `json:"tables"`
	Labels      []report.LabelSummary `json:"labels"`
	Warnings    []string              `json:"warnings,omitempty"`
	Rows        []export.Row          `json:"rows,omitempty"`
}

func (s *Server) handleSegmentationExport(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a segmentationExportArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.TasksPath == "" {
		return nil, errors.New("tasks_path is required")
	}

	opts := s.cfg.ExportOptions()
	if a.ProjectID != "" {
		opts.ProjectID = a.ProjectID
	}
	if a.AllowRemoteFetch != nil {
		opts.AllowRemoteFetch = *a.AllowRemoteFetch
	}
	outputDir := s.cfg.Export.OutputDir
	if a.OutputDir != "" {
		outputDir = a.OutputDir
	}

	f, err := os.Open(a.TasksPath)
	if err != nil {
		return nil, fmt.Errorf("open tasks: %w", err)
	}
	defer f.Close()

	res, err := export.New(opts, s.resolver, s.logger.Named("export")).Run(ctx, task.NewReader(f))
	if err != nil {
		return nil, err
	}

	path, err := export.WriteArchiveFile(outputDir, opts.ProjectID, res.Tables, s.cfg.Export.FloatDecimals)
	if err != nil {
		return nil, err
	}

	out := segmentationExportResult{
		RunID:       res.RunID,
		Archive:     path,
		Filename:    export.ArchiveName(opts.ProjectID),
		ContentType: export.ContentType,
		Stats:       res.Stats,
		Tables:      make([]exportTableInfo, 0, len(res.Tables)),
		Labels:      report.Summarize(res.Rows()),
	}
	for _, t := range res.Tables {
		out.Tables = append(out.Tables, exportTableInfo{Name: t.Name(), Rows: len(t.Rows)})
	}
	for _, w := range multierr.Errors(res.Warnings) {
		out.Warnings = append(out.Warnings, w.Error())
	}
	if a.IncludeRows {
		out.Rows = res.Rows()
	}
	return out, nil
}

// === Region Handlers ===

type regionStatsArgs struct {
	Image       string       `json:"image"`
	Width       int          `json:"width"`
	Height      int          `json:"height"`
	RLE         []int        `json:"rle"`
	Points      [][2]float64 `json:"points"`
	AllowRemote *bool        `json:"allow_remote_fetch"`
}

type regionStatsResult struct {
	Shape       export.Kind `json:"shape_type"`
	ImageWidth  int         `json:"image_width"`
	ImageHeight int         `json:"image_height"`
	mask.Geometry
	imaging.Intensities
	PolygonPoints [][2]float64 `json:"polygon_points_px,omitempty"`

	// RLE is the run-length encoding of the rasterized region.
	RLE []int `json:"rle"`

	// ImageError explains why intensities are absent when an image was given.
	ImageError string `json:"image_error,omitempty"`
}

func (s *Server) handleRegionStats(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a regionStatsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if len(a.RLE) == 0 && len(a.Points) == 0 {
		return nil, errors.New("either rle or points is required")
	}
	allowRemote := s.cfg.Export.AllowRemoteFetch
	if a.AllowRemote != nil {
		allowRemote = *a.AllowRemote
	}

	out := regionStatsResult{ImageWidth: a.Width, ImageHeight: a.Height}

	var img image.Image
	if a.Image != "" {
		var err error
		img, err = s.loadImage(ctx, a.Image, allowRemote)
		if err != nil {
			out.ImageError = err.Error()
		} else if out.ImageWidth <= 0 || out.ImageHeight <= 0 {
			d := imaging.Dimensions(img)
			out.ImageWidth, out.ImageHeight = d.Width, d.Height
		}
	}
	if out.ImageWidth <= 0 || out.ImageHeight <= 0 {
		return nil, fmt.Errorf("%w: pass width and height or a readable image", export.ErrSizeUnavailable)
	}

	var m *mask.Mask
	if len(a.RLE) > 0 {
		var err error
		if m, err = mask.DecodeRLE(a.RLE, out.ImageWidth, out.ImageHeight); err != nil {
			return nil, err
		}
		out.Shape = export.KindMask
	} else {
		pts := make([]mask.Point, len(a.Points))
		for i, p := range a.Points {
			pts[i] = mask.Point{X: p[0], Y: p[1]}
		}
		if err := mask.CheckPercent(pts); err != nil {
			return nil, err
		}
		px := mask.PercentToPixels(pts, out.ImageWidth, out.ImageHeight)
		m = mask.RasterizePolygon(px, out.ImageWidth, out.ImageHeight)
		out.Shape = export.KindPolygon
		for _, p := range px {
			out.PolygonPoints = append(out.PolygonPoints, [2]float64{p.X, p.Y})
		}
	}

	out.Geometry = mask.Analyze(m)
	out.RLE = mask.EncodeRLE(m)

	if img != nil {
		in, err := imaging.MeanIntensities(img, m)
		if err != nil {
			out.ImageError = err.Error()
		} else {
			out.Intensities = in
		}
	}
	return out, nil
}

// === Basic Image Information Handlers ===

type imageDimensionsArgs struct {
	Path        string `json:"path"`
	AllowRemote *bool  `json:"allow_remote_fetch"`
}

func (s *Server) handleImageDimensions(ctx context.Context, args json.RawMessage) (interface{}, error) {
	var a imageDimensionsArgs
	if err := decodeArgs(args, &a); err != nil {
		return nil, err
	}
	if a.Path == "" {
		return nil, errors.New("path is required")
	}
	allowRemote := s.cfg.Export.AllowRemoteFetch
	if a.AllowRemote != nil {
		allowRemote = *a.AllowRemote
	}
	img, err := s.loadImage(ctx, a.Path, allowRemote)
	if err != nil {
		return nil, err
	}
	return imaging.Dimensions(img), nil
}
