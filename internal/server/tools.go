package server

// Tool represents an MCP tool definition
type Tool struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"inputSchema"`
}

// GetToolDefinitions returns all available tools
func GetToolDefinitions() []Tool {
	return []Tool{
		{
			Name:        "segmentation_export",
			Description: "Export brush and polygon regions of annotated tasks into a zip of per-image CSV tables with bounding box, area and mean intensity per region.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"tasks_path": map[string]interface{}{
						"type":        "string",
						"description": "Path to a JSON array or JSON lines file of tasks",
					},
					"output_dir": map[string]interface{}{
						"type":        "string",
						"description": "Directory for the archive. Defaults to the configured output directory",
					},
					"project_id": map[string]interface{}{
						"type":        "string",
						"description": "Project id used in the archive name. Defaults to the configured project",
					},
					"allow_remote_fetch": map[string]interface{}{
						"type":        "boolean",
						"description": "Download http(s) images to compute intensities. Defaults to the configured value",
					},
					"include_rows": map[string]interface{}{
						"type":        "boolean",
						"description": "Return every exported row in the response. Default false",
						"default":     false,
					},
				},
				"required": []string{"tasks_path"},
			},
		},
		{
			Name:        "region_stats",
			Description: "Compute geometry and mean intensities of a single region given as a brush run-length list or polygon points in percent.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"image": map[string]interface{}{
						"type":        "string",
						"description": "Image reference (path, file://, data: URI, upload:// or URL). Optional when width and height are given",
					},
					"width": map[string]interface{}{
						"type":        "integer",
						"description": "Original image width. Read from the image when omitted",
					},
					"height": map[string]interface{}{
						"type":        "integer",
						"description": "Original image height. Read from the image when omitted",
					},
					"rle": map[string]interface{}{
						"type":        "array",
						"items":       map[string]interface{}{"type": "integer"},
						"description": "Brush run lengths, background first",
					},
					"points": map[string]interface{}{
						"type": "array",
						"items": map[string]interface{}{
							"type":     "array",
							"items":    map[string]interface{}{"type": "number"},
							"minItems": 2,
							"maxItems": 2,
						},
						"description": "Polygon vertices as [x, y] percent of the image size",
					},
				},
			},
		},
		{
			Name:        "image_dimensions",
			Description: "Get the width and height of an image reference.",
			InputSchema: map[string]interface{}{
				"type": "object",
				"properties": map[string]interface{}{
					"path": map[string]interface{}{
						"type":        "string",
						"description": "Image reference (path, file://, data: URI, upload:// or URL)",
					},
				},
				"required": []string{"path"},
			},
		},
	}
}

// handleToolsList returns the list of available tools
func (s *Server) handleToolsList(req *MCPRequest) *MCPResponse {
	return &MCPResponse{
		JSONRPC: "2.0",
		ID:      req.ID,
		Result: map[string]interface{}{
			"tools": GetToolDefinitions(),
		},
	}
}
