// Package server implements the MCP (Model Context Protocol) server for
// segmentation exports.
//
// This package provides a JSON-RPC 2.0 server that exposes the export pipeline
// and single-region measurements through the MCP protocol, so MCP-compatible
// clients can export annotated datasets or check a region without the CLI.
//
// # Protocol
//
// The server communicates over stdio using JSON-RPC 2.0:
//   - Input: JSON-RPC requests on stdin (one per line)
//   - Output: JSON-RPC responses on stdout
//
// Logs go to stderr and never interleave with responses.
//
// Supported MCP methods:
//   - initialize: Protocol handshake
//   - tools/list: Enumerate available tools
//   - tools/call: Execute a tool with arguments
//   - ping: Health check
//
// # Available Tools
//
//   - segmentation_export: Run the export over a tasks file and write the
//     project archive. Returns the archive path, counters, per-table row
//     counts and a per-label summary.
//   - region_stats: Measure one brush or polygon region, optionally against an
//     image for mean intensities.
//   - image_dimensions: Get width and height of an image reference.
//
// Image references accept everything the export resolves: local paths,
// file:// and data: URIs, upload:// references and, when remote fetching is
// enabled, http(s) URLs.
//
// # Image Caching
//
// Decoded images used by region_stats and image_dimensions are cached by
// resolved URL. The cache keeps the 16 most recently added images and drops
// the oldest beyond that. Failed loads are not cached. Exports use their own per-task cache.
//
// # Error Handling
//
// Tool execution errors are returned as JSON-RPC error responses with:
//   - code: -32000 (tool execution failure) or standard JSON-RPC codes
//   - message: Human-readable error description
//   - data: Additional error details (typically the Go error string)
//
// Unparseable request lines get a -32700 parse error with a null id.
//
// # Usage
//
//	srv := server.New(cfg, logger)
//	if err := srv.Run(ctx); err != nil {
//	    logger.Fatal("server stopped", zap.Error(err))
//	}
package server
