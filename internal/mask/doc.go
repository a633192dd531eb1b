// Package mask turns annotation region payloads into boolean pixel masks and
// measures them.
//
// Two producers exist:
//   - DecodeRLE expands a brush run-length list (background first) into a mask.
//   - RasterizePolygon scan-fills a closed polygon given in pixel coordinates.
//
// Analyze consumes either kind of mask and reports the bounding box and area.
//
// # Coordinate System
//
// Masks are row-major with (0,0) at the top-left corner. X grows rightward
// (columns) and Y grows downward (rows). Polygon vertices arrive as percent of
// the image dimensions (0-100) and are converted with PercentToPixels before
// rasterization.
//
// # Bounding Box Convention
//
// The extent reported by Analyze is the span between the extreme foreground
// pixels (max - min), not the pixel count (max - min + 1). A single foreground
// pixel therefore has a zero width and height but an area of one. Existing
// consumers of the exported tables depend on this convention.
//
// # Error Handling
//
// Malformed payloads are reported as *DecodeError. Callers are expected to skip
// the region and continue with the rest of the batch.
package mask
