package mask

import (
	"image"
	"math"
	"sort"
)

// Point is a polygon vertex. Depending on context the coordinates are either
// percent of the image dimensions (0-100) or absolute pixels.
type Point struct {
	X float64
	Y float64
}

// MaxPercent bounds the magnitude of a percent coordinate. Vertices far
// outside the image are accepted up to this limit; anything beyond it is a
// malformed payload.
const MaxPercent = 1e6

// maxCoord bounds rounded pixel coordinates so that the integer arithmetic
// of the rasterizer cannot overflow.
const maxCoord = 1 << 29

// PercentPoints converts a loosely typed polygon payload into vertices.
//
// The payload must be a list of [x, y] pairs with numeric members. A nil or
// empty payload yields no vertices.
func PercentPoints(v interface{}) ([]Point, error) {
	if v == nil {
		return nil, nil
	}
	list, ok := v.([]interface{})
	if !ok {
		return nil, decodeErrorf("polygon", "expected a list of points, got %T", v)
	}

	points := make([]Point, 0, len(list))
	for i, item := range list {
		pair, ok := item.([]interface{})
		if !ok || len(pair) != 2 {
			return nil, decodeErrorf("polygon", "point %d is not an [x, y] pair", i)
		}
		x, err := number(pair[0])
		if err != nil {
			return nil, decodeErrorf("polygon", "point %d x: %v", i, err)
		}
		y, err := number(pair[1])
		if err != nil {
			return nil, decodeErrorf("polygon", "point %d y: %v", i, err)
		}
		points = append(points, Point{X: x, Y: y})
	}
	if err := CheckPercent(points); err != nil {
		return nil, err
	}
	return points, nil
}

// CheckPercent returns a *DecodeError if any coordinate is not finite or
// exceeds MaxPercent in magnitude.
func CheckPercent(points []Point) error {
	for i, p := range points {
		for _, v := range [2]float64{p.X, p.Y} {
			if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) > MaxPercent {
				return decodeErrorf("polygon", "point %d: coordinate %v out of range", i, v)
			}
		}
	}
	return nil
}

// PercentToPixels scales percent coordinates to absolute pixel coordinates.
// No rounding is applied.
func PercentToPixels(points []Point, width, height int) []Point {
	px := make([]Point, len(points))
	for i, p := range points {
		px[i] = Point{
			X: p.X / 100.0 * float64(width),
			Y: p.Y / 100.0 * float64(height),
		}
	}
	return px
}

// RasterizePolygon fills a closed polygon into a mask of the given size.
//
// Parameters:
//   - points: vertices in pixel coordinates. The polygon is closed implicitly
//     by an edge from the last vertex back to the first.
//   - width, height: mask dimensions in pixels.
//
// # Fill Rule
//
// Vertices are rounded to the nearest integer pixel, then:
//
//  1. Each row y between the lowest and highest vertex is intersected with
//     every non-horizontal edge. Edges are half-open in y so a vertex shared
//     by two edges is counted once.
//  2. Intersections are sorted and filled pairwise (even-odd), from the
//     ceiling of the left crossing to the floor of the right crossing.
//  3. The outline is drawn on top with integer line segments, so boundary
//     pixels are always included.
//
// Anything outside the mask is clipped, and only the visible part of each
// edge is walked. Coordinates are clamped to ±2^29 pixels. An empty vertex
// list yields an empty mask. Degenerate polygons (fewer than three vertices, self-intersections)
// go through the same steps without special handling.
func RasterizePolygon(points []Point, width, height int) *Mask {
	m := New(width, height)
	if len(points) == 0 || m.Width == 0 || m.Height == 0 {
		return m
	}

	verts := make([]image.Point, len(points))
	for i, p := range points {
		verts[i] = image.Pt(roundCoord(p.X), roundCoord(p.Y))
	}

	fillEvenOdd(m, verts)
	for i := range verts {
		drawLine(m, verts[i], verts[(i+1)%len(verts)])
	}
	return m
}

func fillEvenOdd(m *Mask, verts []image.Point) {
	minY, maxY := verts[0].Y, verts[0].Y
	for _, v := range verts[1:] {
		if v.Y < minY {
			minY = v.Y
		}
		if v.Y > maxY {
			maxY = v.Y
		}
	}
	if minY < 0 {
		minY = 0
	}
	if maxY > m.Height-1 {
		maxY = m.Height - 1
	}

	crossings := make([]float64, 0, len(verts))
	for y := minY; y <= maxY; y++ {
		crossings = crossings[:0]
		for i := range verts {
			a, b := verts[i], verts[(i+1)%len(verts)]
			if a.Y == b.Y {
				continue
			}
			if a.Y > b.Y {
				a, b = b, a
			}
			if y < a.Y || y >= b.Y {
				continue
			}
			t := float64(y-a.Y) / float64(b.Y-a.Y)
			crossings = append(crossings, float64(a.X)+t*float64(b.X-a.X))
		}
		sort.Float64s(crossings)

		for i := 0; i+1 < len(crossings); i += 2 {
			x0 := int(math.Ceil(crossings[i]))
			x1 := int(math.Floor(crossings[i+1]))
			if x0 < 0 {
				x0 = 0
			}
			if x1 > m.Width-1 {
				x1 = m.Width - 1
			}
			row := m.Pix[y*m.Width : (y+1)*m.Width]
			for x := x0; x <= x1; x++ {
				row[x] = true
			}
		}
	}
}

func roundCoord(v float64) int {
	switch {
	case math.IsNaN(v):
		return 0
	case v > maxCoord:
		return maxCoord
	case v < -maxCoord:
		return -maxCoord
	}
	return int(math.Round(v))
}

// drawLine marks every pixel on the segment from a to b, inclusive of both
// endpoints. The segment is stepped along its major axis, and only the
// steps that fall inside the mask are visited. Each minor coordinate is the
// exact line position rounded half away from zero.
func drawLine(m *Mask, a, b image.Point) {
	dx, dy := b.X-a.X, b.Y-a.Y
	if abs(dx) >= abs(dy) {
		if dx < 0 {
			a, dx, dy = b, -dx, -dy
		}
		x0, x1 := max(a.X, 0), min(a.X+dx, m.Width-1)
		for x := x0; x <= x1; x++ {
			y := a.Y
			if dx != 0 {
				y += divRound((x-a.X)*dy, dx)
			}
			m.Set(x, y)
		}
		return
	}

	if dy < 0 {
		a, dx, dy = b, -dx, -dy
	}
	y0, y1 := max(a.Y, 0), min(a.Y+dy, m.Height-1)
	for y := y0; y <= y1; y++ {
		m.Set(a.X+divRound((y-a.Y)*dx, dy), y)
	}
}

// divRound divides n by a positive d, rounding half away from zero.
func divRound(n, d int) int {
	if n < 0 {
		return -((-n*2 + d) / (2 * d))
	}
	return (n*2 + d) / (2 * d)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
