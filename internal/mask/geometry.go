package mask

// Geometry is the bounding box and area of a mask, in pixels.
type Geometry struct {
	X      int `json:"bbox_x_px"`
	Y      int `json:"bbox_y_px"`
	Width  int `json:"x_length_px"`
	Height int `json:"y_length_px"`
	Area   int `json:"area_px"`
}

// Analyze measures the foreground of a mask.
//
// X and Y are the minimum column and row of any foreground pixel. Width and
// Height are maxCol-minCol and maxRow-minRow (see the package documentation
// for why this is not max-min+1). Area counts foreground pixels exactly.
// An empty mask returns the zero Geometry.
func Analyze(m *Mask) Geometry {
	if m == nil {
		return Geometry{}
	}

	minX, minY := m.Width, m.Height
	maxX, maxY := -1, -1
	area := 0

	for y := 0; y < m.Height; y++ {
		row := m.Pix[y*m.Width : (y+1)*m.Width]
		for x, v := range row {
			if !v {
				continue
			}
			area++
			if x < minX {
				minX = x
			}
			if x > maxX {
				maxX = x
			}
			if y < minY {
				minY = y
			}
			if y > maxY {
				maxY = y
			}
		}
	}

	if area == 0 {
		return Geometry{}
	}
	return Geometry{
		X:      minX,
		Y:      minY,
		Width:  maxX - minX,
		Height: maxY - minY,
		Area:   area,
	}
}
