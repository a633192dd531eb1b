package mask

import "fmt"

// Mask is a boolean pixel grid stored row-major.
//
// Pix holds Width*Height values; the pixel at column x and row y lives at
// Pix[y*Width+x]. A true value marks a foreground pixel.
type Mask struct {
	Width  int
	Height int
	Pix    []bool
}

// New returns an all-background mask of the given size.
// Negative dimensions are treated as zero.
func New(width, height int) *Mask {
	if width < 0 {
		width = 0
	}
	if height < 0 {
		height = 0
	}
	return &Mask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether (x, y) is a foreground pixel. Coordinates outside the
// mask are background.
func (m *Mask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as foreground. Coordinates outside the mask are ignored.
func (m *Mask) Set(x, y int) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = true
}

// Count returns the number of foreground pixels.
func (m *Mask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Empty reports whether the mask has no foreground pixels.
func (m *Mask) Empty() bool {
	for _, v := range m.Pix {
		if v {
			return false
		}
	}
	return true
}

// DecodeError reports a region payload that cannot be turned into a mask.
type DecodeError struct {
	// Kind names the payload being decoded ("rle" or "polygon").
	Kind string

	// Reason describes what was wrong with the payload.
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Kind, e.Reason)
}

func decodeErrorf(kind, format string, args ...interface{}) *DecodeError {
	return &DecodeError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}
