package imaging

import (
	"errors"
	"fmt"
	"image"

	"github.com/disintegration/imaging"

	"github.com/ironsheep/segexport/internal/mask"
)

// ErrDimensionMismatch is returned when a mask does not cover an image exactly.
var ErrDimensionMismatch = errors.New("mask and image dimensions differ")

// Intensities holds the mean pixel values over a masked region.
//
// A nil field means "no data": either the mask was empty, the image was not
// available, or (for R, G and B) the image has a single luminance channel.
// Values are on the 0-255 scale and are never rounded.
type Intensities struct {
	Gray *float64 `json:"mean_gray"`
	R    *float64 `json:"mean_r"`
	G    *float64 `json:"mean_g"`
	B    *float64 `json:"mean_b"`
}

// MeanIntensities averages pixel values over the foreground of a mask.
//
// Parameters:
//   - img: The source image. Its bounds need not start at the origin.
//   - m: A mask with exactly the image's width and height.
//
// Returns:
//   - Intensities: all fields nil when the mask has no foreground pixels.
//   - error: ErrDimensionMismatch (wrapped) when the sizes disagree.
//
// # Channel Handling
//
// Gray is always computed from the luminance-converted image (ITU-R BT.601
// weights: 0.299*R + 0.587*G + 0.114*B, rounded to 8 bits per pixel).
//
// Single-channel images (8-bit or 16-bit grayscale) report R, G and B as nil.
// Every other image is converted to non-premultiplied 8-bit RGB first and
// each channel is averaged independently. Alpha is ignored.
func MeanIntensities(img image.Image, m *mask.Mask) (Intensities, error) {
	bounds := img.Bounds()
	if bounds.Dx() != m.Width || bounds.Dy() != m.Height {
		return Intensities{}, fmt.Errorf("%w: image %dx%d, mask %dx%d",
			ErrDimensionMismatch, bounds.Dx(), bounds.Dy(), m.Width, m.Height)
	}

	area := m.Count()
	if area == 0 {
		return Intensities{}, nil
	}

	// Both conversions return NRGBA images anchored at the origin.
	gray := imaging.Grayscale(img)
	var graySum float64
	forEachMasked(m, gray, func(px []uint8) {
		graySum += float64(px[0])
	})

	result := Intensities{Gray: mean(graySum, area)}
	if IsSingleChannel(img) {
		return result, nil
	}

	rgb := imaging.Clone(img)
	var rSum, gSum, bSum float64
	forEachMasked(m, rgb, func(px []uint8) {
		rSum += float64(px[0])
		gSum += float64(px[1])
		bSum += float64(px[2])
	})

	result.R = mean(rSum, area)
	result.G = mean(gSum, area)
	result.B = mean(bSum, area)
	return result, nil
}

// forEachMasked calls fn with the 4-byte NRGBA slice of every masked pixel.
func forEachMasked(m *mask.Mask, img *image.NRGBA, fn func(px []uint8)) {
	for y := 0; y < m.Height; y++ {
		rowMask := m.Pix[y*m.Width : (y+1)*m.Width]
		rowPix := img.Pix[y*img.Stride:]
		for x, on := range rowMask {
			if on {
				fn(rowPix[x*4 : x*4+4])
			}
		}
	}
}

func mean(sum float64, n int) *float64 {
	v := sum / float64(n)
	return &v
}
