package imaging

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/ironsheep/segexport/internal/mask"
)

func assertMean(t *testing.T, name string, got *float64, want float64) {
	t.Helper()
	if got == nil {
		t.Errorf("%s: got nil, want %v", name, want)
		return
	}
	if *got != want {
		t.Errorf("%s: got %v, want %v", name, *got, want)
	}
}

func assertAbsent(t *testing.T, name string, got *float64) {
	t.Helper()
	if got != nil {
		t.Errorf("%s: got %v, want absent", name, *got)
	}
}

func TestMeanIntensities_EmptyMask(t *testing.T) {
	img := createInMemoryImage(4, 4, color.RGBA{10, 20, 30, 255})

	got, err := MeanIntensities(img, mask.New(4, 4))
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertAbsent(t, "gray", got.Gray)
	assertAbsent(t, "r", got.R)
	assertAbsent(t, "g", got.G)
	assertAbsent(t, "b", got.B)
}

func TestMeanIntensities_SinglePixel(t *testing.T) {
	img := createInMemoryImage(4, 3, color.RGBA{255, 255, 255, 255})
	img.Set(2, 1, color.RGBA{200, 100, 50, 255})

	m := mask.New(4, 3)
	m.Set(2, 1)

	got, err := MeanIntensities(img, m)
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertMean(t, "r", got.R, 200)
	assertMean(t, "g", got.G, 100)
	assertMean(t, "b", got.B, 50)
	// 0.299*200 + 0.587*100 + 0.114*50 = 124.2, rounded per pixel.
	assertMean(t, "gray", got.Gray, 124)
}

func TestMeanIntensities_Grayscale(t *testing.T) {
	t.Run("8-bit", func(t *testing.T) {
		img := image.NewGray(image.Rect(0, 0, 3, 3))
		img.SetGray(1, 1, color.Gray{Y: 77})
		m := mask.New(3, 3)
		m.Set(1, 1)

		got, err := MeanIntensities(img, m)
		if err != nil {
			t.Fatalf("MeanIntensities failed: %v", err)
		}
		assertMean(t, "gray", got.Gray, 77)
		assertAbsent(t, "r", got.R)
		assertAbsent(t, "g", got.G)
		assertAbsent(t, "b", got.B)
	})

	t.Run("16-bit", func(t *testing.T) {
		img := image.NewGray16(image.Rect(0, 0, 2, 1))
		img.SetGray16(0, 0, color.Gray16{Y: 0x8080})
		m := mask.New(2, 1)
		m.Set(0, 0)

		got, err := MeanIntensities(img, m)
		if err != nil {
			t.Fatalf("MeanIntensities failed: %v", err)
		}
		assertMean(t, "gray", got.Gray, 128)
		assertAbsent(t, "r", got.R)
	})
}

func TestMeanIntensities_Average(t *testing.T) {
	img := createInMemoryImage(2, 1, color.RGBA{0, 0, 0, 255})
	img.Set(1, 0, color.RGBA{255, 255, 255, 255})

	m := mask.New(2, 1)
	m.Set(0, 0)
	m.Set(1, 0)

	got, err := MeanIntensities(img, m)
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertMean(t, "gray", got.Gray, 127.5)
	assertMean(t, "r", got.R, 127.5)
	assertMean(t, "g", got.G, 127.5)
	assertMean(t, "b", got.B, 127.5)
}

func TestMeanIntensities_IgnoresUnmaskedPixels(t *testing.T) {
	img := createInMemoryImage(3, 1, color.RGBA{0, 0, 255, 255})
	img.Set(0, 0, color.RGBA{255, 0, 0, 255})

	m := mask.New(3, 1)
	m.Set(1, 0)
	m.Set(2, 0)

	got, err := MeanIntensities(img, m)
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertMean(t, "r", got.R, 0)
	assertMean(t, "b", got.B, 255)
}

func TestMeanIntensities_NonZeroOrigin(t *testing.T) {
	img := image.NewRGBA(image.Rect(5, 5, 7, 7))
	img.Set(6, 5, color.RGBA{255, 0, 0, 255})

	m := mask.New(2, 2)
	m.Set(1, 0)

	got, err := MeanIntensities(img, m)
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertMean(t, "r", got.R, 255)
	assertMean(t, "g", got.G, 0)
}

func TestMeanIntensities_IgnoresAlpha(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 1, 1))
	img.SetNRGBA(0, 0, color.NRGBA{200, 100, 50, 128})

	m := mask.New(1, 1)
	m.Set(0, 0)

	got, err := MeanIntensities(img, m)
	if err != nil {
		t.Fatalf("MeanIntensities failed: %v", err)
	}
	assertMean(t, "r", got.R, 200)
	assertMean(t, "g", got.G, 100)
	assertMean(t, "b", got.B, 50)
	assertMean(t, "gray", got.Gray, 124)
}

func TestMeanIntensities_DimensionMismatch(t *testing.T) {
	img := createInMemoryImage(4, 4, color.White)
	m := mask.New(4, 5)
	m.Set(0, 0)

	_, err := MeanIntensities(img, m)
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}
