package perception

import (
	"image"
	"image/color"
	"testing"
)

func grayImage(w, h int, fill func(x, y int) uint8) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetGray(x, y, color.Gray{Y: fill(x, y)})
		}
	}
	return img
}

func TestBinarize(t *testing.T) {
	img := grayImage(3, 1, func(x, _ int) uint8 { return []uint8{100, 120, 121}[x] })

	out := Binarize(img, 120)

	want := []uint8{0, 0, 255}
	for x, w := range want {
		if got := out.GrayAt(x, 0).Y; got != w {
			t.Errorf("pixel %d = %d, want %d", x, got, w)
		}
	}
}

func TestBinarize_OffsetOrigin(t *testing.T) {
	src := grayImage(10, 10, func(x, y int) uint8 {
		if x >= 5 {
			return 255
		}
		return 0
	})
	sub := src.SubImage(image.Rect(4, 2, 8, 6))

	out := Binarize(sub, 128)

	if out.Bounds() != image.Rect(0, 0, 4, 4) {
		t.Fatalf("Bounds() = %v, want (0,0)-(4,4)", out.Bounds())
	}
	if out.GrayAt(0, 0).Y != 0 || out.GrayAt(1, 0).Y != 255 {
		t.Errorf("edge pixels = %d,%d, want 0,255", out.GrayAt(0, 0).Y, out.GrayAt(1, 0).Y)
	}
}

func TestPreprocess_Scale(t *testing.T) {
	img := grayImage(10, 4, func(int, int) uint8 { return 200 })

	tests := []struct {
		scale float64
		want  image.Rectangle
	}{
		{0, image.Rect(0, 0, 10, 4)},
		{1, image.Rect(0, 0, 10, 4)},
		{2, image.Rect(0, 0, 20, 8)},
	}
	for _, tt := range tests {
		out := Preprocess(img, 120, tt.scale)
		if out.Bounds() != tt.want {
			t.Errorf("scale %v: Bounds() = %v, want %v", tt.scale, out.Bounds(), tt.want)
		}
		if out.GrayAt(1, 1).Y != 255 {
			t.Errorf("scale %v: bright pixel binarised to %d", tt.scale, out.GrayAt(1, 1).Y)
		}
	}
}
