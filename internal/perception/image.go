package perception

import (
	"image"
	"image/color"

	"github.com/nfnt/resize"
)

// Preprocess converts img to grayscale, optionally upscales it and
// binarises it: pixels brighter than threshold become white, the rest black.
//
// A scale <= 1 leaves the size unchanged.
func Preprocess(img image.Image, threshold int, scale float64) *image.Gray {
	if scale > 1 {
		b := img.Bounds()
		w := uint(float64(b.Dx()) * scale)
		h := uint(float64(b.Dy()) * scale)
		img = resize.Resize(w, h, img, resize.Bicubic)
	}
	return Binarize(img, threshold)
}

// Binarize thresholds img into a new black-and-white Gray image with origin (0,0).
func Binarize(img image.Image, threshold int) *image.Gray {
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			g := color.GrayModel.Convert(img.At(x, y)).(color.Gray)
			v := uint8(0)
			if int(g.Y) > threshold {
				v = 255
			}
			out.Pix[(y-b.Min.Y)*out.Stride+(x-b.Min.X)] = v
		}
	}
	return out
}
