//go:build integration

package ocr

import (
	"context"
	"errors"
	"image"
	"image/color"
	"testing"

	"github.com/otiai10/gosseract/v2"
)

// These tests link libtesseract. Run with: go test -tags integration ./internal/infrastructure/ocr/

func TestSplitLanguages(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"chi_sim+eng", []string{"chi_sim", "eng"}},
		{"eng", []string{"eng"}},
		{" chi_sim + ", []string{"chi_sim"}},
		{"", []string{"eng"}},
	}
	for _, tt := range tests {
		got := splitLanguages(tt.in)
		if len(got) != len(tt.want) {
			t.Errorf("splitLanguages(%q) = %v, want %v", tt.in, got, tt.want)
			continue
		}
		for i := range got {
			if got[i] != tt.want[i] {
				t.Errorf("splitLanguages(%q)[%d] = %q, want %q", tt.in, i, got[i], tt.want[i])
			}
		}
	}
}

func TestEncodePNG_Empty(t *testing.T) {
	if _, err := encodePNG(image.NewGray(image.Rect(0, 0, 0, 0))); !errors.Is(err, ErrEncodeFailed) {
		t.Errorf("encodePNG(empty) error = %v, want ErrEncodeFailed", err)
	}
	if _, err := encodePNG(nil); !errors.Is(err, ErrEncodeFailed) {
		t.Errorf("encodePNG(nil) error = %v, want ErrEncodeFailed", err)
	}
}

func TestToBoxes(t *testing.T) {
	raw := []gosseract.BoundingBox{
		{Box: image.Rect(0, 0, 10, 10), Word: "确", Confidence: 91},
		{Box: image.Rect(10, 0, 20, 10), Word: " ", Confidence: 10},
		{Box: image.Rect(20, 0, 30, 10), Word: "定", Confidence: 88},
	}
	got := toBoxes(raw)
	if len(got) != 2 {
		t.Fatalf("len(toBoxes) = %d, want 2", len(got))
	}
	if got[1].Text != "定" || got[1].Rect != image.Rect(20, 0, 30, 10) {
		t.Errorf("toBoxes[1] = %+v, want 定 at (20,0)-(30,10)", got[1])
	}
}

func TestTesseract_ClosedAndCancelled(t *testing.T) {
	tess, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	img := image.NewGray(image.Rect(0, 0, 8, 8))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := tess.Recognize(ctx, img, "eng"); !errors.Is(err, context.Canceled) {
		t.Errorf("Recognize(cancelled) error = %v, want context.Canceled", err)
	}

	if err := tess.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := tess.Close(); err != nil {
		t.Errorf("second Close() error = %v, want nil", err)
	}
	if _, err := tess.Recognize(context.Background(), img, "eng"); !errors.Is(err, ErrClosed) {
		t.Errorf("Recognize after Close error = %v, want ErrClosed", err)
	}
}

func TestTesseract_BlankImage(t *testing.T) {
	tess, err := New()
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer tess.Close()

	img := image.NewGray(image.Rect(0, 0, 64, 32))
	for i := range img.Pix {
		img.Pix[i] = color.White.Y
	}
	text, err := tess.Recognize(context.Background(), img, "eng")
	if err != nil {
		t.Fatalf("Recognize() error = %v", err)
	}
	if text != "" {
		t.Logf("blank image recognised as %q", text)
	}
}
