package ocr

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"
	"sync"

	"github.com/otiai10/gosseract/v2"

	"github.com/nerrad567/afkloop/internal/perception"
)

// Tesseract recognises text in binarised captures.
type Tesseract struct {
	mu     sync.Mutex
	client *gosseract.Client
	lang   string
}

var (
	_ perception.Recognizer    = (*Tesseract)(nil)
	_ perception.BoxRecognizer = (*Tesseract)(nil)
)

// New creates a Tesseract client in uniform-block mode (PSM 6).
func New() (*Tesseract, error) {
	client := gosseract.NewClient()
	if err := client.SetPageSegMode(gosseract.PSM_SINGLE_BLOCK); err != nil {
		client.Close() //nolint:errcheck // Best effort cleanup on error path
		return nil, fmt.Errorf("ocr: setting page segmentation mode: %w", err)
	}
	return &Tesseract{client: client}, nil
}

// Version reports the linked tesseract version.
func Version() string {
	return gosseract.Version()
}

// Recognize returns the text tesseract reads in img.
//
// Parameters:
//   - ctx: Checked before the (uninterruptible) recognition starts
//   - img: Preprocessed capture
//   - lang: Tesseract language string, "+"-joined for several
//
// Returns:
//   - string: Recognised text, untrimmed
//   - error: ErrClosed, ErrEncodeFailed or ErrRecognitionFailed
func (t *Tesseract) Recognize(ctx context.Context, img image.Image, lang string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(img, lang); err != nil {
		return "", err
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return text, nil
}

// Boxes returns every recognised symbol with its bounding box in img's
// coordinates.
func (t *Tesseract) Boxes(ctx context.Context, img image.Image, lang string) ([]perception.Box, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.load(img, lang); err != nil {
		return nil, err
	}
	raw, err := t.client.GetBoundingBoxes(gosseract.RIL_SYMBOL)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRecognitionFailed, err)
	}
	return toBoxes(raw), nil
}

// Close releases the tesseract handle. Safe to call more than once.
func (t *Tesseract) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.client == nil {
		return nil
	}
	err := t.client.Close()
	t.client = nil
	return err
}

// load sets the language and image on the client. Caller holds t.mu.
func (t *Tesseract) load(img image.Image, lang string) error {
	if t.client == nil {
		return ErrClosed
	}
	if lang != t.lang {
		if err := t.client.SetLanguage(splitLanguages(lang)...); err != nil {
			return fmt.Errorf("%w: setting language %q: %w", ErrRecognitionFailed, lang, err)
		}
		t.lang = lang
	}
	data, err := encodePNG(img)
	if err != nil {
		return err
	}
	if err := t.client.SetImageFromBytes(data); err != nil {
		return fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return nil
}

// encodePNG serialises img for SetImageFromBytes.
func encodePNG(img image.Image) ([]byte, error) {
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: empty image", ErrEncodeFailed)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncodeFailed, err)
	}
	return buf.Bytes(), nil
}

// splitLanguages turns "chi_sim+eng" into ["chi_sim", "eng"].
// An empty string selects English.
func splitLanguages(lang string) []string {
	var out []string
	for _, l := range strings.Split(lang, "+") {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []string{"eng"}
	}
	return out
}

// toBoxes converts gosseract boxes, dropping blank symbols.
func toBoxes(raw []gosseract.BoundingBox) []perception.Box {
	out := make([]perception.Box, 0, len(raw))
	for _, b := range raw {
		text := strings.TrimSpace(b.Word)
		if text == "" {
			continue
		}
		out = append(out, perception.Box{
			Rect:       b.Box,
			Text:       text,
			Confidence: b.Confidence,
		})
	}
	return out
}
