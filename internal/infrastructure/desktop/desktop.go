package desktop

import (
	"context"
	"errors"
	"fmt"
	"image"

	"github.com/go-vgo/robotgo"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/input"
	"github.com/nerrad567/afkloop/internal/perception"
)

// ErrEmptyCapture is returned when robotgo yields no bitmap.
var ErrEmptyCapture = errors.New("desktop: empty capture")

// Offset is the screen position of the client area's top-left corner.
type Offset struct {
	X, Y int
}

// OffsetFromConfig reads the window section.
func OffsetFromConfig(cfg config.WindowConfig) Offset {
	return Offset{X: cfg.X, Y: cfg.Y}
}

// toScreen translates a client point to a screen point.
func (o Offset) toScreen(x, y int) (int, int) {
	return x + o.X, y + o.Y
}

// Screen captures client-area rectangles.
type Screen struct {
	offset Offset
}

var _ perception.Capturer = (*Screen)(nil)

// NewScreen creates a capturer for the client area at offset.
func NewScreen(offset Offset) *Screen {
	return &Screen{offset: offset}
}

// Capture grabs rect (client coordinates) from the screen.
func (s *Screen) Capture(ctx context.Context, rect image.Rectangle) (image.Image, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if rect.Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCapture, rect)
	}
	x, y := s.offset.toScreen(rect.Min.X, rect.Min.Y)

	bit := robotgo.CaptureScreen(x, y, rect.Dx(), rect.Dy())
	if bit == nil {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCapture, rect)
	}
	defer robotgo.FreeBitmap(bit)

	img := robotgo.ToImage(bit)
	if img == nil || img.Bounds().Empty() {
		return nil, fmt.Errorf("%w: %v", ErrEmptyCapture, rect)
	}
	return img, nil
}

// Input injects keyboard and mouse events.
//
// Thread Safety:
//   - robotgo serialises events at the OS level; Input holds no state
//     besides the offset and may be shared between workers.
type Input struct {
	offset Offset
}

var _ input.Device = (*Input)(nil)

// NewInput creates an input device for the client area at offset.
func NewInput(offset Offset) *Input {
	return &Input{offset: offset}
}

// KeyDown presses key.
func (in *Input) KeyDown(key string) error {
	if err := robotgo.KeyToggle(keyName(key), "down"); err != nil {
		return fmt.Errorf("desktop: key %q down: %w", key, err)
	}
	return nil
}

// KeyUp releases key.
func (in *Input) KeyUp(key string) error {
	if err := robotgo.KeyToggle(keyName(key), "up"); err != nil {
		return fmt.Errorf("desktop: key %q up: %w", key, err)
	}
	return nil
}

// MouseDown presses button at the current position.
func (in *Input) MouseDown(button string) error {
	if err := robotgo.Toggle(buttonName(button), "down"); err != nil {
		return fmt.Errorf("desktop: %s button down: %w", button, err)
	}
	return nil
}

// MouseUp releases button.
func (in *Input) MouseUp(button string) error {
	if err := robotgo.Toggle(buttonName(button), "up"); err != nil {
		return fmt.Errorf("desktop: %s button up: %w", button, err)
	}
	return nil
}

// MoveClick moves to the client point (x, y) and clicks per opts.
func (in *Input) MoveClick(ctx context.Context, x, y int, opts input.ClickOptions) error {
	sx, sy := in.offset.toScreen(x, y)
	robotgo.Move(sx, sy)

	if err := input.Sleep(ctx, opts.PreDelay); err != nil {
		return err
	}
	times := max(opts.Times, 1)
	button := buttonName(opts.Button)
	for i := range times {
		if i > 0 {
			if err := input.Sleep(ctx, opts.Interval); err != nil {
				return err
			}
		}
		robotgo.Click(button, false)
	}
	return input.Sleep(ctx, opts.PostDelay)
}

// TypeText types text literally, including non-ASCII characters.
func (in *Input) TypeText(text string) error {
	robotgo.TypeStr(text)
	return nil
}

func buttonName(button string) string {
	if button == "" {
		return input.ButtonLeft
	}
	return button
}
