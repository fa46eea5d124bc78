package perception

import (
	"context"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/vcaesar/imgo"

	"github.com/nerrad567/afkloop/internal/infrastructure/config"
	"github.com/nerrad567/afkloop/internal/input"
)

// Capturer reads a client-area rectangle of the game window.
type Capturer interface {
	Capture(ctx context.Context, rect image.Rectangle) (image.Image, error)
}

// Recognizer extracts text from a preprocessed image.
type Recognizer interface {
	Recognize(ctx context.Context, img image.Image, lang string) (string, error)
}

// Box is one recognised symbol and where it sits in the image.
type Box struct {
	Rect       image.Rectangle
	Text       string
	Confidence float64
}

// BoxRecognizer extracts positioned symbols from a preprocessed image.
type BoxRecognizer interface {
	Boxes(ctx context.Context, img image.Image, lang string) ([]Box, error)
}

// ModeSource reports whether the watchdog is forcing recalibration.
type ModeSource interface {
	ForcedRecalibration() bool
}

// CalibrationObserver is told about every threshold change.
type CalibrationObserver interface {
	CalibrationChanged(id string, threshold int, solved bool, change Change)
}

// Logger defines the logging interface for the perception engine.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Config holds the engine settings.
type Config struct {
	Language        string
	Scale           float64
	DebugDir        string
	ConfirmKeywords []string

	// Debug short-circuits DebugDisabled predicates to false.
	Debug bool

	// Calibrate enables the sweep for unsolved predicates.
	Calibrate bool
}

// Deps are the engine's collaborators. Capturer and Recognizer are required.
type Deps struct {
	Capturer   Capturer
	Recognizer Recognizer
	Boxes      BoxRecognizer
	Pointer    input.Pointer
	Store      ThresholdStore
	Mode       ModeSource
	Observer   CalibrationObserver
}

// Engine evaluates predicates against the live screen.
//
// Thread Safety:
//   - Check and ConfirmDialog are meant for the single control-loop goroutine.
//   - Predicates may be called concurrently (status API).
type Engine struct {
	cfg    Config
	deps   Deps
	lang   string
	logger Logger

	mu    sync.RWMutex
	preds map[string]Predicate

	dumpOnce sync.Once
	dumpErr  error
}

// NewEngine creates an engine over the given predicates.
func NewEngine(cfg Config, preds []Predicate, deps Deps) *Engine {
	m := make(map[string]Predicate, len(preds))
	for _, p := range preds {
		m[p.ID] = p.clamped()
	}
	return &Engine{
		cfg:    cfg,
		deps:   deps,
		lang:   LanguageCode(cfg.Language),
		logger: noopLogger{},
		preds:  m,
	}
}

// SetLogger sets the logger for the engine.
func (e *Engine) SetLogger(logger Logger) {
	if logger != nil {
		e.logger = logger
	}
}

// PredicatesFromConfig builds predicates from the perception config section.
// The disconnect predicate is the one debug mode disables. A threshold
// outside [Floor, Ceiling] is clamped to the nearer bound.
func PredicatesFromConfig(cfg config.PerceptionConfig) []Predicate {
	out := make([]Predicate, 0, len(cfg.Predicates))
	for id, pc := range cfg.Predicates {
		p := Predicate{
			ID:            id,
			Region:        image.Rect(pc.Region[0], pc.Region[1], pc.Region[2], pc.Region[3]),
			Keywords:      append([]string(nil), pc.Keywords...),
			Threshold:     pc.Threshold,
			Floor:         pc.Floor,
			Ceiling:       pc.Ceiling,
			DebugDisabled: id == config.PredicateDisconnect,
		}
		out = append(out, p.clamped())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// LoadCalibrations overlays persisted thresholds onto the configured predicates.
// Stored thresholds outside [Floor, Ceiling] are ignored.
func (e *Engine) LoadCalibrations(ctx context.Context) error {
	if e.deps.Store == nil {
		return nil
	}
	stored, err := e.deps.Store.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading calibrations: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	for _, c := range stored {
		p, ok := e.preds[c.PredicateID]
		if !ok {
			continue
		}
		if c.Threshold >= p.Floor && c.Threshold <= p.Ceiling {
			p.Threshold = c.Threshold
		}
		p.Solved = c.Solved
		e.preds[p.ID] = p
	}
	e.logger.Info("calibrations loaded", "count", len(stored))
	return nil
}

// Predicates returns a copy of every predicate, sorted by ID.
func (e *Engine) Predicates() []Predicate {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]Predicate, 0, len(e.preds))
	for _, p := range e.preds {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (e *Engine) predicate(id string) (Predicate, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	p, ok := e.preds[id]
	if !ok {
		return Predicate{}, fmt.Errorf("%w: %s", ErrUnknownPredicate, id)
	}
	return p, nil
}

// Check reports whether predicate id currently holds, updating its
// calibration as a side effect.
//
// Returns:
//   - bool: true if a keyword was recognised in the region
//   - error: ErrUnknownPredicate, ErrCaptureFailed (wrapped), or ctx.Err()
func (e *Engine) Check(ctx context.Context, id string) (bool, error) {
	p, err := e.predicate(id)
	if err != nil {
		return false, err
	}
	if p.DebugDisabled && e.cfg.Debug {
		return false, nil
	}

	img, err := e.deps.Capturer.Capture(ctx, p.Region)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCaptureFailed, id, err)
	}

	bin := Preprocess(img, p.Threshold, e.cfg.Scale)
	e.dump(id, bin)

	text, err := e.deps.Recognizer.Recognize(ctx, bin, e.lang)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		e.logger.Debug("recognition failed, treating as empty", "predicate", id, "error", err)
		text = ""
	}

	mode := Mode{Calibrating: e.cfg.Calibrate}
	if e.deps.Mode != nil {
		mode.Forced = e.deps.Mode.ForcedRecalibration()
	}

	matched, next, change := Evaluate(p, text, mode)
	e.logger.Debug("recognised", "predicate", id, "text", StripSpace(text), "threshold", p.Threshold, "matched", matched)
	if change != ChangeNone {
		e.apply(ctx, next, change)
	}
	return matched, nil
}

// apply stores the new calibration state and persists it.
func (e *Engine) apply(ctx context.Context, p Predicate, change Change) {
	e.mu.Lock()
	e.preds[p.ID] = p
	e.mu.Unlock()

	if change == ChangeSolved {
		e.logger.Info("threshold solved", "predicate", p.ID, "threshold", p.Threshold)
	} else {
		e.logger.Debug("threshold sweep", "predicate", p.ID, "threshold", p.Threshold, "change", change.String())
	}

	if e.deps.Observer != nil {
		e.deps.Observer.CalibrationChanged(p.ID, p.Threshold, p.Solved, change)
	}
	if e.deps.Store != nil {
		err := e.deps.Store.Save(ctx, Calibration{
			PredicateID: p.ID,
			Threshold:   p.Threshold,
			Solved:      p.Solved,
		})
		if err != nil {
			e.logger.Warn("persisting calibration failed", "predicate", p.ID, "error", err)
		}
	}
}

// ConfirmDialog looks for a confirm-style symbol inside predicate id's region
// at the given threshold and clicks the first one found.
//
// Returns:
//   - bool: true if a click was issued
//   - error: lookup, capture or click failures; recognition errors count as "not found"
func (e *Engine) ConfirmDialog(ctx context.Context, id string, threshold int) (bool, error) {
	if e.deps.Boxes == nil || e.deps.Pointer == nil {
		return false, ErrNoBoxRecognizer
	}
	p, err := e.predicate(id)
	if err != nil {
		return false, err
	}

	img, err := e.deps.Capturer.Capture(ctx, p.Region)
	if err != nil {
		return false, fmt.Errorf("%w: %s: %w", ErrCaptureFailed, id, err)
	}
	bin := Preprocess(img, threshold, e.cfg.Scale)
	e.dump(id+"_confirm", bin)

	boxes, err := e.deps.Boxes.Boxes(ctx, bin, e.lang)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return false, ctxErr
		}
		e.logger.Debug("box recognition failed", "predicate", id, "error", err)
		return false, nil
	}

	scale := e.cfg.Scale
	if scale <= 1 {
		scale = 1
	}
	for _, b := range boxes {
		if !ContainsAny(StripSpace(b.Text), e.cfg.ConfirmKeywords) {
			continue
		}
		cx := (b.Rect.Min.X + b.Rect.Max.X) / 2
		cy := (b.Rect.Min.Y + b.Rect.Max.Y) / 2
		x := p.Region.Min.X + int(float64(cx)/scale)
		y := p.Region.Min.Y + int(float64(cy)/scale)

		e.logger.Info("confirming dialog", "predicate", id, "symbol", b.Text, "x", x, "y", y, "threshold", threshold)
		if err := e.deps.Pointer.MoveClick(ctx, x, y, input.Click); err != nil {
			return false, fmt.Errorf("clicking dialog: %w", err)
		}
		return true, nil
	}
	return false, nil
}

// dump writes img to DebugDir as <name>.png when debug dumps are enabled.
func (e *Engine) dump(name string, img image.Image) {
	if e.cfg.DebugDir == "" {
		return
	}
	e.dumpOnce.Do(func() {
		e.dumpErr = os.MkdirAll(e.cfg.DebugDir, 0o750)
	})
	if e.dumpErr != nil {
		return
	}
	if err := imgo.Save(filepath.Join(e.cfg.DebugDir, name+".png"), img); err != nil {
		e.logger.Debug("debug dump failed", "name", name, "error", err)
	}
}
