package perception

import (
	"image"
	"strings"
	"unicode"
)

// ThresholdStep is how far a miss moves the threshold during a sweep.
const ThresholdStep = 10

// Predicate is one recognition check and its calibration state.
type Predicate struct {
	ID       string
	Region   image.Rectangle
	Keywords []string

	// Threshold is the current binarisation threshold (pixel > Threshold is white).
	Threshold int

	// Floor is the lowest threshold ever used; passing it wraps to Ceiling.
	Floor   int
	Ceiling int

	// Solved is set once a threshold has produced a hit.
	Solved bool

	// DebugDisabled predicates report false without capturing in debug mode.
	DebugDisabled bool
}

// clamped keeps Threshold within [Floor, Ceiling]. An inverted range is
// left alone for config validation to report.
func (p Predicate) clamped() Predicate {
	if p.Floor > p.Ceiling {
		return p
	}
	p.Threshold = max(p.Floor, min(p.Threshold, p.Ceiling))
	return p
}

// Mode selects whether a miss moves the threshold.
type Mode struct {
	// Calibrating sweeps unsolved predicates.
	Calibrating bool

	// Forced sweeps every predicate, solved or not.
	Forced bool
}

// Change describes what Evaluate did to a predicate.
type Change int

const (
	ChangeNone Change = iota
	ChangeSolved
	ChangeStepped
	ChangeWrapped
)

func (c Change) String() string {
	switch c {
	case ChangeSolved:
		return "solved"
	case ChangeStepped:
		return "stepped"
	case ChangeWrapped:
		return "wrapped"
	default:
		return "none"
	}
}

// Evaluate matches recognised text against p and returns the predicate's
// next calibration state.
//
// A hit while calibrating an unsolved predicate marks it solved. A miss
// while sweeping lowers the threshold by ThresholdStep, wrapping to Ceiling
// when the result would drop below Floor. p itself is not modified.
//
// Parameters:
//   - p: Predicate at its current threshold
//   - text: Raw recognised text; whitespace is ignored
//   - mode: Calibration flags for this evaluation
//
// Returns:
//   - matched: Whether any keyword occurs in the text
//   - next: The predicate to use for the next check
//   - change: What, if anything, moved
func Evaluate(p Predicate, text string, mode Mode) (matched bool, next Predicate, change Change) {
	next = p
	if ContainsAny(StripSpace(text), p.Keywords) {
		if mode.Calibrating && !p.Solved {
			next.Solved = true
			return true, next, ChangeSolved
		}
		return true, next, ChangeNone
	}

	if (mode.Calibrating && !p.Solved) || mode.Forced {
		t := p.Threshold - ThresholdStep
		if t < p.Floor {
			next.Threshold = p.Ceiling
			return false, next, ChangeWrapped
		}
		next.Threshold = t
		return false, next, ChangeStepped
	}
	return false, next, ChangeNone
}

// StripSpace removes every Unicode whitespace rune.
func StripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}

// ContainsAny reports whether any non-empty keyword is a substring of text.
func ContainsAny(text string, keywords []string) bool {
	for _, k := range keywords {
		if k != "" && strings.Contains(text, k) {
			return true
		}
	}
	return false
}

// LanguageCode maps the configured language to a tesseract language string.
func LanguageCode(language string) string {
	switch strings.ToLower(language) {
	case "chinese":
		return "chi_sim"
	case "english":
		return "eng"
	default:
		return "chi_sim+eng"
	}
}
