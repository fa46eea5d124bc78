package perception

import "errors"

var (
	// ErrCaptureFailed is returned when the screen region cannot be read.
	// It is never reported as a miss.
	ErrCaptureFailed = errors.New("perception: capture failed")

	// ErrUnknownPredicate is returned for a predicate ID with no configuration.
	ErrUnknownPredicate = errors.New("perception: unknown predicate")

	// ErrNoBoxRecognizer is returned by ConfirmDialog when no BoxRecognizer is wired.
	ErrNoBoxRecognizer = errors.New("perception: box recognition unavailable")
)
