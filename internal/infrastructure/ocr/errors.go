package ocr

import "errors"

var (
	// ErrClosed is returned after Close.
	ErrClosed = errors.New("ocr: client closed")

	// ErrEncodeFailed is returned when an image cannot be handed to tesseract.
	ErrEncodeFailed = errors.New("ocr: encoding image failed")

	// ErrRecognitionFailed wraps a tesseract failure.
	ErrRecognitionFailed = errors.New("ocr: recognition failed")
)
