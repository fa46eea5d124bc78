// Package ocr adapts Tesseract (through gosseract) to the perception
// engine's Recognizer and BoxRecognizer interfaces.
//
// A Tesseract wraps one gosseract client. The client is not safe for
// concurrent use, so calls are serialised; the control loop is the only
// caller in practice.
//
// Requires the tesseract and leptonica shared libraries plus the
// chi_sim and eng traineddata files.
package ocr
