// Package input defines the keyboard, mouse and pointer capabilities the
// automation drives, and the Tracker that remembers what is held down.
//
// The desktop adapter implements Device against the real OS. Everything
// above it depends only on these interfaces, so tests substitute a recorder.
//
// Coordinates are client-area coordinates; the adapter applies the window
// offset.
package input
