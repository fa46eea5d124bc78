package script

import (
	"fmt"
	"os"
	"time"
)

// Source supplies the script text and its modification time.
// A missing script reports an error wrapping fs.ErrNotExist.
type Source interface {
	Stat() (time.Time, error)
	Read() (string, error)
}

// FileSource reads a script from disk.
type FileSource struct {
	Path string
}

// Stat returns the file's modification time.
func (f FileSource) Stat() (time.Time, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return time.Time{}, fmt.Errorf("stat %s: %w", f.Path, err)
	}
	return info.ModTime(), nil
}

// Read returns the file contents.
func (f FileSource) Read() (string, error) {
	b, err := os.ReadFile(f.Path)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", f.Path, err)
	}
	return string(b), nil
}
