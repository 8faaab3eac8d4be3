// stage.go - Scratch files for engines that read images from disk

package ocr

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// Stager writes request images to uniquely named scratch files under Dir
type Stager struct {
	Dir string
}

// NewStager returns a stager for dir; an empty dir means the OS temp dir
func NewStager(dir string) *Stager {
	if dir == "" {
		dir = os.TempDir()
	}
	return &Stager{Dir: dir}
}

// Stage writes data to a new scratch file with the given suffix and returns its path.
// The caller owns the file and must Remove it.
func (s *Stager) Stage(data []byte, suffix string) (string, error) {
	path := filepath.Join(s.Dir, uuid.New().String()+suffix)

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return "", fmt.Errorf("failed to create scratch file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to write scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to close scratch file: %w", err)
	}
	return path, nil
}

// Remove deletes a scratch file; a file that is already gone is not an error
func (s *Stager) Remove(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete scratch file %s: %w", path, err)
	}
	return nil
}
