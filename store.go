package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

const defaultFrameExt = ".png"

// FrameStore persists frames. Persist is called once per frame in frame
// order; it must not keep a reference to f after returning.
type FrameStore interface {
	Persist(id int, f *Frame) error
}

// FileStore writes each frame as an image file named after the series and a
// zero-padded frame id.
type FileStore struct {
	Dir    string
	Series string
	Ext    string // format is chosen from the extension
	digits int
}

// NewFileStore creates a store for a session of numFrames frames, creating
// dir if needed.
func NewFileStore(dir, series string, numFrames int) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output folder: %w", err)
	}
	return &FileStore{
		Dir:    dir,
		Series: series,
		Ext:    defaultFrameExt,
		digits: frameDigits(numFrames),
	}, nil
}

// frameDigits returns the zero padding needed to keep frame names sortable
// for a session of numFrames frames.
func frameDigits(numFrames int) int {
	switch {
	case numFrames < 1000:
		return 3
	case numFrames < 10000:
		return 4
	case numFrames < 100000:
		return 5
	case numFrames < 1000000:
		return 6
	default:
		return 7
	}
}

// Path returns the file a frame id is stored in.
func (s *FileStore) Path(id int) string {
	return filepath.Join(s.Dir, fmt.Sprintf("%s%0*d%s", s.Series, s.digits, id, s.Ext))
}

func (s *FileStore) Persist(id int, f *Frame) error {
	path := s.Path(id)
	if err := imaging.Save(f.Image, path); err != nil {
		return fmt.Errorf("persist frame %d to %s: %w", id, path, err)
	}
	return nil
}
