// Package artifacts writes the output files of a run to local storage.
package artifacts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Kind identifies one of the downloadable outputs.
type Kind string

const (
	KindText  Kind = "text"
	KindAudio Kind = "audio"
)

// Fixed file names; every run overwrites the previous output.
const (
	TextFileName  = "translation.txt"
	AudioFileName = "translated_audio.mp3"
)

// ErrNotFound is returned when no run has produced the requested file yet.
var ErrNotFound = errors.New("artifact not found")

// FileStore saves run outputs under Dir. Writes within one process are
// serialized; separate processes sharing Dir are not coordinated.
type FileStore struct {
	Dir string
	mu  sync.RWMutex
}

func NewFileStore(dir string) *FileStore {
	if dir == "" {
		dir = "."
	}
	return &FileStore{Dir: dir}
}

// ParseKind validates a kind taken from a URL.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindText, KindAudio:
		return Kind(s), nil
	}
	return "", fmt.Errorf("unknown artifact kind %q", s)
}

// FileName returns the fixed file name for kind.
func FileName(kind Kind) string {
	if kind == KindAudio {
		return AudioFileName
	}
	return TextFileName
}

// ContentType returns the MIME type served for kind.
func ContentType(kind Kind) string {
	if kind == KindAudio {
		return "audio/mpeg"
	}
	return "text/plain; charset=utf-8"
}

// SaveText writes the translated text and returns its path.
func (s *FileStore) SaveText(text string) (string, error) {
	return s.save(KindText, []byte(text))
}

// SaveAudio writes the MP3 clip and returns its path.
func (s *FileStore) SaveAudio(data []byte) (string, error) {
	return s.save(KindAudio, data)
}

func (s *FileStore) save(kind Kind, data []byte) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return "", err
	}
	path := filepath.Join(s.Dir, FileName(kind))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

// Read returns the current contents of the file for kind.
func (s *FileStore) Read(kind Kind) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, err := os.ReadFile(filepath.Join(s.Dir, FileName(kind)))
	if errors.Is(err, os.ErrNotExist) {
		return nil, ErrNotFound
	}
	return data, err
}

// RemoveOlderThan deletes artifacts last written before cutoff and reports
// which kinds were removed.
func (s *FileStore) RemoveOlderThan(cutoff time.Time) ([]Kind, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var removed []Kind
	for _, kind := range []Kind{KindText, KindAudio} {
		path := filepath.Join(s.Dir, FileName(kind))
		info, err := os.Stat(path)
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err != nil {
			return removed, err
		}
		if !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(path); err != nil {
			return removed, fmt.Errorf("failed to remove %s: %w", FileName(kind), err)
		}
		removed = append(removed, kind)
	}
	return removed, nil
}
