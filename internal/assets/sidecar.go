package assets

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"equipcat/internal/models"
)

// Sidecar keeps one media.meta.json per folder.
//
// Update serializes read-modify-write cycles per folder within this process.
// Writes go through a temp file and rename so readers never observe a torn file.
type Sidecar struct {
	root string

	mu    sync.Mutex
	locks map[models.MediaFolder]*sync.Mutex
}

// NewSidecar creates a sidecar store under root.
func NewSidecar(root string) (*Sidecar, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return nil, fmt.Errorf("upload root is required")
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	return &Sidecar{root: abs, locks: map[models.MediaFolder]*sync.Mutex{}}, nil
}

// Read returns the folder's map. A missing file yields an empty map.
func (s *Sidecar) Read(folder models.MediaFolder) (map[string]models.MediaMeta, error) {
	path, err := s.pathFor(folder)
	if err != nil {
		return nil, err
	}
	return readSidecar(path)
}

// Write replaces the folder's map.
func (s *Sidecar) Write(folder models.MediaFolder, entries map[string]models.MediaMeta) error {
	path, err := s.pathFor(folder)
	if err != nil {
		return err
	}
	lock := s.lockFor(folder)
	lock.Lock()
	defer lock.Unlock()
	return writeSidecar(path, entries)
}

// Update applies fn to the folder's current map and persists the result.
// Nothing is written when fn returns an error.
func (s *Sidecar) Update(folder models.MediaFolder, fn func(entries map[string]models.MediaMeta) error) error {
	if fn == nil {
		return fmt.Errorf("update func is required")
	}
	path, err := s.pathFor(folder)
	if err != nil {
		return err
	}
	lock := s.lockFor(folder)
	lock.Lock()
	defer lock.Unlock()

	entries, err := readSidecar(path)
	if err != nil {
		return err
	}
	if err := fn(entries); err != nil {
		return err
	}
	return writeSidecar(path, entries)
}

func (s *Sidecar) lockFor(folder models.MediaFolder) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.locks[folder]
	if !ok {
		lock = &sync.Mutex{}
		s.locks[folder] = lock
	}
	return lock
}

func (s *Sidecar) pathFor(folder models.MediaFolder) (string, error) {
	if s == nil {
		return "", fmt.Errorf("sidecar store is not configured")
	}
	if !IsKnownFolder(folder) {
		return "", ErrInvalidPath
	}
	return filepath.Join(s.root, string(folder), SidecarFilename), nil
}

func readSidecar(path string) (map[string]models.MediaMeta, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]models.MediaMeta{}, nil
		}
		return nil, fmt.Errorf("read sidecar: %w", err)
	}
	entries := map[string]models.MediaMeta{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return entries, nil
	}
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse sidecar %s: %w", filepath.Base(filepath.Dir(path)), err)
	}
	if entries == nil {
		entries = map[string]models.MediaMeta{}
	}
	return entries, nil
}

func writeSidecar(path string, entries map[string]models.MediaMeta) error {
	if entries == nil {
		entries = map[string]models.MediaMeta{}
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encode sidecar: %w", err)
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".meta-*")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(append(data, '\n')); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
