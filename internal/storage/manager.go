// Package storage persists generated artifacts (plot images, CSV exports)
// on the local filesystem.
package storage

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/f1-visualizer/backend/internal/models"
)

// ErrNotFound is returned when an artifact ID is unknown.
var ErrNotFound = errors.New("artifact not found")

// Store defines the interface for artifact storage.
type Store interface {
	Save(name string, kind models.ArtifactKind, r io.Reader) (*models.FileInfo, error)
	SaveBytes(name string, kind models.ArtifactKind, data []byte) (*models.FileInfo, error)
	Get(id string) (*models.FileInfo, error)
	List(limit int) ([]*models.FileInfo, error)
	Delete(id string) error
	Rename(id string, newName string) (*models.FileInfo, error)
	GetFilePath(id string) (string, error)
}

// LocalStore implements Store using the local filesystem.
type LocalStore struct {
	mu    sync.RWMutex
	dir   string
	files map[string]*models.FileInfo
}

// NewLocalStore creates a new LocalStore rooted at dir.
func NewLocalStore(dir string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating artifact directory: %w", err)
	}

	return &LocalStore{
		dir:   dir,
		files: make(map[string]*models.FileInfo),
	}, nil
}

// Save writes an artifact to disk.
func (s *LocalStore) Save(name string, kind models.ArtifactKind, r io.Reader) (*models.FileInfo, error) {
	id := uuid.New().String()
	path := filepath.Join(s.dir, id)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating artifact file: %w", err)
	}
	defer f.Close()

	size, err := io.Copy(f, r)
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("writing artifact: %w", err)
	}

	info := &models.FileInfo{
		ID:        id,
		Name:      name,
		Size:      size,
		Kind:      kind,
		CreatedAt: time.Now(),
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.files[id] = info

	return info, nil
}

// SaveBytes writes an in-memory artifact, such as a rendered PNG.
func (s *LocalStore) SaveBytes(name string, kind models.ArtifactKind, data []byte) (*models.FileInfo, error) {
	return s.Save(name, kind, bytes.NewReader(data))
}

// Get retrieves artifact metadata by ID.
func (s *LocalStore) Get(id string) (*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return info, nil
}

// List returns the most recent artifacts, newest first.
func (s *LocalStore) List(limit int) ([]*models.FileInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := make([]*models.FileInfo, 0, len(s.files))
	for _, info := range s.files {
		list = append(list, info)
	}

	sort.Slice(list, func(i, j int) bool {
		return list[i].CreatedAt.After(list[j].CreatedAt)
	})

	if limit > 0 && len(list) > limit {
		list = list[:limit]
	}

	return list, nil
}

// Delete removes an artifact from storage.
func (s *LocalStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.files[id]; !ok {
		return fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	path := filepath.Join(s.dir, id)
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting artifact: %w", err)
	}

	delete(s.files, id)
	return nil
}

// Rename updates the display name of an artifact.
func (s *LocalStore) Rename(id string, newName string) (*models.FileInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	info, ok := s.files[id]
	if !ok {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	info.Name = newName
	return info, nil
}

// GetFilePath returns the absolute path to an artifact.
func (s *LocalStore) GetFilePath(id string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if _, ok := s.files[id]; !ok {
		return "", fmt.Errorf("%s: %w", id, ErrNotFound)
	}

	return filepath.Join(s.dir, id), nil
}
