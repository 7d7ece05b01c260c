// Package storage keeps renter documents and vehicle images on the local
// filesystem, addressed by entity id in the path.
//
// Uploads follow a stage-then-commit pipeline: the multipart payload is
// written to a staging area first, and only moved under the owning entity
// once the database record is durably created. Any failure path discards
// the staged file, so a rolled-back booking never leaves orphaned storage.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

type DocumentStore struct {
	rootDir     string
	stagingDir  string
	maxFileSize int64 // bytes
}

// StagedFile is an upload sitting in the staging area, not yet owned by
// any entity.
type StagedFile struct {
	Name string // generated filename, extension preserved
	path string
}

func NewDocumentStore(rootDir string, maxFileSizeMB int64) (*DocumentStore, error) {
	stagingDir := filepath.Join(rootDir, "staging")
	if err := os.MkdirAll(stagingDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create staging directory: %w", err)
	}
	return &DocumentStore{
		rootDir:     rootDir,
		stagingDir:  stagingDir,
		maxFileSize: maxFileSizeMB << 20,
	}, nil
}

// Stage writes an upload into the staging area under a generated name.
func (s *DocumentStore) Stage(r io.Reader, originalName string) (*StagedFile, error) {
	ext := strings.ToLower(filepath.Ext(originalName))
	name := uuid.New().String() + ext
	path := filepath.Join(s.stagingDir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create staged file: %w", err)
	}
	defer f.Close()

	n, err := io.Copy(f, io.LimitReader(r, s.maxFileSize+1))
	if err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("failed to write staged file: %w", err)
	}
	if n > s.maxFileSize {
		os.Remove(path)
		return nil, fmt.Errorf("file %q exceeds the %d byte upload limit", originalName, s.maxFileSize)
	}

	return &StagedFile{Name: name, path: path}, nil
}

// CommitRenterDocument moves a staged file under the renter it now belongs
// to and returns the storage key.
func (s *DocumentStore) CommitRenterDocument(staged *StagedFile, renterID int32) (string, error) {
	key := filepath.Join("documents", "renters", fmt.Sprintf("%d", renterID), staged.Name)
	return key, s.commit(staged, key)
}

// SaveVehicleImage stores an image under a vehicle and returns the key.
func (s *DocumentStore) SaveVehicleImage(r io.Reader, originalName string, vehicleID int32) (string, error) {
	staged, err := s.Stage(r, originalName)
	if err != nil {
		return "", err
	}
	key := filepath.Join("images", "vehicles", fmt.Sprintf("%d", vehicleID), staged.Name)
	if err := s.commit(staged, key); err != nil {
		s.Discard(staged)
		return "", err
	}
	return key, nil
}

func (s *DocumentStore) commit(staged *StagedFile, key string) error {
	dest := filepath.Join(s.rootDir, key)
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", key, err)
	}
	if err := os.Rename(staged.path, dest); err != nil {
		return fmt.Errorf("failed to commit %s: %w", key, err)
	}
	staged.path = dest
	return nil
}

// Discard removes staged files. Safe to call on already-committed or
// already-discarded files.
func (s *DocumentStore) Discard(staged ...*StagedFile) {
	for _, f := range staged {
		if f == nil {
			continue
		}
		os.Remove(filepath.Join(s.stagingDir, f.Name))
	}
}

// Remove deletes a committed file by key. Missing files are not an error.
func (s *DocumentStore) Remove(key string) error {
	err := os.Remove(filepath.Join(s.rootDir, key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}

// Open reads a committed file by key.
func (s *DocumentStore) Open(key string) (io.ReadCloser, error) {
	f, err := os.Open(filepath.Join(s.rootDir, key))
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	return f, nil
}
