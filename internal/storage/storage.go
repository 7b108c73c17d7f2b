// Package storage keeps finished deliverables on disk, addressed by opaque
// ids. Callers never derive filesystem locations from public URLs; the id
// is the reference and this package resolves it.
package storage

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

type Storage struct {
	dir string
}

func New(dir string) (*Storage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create deliverables dir: %w", err)
	}
	return &Storage{dir: dir}, nil
}

// Publish moves a finished deliverable from the pipeline's temp space into
// the store under the given id. A plain rename is tried first; when temp
// and store live on different filesystems it falls back to copy-then-remove.
func (s *Storage) Publish(id uuid.UUID, srcPath string) error {
	dstPath := s.Path(id)

	if err := os.Rename(srcPath, dstPath); err == nil {
		return nil
	}

	src, err := os.Open(srcPath)
	if err != nil {
		return fmt.Errorf("failed to open deliverable: %w", err)
	}
	defer src.Close()

	dst, err := os.Create(dstPath)
	if err != nil {
		return fmt.Errorf("failed to create stored deliverable: %w", err)
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(dstPath)
		return fmt.Errorf("failed to copy deliverable: %w", err)
	}

	if err := dst.Close(); err != nil {
		os.Remove(dstPath)
		return fmt.Errorf("failed to finalize stored deliverable: %w", err)
	}

	os.Remove(srcPath)
	return nil
}

// Path resolves a deliverable id to its on-disk location.
func (s *Storage) Path(id uuid.UUID) string {
	return filepath.Join(s.dir, id.String()+".mp4")
}

// Exists reports whether a deliverable is present in the store.
func (s *Storage) Exists(id uuid.UUID) bool {
	_, err := os.Stat(s.Path(id))
	return err == nil
}

// Remove deletes a stored deliverable.
func (s *Storage) Remove(id uuid.UUID) error {
	if err := os.Remove(s.Path(id)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove deliverable: %w", err)
	}
	return nil
}
