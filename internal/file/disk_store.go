package file

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

const stagingDirName = ".staging"

// DiskStore keeps payloads as plain files named after their object under root.
//
// Writes are staged in root/.staging, fsynced, then published with a hard
// link. The link fails when the target exists, so publishing never overwrites
// and a reader only ever sees complete files.
type DiskStore struct {
	root     string
	maxSize  int64
	fileMode os.FileMode
	dirMode  os.FileMode
}

// DiskOption configures a DiskStore.
type DiskOption func(*DiskStore)

// WithMaxSize sets the payload ceiling; zero or less disables the check.
func WithMaxSize(n int64) DiskOption {
	return func(s *DiskStore) {
		s.maxSize = n
	}
}

// WithFileMode sets the permission bits of published objects.
func WithFileMode(mode os.FileMode) DiskOption {
	return func(s *DiskStore) {
		s.fileMode = mode
	}
}

// WithDirMode sets the permission bits of created directories.
func WithDirMode(mode os.FileMode) DiskOption {
	return func(s *DiskStore) {
		s.dirMode = mode
	}
}

// NewDiskStore returns a store rooted at root. Directories are created on first write.
func NewDiskStore(root string, opts ...DiskOption) *DiskStore {
	s := &DiskStore{
		root:     filepath.Clean(root),
		fileMode: 0644,
		dirMode:  0755,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *DiskStore) objectPath(name string) string {
	return filepath.Join(s.root, name)
}

// Write stores data under name. It never replaces an existing object.
func (s *DiskStore) Write(ctx context.Context, name string, data []byte) error {
	if !IsSafe(name) || name == stagingDirName {
		return ErrInvalidName
	}
	if s.maxSize > 0 && int64(len(data)) > s.maxSize {
		return ErrTooLarge
	}

	stagingDir := filepath.Join(s.root, stagingDirName)
	if err := os.MkdirAll(stagingDir, s.dirMode); err != nil {
		return fmt.Errorf("%w: create staging dir: %w", ErrIO, err)
	}

	target := s.objectPath(name)
	if _, err := os.Lstat(target); err == nil {
		return ErrAlreadyExists
	}

	tmpPath := filepath.Join(stagingDir, uuid.NewString())
	defer func() { _ = os.Remove(tmpPath) }()

	if err := writeSynced(tmpPath, data, s.fileMode); err != nil {
		return fmt.Errorf("%w: stage %q: %w", ErrIO, name, err)
	}

	if err := ctx.Err(); err != nil {
		return fmt.Errorf("write %q canceled: %w", name, err)
	}

	if err := os.Link(tmpPath, target); err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("%w: publish %q: %w", ErrIO, name, err)
	}
	return nil
}

// Read returns the full payload of name.
func (s *DiskStore) Read(ctx context.Context, name string) ([]byte, error) {
	if _, err := s.Stat(ctx, name); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.objectPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("%w: read %q: %w", ErrIO, name, err)
	}
	return data, nil
}

// Delete removes name.
func (s *DiskStore) Delete(ctx context.Context, name string) error {
	if _, err := s.Stat(ctx, name); err != nil {
		return err
	}

	if err := os.Remove(s.objectPath(name)); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ErrNotFound
		}
		return fmt.Errorf("%w: remove %q: %w", ErrIO, name, err)
	}
	return nil
}

// Exists reports whether name is stored.
func (s *DiskStore) Exists(ctx context.Context, name string) (bool, error) {
	_, err := s.Stat(ctx, name)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

// Stat describes name. Anything other than a regular file is reported as missing.
func (s *DiskStore) Stat(_ context.Context, name string) (ObjectInfo, error) {
	if !IsSafe(name) || name == stagingDirName {
		return ObjectInfo{}, ErrInvalidName
	}

	info, err := os.Lstat(s.objectPath(name))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return ObjectInfo{}, ErrNotFound
		}
		return ObjectInfo{}, fmt.Errorf("%w: stat %q: %w", ErrIO, name, err)
	}
	if !info.Mode().IsRegular() {
		return ObjectInfo{}, ErrNotFound
	}

	return ObjectInfo{Name: name, Size: info.Size(), ModTime: info.ModTime()}, nil
}

// Ping checks that root is usable. A root that does not exist yet is fine.
func (s *DiskStore) Ping(_ context.Context) error {
	info, err := os.Stat(s.root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("stat objects dir: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("objects dir %q is not a directory", s.root)
	}
	return nil
}

// writeSynced writes data and fsyncs before closing.
func writeSynced(path string, data []byte, perm os.FileMode) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, perm)
	if err != nil {
		return err
	}

	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
