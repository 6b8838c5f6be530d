package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Object is a stored file. Path is always a local path readable by the
// extractor; URL is set when the file is also published remotely.
type Object struct {
	Key  string
	Path string
	URL  string
}

type FileStore interface {
	Save(ctx context.Context, key string, r io.Reader) (Object, error)
	Delete(ctx context.Context, path string) error
	Root() string
}

// UniqueKey prefixes the base name of filename with a fresh UUID.
func UniqueKey(filename string) string {
	return fmt.Sprintf("%s_%s", uuid.New().String(), filepath.Base(filename))
}

type LocalStore struct {
	root string
}

func NewLocalStore(root string) (*LocalStore, error) {
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory %s: %w", root, err)
	}
	return &LocalStore{root: root}, nil
}

func (s *LocalStore) Root() string { return s.root }

func (s *LocalStore) Save(ctx context.Context, key string, r io.Reader) (Object, error) {
	key = filepath.Base(key)
	if key == "." || key == string(filepath.Separator) {
		return Object{}, errors.New("invalid storage key")
	}
	path := filepath.Join(s.root, key)

	f, err := os.Create(path)
	if err != nil {
		return Object{}, fmt.Errorf("failed to create %s: %w", path, err)
	}
	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return Object{}, fmt.Errorf("failed to close %s: %w", path, err)
	}
	return Object{Key: key, Path: path}, nil
}

// Delete removes a file under the store root. Missing files are not an error.
func (s *LocalStore) Delete(ctx context.Context, path string) error {
	if path == "" {
		return nil
	}
	if !s.contains(path) {
		return fmt.Errorf("refusing to delete %s outside %s", path, s.root)
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *LocalStore) contains(path string) bool {
	root, err := filepath.Abs(s.root)
	if err != nil {
		return false
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return false
	}
	rel, err := filepath.Rel(root, abs)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
