// Package storage keeps uploaded avatar images.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strings"
)

// ErrInvalidName is returned for object names that would escape the store.
var ErrInvalidName = errors.New("invalid object name")

// AvatarStore saves avatar images and returns the URL they are served from.
type AvatarStore interface {
	Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error)
	// Delete removes the object behind url. URLs the store does not own are
	// ignored.
	Delete(ctx context.Context, url string) error
}

func checkName(name string) error {
	if name == "" || name != path.Base(name) || name == "." || name == ".." || strings.ContainsRune(name, '\\') {
		return ErrInvalidName
	}
	return nil
}

// LocalStore writes avatars to a directory served by the app itself.
type LocalStore struct {
	Dir       string
	URLPrefix string
}

// NewLocalStore returns a store writing to dir and serving files under
// urlPrefix. The directory is created if missing.
func NewLocalStore(dir, urlPrefix string) (*LocalStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create upload dir: %w", err)
	}
	return &LocalStore{Dir: dir, URLPrefix: strings.TrimRight(urlPrefix, "/")}, nil
}

func (s *LocalStore) Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	if err := checkName(name); err != nil {
		return "", err
	}

	dst := filepath.Join(s.Dir, name)
	f, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return "", fmt.Errorf("create avatar file: %w", err)
	}

	if _, err := io.Copy(f, r); err != nil {
		_ = f.Close()
		_ = os.Remove(dst)
		return "", fmt.Errorf("write avatar file: %w", err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(dst)
		return "", fmt.Errorf("close avatar file: %w", err)
	}

	return s.URLPrefix + "/" + name, nil
}

func (s *LocalStore) Delete(ctx context.Context, url string) error {
	name, ok := strings.CutPrefix(url, s.URLPrefix+"/")
	if !ok || checkName(name) != nil {
		return nil
	}
	if err := os.Remove(filepath.Join(s.Dir, name)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove avatar file: %w", err)
	}
	return nil
}
