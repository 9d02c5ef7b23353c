package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
)

type FSStore struct {
	base   string
	prefix string
}

func NewFSStore(base, publicPrefix string) (*FSStore, error) {
	if base == "" {
		base = "./data"
	}
	if publicPrefix == "" {
		publicPrefix = "/assets"
	}
	if err := os.MkdirAll(base, 0o755); err != nil {
		return nil, err
	}
	return &FSStore{base: base, prefix: strings.TrimSuffix(publicPrefix, "/")}, nil
}

func (s *FSStore) Put(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	k, err := CleanKey(key)
	if err != nil {
		return "", err
	}
	dst := filepath.Join(s.base, filepath.FromSlash(k))
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return "", err
	}
	f, err := os.Create(dst)
	if err != nil {
		return "", err
	}
	defer f.Close()
	if _, err := io.Copy(f, r); err != nil {
		return "", err
	}
	return k, f.Close()
}

func (s *FSStore) Get(_ context.Context, key string) (io.ReadCloser, error) {
	k, err := CleanKey(key)
	if err != nil {
		return nil, err
	}
	return os.Open(filepath.Join(s.base, filepath.FromSlash(k)))
}

func (s *FSStore) URL(key string) string {
	return s.prefix + "/" + strings.TrimPrefix(key, "/")
}

// Dir is the root directory, for serving with http.FileServer.
func (s *FSStore) Dir() string { return s.base }
