package storage

import (
	"context"
	"errors"
	"io"
	"path"
	"strings"

	"go.uber.org/zap"
)

var ErrInvalidKey = errors.New("invalid blob key")

type BlobStore interface {
	// Put stores r under key and returns the canonical key. size may be -1
	// when unknown.
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	// URL is where clients fetch the object from.
	URL(key string) string
}

type Config struct {
	Driver   string // fs|minio
	BasePath string
	// PublicPrefix is the HTTP path the fs store is served under.
	PublicPrefix string

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
}

// New picks the configured backend. MinIO problems are logged and the
// filesystem store is used instead, so the server still starts.
func New(ctx context.Context, cfg Config, log *zap.Logger) (BlobStore, error) {
	if cfg.Driver == "minio" {
		ms, err := NewMinioStore(ctx, cfg)
		if err == nil {
			return ms, nil
		}
		log.Warn("minio unavailable, falling back to filesystem blobs", zap.Error(err))
	}
	return NewFSStore(cfg.BasePath, cfg.PublicPrefix)
}

// CleanKey normalises key to the form the stores write under and rejects
// parent traversal. Callers that filter by prefix must filter the result.
func CleanKey(key string) (string, error) {
	k := path.Clean("/" + strings.ReplaceAll(key, "\\", "/"))
	k = strings.TrimPrefix(k, "/")
	if k == "" || k == "." || strings.Contains(key, "..") {
		return "", ErrInvalidKey
	}
	return k, nil
}
