package storage

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"go.uber.org/zap"
)

func TestFSStorePutGet(t *testing.T) {
	ctx := context.Background()
	s, err := NewFSStore(t.TempDir(), "/assets/")
	if err != nil {
		t.Fatal(err)
	}
	key, err := s.Put(ctx, "images/q1.png", strings.NewReader("png-bytes"), 9, "image/png")
	if err != nil {
		t.Fatal(err)
	}
	if key != "images/q1.png" || s.URL(key) != "/assets/images/q1.png" {
		t.Fatalf("key=%q url=%q", key, s.URL(key))
	}
	rc, err := s.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Close()
	b, _ := io.ReadAll(rc)
	if string(b) != "png-bytes" {
		t.Fatalf("got %q", b)
	}
}

func TestFSStoreRejectsTraversal(t *testing.T) {
	s, err := NewFSStore(t.TempDir(), "")
	if err != nil {
		t.Fatal(err)
	}
	for _, k := range []string{"", "../etc/passwd", "a/../../b"} {
		if _, err := s.Put(context.Background(), k, strings.NewReader("x"), 1, ""); !errors.Is(err, ErrInvalidKey) {
			t.Fatalf("key %q: expected ErrInvalidKey, got %v", k, err)
		}
	}
}

func TestCleanKey(t *testing.T) {
	for in, want := range map[string]string{
		"images/a.png":         "images/a.png",
		"/images/a.png":        "images/a.png",
		"./snapshots/q.csv":    "snapshots/q.csv",
		`snapshots\q.csv`:      "snapshots/q.csv",
		"images//./x/../b.png": "",
	} {
		got, err := CleanKey(in)
		if want == "" {
			if !errors.Is(err, ErrInvalidKey) {
				t.Errorf("%q: expected ErrInvalidKey, got %q %v", in, got, err)
			}
			continue
		}
		if err != nil || got != want {
			t.Errorf("%q: got %q %v, want %q", in, got, err, want)
		}
	}
}

func TestNewFallsBackToFS(t *testing.T) {
	s, err := New(context.Background(), Config{Driver: "minio", BasePath: t.TempDir()}, zap.NewNop())
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := s.(*FSStore); !ok {
		t.Fatalf("expected FSStore fallback, got %T", s)
	}
}
