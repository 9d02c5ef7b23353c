package http

import (
	"errors"
	"io"
	"io/fs"
	"mime"
	"net/http"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/mind-engage/ledgerquiz/internal/storage"
)

// MountAssets serves GET /assets/* from the blob store. Mounted publicly so
// question images render for students.
func MountAssets(r chi.Router, a *API) {
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		key, err := storage.CleanKey(chi.URLParam(r, "*"))
		if err != nil || isPrivateKey(key) {
			http.NotFound(w, r)
			return
		}
		rc, err := a.Blobs.Get(r.Context(), key)
		switch {
		case err == nil:
		case errors.Is(err, fs.ErrNotExist):
			http.NotFound(w, r)
			return
		default:
			a.writeErr(w, err)
			return
		}
		defer rc.Close()
		ct := mime.TypeByExtension(path.Ext(key))
		if ct == "" {
			ct = "application/octet-stream"
		}
		w.Header().Set("Content-Type", ct)
		_, _ = io.Copy(w, rc)
	})
}

// isPrivateKey reports keys under snapshots/, matched case-insensitively for
// filesystems that fold case.
func isPrivateKey(key string) bool {
	k := strings.ToLower(key)
	return k == "snapshots" || strings.HasPrefix(k, "snapshots/")
}
