package http

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/mind-engage/ledgerquiz/internal/bank"
	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/metrics"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/rbac"
	"github.com/mind-engage/ledgerquiz/internal/session"
	"github.com/mind-engage/ledgerquiz/internal/storage"
	"github.com/mind-engage/ledgerquiz/internal/store"
	syncx "github.com/mind-engage/ledgerquiz/internal/sync"
)

// EventLog is the audit sink; *syncx.EventRepo satisfies it.
type EventLog interface {
	Append(ctx context.Context, e syncx.Event) error
	Since(ctx context.Context, after int64, limit int) ([]syncx.Event, error)
}

// API bundles what the handlers need. Events and Ready may be nil.
type API struct {
	Store    store.Store
	Sessions *session.Registry
	Blobs    storage.BlobStore
	Events   EventLog
	Metrics  *metrics.Metrics
	Log      *zap.Logger
	Ready    func(ctx context.Context) error
	// Access is the role policy; nil means rbac.RolePermissions.
	Access   *rbac.Checker

	MaxQuizQuestions int
	// AllowSeed lets POST /quizzes pin the selection seed. Test setups only.
	AllowSeed        bool
	Now              func() time.Time
}

func (a *API) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}

func (a *API) audit(ctx context.Context, typ, key string, data any) {
	if a.Events == nil {
		return
	}
	if err := a.Events.Append(ctx, syncx.NewEvent(typ, key, data)); err != nil {
		a.Log.Warn("audit append failed", zap.String("type", typ), zap.Error(err))
	}
}

// snapshotBank writes the current bank as CSV to blob storage before a
// destructive admin action. Failures are logged only.
func (a *API) snapshotBank(ctx context.Context) string {
	qs, err := a.Store.ListQuestions(ctx)
	if err != nil || len(qs) == 0 {
		return ""
	}
	var buf bytes.Buffer
	if err := bank.ExportCSV(&buf, qs); err != nil {
		a.Log.Warn("snapshot export failed", zap.Error(err))
		return ""
	}
	key := fmt.Sprintf("snapshots/questions-%d.csv", a.now().UnixNano())
	if _, err := a.Blobs.Put(ctx, key, &buf, int64(buf.Len()), "text/csv"); err != nil {
		a.Log.Warn("snapshot upload failed", zap.String("key", key), zap.Error(err))
		return ""
	}
	return key
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps domain errors onto status codes. Anything unrecognised is
// logged and reported as 500 without detail.
func (a *API) writeErr(w http.ResponseWriter, err error) {
	code := http.StatusInternalServerError
	switch {
	case errors.Is(err, session.ErrNotFound),
		errors.Is(err, session.ErrNoQuestions),
		errors.Is(err, store.ErrNotFound):
		code = http.StatusNotFound
	case errors.Is(err, session.ErrNameRequired),
		errors.Is(err, quiz.ErrInvalidSelection),
		errors.Is(err, quiz.ErrMalformedQuestion),
		errors.Is(err, bank.ErrMissingColumns),
		errors.Is(err, bank.ErrNoRows),
		errors.Is(err, storage.ErrInvalidKey):
		code = http.StatusBadRequest
	case errors.Is(err, session.ErrModuleDisabled):
		code = http.StatusForbidden
	case errors.Is(err, session.ErrAlreadySubmitted),
		errors.Is(err, session.ErrNotInProgress),
		errors.Is(err, session.ErrQuestionsChanged):
		code = http.StatusConflict
	case errors.Is(err, leaderboard.ErrNonFinite):
		code = http.StatusUnprocessableEntity
	}
	if code == http.StatusInternalServerError {
		a.Log.Error("request failed", zap.Error(err))
		http.Error(w, "internal error", code)
		return
	}
	http.Error(w, err.Error(), code)
}
