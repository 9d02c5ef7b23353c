package http

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"path"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mind-engage/ledgerquiz/internal/bank"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/settings"
	syncx "github.com/mind-engage/ledgerquiz/internal/sync"
)

const (
	maxImportBytes = 10 << 20
	maxImageBytes  = 5 << 20
)

// GET /admin/questions
func ListQuestionsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := a.Store.ListQuestions(r.Context())
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, qs)
	}
}

func decodeQuestion(r *http.Request) (quiz.Question, bool) {
	var q quiz.Question
	if err := json.NewDecoder(r.Body).Decode(&q); err != nil {
		return q, false
	}
	q.Module = strings.TrimSpace(q.Module)
	if q.Module == "" {
		q.Module = "General"
	}
	if d, ok := quiz.ParseDifficulty(string(q.Difficulty)); ok {
		q.Difficulty = d
	}
	return q, true
}

// POST /admin/questions
func CreateQuestionHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, ok := decodeQuestion(r)
		if !ok {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		saved, err := a.Store.AddQuestion(r.Context(), q)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, saved)
	}
}

// PUT /admin/questions/{id}
func UpdateQuestionHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		q, ok := decodeQuestion(r)
		if !ok {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		q.ID = id
		if err := a.Store.UpdateQuestion(r.Context(), q); err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, q)
	}
}

// DELETE /admin/questions/{id}
func DeleteQuestionHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if err := a.Store.DeleteQuestion(r.Context(), id); err != nil {
			a.writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

// DELETE /admin/questions clears the bank after snapshotting it.
func ClearQuestionsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		snap := a.snapshotBank(ctx)
		if err := a.Store.ClearQuestions(ctx); err != nil {
			a.writeErr(w, err)
			return
		}
		a.audit(ctx, syncx.TypeQuestionsCleared, "questions", map[string]any{"snapshot": snap})
		writeJSON(w, http.StatusOK, map[string]string{"snapshot": snap})
	}
}

type importView struct {
	bank.ImportResult
	Skipped  int    `json:"skipped"`
	Snapshot string `json:"snapshot,omitempty"`
}

// POST /admin/questions/import (multipart "file", .csv or .xlsx). The bank
// is replaced only when at least one row imports.
func ImportQuestionsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImportBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		var res bank.ImportResult
		switch strings.ToLower(path.Ext(hdr.Filename)) {
		case ".csv":
			res, err = bank.ImportCSV(f)
		case ".xlsx":
			res, err = bank.ImportXLSX(f)
		default:
			http.Error(w, "file must be .csv or .xlsx", http.StatusBadRequest)
			return
		}
		if err != nil {
			a.writeErr(w, err)
			return
		}
		a.Metrics.ImportedRows.WithLabelValues("imported").Add(float64(res.Imported))
		a.Metrics.ImportedRows.WithLabelValues("skipped").Add(float64(res.Skipped()))

		out := importView{ImportResult: res, Skipped: res.Skipped()}
		if res.Imported == 0 {
			writeJSON(w, http.StatusUnprocessableEntity, out)
			return
		}
		ctx := r.Context()
		out.Snapshot = a.snapshotBank(ctx)
		if err := a.Store.ReplaceQuestions(ctx, res.Questions); err != nil {
			a.writeErr(w, err)
			return
		}
		a.audit(ctx, syncx.TypeQuestionsReplaced, hdr.Filename, map[string]any{
			"imported": res.Imported,
			"skipped":  res.Skipped(),
			"snapshot": out.Snapshot,
		})
		a.Log.Info("question bank imported",
			zap.String("file", hdr.Filename), zap.Int("imported", res.Imported), zap.Int("skipped", res.Skipped()))
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /admin/questions/export?format=csv|xlsx
func ExportQuestionsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		qs, err := a.Store.ListQuestions(r.Context())
		if err != nil {
			a.writeErr(w, err)
			return
		}
		var buf bytes.Buffer
		format := r.URL.Query().Get("format")
		switch format {
		case "", "csv":
			format = "csv"
			err = bank.ExportCSV(&buf, qs)
			w.Header().Set("Content-Type", "text/csv")
		case "xlsx":
			err = bank.ExportXLSX(&buf, qs)
			w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		default:
			http.Error(w, "format must be csv or xlsx", http.StatusBadRequest)
			return
		}
		if err != nil {
			a.writeErr(w, err)
			return
		}
		w.Header().Set("Content-Disposition", `attachment; filename="questions.`+format+`"`)
		_, _ = io.Copy(w, &buf)
	}
}

// GET /admin/settings
func GetSettingsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st, err := a.Store.LoadSettings(r.Context())
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// PUT /admin/settings stores the normalized form and echoes it back.
func PutSettingsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var st settings.Settings
		if err := json.NewDecoder(r.Body).Decode(&st); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		st = st.Normalize()
		if err := a.Store.SaveSettings(r.Context(), st); err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, st)
	}
}

// DELETE /admin/leaderboard
func ClearLeaderboardHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if err := a.Store.ClearScores(ctx); err != nil {
			a.writeErr(w, err)
			return
		}
		a.audit(ctx, syncx.TypeLeaderboardCleared, "scores", map[string]any{})
		w.WriteHeader(http.StatusNoContent)
	}
}

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
	".svg":  "image/svg+xml",
}

// POST /admin/images (multipart "file") -> {key, url}
func UploadImageHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxImageBytes)
		f, hdr, err := r.FormFile("file")
		if err != nil {
			http.Error(w, "file required", http.StatusBadRequest)
			return
		}
		defer f.Close()

		ext := strings.ToLower(path.Ext(hdr.Filename))
		ct, ok := imageTypes[ext]
		if !ok {
			http.Error(w, "unsupported image type", http.StatusBadRequest)
			return
		}
		key, err := a.Blobs.Put(r.Context(), "images/"+uuid.NewString()+ext, f, hdr.Size, ct)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]string{"key": key, "url": a.Blobs.URL(key)})
	}
}

// GET /admin/events?after=&limit=
func ListEventsHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Events == nil {
			writeJSON(w, http.StatusOK, []syncx.Event{})
			return
		}
		after, _ := strconv.ParseInt(r.URL.Query().Get("after"), 10, 64)
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		evs, err := a.Events.Since(r.Context(), after, limit)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		if evs == nil {
			evs = []syncx.Event{}
		}
		writeJSON(w, http.StatusOK, evs)
	}
}
