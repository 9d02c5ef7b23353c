package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/mind-engage/ledgerquiz/internal/leaderboard"
	"github.com/mind-engage/ledgerquiz/internal/quiz"
	"github.com/mind-engage/ledgerquiz/internal/session"
	syncx "github.com/mind-engage/ledgerquiz/internal/sync"
)

type quizItemView struct {
	QuestionID    int64           `json:"question_id"`
	Module        string          `json:"module"`
	Question      string          `json:"question"`
	Options       []string        `json:"options"`
	AllowMultiple bool            `json:"allow_multiple"`
	Difficulty    quiz.Difficulty `json:"difficulty"`
	Image         string          `json:"image,omitempty"`
}

// sessionView never includes correct answers or explanations.
type sessionView struct {
	ID               string         `json:"id"`
	Name             string         `json:"name"`
	StudentID        string         `json:"student_id,omitempty"`
	Module           string         `json:"module"`
	State            session.State  `json:"state"`
	Requested        int            `json:"requested"`
	Returned         int            `json:"returned"`
	UnderSupply      bool           `json:"under_supply"`
	TimeLimitSeconds int            `json:"time_limit_seconds"`
	RemainingSeconds *int           `json:"remaining_seconds,omitempty"`
	StartedAt        time.Time      `json:"started_at"`
	Items            []quizItemView `json:"items"`
	Answers          quiz.Answers   `json:"answers"`
}

func (a *API) viewSession(s *session.Session) sessionView {
	v := sessionView{
		ID:               s.ID,
		Name:             s.Name,
		StudentID:        s.StudentID,
		Module:           s.Module,
		State:            s.State,
		Requested:        s.Requested,
		Returned:         len(s.Items),
		UnderSupply:      s.UnderSupply,
		TimeLimitSeconds: int(s.TimeLimit / time.Second),
		StartedAt:        s.StartedAt,
		Items:            make([]quizItemView, 0, len(s.Items)),
		Answers:          s.Answers,
	}
	if d := s.Deadline(); !d.IsZero() {
		rem := int(max(d.Sub(a.now()), 0) / time.Second)
		v.RemainingSeconds = &rem
	}
	for _, it := range s.Items {
		q := it.Question
		v.Items = append(v.Items, quizItemView{
			QuestionID:    q.ID,
			Module:        q.Module,
			Question:      q.Text,
			Options:       it.ShuffledOptions,
			AllowMultiple: q.AllowMultiple,
			Difficulty:    q.Difficulty,
			Image:         q.ImageURL,
		})
	}
	return v
}

// POST /quizzes
func StartQuizHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name             string `json:"name"`
			StudentID        string `json:"student_id"`
			Module           string `json:"module"`
			Count            int    `json:"count"`
			TimeLimitMinutes int    `json:"time_limit_minutes"`
			Seed             *int64 `json:"seed,omitempty"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		if req.Seed != nil && !a.AllowSeed {
			http.Error(w, "seed is not accepted", http.StatusBadRequest)
			return
		}
		if a.MaxQuizQuestions > 0 && req.Count > a.MaxQuizQuestions {
			http.Error(w, "count exceeds maximum of "+strconv.Itoa(a.MaxQuizQuestions), http.StatusBadRequest)
			return
		}
		ctx := r.Context()
		qs, err := a.Store.ListQuestions(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		st, err := a.Store.LoadSettings(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		s, err := a.Sessions.Start(ctx, session.StartRequest{
			Name:      req.Name,
			StudentID: req.StudentID,
			Module:    req.Module,
			Count:     req.Count,
			TimeLimit: time.Duration(req.TimeLimitMinutes) * time.Minute,
			Seed:      req.Seed,
		}, qs, st)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		a.Metrics.QuizzesStarted.WithLabelValues(moduleLabel(s.Module), strconv.FormatBool(s.UnderSupply)).Inc()
		if s.UnderSupply {
			a.Log.Info("quiz under-supplied",
				zap.String("module", s.Module), zap.Int("requested", s.Requested), zap.Int("returned", len(s.Items)))
		}
		writeJSON(w, http.StatusCreated, a.viewSession(s))
	}
}

// GET /quizzes/{id}
func GetQuizHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, err := a.Sessions.Get(chi.URLParam(r, "id"))
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.viewSession(s))
	}
}

// PUT /quizzes/{id}/answers  {"answers": {"12": ["Cash"]}}
func SaveAnswersHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Answers quiz.Answers `json:"answers"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		s, err := a.Sessions.SaveAnswers(chi.URLParam(r, "id"), req.Answers)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		writeJSON(w, http.StatusOK, a.viewSession(s))
	}
}

type itemResultView struct {
	QuestionID     int64    `json:"question_id"`
	Question       string   `json:"question"`
	Selected       []string `json:"selected"`
	CorrectAnswers []string `json:"correct_answers"`
	Score          float64  `json:"score"`
	IsFullyCorrect bool     `json:"is_fully_correct"`
	Malformed      bool     `json:"malformed,omitempty"`
	Explanation    string   `json:"explanation,omitempty"`
}

type submitView struct {
	SessionID  string           `json:"session_id"`
	RecordID   string           `json:"record_id"`
	Module     string           `json:"module"`
	TotalScore float64          `json:"total_score"`
	MaxScore   int              `json:"max_score"`
	Percentage float64          `json:"percentage"`
	OverTime   bool             `json:"over_time"`
	Items      []itemResultView `json:"items"`
}

// POST /quizzes/{id}/submit
func SubmitQuizHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		id := chi.URLParam(r, "id")
		qs, err := a.Store.ListQuestions(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		st, err := a.Store.LoadSettings(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		s, err := a.Sessions.Submit(id, qs)
		if err != nil {
			if errors.Is(err, session.ErrQuestionsChanged) {
				a.Metrics.QuestionsChanged.Inc()
			}
			a.writeErr(w, err)
			return
		}
		res := *s.Result

		rec := leaderboard.NewRecord(leaderboard.Entrant{
			Name:             s.Name,
			StudentID:        s.StudentID,
			Module:           moduleLabel(s.Module),
			TimeLimitMinutes: int(s.TimeLimit / time.Minute),
		}, res, a.now())
		if err := a.Store.AppendScore(ctx, rec); err != nil {
			if rerr := a.Sessions.Reopen(s.ID); rerr != nil {
				a.Log.Warn("reopen after failed score save", zap.String("session", s.ID), zap.Error(rerr))
			}
			a.writeErr(w, err)
			return
		}
		a.audit(ctx, syncx.TypeQuizSubmitted, s.ID, map[string]any{
			"record_id":  rec.ID,
			"module":     rec.Module,
			"score":      rec.TotalScore,
			"total":      rec.MaxScore,
			"percentage": rec.Percentage,
			"over_time":  s.OverTime,
		})
		a.Metrics.QuizzesSubmitted.WithLabelValues(rec.Module, strconv.FormatBool(s.OverTime)).Inc()
		a.Metrics.ScorePercentage.WithLabelValues(rec.Module).Observe(res.Percentage)

		texts := make(map[int64]string, len(s.Items))
		for _, it := range s.Items {
			texts[it.Question.ID] = it.Question.Text
		}
		out := submitView{
			SessionID:  s.ID,
			RecordID:   rec.ID,
			Module:     rec.Module,
			TotalScore: rec.TotalScore,
			MaxScore:   res.MaxScore,
			Percentage: rec.Percentage,
			OverTime:   s.OverTime,
			Items:      make([]itemResultView, 0, len(res.Items)),
		}
		for _, it := range res.Items {
			v := itemResultView{
				QuestionID:     it.QuestionID,
				Question:       texts[it.QuestionID],
				Selected:       it.Selected,
				CorrectAnswers: it.CorrectAnswers,
				Score:          it.Score,
				IsFullyCorrect: it.IsFullyCorrect,
				Malformed:      it.Malformed,
				Explanation:    it.Explanation,
			}
			if it.IsFullyCorrect && !st.ShowExplanationsForCorrect {
				v.Explanation = ""
			}
			out.Items = append(out.Items, v)
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// DELETE /quizzes/{id}
func AbandonQuizHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := a.Sessions.Abandon(chi.URLParam(r, "id")); err != nil {
			a.writeErr(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type moduleView struct {
	Name             string `json:"name"`
	QuestionCount    int    `json:"question_count"`
	TimeLimitMinutes int    `json:"time_limit_minutes,omitempty"`
}

// GET /modules lists modules students may pick.
func ListModulesHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		mods, err := a.Store.Modules(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		st, err := a.Store.LoadSettings(ctx)
		if err != nil {
			a.writeErr(w, err)
			return
		}
		out := make([]moduleView, 0, len(mods))
		for _, m := range mods {
			if !st.Enabled(m.Name) {
				continue
			}
			out = append(out, moduleView{
				Name:             m.Name,
				QuestionCount:    m.QuestionCount,
				TimeLimitMinutes: st.ModuleTimeLimits[m.Name],
			})
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// GET /leaderboard?module=
func LeaderboardHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		recs, err := a.Store.ListScores(r.Context())
		if err != nil {
			a.writeErr(w, err)
			return
		}
		ranked := leaderboard.Rank(recs, r.URL.Query().Get("module"))
		for i := range ranked {
			ranked[i].Breakdown = nil
		}
		writeJSON(w, http.StatusOK, ranked)
	}
}

func moduleLabel(m string) string {
	if m == "" {
		return "All"
	}
	return m
}
