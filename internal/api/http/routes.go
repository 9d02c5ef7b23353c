package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	auth "github.com/mind-engage/ledgerquiz/internal/auth/middleware"
	"github.com/mind-engage/ledgerquiz/internal/logging"
	"github.com/mind-engage/ledgerquiz/internal/rbac"
)

// NewRouter wires every route. Students are anonymous and checked as
// RoleStudent; everything under /admin needs an admin JWT and the matching
// permission.
func NewRouter(a *API, authSvc *auth.AuthService, limiter *auth.RateLimiter, corsOrigins []string) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, logging.RequestLogger(a.Log), middleware.Recoverer)
	r.Use(a.Metrics.Middleware)
	r.Use(middleware.Timeout(30 * time.Second))
	if len(corsOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   corsOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
			AllowedHeaders:   []string{"Authorization", "Content-Type"},
			ExposedHeaders:   []string{"Content-Length", "Content-Disposition"},
			AllowCredentials: true,
			MaxAge:           300,
		}))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	r.Get("/readyz", ReadyHandler(a))
	r.Handle("/metrics", a.Metrics.Handler())

	r.With(limiter.Middleware).Post("/auth/login", auth.LoginHandler(authSvc))

	access := a.Access
	if access == nil {
		access = rbac.NewChecker(nil)
	}

	r.Group(func(sr chi.Router) {
		sr.Use(rbac.DefaultRole(rbac.RoleStudent))
		sr.With(access.Require(rbac.PermQuizTake)).Get("/modules", ListModulesHandler(a))
		sr.Route("/quizzes", func(qr chi.Router) {
			qr.Use(access.Require(rbac.PermQuizTake))
			qr.Post("/", StartQuizHandler(a))
			qr.Get("/{id}", GetQuizHandler(a))
			qr.Put("/{id}/answers", SaveAnswersHandler(a))
			qr.Post("/{id}/submit", SubmitQuizHandler(a))
			qr.Delete("/{id}", AbandonQuizHandler(a))
		})
		sr.With(access.Require(rbac.PermLeaderboardView)).Get("/leaderboard", LeaderboardHandler(a))
	})
	r.Route("/assets", func(ar chi.Router) {
		MountAssets(ar, a)
	})

	r.Route("/admin", func(pr chi.Router) {
		pr.Use(auth.JWTMiddleware(authSvc))

		pr.With(access.Require(rbac.PermBankView)).Get("/questions", ListQuestionsHandler(a))
		pr.With(access.Require(rbac.PermBankManage)).Post("/questions", CreateQuestionHandler(a))
		pr.With(access.Require(rbac.PermBankManage)).Put("/questions/{id}", UpdateQuestionHandler(a))
		pr.With(access.Require(rbac.PermBankManage)).Delete("/questions/{id}", DeleteQuestionHandler(a))
		pr.With(access.Require(rbac.PermBankManage)).Delete("/questions", ClearQuestionsHandler(a))
		pr.With(access.Require(rbac.PermBankImport)).Post("/questions/import", ImportQuestionsHandler(a))
		pr.With(access.Require(rbac.PermBankView)).Get("/questions/export", ExportQuestionsHandler(a))

		pr.With(access.Require(rbac.PermSettingsManage)).Get("/settings", GetSettingsHandler(a))
		pr.With(access.Require(rbac.PermSettingsManage)).Put("/settings", PutSettingsHandler(a))

		pr.With(access.Require(rbac.PermLeaderboardClear)).Delete("/leaderboard", ClearLeaderboardHandler(a))
		pr.With(access.Require(rbac.PermAssetsUpload)).Post("/images", UploadImageHandler(a))
		pr.With(access.Require(rbac.PermBankView)).Get("/events", ListEventsHandler(a))
	})
	return r
}

// GET /readyz
func ReadyHandler(a *API) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if a.Ready != nil {
			if err := a.Ready(r.Context()); err != nil {
				http.Error(w, "not ready", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
	}
}
