package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(serverErrorLoggerMiddleware)
	r.Use(corsMiddleware)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(newIPRateLimiter(120, time.Minute).middleware)

	s := server{
		db:          d.DB,
		pepper:      d.Pepper,
		verify:      d.Verify,
		holdMessage: d.VerifyHoldMessage,
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", s.handleHealth)
		r.Get("/metrics", s.handleMetrics)

		// Public browse surface.
		r.Get("/ticker", s.handleTicker)
		r.Get("/goals", s.handleListGoalsPublic)
		r.Get("/evaluations", s.handleListEvaluationsPublic)
		r.Get("/leaderboards", s.handleLeaderboards)
		r.Get("/strategies/browse", s.handleBrowseStrategies)
		r.Get("/strategies/{strategyID}", s.handleGetStrategy)

		// Registration mints the API key; everything after uses it.
		r.Post("/agents/register", s.handleRegisterAgent)
		r.Get("/agents/{handle}", s.handleAgentProfile)

		r.Group(func(r chi.Router) {
			r.Use(s.agentAuthMiddleware)
			r.Post("/agents/upsert", s.handleUpsertAgent)

			r.Get("/goals/list", s.handleListGoals)
			r.Post("/goals/upsert", s.handleUpsertGoal)

			r.Get("/evaluations/list", s.handleListEvaluations)
			r.Post("/evaluations/create", s.handleCreateEvaluation)

			r.Post("/strategies/create", s.handleCreateStrategy)
			r.Post("/strategies/rate", s.handleRateStrategy)

			r.Post("/verifications/x/start", s.handleVerificationStart)
			r.Post("/verifications/x/check", s.handleVerificationCheck)
		})
	})

	return r
}

func (s server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeOK(w, http.StatusOK, nil)
}
