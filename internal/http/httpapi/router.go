package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"oracle/internal/http/handlers"
	"oracle/internal/infra"
	"oracle/internal/middleware"
)

// NewRouter wires the API surface.
func NewRouter(app *handlers.App, logger infra.Logger, cfg *infra.Config) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.RequestID,
		chimw.RealIP,
		chimw.Recoverer,
		middleware.Logger(logger),
	)

	// Health
	r.Get("/v1/healthz", app.Health)

	r.Route("/api", func(r chi.Router) {
		r.With(middleware.RateLimit(cfg.RateLimitPerMin, time.Minute)).
			Get("/predict", app.SubmitPrediction)
		r.Get("/jobs", app.ListPublicPredictions)
		r.Get("/jobs/{id}", app.GetPrediction)
		r.Get("/user", app.GetUser)
		r.Post("/stripe/webhook", app.StripeWebhook)
	})

	return r
}
