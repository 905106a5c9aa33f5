package handlers

import (
	"encoding/json"
	"net/http"

	"oracle/internal/billing"
	"oracle/internal/cache"
	"oracle/internal/domain"
	"oracle/internal/infra"
	"oracle/internal/prediction"
)

// App bundles the handler dependencies.
type App struct {
	Predictions *prediction.Controller
	Billing     *billing.Reconciler
	Users       domain.UserRepository
	Cache       cache.Cache
	Logger      infra.Logger
}

// NewApp creates the handler container.
func NewApp(predictions *prediction.Controller, reconciler *billing.Reconciler, users domain.UserRepository, snapshots cache.Cache, logger infra.Logger) *App {
	return &App{
		Predictions: predictions,
		Billing:     reconciler,
		Users:       users,
		Cache:       snapshots,
		Logger:      logger,
	}
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (a *App) error(w http.ResponseWriter, code int, errCode, message string) {
	a.json(w, code, map[string]string{"error": errCode, "message": message})
}
