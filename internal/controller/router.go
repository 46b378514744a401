// internal/controller/router.go
package controller

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/unclebandit/voicecampaign-backend/internal/handler"
)

// NewRouter wires every HTTP route. settings and health may be nil.
func NewRouter(campaigns *CampaignController, settings *SettingsController, health *handler.HealthHandler, logger *zap.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	if logger != nil {
		r.Use(requestLogger(logger))
	}

	if health != nil {
		r.Get("/healthz", health.Healthz)
		r.Get("/readyz", health.Readyz)
	}

	r.Group(func(r chi.Router) {
		r.Use(handler.RequireTenant)

		// Campaign routes
		r.Post("/campaigns", campaigns.SubmitCampaign)
		r.Post("/campaigns/priority", campaigns.SubmitPriorityCall)
		r.Get("/campaigns", campaigns.ListCampaigns)
		r.Get("/campaigns/{id}", campaigns.GetCampaign)
		r.Get("/campaigns/{id}/status", campaigns.CampaignStatus)
		r.Post("/campaigns/{id}/cancel", campaigns.CancelCampaign)
		r.Post("/campaigns/{id}/retry", campaigns.RetryCampaign)

		if settings != nil {
			r.Put("/settings/dispatch-credential", settings.PutDispatchCredential)
		}
	})
	return r
}

func requestLogger(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
				zap.String("tenant", r.Header.Get(handler.HeaderTenantID)),
			)
		})
	}
}
