package app

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/utafrali/critiqo/internal/dashboard"
	apperrors "github.com/utafrali/critiqo/pkg/errors"
	"github.com/utafrali/critiqo/pkg/health"
	"github.com/utafrali/critiqo/pkg/httputil"
	"github.com/utafrali/critiqo/pkg/middleware"
)

// WatchServerName labels the watch server in metrics and spans.
const WatchServerName = "watch"

// NewWatchRouter creates the router of the watch server.
func NewWatchRouter(poller *dashboard.Poller, healthHandler *health.Handler, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.RequestLogging(logger))
	r.Use(middleware.Instrument(WatchServerName))

	r.Get("/healthz", healthHandler.LivenessHandler())
	r.Get("/readyz", healthHandler.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/stats", statsHandler(poller, logger))
	})

	return r
}

func statsHandler(poller *dashboard.Poller, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, ok, err := poller.Latest()
		if !ok {
			if err == nil {
				err = apperrors.ServiceUnavailable("dashboard stats not polled yet")
			} else {
				err = apperrors.Wrap(apperrors.ErrServiceUnavail, err.Error())
			}
			httputil.WriteError(w, r, err, logger)
			return
		}
		httputil.WriteData(w, stats)
	}
}
