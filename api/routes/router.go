package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/baystatus/api/controllers"
	"github.com/angelmondragon/baystatus/api/middleware"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/logger"
)

// NewRouter mounts the health, bay status and streaming endpoints.
// metricsHandler may be nil when no registry is exposed.
func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dir controllers.BayDirectory,
	pingers map[string]controllers.Pinger,
	metricsHandler http.Handler,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.HTTP.CORSOrigins),
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, pingers))
	})

	if metricsHandler != nil {
		r.Method(http.MethodGet, "/metrics", metricsHandler)
	}

	r.Route("/api/v1/bays", func(r chi.Router) {
		r.Get("/", controllers.ListBays(dir))
		r.Get("/{bayId}/status", controllers.BayStatus(dir, logg))
		r.Get("/{bayId}/widgets", controllers.BayWidgets(dir, logg))
	})

	upgrader := controllers.NewUpgrader(cfg.HTTP.CORSOrigins)
	r.Get("/ws/bays/{bayId}", controllers.BayStream(dir, upgrader, logg))

	return r
}
