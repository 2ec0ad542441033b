package serverhttp

import (
	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/importer"
	"cutoff-predictor/internal/middleware"
	predHnd "cutoff-predictor/internal/predict/handler"
	"cutoff-predictor/internal/predict/service"
	"cutoff-predictor/internal/store"
	"cutoff-predictor/server/http/handlers"
)

type Deps struct {
	Engine   *service.Engine
	Store    store.Store
	Importer *importer.Importer
}

func NewRouter(cfg config.Config, logger zerolog.Logger, d Deps) *chi.Mux {
	r := chi.NewRouter()

	// порядок важен: recover -> requestID -> logging -> cors -> limit
	r.Use(middleware.Recover(logger))
	r.Use(middleware.RequestID(logger))
	r.Use(middleware.Logging(logger))
	r.Use(middleware.CORS(cfg.AllowOrigins))
	r.Use(middleware.LimitBytes(int64(cfg.MaxUploadMB) * 1024 * 1024))

	// health-check и метрики
	r.Get("/health", handlers.Health(d.Store))
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.RateLimit(cfg.RateLimit.Requests, cfg.RateLimit.Window))

		api.Post("/predict", predHnd.Predict(d.Engine))
		api.Post("/search-cutoffs", predHnd.SearchCutoffs(d.Engine))
		api.Post("/export/predictions", predHnd.Export())

		api.Route("/cutoffs", func(c chi.Router) {
			c.Get("/count", predHnd.CountCutoffs(d.Store))
			c.Get("/meta/categories", predHnd.Categories(d.Engine.Taxonomy()))
			c.Post("/import", predHnd.Import(cfg, d.Importer))
		})
	})

	return r
}
