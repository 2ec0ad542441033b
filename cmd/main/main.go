package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"cutoff-predictor/internal/config"
	"cutoff-predictor/internal/importer"
	"cutoff-predictor/internal/predict/service"
	"cutoff-predictor/internal/predict/taxonomy"
	"cutoff-predictor/internal/store"
	serverhttp "cutoff-predictor/server/http"
)

func main() {
	if runtime.GOMAXPROCS(0) < runtime.NumCPU() {
		runtime.GOMAXPROCS(runtime.NumCPU())
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	logger := config.SetupLogger(cfg)

	tax := taxonomy.Default()
	if cfg.TaxonomyFile != "" {
		if tax, err = taxonomy.Load(cfg.TaxonomyFile); err != nil {
			logger.Fatal().Err(err).Str("file", cfg.TaxonomyFile).Msg("taxonomy")
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	backend, err := store.Open(ctx, cfg.Store)
	cancel()
	if err != nil {
		logger.Fatal().Err(err).Str("driver", cfg.Store.Driver).Msg("open store")
	}
	st := store.NewBreaker(backend, cfg.Store.Breaker, logger)
	defer st.Close()

	im := importer.New(st, tax, logger)
	seed(im, cfg.Seed, logger)

	eng := service.NewEngine(tax, st, service.Options{
		ResultCap:        cfg.Predict.ResultCap,
		MatchThreshold:   cfg.Predict.MatchThreshold,
		DefaultTolerance: cfg.Predict.DefaultTolerance,
	}, logger)

	r := serverhttp.NewRouter(cfg, logger, serverhttp.Deps{Engine: eng, Store: st, Importer: im})

	srv := &http.Server{Addr: cfg.Addr(), Handler: r, ReadHeaderTimeout: 10 * time.Second}
	logger.Info().Str("addr", cfg.Addr()).Str("store", cfg.Store.Driver).Msg("server starting")

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("listen")
		}
	}()

	// graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	logger.Info().Msg("server shutting down")
	sctx, scancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer scancel()
	_ = srv.Shutdown(sctx)
	logger.Info().Msg("bye")
}

// seed загружает справочник колледжей и отсечки; колледжи идут первыми.
func seed(im *importer.Importer, sc config.SeedConfig, logger zerolog.Logger) {
	for _, path := range []string{sc.CollegesFile, sc.CutoffsFile} {
		if path == "" {
			continue
		}
		f, err := os.Open(path)
		if err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("seed open")
		}
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		rep, err := im.ImportFile(ctx, f, path, importer.Options{HeaderRow: sc.HeaderRow})
		cancel()
		f.Close()
		if err != nil {
			logger.Fatal().Err(err).Str("file", path).Msg("seed import")
		}
		if rep.Skipped > 0 {
			logger.Warn().Str("file", path).Int("skipped", rep.Skipped).Interface("errors", rep.Errors).Msg("seed rows skipped")
		}
	}
}
