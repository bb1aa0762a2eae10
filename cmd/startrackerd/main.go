// Command startrackerd runs the onboard star-tracker attitude service: it
// captures frames, solves them against the star catalog, and publishes the
// current attitude over the configured transport.
package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/astro"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/capture"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/config"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/logging"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/observability"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/pipeline"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/internal/publish"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/quality"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/solve"
	"github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/store"
)

func main() {
	configPath := flag.String("config", "configs/startracker.yaml", "Path to the YAML calibration file")
	flag.Parse()

	log := logging.NewFromEnv()
	ctx := context.Background()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Error(ctx, "failed to load configuration", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "loaded configuration", logging.String("path", *configPath))

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}

	collector, err := observability.NewTrackerCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}
	metricsSrv := serveMetrics(cfg.MetricsAddr, collector, log)

	source, err := buildSource(cfg)
	if err != nil {
		log.Error(ctx, "failed to open frame source", logging.String("error", err.Error()))
		os.Exit(1)
	}

	var reference *model.Frame
	if cfg.MedianImage != "" {
		reference, err = capture.LoadReference(cfg.MedianImage)
		if err != nil {
			log.Error(ctx, "failed to load median reference image",
				logging.String("path", cfg.MedianImage),
				logging.String("error", err.Error()),
			)
			os.Exit(1)
		}
		log.Info(ctx, "loaded median image", logging.String("path", cfg.MedianImage))
	}

	catalog, err := astro.LoadCatalog(cfg.Catalog.Path, cfg.Catalog.Epoch)
	if err != nil {
		log.Error(ctx, "failed to load star catalog",
			logging.String("path", cfg.Catalog.Path),
			logging.String("error", err.Error()),
		)
		os.Exit(1)
	}
	log.Info(ctx, "loaded star catalog",
		logging.String("path", cfg.Catalog.Path),
		logging.Int("stars", len(catalog.Stars)),
		logging.Float("epoch", catalog.Epoch),
	)

	engine := astro.NewPairEngine(astro.Params{
		PixelScale:   cfg.PixelScale(),
		MaxPairAngle: cfg.FOV(),
	})
	solver, err := solve.New(solve.Config{
		MatchThreshold: cfg.Solver.MatchThreshold,
		RequiredStars:  cfg.Solver.RequiredStars,
		MaxFalseStars:  cfg.Solver.MaxFalseStars,
		ThreshFactor:   cfg.Solver.ThreshFactor,
		ImageVariance:  cfg.Solver.ImageVariance,
		FOV:            cfg.FOV(),
		PixelScale:     cfg.PixelScale(),
		DBRedundancy:   cfg.Solver.DBRedundancy,
	}, engine, catalog, reference, log)
	if err != nil {
		log.Error(ctx, "failed to build solver", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "constellation index built")

	publisher, err := publish.New(cfg.Publisher, log)
	if err != nil {
		log.Error(ctx, "failed to start publisher", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer publisher.Close()

	thresholds := quality.Thresholds{
		BrightnessCutoff: cfg.Quality.BrightnessCutoff,
		DarkUpperBound:   cfg.Quality.DarkUpperBound,
		DarkLowerBound:   cfg.Quality.DarkLowerBound,
		BlurCutoff:       cfg.Quality.BlurCutoff,
	}

	loop, err := pipeline.New(pipeline.Params{
		Source:     source,
		Controller: capture.NewLogController(log),
		Classifier: pipeline.ClassifierFunc(func(f *model.Frame) model.QualityVerdict {
			return quality.Classify(f, thresholds)
		}),
		Solver:    solver,
		Store:     store.NewSolutionStore(),
		Publisher: publisher,
		Backoff:   cfg.Backoff(),
		Log:       log,
		Metrics:   collector,
	})
	if err != nil {
		log.Error(ctx, "failed to build pipeline", logging.String("error", err.Error()))
		os.Exit(1)
	}

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	loopDone := make(chan struct{})
	go func() {
		defer close(loopDone)
		if err := loop.Run(stopCtx); err != nil {
			log.Error(ctx, "pipeline exited", logging.String("error", err.Error()))
		}
	}()

	<-stopCtx.Done()
	log.Info(ctx, "shutting down star tracker")

	// The join is unbounded: an in-flight solve always finishes.
	<-loopDone

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if metricsSrv != nil {
		_ = metricsSrv.Shutdown(shutdownCtx)
	}
	observability.ShutdownWithTimeout(context.Background(), shutdownTracing, log)
}

// buildSource selects the frame source. Only sample-directory playback is
// shipped; a live camera driver plugs in behind the same interface.
func buildSource(cfg *config.Config) (capture.Source, error) {
	if cfg.SampleDir == "" {
		return nil, errors.New("no frame source configured: set sample_dir")
	}
	return capture.NewSampleDir(cfg.SampleDir)
}

func serveMetrics(addr string, collector *observability.TrackerCollector, log logging.Logger) *http.Server {
	if collector == nil {
		return nil
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Warn(context.Background(), "metrics server exited", logging.String("error", err.Error()))
		}
	}()

	log.Info(context.Background(), "serving Prometheus metrics", logging.String("addr", addr))
	return srv
}
