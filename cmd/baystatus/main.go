package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	"github.com/angelmondragon/baystatus/api/routes"
	"github.com/angelmondragon/baystatus/internal/baystatus"
	"github.com/angelmondragon/baystatus/internal/baystatus/widgets"
	"github.com/angelmondragon/baystatus/pkg/config"
	"github.com/angelmondragon/baystatus/pkg/instance"
	"github.com/angelmondragon/baystatus/pkg/logger"
	"github.com/angelmondragon/baystatus/pkg/metrics"
)

const serviceName = "baystatus"

func main() {
	logg := logger.New(logger.Options{ServiceName: serviceName})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	requireResource(context.Background(), logg, "config", err)

	logg = logger.New(logger.Options{
		ServiceName: serviceName,
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      cfg.App.LogFormat,
		Fields: map[string]string{
			"env":      cfg.App.Env,
			"instance": instance.ID(cfg.App.InstanceID),
			"broker":   cfg.Broker.Kind,
		},
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := openResources(ctx, cfg, logg)
	requireResource(ctx, logg, "dependencies", err)

	kinds, err := baystatus.ParseWidgetKinds(cfg.Widgets.Kinds)
	requireResource(ctx, logg, "widget kinds", err)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	registry, err := baystatus.NewRegistry(cfg.Bays.IDs, baystatus.Deps{
		Subscriber:         res.broker,
		Lookup:             res.lookup,
		Logger:             logg,
		Destination:        cfg.Broker.Destination,
		WidgetKinds:        kinds,
		LookupTimeout:      cfg.Widgets.LookupTimeout,
		Locale:             cfg.Widgets.Locale,
		Dedup:              res.dedup,
		IngestMetrics:      metrics.NewIngestMetrics(reg),
		DistributorMetrics: metrics.NewDistributorMetrics(reg),
		WidgetMetrics:      metrics.NewWidgetMetrics(reg),
		OnWidgetChange: func(bayID string, state widgets.State) {
			if state.Loading {
				return
			}
			wctx := logg.WithWidget(logg.WithBay(ctx, bayID), state.Widget)
			if state.Error {
				logg.Warn(logg.WithField(wctx, "message", state.ErrorMessage), "widget lookup failed")
				return
			}
			logg.Debug(logg.WithField(wctx, "parts", len(state.Parts)), "widget updated")
		},
	})
	requireResource(ctx, logg, "bay registry", err)

	server := &http.Server{
		Addr:              ":" + cfg.HTTP.Port,
		Handler:           routes.NewRouter(cfg, logg, registry, res.pingers(), promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		// Hijacked WebSocket streams are not closed by Shutdown; they end when
		// the service context is cancelled.
		BaseContext: func(net.Listener) context.Context { return ctx },
	}

	logg.Info(logg.WithFields(ctx, map[string]any{"addr": server.Addr, "bays": cfg.Bays.IDs}), "starting bay status service")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return registry.Run(gctx)
	})
	g.Go(func() error {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(gctx), cfg.HTTP.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	runErr := g.Wait()
	if errors.Is(runErr, context.Canceled) {
		runErr = nil
	}
	if err := multierr.Combine(runErr, res.Close()); err != nil {
		logg.Error(ctx, "bay status service stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "bay status service shut down gracefully")
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
