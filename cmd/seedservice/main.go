package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nathanyu/order-fanout/internal/clock"
	"github.com/nathanyu/order-fanout/internal/composer"
	"github.com/nathanyu/order-fanout/internal/config"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/generator"
	"github.com/nathanyu/order-fanout/internal/handler"
	"github.com/nathanyu/order-fanout/internal/middleware"
	"github.com/nathanyu/order-fanout/internal/repository"
	"github.com/nathanyu/order-fanout/internal/sequence"
	"github.com/nathanyu/order-fanout/internal/telemetry"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const serviceName = "seed-service"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	port := flag.Int("port", cfg.Seed.Port, "HTTP server port")
	metricsPort := flag.Int("metrics-port", cfg.MetricsPort, "Metrics server port")
	persist := flag.Bool("persist", cfg.Seed.Persist, "Fan generated orders out before returning them")
	ginMode := flag.String("gin-mode", cfg.Seed.GinMode, "Gin mode (debug/release)")
	flag.Parse()

	telemetry.InitLogger(serviceName, cfg.LogLevel)

	if cfg.OTLPEnabled {
		cleanup, err := telemetry.InitTracer(serviceName, cfg.OTLPEndpoint, cfg.Environment)
		if err != nil {
			slog.Warn("failed to initialize tracer", "error", err)
		} else {
			defer cleanup()
		}
	}

	gin.SetMode(*ginMode)

	ctx := context.Background()
	stores := repository.Connect(ctx, cfg)
	defer stores.Close(context.Background())

	clk := clock.NewSystem()
	comp := composer.New(
		composer.WithClock(clk),
		composer.WithFallbackRanges(
			composer.Range{Min: cfg.Generator.FallbackClientMin, Max: cfg.Generator.FallbackClientMax},
			composer.Range{Min: cfg.Generator.FallbackBranchMin, Max: cfg.Generator.FallbackBranchMax},
		),
	)
	allocator := sequence.NewAllocator(stores.Redis, cfg.Redis.TicketKey, clk)

	var persister handler.Persister
	if *persist {
		persister = fanout.NewWriter(cfg.SinkTimeout, stores.Sinks(cfg.NATS.Subject)...)
		slog.Info("seed service persists generated orders")
	}
	source := generator.NewLocalExecutor(allocator, stores.Catalog(), comp, nil)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.Tracing())
	router.Use(middleware.Metrics())
	handler.NewSeedHandler(source, persister).RegisterRoutes(router)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", promhttp.Handler())
	metricsSrv := &http.Server{
		Addr:    fmt.Sprintf(":%d", *metricsPort),
		Handler: metricsMux,
	}

	go func() {
		slog.Info("HTTP server listening", "port", *port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("HTTP server error", "error", err)
			os.Exit(1)
		}
	}()

	go func() {
		slog.Info("metrics server listening", "port", *metricsPort)
		if err := metricsSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("HTTP server forced to shutdown", "error", err)
	}
	if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server forced to shutdown", "error", err)
	}

	slog.Info("service stopped")
}
