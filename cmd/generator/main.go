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

	"github.com/nathanyu/order-fanout/internal/clock"
	"github.com/nathanyu/order-fanout/internal/composer"
	"github.com/nathanyu/order-fanout/internal/config"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/generator"
	"github.com/nathanyu/order-fanout/internal/handler"
	"github.com/nathanyu/order-fanout/internal/repository"
	"github.com/nathanyu/order-fanout/internal/sequence"
	"github.com/nathanyu/order-fanout/internal/telemetry"
)

const serviceName = "order-generator"

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	adminPort := flag.Int("admin-port", cfg.Generator.AdminPort, "Admin server port (health, metrics, reports)")
	seedURL := flag.String("seed-url", cfg.Generator.SeedURL, "Seed service base URL; empty generates locally only")
	localOnly := flag.Bool("local", false, "Skip the seed service and always generate locally")
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	slog.Info("starting order generator")

	stores := repository.Connect(ctx, cfg)
	defer stores.Close(context.Background())

	if cfg.Generator.BootstrapSchema {
		stores.EnsureSchema(ctx)
	}
	if cfg.Generator.SeedCatalog {
		if err := stores.Seeder().Seed(ctx); err != nil {
			slog.Warn("catalog seeding incomplete", "error", err)
		}
	}

	clk := clock.NewSystem()
	writer := fanout.NewWriter(cfg.SinkTimeout, stores.Sinks(cfg.NATS.Subject)...)
	comp := composer.New(
		composer.WithClock(clk),
		composer.WithFallbackRanges(
			composer.Range{Min: cfg.Generator.FallbackClientMin, Max: cfg.Generator.FallbackClientMax},
			composer.Range{Min: cfg.Generator.FallbackBranchMin, Max: cfg.Generator.FallbackBranchMax},
		),
	)
	allocator := sequence.NewAllocator(stores.Redis, cfg.Redis.TicketKey, clk)
	local := generator.NewLocalExecutor(allocator, stores.Catalog(), comp, writer)

	var gen generator.OrderGenerator = local
	if !*localOnly && *seedURL != "" {
		gen = generator.Preferred{
			Primary:  generator.NewRemoteExecutor(*seedURL, cfg.Generator.RemoteTimeout, writer),
			Fallback: local,
		}
		slog.Info("remote generation enabled", "seed_url", *seedURL, "timeout", cfg.Generator.RemoteTimeout)
	}

	adminSrv := &http.Server{
		Addr:         fmt.Sprintf(":%d", *adminPort),
		Handler:      handler.NewAdminHandler(writer).Router(serviceName),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}
	go func() {
		slog.Info("admin server listening", "port", *adminPort)
		if err := adminSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("admin server error", "error", err)
		}
	}()

	loop := &generator.Loop{
		Generator:  gen,
		Burst:      cfg.Generator.Burst,
		BurstDelay: cfg.Generator.BurstDelay,
		Interval:   cfg.Generator.Interval,
	}
	loop.Run(ctx)

	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := adminSrv.Shutdown(shutdownCtx); err != nil {
		slog.Error("admin server forced to shutdown", "error", err)
	}

	slog.Info("generator stopped")
}
