package generator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/telemetry"
)

// Preferred runs Primary and, when it fails, Fallback once for the same
// tick. Nothing is remembered between calls.
type Preferred struct {
	Primary  OrderGenerator
	Fallback OrderGenerator
}

func (p Preferred) RunOnce(ctx context.Context) (fanout.Report, error) {
	report, err := p.Primary.RunOnce(ctx)
	if err == nil {
		telemetry.GeneratorRunsTotal.WithLabelValues(executorName(p.Primary), "ok").Inc()
		return report, nil
	}
	telemetry.GeneratorRunsTotal.WithLabelValues(executorName(p.Primary), "error").Inc()
	telemetry.RemoteFallbacksTotal.Inc()
	slog.WarnContext(ctx, "remote generator unavailable, generating locally", "error", err)

	report, err = p.Fallback.RunOnce(ctx)
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	telemetry.GeneratorRunsTotal.WithLabelValues(executorName(p.Fallback), outcome).Inc()
	return report, err
}

func executorName(g OrderGenerator) string {
	if n, ok := g.(interface{ Name() string }); ok {
		return n.Name()
	}
	return fmt.Sprintf("%T", g)
}

const (
	DefaultBurst      = 5
	DefaultBurstDelay = 300 * time.Millisecond
	DefaultInterval   = 6 * time.Second
)

// Loop drives a generator: a short burst at startup, then one run per
// interval until the context is cancelled.
type Loop struct {
	Generator  OrderGenerator
	Burst      int
	BurstDelay time.Duration
	Interval   time.Duration
}

func (l *Loop) Run(ctx context.Context) {
	interval := l.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}

	slog.InfoContext(ctx, "generator loop started", "burst", l.Burst, "interval", interval)
	for i := range l.Burst {
		if i > 0 && !sleep(ctx, l.BurstDelay) {
			return
		}
		if ctx.Err() != nil {
			return
		}
		l.tick(ctx)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			slog.Info("generator loop stopped")
			return
		case <-ticker.C:
			l.tick(ctx)
		}
	}
}

func (l *Loop) tick(ctx context.Context) {
	defer func() {
		if p := recover(); p != nil {
			slog.ErrorContext(ctx, "generator run panicked", "panic", p)
		}
	}()
	report, err := l.Generator.RunOnce(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "generator run failed", "error", err)
		return
	}
	slog.DebugContext(ctx, "generator run finished",
		"tick_id", report.TickID,
		"ticket_id", report.TicketID,
		"failed", report.Count(fanout.StatusFailed))
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
