package fanout

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const DefaultTimeout = 5 * time.Second

// StoresHeader carries a comma separated list of stores that already hold
// an order returned by the seed endpoint.
const StoresHeader = "X-Fanout-Stores"

// Sink is one store an order is propagated into.
type Sink interface {
	Name() string
	Write(ctx context.Context, order domain.Order) error
}

// Writer propagates an order into every sink concurrently. Sinks are
// independent: a failing, slow or panicking sink never stops the others,
// and nothing is rolled back.
type Writer struct {
	sinks   []Sink
	timeout time.Duration

	mu     sync.RWMutex
	latest *Report
}

func NewWriter(timeout time.Duration, sinks ...Sink) *Writer {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Writer{sinks: sinks, timeout: timeout}
}

type writeOptions struct {
	except map[string]bool
	source string
}

type WriteOption func(*writeOptions)

// Except skips the named sinks, e.g. stores another process already wrote.
func Except(names ...string) WriteOption {
	return func(o *writeOptions) {
		for _, n := range names {
			o.except[n] = true
		}
	}
}

// WithSource tags the report with where the order came from.
func WithSource(source string) WriteOption {
	return func(o *writeOptions) {
		o.source = source
	}
}

// Names returns the sink names in write order.
func (w *Writer) Names() []string {
	names := make([]string, 0, len(w.sinks))
	for _, s := range w.sinks {
		names = append(names, s.Name())
	}
	return names
}

// Write fans the order out and returns one result per sink.
func (w *Writer) Write(ctx context.Context, order domain.Order, opts ...WriteOption) Report {
	o := writeOptions{except: make(map[string]bool), source: "local"}
	for _, opt := range opts {
		opt(&o)
	}

	ctx, span := telemetry.Tracer.Start(ctx, "fanout.write")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("ticket_id", order.TicketID),
		attribute.String("source", o.source),
	)

	report := Report{
		TickID:    uuid.NewString(),
		TicketID:  order.TicketID,
		Source:    o.source,
		StartedAt: time.Now().UTC(),
		Results:   make([]Result, len(w.sinks)),
	}

	var wg sync.WaitGroup
	for i, sink := range w.sinks {
		if o.except[sink.Name()] {
			report.Results[i] = Result{Store: sink.Name(), Status: StatusSkipped, Reason: "written by remote generator"}
			continue
		}
		wg.Add(1)
		go func(i int, sink Sink) {
			defer wg.Done()
			report.Results[i] = w.writeOne(ctx, sink, order)
		}(i, sink)
	}
	wg.Wait()

	for _, res := range report.Results {
		telemetry.SinkWritesTotal.WithLabelValues(res.Store, string(res.Status)).Inc()
		if res.Status == StatusFailed {
			slog.WarnContext(ctx, "fanout write failed",
				"store", res.Store, "ticket_id", order.TicketID, "error", res.Error)
		}
	}
	span.SetAttributes(
		attribute.Int("fanout.success", report.Count(StatusSuccess)),
		attribute.Int("fanout.failed", report.Count(StatusFailed)),
	)
	slog.InfoContext(ctx, "order fanned out",
		"tick_id", report.TickID,
		"ticket_id", order.TicketID,
		"source", o.source,
		"success", report.Stores(StatusSuccess),
		"skipped", report.Stores(StatusSkipped),
		"failed", report.Stores(StatusFailed))

	w.mu.Lock()
	w.latest = &report
	w.mu.Unlock()

	return report
}

// writeOne waits for the sink or the timeout, whichever comes first. A sink
// that ignores its context keeps running in the background; its result is
// dropped.
func (w *Writer) writeOne(ctx context.Context, sink Sink, order domain.Order) Result {
	start := time.Now()
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- fmt.Errorf("panic: %v", p)
			}
		}()
		done <- sink.Write(ctx, order)
	}()

	var err error
	select {
	case err = <-done:
	case <-ctx.Done():
		err = fmt.Errorf("write to %s abandoned: %w", sink.Name(), ctx.Err())
	}
	res := classify(sink.Name(), err, time.Since(start))
	telemetry.SinkWriteDuration.WithLabelValues(sink.Name()).Observe(res.Duration.Seconds())
	return res
}

// Latest returns the most recent report.
func (w *Writer) Latest() (Report, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	if w.latest == nil {
		return Report{}, false
	}
	return *w.latest, true
}
