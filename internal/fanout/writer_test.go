package fanout

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	name  string
	err   error
	panic bool
	delay time.Duration
	block chan struct{}
	calls atomic.Int32
}

func (s *fakeSink) Name() string { return s.name }

func (s *fakeSink) Write(ctx context.Context, _ domain.Order) error {
	s.calls.Add(1)
	if s.panic {
		panic("boom")
	}
	if s.block != nil {
		<-s.block
	}
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.err
}

func testOrder() domain.Order {
	return domain.Order{
		TicketID:      42,
		BranchID:      3,
		ClientID:      7,
		Timestamp:     time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC),
		Total:         9.0,
		PaymentMethod: domain.PaymentCard,
		LineItems:     []domain.LineItem{{ProductID: 1, Quantity: 2, LineTotal: 9.0}},
	}
}

func fiveSinks() []*fakeSink {
	return []*fakeSink{
		{name: "document"},
		{name: "widecolumn"},
		{name: "inventory"},
		{name: "graph"},
		{name: "keyvalue"},
	}
}

func asSinks(fs []*fakeSink) []Sink {
	out := make([]Sink, len(fs))
	for i, f := range fs {
		out[i] = f
	}
	return out
}

func TestWriter_OneUnreachableStore(t *testing.T) {
	for i := range 5 {
		sinks := fiveSinks()
		sinks[i].err = errors.New("connection refused")
		w := NewWriter(time.Second, asSinks(sinks)...)

		report := w.Write(context.Background(), testOrder())

		require.Len(t, report.Results, 5)
		assert.Equal(t, 4, report.Count(StatusSuccess), "failing sink %s", sinks[i].name)
		assert.Equal(t, 1, report.Count(StatusFailed))
		assert.Equal(t, []string{sinks[i].name}, report.Stores(StatusFailed))
		for _, s := range sinks {
			assert.Equal(t, int32(1), s.calls.Load(), "sink %s", s.name)
		}
	}
}

func TestWriter_PanickingSinkIsContained(t *testing.T) {
	sinks := fiveSinks()
	sinks[2].panic = true
	w := NewWriter(time.Second, asSinks(sinks)...)

	var report Report
	assert.NotPanics(t, func() {
		report = w.Write(context.Background(), testOrder())
	})

	res, ok := report.Result("inventory")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, res.Status)
	assert.Contains(t, res.Error, "panic")
	assert.Equal(t, 4, report.Count(StatusSuccess))
}

func TestWriter_SlowSinkTimesOut(t *testing.T) {
	sinks := fiveSinks()
	sinks[1].delay = time.Second
	w := NewWriter(20*time.Millisecond, asSinks(sinks)...)

	start := time.Now()
	report := w.Write(context.Background(), testOrder())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	res, _ := report.Result("widecolumn")
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
}

func TestWriter_SinkIgnoringContextIsAbandoned(t *testing.T) {
	sinks := fiveSinks()
	sinks[1].block = make(chan struct{})
	defer close(sinks[1].block)
	w := NewWriter(20*time.Millisecond, asSinks(sinks)...)

	start := time.Now()
	report := w.Write(context.Background(), testOrder())

	assert.Less(t, time.Since(start), 500*time.Millisecond)
	res, _ := report.Result("widecolumn")
	assert.Equal(t, StatusFailed, res.Status)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Equal(t, 4, report.Count(StatusSuccess))
}

func TestWriter_SkippedResults(t *testing.T) {
	sinks := fiveSinks()
	sinks[0].err = domain.ErrStoreNotConfigured
	sinks[2].err = Skip("order has no catalog products")
	w := NewWriter(time.Second, asSinks(sinks)...)

	report := w.Write(context.Background(), testOrder())

	assert.Equal(t, 2, report.Count(StatusSkipped))
	res, _ := report.Result("inventory")
	assert.Equal(t, "order has no catalog products", res.Reason)
	res, _ = report.Result("document")
	assert.Equal(t, "store not configured", res.Reason)
}

func TestWriter_Except(t *testing.T) {
	sinks := fiveSinks()
	w := NewWriter(time.Second, asSinks(sinks)...)

	report := w.Write(context.Background(), testOrder(), Except("document", "keyvalue"), WithSource("remote"))

	assert.Equal(t, "remote", report.Source)
	assert.Equal(t, int32(0), sinks[0].calls.Load())
	assert.Equal(t, int32(0), sinks[4].calls.Load())
	assert.Equal(t, []string{"document", "keyvalue"}, report.Stores(StatusSkipped))
	assert.Equal(t, 3, report.Count(StatusSuccess))
}

func TestWriter_Latest(t *testing.T) {
	w := NewWriter(time.Second, asSinks(fiveSinks())...)

	_, ok := w.Latest()
	assert.False(t, ok)

	report := w.Write(context.Background(), testOrder())
	latest, ok := w.Latest()
	require.True(t, ok)
	assert.Equal(t, report.TickID, latest.TickID)
	assert.Equal(t, int64(42), latest.TicketID)
	assert.Equal(t, []string{"document", "widecolumn", "inventory", "graph", "keyvalue"}, w.Names())
}
