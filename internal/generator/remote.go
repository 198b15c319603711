package generator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/nathanyu/order-fanout/internal/fanout"
	"github.com/nathanyu/order-fanout/internal/telemetry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
)

const (
	DefaultRemoteTimeout = 1500 * time.Millisecond
	generatePath         = "/generate-order"
	maxResponseBytes     = 1 << 20
)

// RemoteExecutor asks the seed service for an order and fans it out
// locally, leaving out the stores the service reports it already wrote.
type RemoteExecutor struct {
	url    string
	client *http.Client
	writer Fanout
}

func NewRemoteExecutor(seedURL string, timeout time.Duration, w Fanout) *RemoteExecutor {
	if timeout <= 0 {
		timeout = DefaultRemoteTimeout
	}
	return &RemoteExecutor{
		url:    strings.TrimRight(seedURL, "/") + generatePath,
		client: &http.Client{Timeout: timeout},
		writer: w,
	}
}

func (e *RemoteExecutor) Name() string { return "remote" }

// Fetch requests one order. Any transport error or non-200 status wraps
// ErrRemoteUnavailable; an unusable body wraps ErrMalformedOrder.
func (e *RemoteExecutor) Fetch(ctx context.Context) (domain.Order, []string, error) {
	ctx, span := telemetry.Tracer.Start(ctx, "remote.generate_order")
	defer span.End()
	span.SetAttributes(attribute.String("http.url", e.url))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader([]byte("{}")))
	if err != nil {
		return domain.Order{}, nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := e.client.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "request failed")
		return domain.Order{}, nil, fmt.Errorf("%w: %v", domain.ErrRemoteUnavailable, err)
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
		span.SetStatus(codes.Error, resp.Status)
		return domain.Order{}, nil, fmt.Errorf("%w: status %d", domain.ErrRemoteUnavailable, resp.StatusCode)
	}

	var order domain.Order
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&order); err != nil {
		span.RecordError(err)
		return domain.Order{}, nil, fmt.Errorf("%w: %v", domain.ErrMalformedOrder, err)
	}
	if err := order.Validate(); err != nil {
		return domain.Order{}, nil, fmt.Errorf("decode remote order: %w", err)
	}
	return order, persistedStores(resp.Header.Get(fanout.StoresHeader)), nil
}

// RunOnce fetches and fans out one order. Without a writer the seed
// service is not called, so no ticket is spent on an order nobody stores.
func (e *RemoteExecutor) RunOnce(ctx context.Context) (fanout.Report, error) {
	if e.writer == nil {
		return fanout.Report{Source: e.Name()}, domain.ErrStoreNotConfigured
	}
	order, written, err := e.Fetch(ctx)
	if err != nil {
		return fanout.Report{}, err
	}
	return e.writer.Write(ctx, order, fanout.WithSource(e.Name()), fanout.Except(written...)), nil
}

func persistedStores(header string) []string {
	var stores []string
	for _, s := range strings.Split(header, ",") {
		if s = strings.TrimSpace(s); s != "" {
			stores = append(stores, s)
		}
	}
	return stores
}
