package fanout

import (
	"errors"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
)

// Status is the outcome of one store write.
type Status string

const (
	StatusSuccess Status = "success"
	StatusSkipped Status = "skipped"
	StatusFailed  Status = "failed"
)

// SkipError tells the writer that a sink deliberately did nothing.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skipped: " + e.Reason }

// Skip returns an error that the writer records as a skipped write.
func Skip(reason string) error {
	return &SkipError{Reason: reason}
}

// Result records what happened to one store for one order.
type Result struct {
	Store    string        `json:"store"`
	Status   Status        `json:"status"`
	Reason   string        `json:"reason,omitempty"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`

	Err error `json:"-"`
}

func classify(store string, err error, took time.Duration) Result {
	res := Result{Store: store, Duration: took}
	var skip *SkipError
	switch {
	case err == nil:
		res.Status = StatusSuccess
	case errors.As(err, &skip):
		res.Status = StatusSkipped
		res.Reason = skip.Reason
	case errors.Is(err, domain.ErrStoreNotConfigured):
		res.Status = StatusSkipped
		res.Reason = domain.ErrStoreNotConfigured.Error()
	default:
		res.Status = StatusFailed
		res.Error = err.Error()
		res.Err = err
	}
	return res
}

// Report aggregates the per-store results of one fanout.
type Report struct {
	TickID    string    `json:"tick_id"`
	TicketID  int64     `json:"ticket_id"`
	Source    string    `json:"source"`
	StartedAt time.Time `json:"started_at"`
	Results   []Result  `json:"results"`
}

// Count returns how many stores ended with the given status.
func (r Report) Count(status Status) int {
	n := 0
	for _, res := range r.Results {
		if res.Status == status {
			n++
		}
	}
	return n
}

// Stores returns the names of the stores that ended with the given status.
func (r Report) Stores(status Status) []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == status {
			names = append(names, res.Store)
		}
	}
	return names
}

// Result returns the result recorded for a store.
func (r Report) Result(store string) (Result, bool) {
	for _, res := range r.Results {
		if res.Store == store {
			return res, true
		}
	}
	return Result{}, false
}
