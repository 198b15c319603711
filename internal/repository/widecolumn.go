package repository

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"github.com/nathanyu/order-fanout/internal/domain"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	insertPurchaseHistory = `INSERT INTO historialcompra (idSucursal, fecha, ticket_num) VALUES (?, ?, ?)`

	createPurchaseHistory = `CREATE TABLE IF NOT EXISTS historialcompra (
		idSucursal bigint,
		fecha timestamp,
		ticket_num bigint,
		PRIMARY KEY (idSucursal, fecha)
	)`
)

// WideColumnRepository appends purchases to the Cassandra history table,
// partitioned by branch and clustered by timestamp. The session is created
// lazily so a cluster that comes up after startup is picked up on the
// next write.
type WideColumnRepository struct {
	cluster *gocql.ClusterConfig

	mu      sync.Mutex
	session *gocql.Session
}

func NewWideColumnRepository(cluster *gocql.ClusterConfig) *WideColumnRepository {
	return &WideColumnRepository{cluster: cluster}
}

func (r *WideColumnRepository) Name() string { return "widecolumn" }

// getSession dials outside the lock so a slow connect does not hold up
// concurrent writers. When two dials race, the first session stored wins.
func (r *WideColumnRepository) getSession() (*gocql.Session, error) {
	if r == nil || r.cluster == nil {
		return nil, domain.ErrStoreNotConfigured
	}
	r.mu.Lock()
	if r.session != nil && !r.session.Closed() {
		session := r.session
		r.mu.Unlock()
		return session, nil
	}
	r.mu.Unlock()

	session, err := r.cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("connect cassandra: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil && !r.session.Closed() {
		session.Close()
		return r.session, nil
	}
	r.session = session
	return session, nil
}

func (r *WideColumnRepository) Write(ctx context.Context, order domain.Order) error {
	session, err := r.getSession()
	if err != nil {
		return err
	}
	ctx, span := dbTracer.Start(ctx, "cassandra.insert_history",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "cassandra"),
			attribute.String("db.operation", "INSERT"),
			attribute.String("db.cassandra.table", "historialcompra"),
			attribute.Int64("branch_id", order.BranchID),
		))
	defer span.End()

	err = session.Query(insertPurchaseHistory, order.BranchID, order.Timestamp.Truncate(time.Second), order.TicketID).
		WithContext(ctx).
		Exec()
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert history for ticket %d: %w", order.TicketID, err)
	}
	return nil
}

// EnsureSchema creates the history table in the configured keyspace.
func (r *WideColumnRepository) EnsureSchema(ctx context.Context) error {
	session, err := r.getSession()
	if err != nil {
		return err
	}
	return session.Query(createPurchaseHistory).WithContext(ctx).Exec()
}

func (r *WideColumnRepository) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.session != nil {
		r.session.Close()
		r.session = nil
	}
}
