package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/neo4j/neo4j-go-driver/v5/neo4j"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const (
	mergeClient = `
		MERGE (c:Cliente {id: $client_id})
		SET c.last_seen = $ts, c.name = coalesce(c.name, $name)`

	mergePurchases = `
		MATCH (c:Cliente {id: $client_id})
		UNWIND $items AS item
		MERGE (p:Producto {id: item.product_id})
		SET p.nombre = coalesce(p.nombre, item.nombre)
		CREATE (c)-[:COMPRO {ticket_id: $ticket_id, fecha: $ts, cantidad: item.cantidad}]->(p)`
)

// GraphRepository records who bought what in Neo4j. Every write opens its
// own session since sessions are not safe for concurrent use.
type GraphRepository struct {
	driver neo4j.DriverWithContext
}

func NewGraphRepository(driver neo4j.DriverWithContext) *GraphRepository {
	return &GraphRepository{driver: driver}
}

func (r *GraphRepository) Name() string { return "graph" }

func graphParams(order domain.Order) map[string]any {
	items := make([]any, 0, len(order.LineItems))
	for _, li := range order.KnownItems() {
		items = append(items, map[string]any{
			"product_id": li.ProductID,
			"nombre":     li.Name,
			"cantidad":   int64(li.Quantity),
		})
	}
	return map[string]any{
		"client_id": order.ClientID,
		"ticket_id": order.TicketID,
		"ts":        order.Timestamp.Format(time.RFC3339),
		"name":      fmt.Sprintf("Cliente %d", order.ClientID),
		"items":     items,
	}
}

func (r *GraphRepository) Write(ctx context.Context, order domain.Order) error {
	if r == nil || r.driver == nil {
		return domain.ErrStoreNotConfigured
	}
	ctx, span := dbTracer.Start(ctx, "neo4j.merge_purchase",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "neo4j"),
			attribute.String("db.operation", "MERGE"),
			attribute.Int64("client_id", order.ClientID),
		))
	defer span.End()

	session := r.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer session.Close(ctx)

	params := graphParams(order)
	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		if _, err := tx.Run(ctx, mergeClient, params); err != nil {
			return nil, err
		}
		if items, _ := params["items"].([]any); len(items) > 0 {
			if _, err := tx.Run(ctx, mergePurchases, params); err != nil {
				return nil, err
			}
		}
		return nil, nil
	})
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("merge purchase for client %d: %w", order.ClientID, err)
	}
	return nil
}
