package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/nathanyu/order-fanout/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const TicketCollection = "ticket"

type ticketDocument struct {
	ID            primitive.ObjectID `bson:"_id"`
	TicketID      int64              `bson:"ticket_id"`
	BranchID      int64              `bson:"sucursal_id"`
	ClientID      int64              `bson:"cliente_id"`
	Timestamp     time.Time          `bson:"fecha"`
	Total         float64            `bson:"total"`
	PaymentMethod string             `bson:"metodo_pago"`
	PromotionID   *int64             `bson:"promocion_id"`
	Details       []ticketDetail     `bson:"detalles"`
}

type ticketDetail struct {
	ProductID *int64  `bson:"product_id"`
	Quantity  int     `bson:"cantidad"`
	LineTotal float64 `bson:"precio"`
	Name      string  `bson:"nombre,omitempty"`
}

func newTicketDocument(order domain.Order) ticketDocument {
	details := make([]ticketDetail, 0, len(order.LineItems))
	for _, li := range order.LineItems {
		d := ticketDetail{Quantity: li.Quantity, LineTotal: li.LineTotal, Name: li.Name}
		if li.HasProduct() {
			id := li.ProductID
			d.ProductID = &id
		}
		details = append(details, d)
	}
	return ticketDocument{
		ID:            primitive.NewObjectID(),
		TicketID:      order.TicketID,
		BranchID:      order.BranchID,
		ClientID:      order.ClientID,
		Timestamp:     order.Timestamp,
		Total:         order.Total,
		PaymentMethod: string(order.PaymentMethod),
		PromotionID:   order.PromotionID,
		Details:       details,
	}
}

// DocumentRepository stores one document per ticket in MongoDB.
type DocumentRepository struct {
	coll *mongo.Collection
}

func NewDocumentRepository(coll *mongo.Collection) *DocumentRepository {
	return &DocumentRepository{coll: coll}
}

func (r *DocumentRepository) Name() string { return "document" }

func (r *DocumentRepository) Write(ctx context.Context, order domain.Order) error {
	if r == nil || r.coll == nil {
		return domain.ErrStoreNotConfigured
	}
	ctx, span := dbTracer.Start(ctx, "mongo.insert_ticket",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "mongodb"),
			attribute.String("db.operation", "insert"),
			attribute.String("db.mongodb.collection", r.coll.Name()),
			attribute.Int64("ticket_id", order.TicketID),
		))
	defer span.End()

	if _, err := r.coll.InsertOne(ctx, newTicketDocument(order)); err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert ticket %d: %w", order.TicketID, err)
	}
	return nil
}

// EnsureIndexes creates the reporting indexes on the ticket collection.
func (r *DocumentRepository) EnsureIndexes(ctx context.Context) error {
	if r == nil || r.coll == nil {
		return domain.ErrStoreNotConfigured
	}
	_, err := r.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "sucursal_id", Value: 1}, {Key: "fecha", Value: -1}},
			Options: options.Index().SetName("idx_sucursal_fecha"),
		},
		{
			Keys:    bson.D{{Key: "cliente_id", Value: 1}},
			Options: options.Index().SetName("idx_cliente_id"),
		},
	})
	if err != nil {
		return fmt.Errorf("create ticket indexes: %w", err)
	}
	return nil
}
