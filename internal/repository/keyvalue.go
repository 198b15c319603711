package repository

import (
	"context"
	"fmt"

	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/redis/go-redis/v9"
)

const TicketCounterKey = "counter:tickets"

// LastTicketKey is the Redis key holding the latest ticket of a branch.
func LastTicketKey(branchID int64) string {
	return fmt.Sprintf("last_ticket:sucursal:%d", branchID)
}

// KeyValueRepository keeps per-branch last-ticket pointers and a running
// ticket counter in Redis.
type KeyValueRepository struct {
	client *redis.Client
}

func NewKeyValueRepository(client *redis.Client) *KeyValueRepository {
	return &KeyValueRepository{client: client}
}

func (r *KeyValueRepository) Name() string { return "keyvalue" }

func (r *KeyValueRepository) Write(ctx context.Context, order domain.Order) error {
	if r == nil || r.client == nil {
		return domain.ErrStoreNotConfigured
	}
	// SET last_ticket:sucursal:<id> <ticket>; INCR counter:tickets
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, LastTicketKey(order.BranchID), order.TicketID, 0)
		pipe.Incr(ctx, TicketCounterKey)
		return nil
	})
	if err != nil {
		return fmt.Errorf("update ticket keys for branch %d: %w", order.BranchID, err)
	}
	return nil
}
