package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/nathanyu/order-fanout/internal/domain"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyValue_WritesPointerAndCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	repo := NewKeyValueRepository(client)
	ctx := context.Background()

	require.NoError(t, repo.Write(ctx, domain.Order{TicketID: 100, BranchID: 3}))
	require.NoError(t, repo.Write(ctx, domain.Order{TicketID: 101, BranchID: 3}))
	require.NoError(t, repo.Write(ctx, domain.Order{TicketID: 102, BranchID: 4}))

	last, err := mr.Get(LastTicketKey(3))
	require.NoError(t, err)
	assert.Equal(t, "101", last)

	last, err = mr.Get(LastTicketKey(4))
	require.NoError(t, err)
	assert.Equal(t, "102", last)

	count, err := mr.Get(TicketCounterKey)
	require.NoError(t, err)
	assert.Equal(t, "3", count)
}

func TestKeyValue_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { client.Close() })
	mr.Close()

	err := NewKeyValueRepository(client).Write(context.Background(), domain.Order{TicketID: 1, BranchID: 9})
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "branch 9")
}

func TestLastTicketKey(t *testing.T) {
	assert.Equal(t, "last_ticket:sucursal:12", LastTicketKey(12))
}
