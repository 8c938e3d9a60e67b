package redis_test

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/aretw0/arbor/pkg/adapters/redis"
	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/ports"
	backend "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newClient(t *testing.T) (*miniredis.Miniredis, *backend.Client) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("Failed to start miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	client := backend.NewClient(&backend.Options{
		Addr: mr.Addr(),
	})
	t.Cleanup(func() { _ = client.Close() })
	return mr, client
}

func TestRedisSink_Contract(t *testing.T) {
	_, client := newClient(t)
	ports.RunTraceSinkContract(t, redis.NewFromClient(client))
}

func TestRedisSink_StreamKey(t *testing.T) {
	mr, client := newClient(t)
	sink := redis.NewFromClient(client, redis.WithStream("custom:trace"))

	err := sink.Publish(context.Background(), domain.TraceRecord{Type: domain.HookDispatch, State: "waiting"})
	require.NoError(t, err)

	assert.True(t, mr.Exists("custom:trace"), "Expected stream with custom key to exist")
	assert.False(t, mr.Exists("arbor:trace"))
}

func TestRedisSink_MaxLen(t *testing.T) {
	_, client := newClient(t)
	sink := redis.NewFromClient(client, redis.WithMaxLen(3), redis.WithExactTrim())
	ctx := context.Background()

	for _, id := range []domain.StateID{"a", "b", "c", "d", "e"} {
		require.NoError(t, sink.Publish(ctx, domain.TraceRecord{State: id}))
	}

	n, err := client.XLen(ctx, "arbor:trace").Result()
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	recs, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Equal(t, domain.StateID("c"), recs[0].State)
	assert.Equal(t, domain.StateID("e"), recs[2].State)
}
