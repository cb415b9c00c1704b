package inference

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"transit-backend/internal/cache"
)

type countingTransport struct {
	reply *Reply
	err   error
	calls int
}

func (t *countingTransport) Infer(ctx context.Context, req Request) (*Reply, error) {
	t.calls++
	if t.err != nil {
		return nil, t.err
	}
	return t.reply, nil
}

func TestCachedTransportReusesCatalogReplies(t *testing.T) {
	next := &countingTransport{reply: &Reply{Score: 0.87, PeriodDays: 3.5}}
	cached := NewCachedTransport(next, cache.NewMemoryCache(), time.Hour)

	req := Request{TicID: "123", Time: []float64{1, 2}, Flux: []float64{1, 1}}

	first, err := cached.Infer(context.Background(), req)
	require.NoError(t, err)

	second, err := cached.Infer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 1, next.calls)
	assert.Equal(t, first.Score, second.Score)
	assert.Equal(t, first.PeriodDays, second.PeriodDays)
}

func TestCachedTransportKeysByTicID(t *testing.T) {
	next := &countingTransport{reply: &Reply{Score: 0.5}}
	cached := NewCachedTransport(next, cache.NewMemoryCache(), time.Hour)

	_, err := cached.Infer(context.Background(), Request{TicID: "1"})
	require.NoError(t, err)
	_, err = cached.Infer(context.Background(), Request{TicID: "2"})
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedTransportBypassesUploads(t *testing.T) {
	next := &countingTransport{reply: &Reply{Score: 0.5}}
	cached := NewCachedTransport(next, cache.NewMemoryCache(), time.Hour)

	req := Request{Time: []float64{1, 2}, Flux: []float64{1, 1}}

	_, err := cached.Infer(context.Background(), req)
	require.NoError(t, err)
	_, err = cached.Infer(context.Background(), req)
	require.NoError(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedTransportDoesNotCacheFailures(t *testing.T) {
	next := &countingTransport{err: errors.New("engine down")}
	cached := NewCachedTransport(next, cache.NewMemoryCache(), time.Hour)

	_, err := cached.Infer(context.Background(), Request{TicID: "123"})
	require.Error(t, err)
	_, err = cached.Infer(context.Background(), Request{TicID: "123"})
	require.Error(t, err)

	assert.Equal(t, 2, next.calls)
}

func TestCachedTransportSurvivesCacheErrors(t *testing.T) {
	next := &countingTransport{reply: &Reply{Score: 0.5}}
	cached := NewCachedTransport(next, &brokenCache{}, time.Hour)

	reply, err := cached.Infer(context.Background(), Request{TicID: "123"})

	require.NoError(t, err)
	assert.Equal(t, 0.5, reply.Score)
}

type brokenCache struct{}

func (c *brokenCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return errors.New("cache unavailable")
}

func (c *brokenCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	return nil, false, errors.New("cache unavailable")
}

func (c *brokenCache) Delete(ctx context.Context, key string) error { return errors.New("cache unavailable") }

func (c *brokenCache) Ping(ctx context.Context) error { return errors.New("cache unavailable") }
