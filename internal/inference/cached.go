package inference

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"transit-backend/internal/cache"
)

// CachedTransport caches normalized replies for catalog targets so repeated
// analyses of the same star skip the engine entirely. Upload requests pass
// straight through: their series have no stable identity. Cache failures are
// logged and ignored; the engine remains the source of truth.
type CachedTransport struct {
	next  Transport
	cache cache.Cache
	ttl   time.Duration
}

var _ Transport = (*CachedTransport)(nil)

func NewCachedTransport(next Transport, c cache.Cache, ttl time.Duration) *CachedTransport {
	return &CachedTransport{next: next, cache: c, ttl: ttl}
}

func (t *CachedTransport) Infer(ctx context.Context, req Request) (*Reply, error) {
	if req.TicID == "" {
		return t.next.Infer(ctx, req)
	}

	key := cache.ReplyKey(req.TicID)

	if data, ok, err := t.cache.Get(ctx, key); err != nil {
		slog.Warn("error reading inference reply cache", "tic_id", req.TicID, "error", err)
	} else if ok {
		var reply Reply
		if err := json.Unmarshal(data, &reply); err == nil {
			slog.Info("inference reply cache hit", "tic_id", req.TicID)
			return &reply, nil
		}
		slog.Warn("discarding unreadable cached reply", "tic_id", req.TicID)
	}

	reply, err := t.next.Infer(ctx, req)
	if err != nil {
		return nil, err
	}

	if data, err := json.Marshal(reply); err == nil {
		if err := t.cache.Set(ctx, key, data, t.ttl); err != nil {
			slog.Warn("error writing inference reply cache", "tic_id", req.TicID, "error", err)
		}
	}

	return reply, nil
}
