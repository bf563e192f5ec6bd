package session

import (
	"context"
	"log/slog"
	"time"
)

const sweepInterval = 5 * time.Minute

// EvictCallback is called once per session evicted by the sweeper.
type EvictCallback func(id string)

// StartSweeper runs a background goroutine that periodically removes
// sessions idle longer than ttl. It stops when ctx is canceled.
func StartSweeper(ctx context.Context, store Store, ttl time.Duration, onEvict EvictCallback) {
	ticker := time.NewTicker(sweepInterval)
	go func() {
		defer ticker.Stop()
		slog.Info("Session sweeper started", "interval", sweepInterval, "ttl", ttl)

		for {
			select {
			case <-ticker.C:
				evicted := store.EvictIdle(time.Now().Add(-ttl))
				if len(evicted) == 0 {
					continue
				}
				slog.Info("Evicted idle sessions", "count", len(evicted))
				if onEvict != nil {
					for _, id := range evicted {
						onEvict(id)
					}
				}
			case <-ctx.Done():
				slog.Info("Session sweeper shutting down", "reason", ctx.Err())
				return
			}
		}
	}()
}
