package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/huddle-bot/huddle/internal/metrics"
)

const defaultDispatchTimeout = 15 * time.Second

// Async runs a Dispatcher in the background with a timeout. Dispatch always
// returns nil; failures are logged and counted.
type Async struct {
	next    Dispatcher
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewAsync(next Dispatcher, timeout time.Duration) *Async {
	if timeout <= 0 {
		timeout = defaultDispatchTimeout
	}
	return &Async{next: next, timeout: timeout}
}

func (a *Async) Dispatch(ctx context.Context, n Notice) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.timeout)
		defer cancel()

		start := time.Now()
		if err := a.next.Dispatch(ctx, n); err != nil {
			metrics.DispatchFailures.Inc()
			slog.Error("Notification dispatch failed",
				slog.String("type", "error"),
				slog.String("event_id", n.EventID.String()),
				slog.String("kind", string(n.Kind)),
				slog.Int("participants", len(n.Participants)),
				slog.Duration("took", time.Since(start)),
				slog.Any("error", err),
			)
			return
		}
		slog.Info("Notification dispatched",
			slog.String("type", "sys"),
			slog.String("event_id", n.EventID.String()),
			slog.String("kind", string(n.Kind)),
			slog.Int("participants", len(n.Participants)),
			slog.Duration("took", time.Since(start)),
		)
	}()
	return nil
}

// Wait blocks until every pending dispatch has finished.
func (a *Async) Wait() {
	a.wg.Wait()
}
