package chat

import (
	"context"
	"time"

	"NovaCS/internal/lib/sl"
)

// pollLoop is the resilience backstop behind the push channel: every
// tick it refetches the full conversation and merges. Missed or
// reordered push events heal within one interval. Failures are logged
// and retried on the next tick, never surfaced.
func (e *Engine) pollLoop(ctx context.Context) {
	ticker := time.NewTicker(e.pollInterval)
	defer ticker.Stop()

	for {
		e.pollOnce(ctx)
		select {
		case <-ticker.C:
		case <-e.done:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (e *Engine) pollOnce(ctx context.Context) {
	msgs, err := e.gw.ListMessages(ctx, e.conversationID)
	if err != nil {
		e.log.Debug("poll failed, retrying next tick", sl.Err(err))
		return
	}
	// apply fails only when the engine closed while the fetch was in
	// flight; the stale result is discarded, not merged.
	e.apply(func() { e.ingest(msgs...) })
}
