package inbox

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/Kassie406/familyvault-app-sub005/internal/shared/telemetry"
)

const defaultPollInterval = 5 * time.Second

// Poller refreshes the inbox from the remote listing while the review surface
// is open. Polling is tied to the surface lifecycle: Open starts it, Close
// stops it. Terminal local statuses are never overwritten by polled data.
type Poller struct {
	Remote   Remote
	Store    Store
	Interval time.Duration

	mu     sync.Mutex
	cancel context.CancelFunc
}

// Open starts the refresh loop for a user's review surface. Calling Open on
// an already-open poller restarts the loop.
func (p *Poller) Open(ctx context.Context, userID string) {
	interval := p.Interval
	if interval <= 0 {
		interval = defaultPollInterval
	}

	p.mu.Lock()
	if p.cancel != nil {
		p.cancel()
	}
	loopCtx, cancel := context.WithCancel(ctx)
	p.cancel = cancel
	p.mu.Unlock()

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
				p.refresh(loopCtx, userID)
			}
		}
	}()
}

// Close stops the refresh loop. Safe to call when the poller is not open.
func (p *Poller) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

func (p *Poller) refresh(ctx context.Context, userID string) {
	items, err := p.Remote.ListItems(ctx, userID)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return
		}
		telemetry.Error("inbox.poll", map[string]any{
			"user_id": userID,
			"error":   err.Error(),
		})
		return
	}

	for _, remote := range items {
		local, err := p.Store.Get(ctx, remote.DocumentID)
		if errors.Is(err, ErrNotFound) {
			remote.UserID = userID
			if err := p.Store.Upsert(ctx, remote); err != nil {
				continue
			}
			local, err = p.Store.Get(ctx, remote.DocumentID)
		}
		if err != nil || local.Status.Terminal() {
			continue
		}
		if remote.Suggestion != nil && local.Suggestion == nil {
			// ErrTerminal here means a dismissal raced the poll; drop it.
			_ = p.Store.SetSuggestion(ctx, remote.DocumentID, *remote.Suggestion)
		}
	}
}
