package jobs

import (
	"context"

	"vcar-client/internal/domain"
	"vcar-client/internal/logger"
)

// Sink receives notifications the poller has not reported before.
type Sink interface {
	Deliver(n domain.Notification)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(n domain.Notification)

func (f SinkFunc) Deliver(n domain.Notification) { f(n) }

// PollNotifications fetches the newest page of notifications and delivers the
// unseen ones, oldest first.
func (jr *JobRunner) PollNotifications() {
	jr.PollNotificationsContext(context.Background())
}

func (jr *JobRunner) PollNotificationsContext(ctx context.Context) {
	jr.runWithRecovery("PollNotifications", func() {
		page, err := jr.notifications.List(ctx, 0, jr.config.Notifications.PageSize)
		if err != nil {
			logger.Error("Failed to poll notifications", "error", err)
			return
		}

		fresh := jr.markSeen(page.Items)
		for i := len(fresh) - 1; i >= 0; i-- {
			jr.sink.Deliver(fresh[i])
		}

		logger.Info("Notifications polled", "fetched", len(page.Items), "new", len(fresh))
	})
}

// markSeen records ids and returns the notifications not recorded before.
func (jr *JobRunner) markSeen(items []domain.Notification) []domain.Notification {
	jr.mu.Lock()
	defer jr.mu.Unlock()

	var fresh []domain.Notification
	for _, n := range items {
		if _, ok := jr.seen[n.ID]; ok {
			continue
		}
		jr.seen[n.ID] = struct{}{}
		fresh = append(fresh, n)
	}
	return fresh
}
