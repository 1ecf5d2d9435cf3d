// Package notify is the outbound notification collaborator. Delivery is
// fire-and-forget: a sink failure never affects the core transaction.
package notify

import (
	"context"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/inventory"
)

// Sink receives inventory events.
type Sink interface {
	ItemAdmitted(ctx context.Context, userID uuid.UUID, item *inventory.Item)
	ItemsExpiring(ctx context.Context, userID uuid.UUID, items []inventory.Item)
}

// LogSink writes notifications to the process log. Stands in for the real
// push/email collaborator.
type LogSink struct{}

func (LogSink) ItemAdmitted(ctx context.Context, userID uuid.UUID, item *inventory.Item) {
	logger.Infof("notify: user %s won %s %q (slot %d)", userID, item.Tier, item.Title, item.Slot)
}

func (LogSink) ItemsExpiring(ctx context.Context, userID uuid.UUID, items []inventory.Item) {
	logger.Infof("notify: user %s has %d rewards expiring soon", userID, len(items))
}

// WarnExpiring pushes an ItemsExpiring event to the sink for every user
// holding active items whose validity window ends within daysAhead days.
// Run by the background sweep. Returns the number of users notified.
func WarnExpiring(ctx context.Context, m *inventory.Manager, sink Sink, daysAhead int) (int, error) {
	users, err := m.UsersExpiring(ctx, daysAhead)
	if err != nil {
		return 0, err
	}
	notified := 0
	for _, userID := range users {
		items, err := m.ListExpiring(ctx, userID, daysAhead)
		if err != nil {
			return notified, err
		}
		if len(items) == 0 {
			continue
		}
		sink.ItemsExpiring(ctx, userID, items)
		notified++
	}
	return notified, nil
}

// NopSink discards all notifications. Test helper.
type NopSink struct{}

func (NopSink) ItemAdmitted(ctx context.Context, userID uuid.UUID, item *inventory.Item)    {}
func (NopSink) ItemsExpiring(ctx context.Context, userID uuid.UUID, items []inventory.Item) {}
