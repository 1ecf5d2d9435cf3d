// Package quota counts draws per user per calendar day.
package quota

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// DayKey buckets t into the server-local calendar day. Merchant codes and
// draw counters share this boundary.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// Tracker is the per-user-per-day draw counter. Increment is an atomic
// upsert: concurrent increments for the same user-day never lose updates.
type Tracker interface {
	DailyCount(ctx context.Context, userID uuid.UUID) (int, error)
	Increment(ctx context.Context, userID uuid.UUID, n int) (int, error)
}
