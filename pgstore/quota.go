package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/quota"
)

// Quota backs quota.Tracker with the draw_quotas table. Increment is a
// single ON CONFLICT upsert so concurrent draws for the same user-day
// never lose counts.
type Quota struct {
	db  Querier
	now func() time.Time
}

func NewQuota(db Querier) *Quota {
	return &Quota{db: db, now: time.Now}
}

// SetNow overrides the clock. Test helper.
func (s *Quota) SetNow(now func() time.Time) { s.now = now }

func (s *Quota) DailyCount(ctx context.Context, userID uuid.UUID) (int, error) {
	query, args, err := sb.Select("count").
		From("draw_quotas").
		Where(squirrel.Eq{"user_id": userID, "day": quota.DayKey(s.now())}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build daily count: %w", err)
	}
	var count int
	if err := pgxscan.Get(ctx, s.db, &count, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return 0, nil
		}
		return 0, fmt.Errorf("daily count: %w", err)
	}
	return count, nil
}

func (s *Quota) Increment(ctx context.Context, userID uuid.UUID, n int) (int, error) {
	query, args, err := sb.Insert("draw_quotas").
		Columns("user_id", "day", "count").
		Values(userID, quota.DayKey(s.now()), n).
		Suffix(`ON CONFLICT (user_id, day)
			DO UPDATE SET count = draw_quotas.count + EXCLUDED.count
			RETURNING count`).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build increment quota: %w", err)
	}
	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("increment quota: %w", err)
	}
	return count, nil
}
