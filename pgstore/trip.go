package pgstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/trippop/gacha-reward-server/trip"
)

// Trips backs trip.Store with the published_trips table. IDs come from a
// bigserial, which is what makes CountUpTo a stable per-city sequence.
type Trips struct {
	db Querier
}

func NewTrips(db Querier) *Trips {
	return &Trips{db: db}
}

func (s *Trips) RecentSignatures(ctx context.Context, city string, limit int) ([]string, error) {
	query, args, err := sb.Select("signature").
		From("published_trips").
		Where(squirrel.Eq{"city": city}).
		OrderBy("id DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build recent signatures: %w", err)
	}
	var sigs []string
	if err := pgxscan.Select(ctx, s.db, &sigs, query, args...); err != nil {
		return nil, fmt.Errorf("recent signatures: %w", err)
	}
	return sigs, nil
}

func (s *Trips) Insert(ctx context.Context, t *trip.Trip) error {
	query, args, err := sb.Insert("published_trips").
		Columns("country", "city", "district", "place_ids", "signature", "published_at").
		Values(t.Country, t.City, t.District, t.PlaceIDs, t.Signature, t.PublishedAt).
		Suffix("RETURNING id").
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert trip: %w", err)
	}
	if err := s.db.QueryRow(ctx, query, args...).Scan(&t.ID); err != nil {
		return fmt.Errorf("insert trip: %w", err)
	}
	return nil
}

func (s *Trips) CountUpTo(ctx context.Context, city string, id int64) (int, error) {
	query, args, err := sb.Select("COUNT(*)").
		From("published_trips").
		Where(squirrel.Eq{"city": city}).
		Where(squirrel.LtOrEq{"id": id}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build count trips: %w", err)
	}
	var count int
	if err := s.db.QueryRow(ctx, query, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count trips: %w", err)
	}
	return count, nil
}
