package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/confstore"
	"github.com/trippop/gacha-reward-server/exclusion"
)

// Exclusion backs exclusion.Ledger with the exclusions table. User and
// global records share the table; two partial unique indexes (one per
// scope) make Penalize and GlobalExclude plain upserts.
type Exclusion struct {
	db   Querier
	conf confstore.Store
	now  func() time.Time
}

func NewExclusion(db Querier, conf confstore.Store) *Exclusion {
	return &Exclusion{db: db, conf: conf, now: time.Now}
}

// SetNow overrides the clock. Test helper.
func (s *Exclusion) SetNow(now func() time.Time) { s.now = now }

type exclusionRow struct {
	Scope string `db:"scope"`
	Score int    `db:"score"`
}

func (s *Exclusion) IsExcluded(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) (bool, error) {
	query, args, err := sb.Select("scope", "score").
		From("exclusions").
		Where(squirrel.Eq{
			"place_name": placeName,
			"country":    loc.Country,
			"city":       loc.City,
			"district":   loc.District,
		}).
		Where(squirrel.Or{
			squirrel.Eq{"scope": exclusion.ScopeGlobal},
			squirrel.Eq{"user_id": userID},
		}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build is excluded: %w", err)
	}
	var rows []exclusionRow
	if err := pgxscan.Select(ctx, s.db, &rows, query, args...); err != nil {
		return false, fmt.Errorf("is excluded: %w", err)
	}
	threshold := exclusion.Threshold(ctx, s.conf)
	for _, r := range rows {
		if exclusion.Scope(r.Scope) == exclusion.ScopeGlobal {
			return true, nil
		}
		if r.Score >= threshold {
			return true, nil
		}
	}
	return false, nil
}

func (s *Exclusion) Penalize(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) error {
	query, args, err := sb.Insert("exclusions").
		Columns("user_id", "place_name", "country", "city", "district", "scope", "score", "last_at").
		Values(userID, placeName, loc.Country, loc.City, loc.District, exclusion.ScopeUser, 1, s.now()).
		Suffix(`ON CONFLICT (user_id, place_name, country, city, district) WHERE scope = 'user'
			DO UPDATE SET score = exclusions.score + 1, last_at = EXCLUDED.last_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build penalize: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("penalize %q: %w", placeName, err)
	}
	return nil
}

func (s *Exclusion) GlobalExclude(ctx context.Context, placeName string, loc catalog.Locale) error {
	query, args, err := sb.Insert("exclusions").
		Columns("place_name", "country", "city", "district", "scope", "score", "last_at").
		Values(placeName, loc.Country, loc.City, loc.District, exclusion.ScopeGlobal, 0, s.now()).
		Suffix(`ON CONFLICT (place_name, country, city, district) WHERE scope = 'global'
			DO NOTHING`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build global exclude: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("global exclude %q: %w", placeName, err)
	}
	return nil
}
