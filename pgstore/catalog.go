package pgstore

import (
	"context"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"

	"github.com/trippop/gacha-reward-server/catalog"
)

var placeColumns = []string{
	"id", "name", "country", "city", "district", "category", "rating",
	"lat", "lng", "photo", "description", "active",
}

// Places backs catalog.PlaceProvider with the places table.
type Places struct {
	db Querier
}

func NewPlaces(db Querier) *Places {
	return &Places{db: db}
}

func (s *Places) ListActive(ctx context.Context, loc catalog.Locale) ([]catalog.Place, error) {
	b := sb.Select(placeColumns...).
		From("places").
		Where(squirrel.Eq{"active": true, "country": loc.Country, "city": loc.City})
	if loc.District != "" {
		b = b.Where(squirrel.Eq{"district": loc.District})
	}
	query, args, err := b.OrderBy("id").ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list places: %w", err)
	}
	var places []catalog.Place
	if err := pgxscan.Select(ctx, s.db, &places, query, args...); err != nil {
		return nil, fmt.Errorf("list places: %w", err)
	}
	return places, nil
}

func (s *Places) FindByID(ctx context.Context, id int64) (*catalog.Place, error) {
	query, args, err := sb.Select(placeColumns...).
		From("places").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build find place: %w", err)
	}
	var p catalog.Place
	if err := pgxscan.Get(ctx, s.db, &p, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("find place %d: %w", id, err)
	}
	return &p, nil
}

var couponColumns = []string{
	"id", "merchant_id", "title", "tier", "remaining", "valid_days", "active",
}

// Coupons backs catalog.CouponProvider with the coupons table. Stock
// decrements are guarded by the remaining > 0 predicate so a race can
// never push a coupon negative.
type Coupons struct {
	db Querier
}

func NewCoupons(db Querier) *Coupons {
	return &Coupons{db: db}
}

func (s *Coupons) ListActive(ctx context.Context, merchantID int64) ([]catalog.Coupon, error) {
	query, args, err := sb.Select(couponColumns...).
		From("coupons").
		Where(squirrel.Eq{"active": true, "merchant_id": merchantID}).
		OrderBy("id").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list coupons: %w", err)
	}
	var coupons []catalog.Coupon
	if err := pgxscan.Select(ctx, s.db, &coupons, query, args...); err != nil {
		return nil, fmt.Errorf("list coupons: %w", err)
	}
	return coupons, nil
}

func (s *Coupons) RandomActive(ctx context.Context, tier string) (*catalog.Coupon, error) {
	query, args, err := sb.Select(couponColumns...).
		From("coupons").
		Where(squirrel.Eq{"active": true, "tier": tier}).
		Where(squirrel.Gt{"remaining": 0}).
		OrderBy("random()").
		Limit(1).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build random coupon: %w", err)
	}
	var c catalog.Coupon
	if err := pgxscan.Get(ctx, s.db, &c, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("random coupon: %w", err)
	}
	return &c, nil
}

func (s *Coupons) DecrementRemaining(ctx context.Context, couponID int64) error {
	query, args, err := sb.Update("coupons").
		Set("remaining", squirrel.Expr("remaining - 1")).
		Where(squirrel.Eq{"id": couponID}).
		Where(squirrel.Gt{"remaining": 0}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build decrement coupon: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("decrement coupon %d: %w", couponID, err)
	}
	return nil
}
