package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/redemption"
)

// Codes backs redemption.CodeStore with the merchant_codes table. One row
// per merchant; issuing replaces in place.
type Codes struct {
	db Querier
}

func NewCodes(db Querier) *Codes {
	return &Codes{db: db}
}

func (s *Codes) SetCode(ctx context.Context, merchantID int64, code string, issuedAt time.Time) error {
	query, args, err := sb.Insert("merchant_codes").
		Columns("merchant_id", "code", "issued_at").
		Values(merchantID, code, issuedAt).
		Suffix(`ON CONFLICT (merchant_id)
			DO UPDATE SET code = EXCLUDED.code, issued_at = EXCLUDED.issued_at`).
		ToSql()
	if err != nil {
		return fmt.Errorf("build set code: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("set code for merchant %d: %w", merchantID, err)
	}
	return nil
}

func (s *Codes) GetCode(ctx context.Context, merchantID int64) (*redemption.MerchantCode, error) {
	query, args, err := sb.Select("merchant_id", "code", "issued_at").
		From("merchant_codes").
		Where(squirrel.Eq{"merchant_id": merchantID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get code: %w", err)
	}
	var mc redemption.MerchantCode
	if err := pgxscan.Get(ctx, s.db, &mc, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get code for merchant %d: %w", merchantID, err)
	}
	return &mc, nil
}

var redemptionColumns = []string{
	"id", "item_id", "user_id", "status", "verified_at", "deadline", "confirmed_at",
}

// Redemptions backs redemption.Store with the redemptions table.
type Redemptions struct {
	db Querier
}

func NewRedemptions(db Querier) *Redemptions {
	return &Redemptions{db: db}
}

func (s *Redemptions) Insert(ctx context.Context, r *redemption.Redemption) error {
	query, args, err := sb.Insert("redemptions").
		Columns(redemptionColumns...).
		Values(r.ID, r.ItemID, r.UserID, r.Status, r.VerifiedAt, r.Deadline, r.ConfirmedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert redemption: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert redemption: %w", err)
	}
	return nil
}

func (s *Redemptions) Get(ctx context.Context, id uuid.UUID) (*redemption.Redemption, error) {
	query, args, err := sb.Select(redemptionColumns...).
		From("redemptions").
		Where(squirrel.Eq{"id": id}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get redemption: %w", err)
	}
	var r redemption.Redemption
	if err := pgxscan.Get(ctx, s.db, &r, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("get redemption: %w", err)
	}
	return &r, nil
}

func (s *Redemptions) Update(ctx context.Context, r *redemption.Redemption) error {
	query, args, err := sb.Update("redemptions").
		Set("status", r.Status).
		Set("confirmed_at", r.ConfirmedAt).
		Where(squirrel.Eq{"id": r.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update redemption: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("update redemption: %w", err)
	}
	return nil
}

func (s *Redemptions) ListOverdue(ctx context.Context, now time.Time) ([]redemption.Redemption, error) {
	query, args, err := sb.Select(redemptionColumns...).
		From("redemptions").
		Where(squirrel.Eq{"status": redemption.StatusVerified}).
		Where(squirrel.Lt{"deadline": now}).
		OrderBy("deadline").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list overdue: %w", err)
	}
	var out []redemption.Redemption
	if err := pgxscan.Select(ctx, s.db, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list overdue: %w", err)
	}
	return out, nil
}
