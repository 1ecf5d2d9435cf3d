package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/inventory"
)

var itemColumns = []string{
	"id", "user_id", "slot", "tier", "coupon_id", "merchant_id", "title",
	"state", "read", "valid_from", "valid_until", "created_at", "redeemed_at",
}

// Inventory backs inventory.Store with the inventory_items table. Slot
// uniqueness rides on a partial unique index over (user_id, slot) for
// non-deleted rows, so two racing inserts for the last free slot resolve
// in the database, not in Go.
type Inventory struct {
	db Querier
}

func NewInventory(db Querier) *Inventory {
	return &Inventory{db: db}
}

func (s *Inventory) Insert(ctx context.Context, item *inventory.Item) error {
	query, args, err := sb.Insert("inventory_items").
		Columns(itemColumns...).
		Values(item.ID, item.UserID, item.Slot, item.Tier, item.CouponID,
			item.MerchantID, item.Title, item.State, item.Read,
			item.ValidFrom, item.ValidUntil, item.CreatedAt, item.RedeemedAt).
		ToSql()
	if err != nil {
		return fmt.Errorf("build insert item: %w", err)
	}
	if _, err := s.db.Exec(ctx, query, args...); err != nil {
		if isUniqueViolation(err) {
			return inventory.ErrSlotTaken
		}
		return fmt.Errorf("insert item: %w", err)
	}
	return nil
}

func (s *Inventory) Get(ctx context.Context, itemID uuid.UUID) (*inventory.Item, error) {
	query, args, err := sb.Select(itemColumns...).
		From("inventory_items").
		Where(squirrel.Eq{"id": itemID}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build get item: %w", err)
	}
	var item inventory.Item
	if err := pgxscan.Get(ctx, s.db, &item, query, args...); err != nil {
		if pgxscan.NotFound(err) {
			return nil, inventory.ErrNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}
	return &item, nil
}

func (s *Inventory) Update(ctx context.Context, item *inventory.Item) error {
	query, args, err := sb.Update("inventory_items").
		Set("state", item.State).
		Set("read", item.Read).
		Set("valid_from", item.ValidFrom).
		Set("valid_until", item.ValidUntil).
		Set("redeemed_at", item.RedeemedAt).
		Where(squirrel.Eq{"id": item.ID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build update item: %w", err)
	}
	tag, err := s.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update item: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return inventory.ErrNotFound
	}
	return nil
}

func (s *Inventory) ListActive(ctx context.Context, userID uuid.UUID) ([]inventory.Item, error) {
	query, args, err := sb.Select(itemColumns...).
		From("inventory_items").
		Where(squirrel.Eq{"user_id": userID}).
		Where(squirrel.NotEq{"state": inventory.StateDeleted}).
		OrderBy("slot").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list items: %w", err)
	}
	var items []inventory.Item
	if err := pgxscan.Select(ctx, s.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	return items, nil
}

func (s *Inventory) ExpiringUsers(ctx context.Context, from, to time.Time) ([]uuid.UUID, error) {
	query, args, err := sb.Select("DISTINCT user_id").
		From("inventory_items").
		Where(squirrel.Eq{"state": inventory.StateActive}).
		Where(squirrel.GtOrEq{"valid_until": from}).
		Where(squirrel.LtOrEq{"valid_until": to}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build expiring users: %w", err)
	}
	var users []uuid.UUID
	if err := pgxscan.Select(ctx, s.db, &users, query, args...); err != nil {
		return nil, fmt.Errorf("expiring users: %w", err)
	}
	return users, nil
}

func (s *Inventory) ListExpiring(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]inventory.Item, error) {
	query, args, err := sb.Select(itemColumns...).
		From("inventory_items").
		Where(squirrel.Eq{"user_id": userID, "state": inventory.StateActive}).
		Where(squirrel.GtOrEq{"valid_until": from}).
		Where(squirrel.LtOrEq{"valid_until": to}).
		OrderBy("valid_until").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build list expiring: %w", err)
	}
	var items []inventory.Item
	if err := pgxscan.Select(ctx, s.db, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list expiring: %w", err)
	}
	return items, nil
}
