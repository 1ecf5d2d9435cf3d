// Package inventory stores won rewards in a capacity-bounded slot table.
package inventory

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// MaxSlots is the fixed per-user inventory capacity.
const MaxSlots = 200

// State is the item lifecycle. Items are never physically removed; deletion
// is a state so audit history survives.
type State string

const (
	StateActive   State = "active"
	StateRedeemed State = "redeemed"
	StateExpired  State = "expired"
	StateDeleted  State = "deleted"
)

// Item is one occupied inventory slot.
type Item struct {
	ID         uuid.UUID  `json:"id" db:"id"`
	UserID     uuid.UUID  `json:"userId" db:"user_id"`
	Slot       int        `json:"slot" db:"slot"`
	Tier       string     `json:"tier" db:"tier"`
	CouponID   *int64     `json:"couponId,omitempty" db:"coupon_id"`
	MerchantID *int64     `json:"merchantId,omitempty" db:"merchant_id"`
	Title      string     `json:"title" db:"title"`
	State      State      `json:"state" db:"state"`
	Read       bool       `json:"read" db:"read"`
	ValidFrom  *time.Time `json:"validFrom,omitempty" db:"valid_from"`
	ValidUntil *time.Time `json:"validUntil,omitempty" db:"valid_until"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	RedeemedAt *time.Time `json:"redeemedAt,omitempty" db:"redeemed_at"`
}

// Reward is the payload admitted into a free slot after a winning roll.
type Reward struct {
	Tier       string
	CouponID   *int64
	MerchantID *int64
	Title      string
	ValidDays  int
}

var (
	// ErrNotFound covers both missing items and items owned by someone
	// else: ownership is never leaked via a permission-denied distinction.
	ErrNotFound = errors.New("inventory: item not found")
	// ErrSlotTaken is the store's retry signal when a concurrent admission
	// claimed the same slot first.
	ErrSlotTaken = errors.New("inventory: slot already occupied")
)

// Store is the persistence boundary for items. Insert must reject a
// (user, slot) pair already occupied by a non-deleted item with
// ErrSlotTaken, atomically: two racing inserts never both succeed.
type Store interface {
	Insert(ctx context.Context, item *Item) error
	Get(ctx context.Context, itemID uuid.UUID) (*Item, error)
	Update(ctx context.Context, item *Item) error
	// ListActive returns the user's non-deleted items ordered by slot.
	ListActive(ctx context.Context, userID uuid.UUID) ([]Item, error)
	// ListExpiring returns active items whose validity window ends in
	// [from, to].
	ListExpiring(ctx context.Context, userID uuid.UUID, from, to time.Time) ([]Item, error)
	// ExpiringUsers returns the distinct owners of active items whose
	// validity window ends in [from, to]. Feeds the expiry warning sweep.
	ExpiringUsers(ctx context.Context, from, to time.Time) ([]uuid.UUID, error)
}
