// Package redemption implements the merchant code verification protocol
// for coupon rewards.
package redemption

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GraceWindow is how long a verified redemption may wait for confirmation
// before the sweeper force-closes it.
const GraceWindow = 3 * time.Minute

// Outcome codes for redemption attempts. Expected business failures are
// outcomes, not errors, so callers can render precise messages.
const (
	CodeOK                  = "OK"
	CodeItemNotFound        = "ITEM_NOT_FOUND"
	CodeAlreadyRedeemed     = "ALREADY_REDEEMED"
	CodeItemExpired         = "ITEM_EXPIRED"
	CodeNoMerchantLink      = "NO_MERCHANT_LINK"
	CodeNoMerchantCodeSet   = "NO_MERCHANT_CODE_SET"
	CodeMerchantCodeExpired = "MERCHANT_CODE_EXPIRED"
	CodeInvalidCode         = "INVALID_CODE"
)

// Status is the redemption record lifecycle: verified, then confirmed by
// the merchant or expired by the sweeper.
type Status string

const (
	StatusVerified  Status = "verified"
	StatusConfirmed Status = "confirmed"
	StatusExpired   Status = "expired"
)

// MerchantCode is a merchant's day-scoped secret. One active code per
// merchant; a new issuance replaces the previous one. Valid only on its
// issuance day.
type MerchantCode struct {
	MerchantID int64     `json:"merchantId"`
	Code       string    `json:"code"`
	IssuedAt   time.Time `json:"issuedAt"`
}

// Redemption tracks one verified item through the grace window.
type Redemption struct {
	ID          uuid.UUID  `json:"id" db:"id"`
	ItemID      uuid.UUID  `json:"itemId" db:"item_id"`
	UserID      uuid.UUID  `json:"userId" db:"user_id"`
	Status      Status     `json:"status" db:"status"`
	VerifiedAt  time.Time  `json:"verifiedAt" db:"verified_at"`
	Deadline    time.Time  `json:"deadline" db:"deadline"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty" db:"confirmed_at"`
}

// CodeStore holds the current code per merchant.
type CodeStore interface {
	// SetCode atomically replaces the merchant's active code.
	SetCode(ctx context.Context, merchantID int64, code string, issuedAt time.Time) error
	// GetCode returns the merchant's current code, or nil when unset.
	GetCode(ctx context.Context, merchantID int64) (*MerchantCode, error)
}

// Store persists redemption records.
type Store interface {
	Insert(ctx context.Context, r *Redemption) error
	Get(ctx context.Context, id uuid.UUID) (*Redemption, error)
	Update(ctx context.Context, r *Redemption) error
	// ListOverdue returns verified redemptions whose deadline has passed.
	ListOverdue(ctx context.Context, now time.Time) ([]Redemption, error)
}
