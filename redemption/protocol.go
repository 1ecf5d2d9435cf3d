package redemption

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/logger"
	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/inventory"
)

// Result is the typed outcome of a redemption attempt. OK=false carries one
// of the outcome codes; store faults surface as errors instead.
type Result struct {
	OK         bool            `json:"success"`
	Code       string          `json:"code"`
	Item       *inventory.Item `json:"item,omitempty"`
	Redemption *Redemption     `json:"redemption,omitempty"`
}

func failure(code string) *Result { return &Result{OK: false, Code: code} }

// Protocol validates merchant codes against inventory items and drives the
// verified -> confirmed/expired state machine.
type Protocol struct {
	items   inventory.Store
	codes   CodeStore
	store   Store
	coupons catalog.CouponProvider
	now     func() time.Time
}

func NewProtocol(items inventory.Store, codes CodeStore, store Store, coupons catalog.CouponProvider) *Protocol {
	return &Protocol{
		items:   items,
		codes:   codes,
		store:   store,
		coupons: coupons,
		now:     time.Now,
	}
}

// SetNow overrides the clock. Test helper.
func (p *Protocol) SetNow(now func() time.Time) { p.now = now }

func sameDay(a, b time.Time) bool {
	return a.Format("2006-01-02") == b.Format("2006-01-02")
}

// Redeem verifies the caller-supplied merchant code against the item. On
// match the item is marked redeemed immediately (closing the reuse window),
// the coupon counter is decremented once, and a verified redemption with a
// grace deadline is recorded for merchant-side confirmation.
func (p *Protocol) Redeem(ctx context.Context, userID, itemID uuid.UUID, code string) (*Result, error) {
	item, err := p.items.Get(ctx, itemID)
	if errors.Is(err, inventory.ErrNotFound) {
		return failure(CodeItemNotFound), nil
	}
	if err != nil {
		return nil, err
	}
	if item.UserID != userID || item.State == inventory.StateDeleted {
		return failure(CodeItemNotFound), nil
	}
	now := p.now()
	switch {
	case item.State == inventory.StateRedeemed:
		return failure(CodeAlreadyRedeemed), nil
	case item.State == inventory.StateExpired:
		return failure(CodeItemExpired), nil
	case item.ValidUntil != nil && item.ValidUntil.Before(now):
		// Out of window but not yet swept: treat as expired, don't redeem.
		return failure(CodeItemExpired), nil
	}
	if item.MerchantID == nil {
		return failure(CodeNoMerchantLink), nil
	}

	mc, err := p.codes.GetCode(ctx, *item.MerchantID)
	if err != nil {
		return nil, err
	}
	if mc == nil {
		return failure(CodeNoMerchantCodeSet), nil
	}
	if !sameDay(mc.IssuedAt, now) {
		return failure(CodeMerchantCodeExpired), nil
	}
	if !strings.EqualFold(strings.TrimSpace(code), mc.Code) {
		return failure(CodeInvalidCode), nil
	}

	item.State = inventory.StateRedeemed
	item.RedeemedAt = &now
	if err := p.items.Update(ctx, item); err != nil {
		return nil, err
	}
	// Stock decrement happens exactly once, here. A failed decrement is not
	// worth reopening the item over; log and continue.
	if item.CouponID != nil {
		if err := p.coupons.DecrementRemaining(ctx, *item.CouponID); err != nil {
			logger.Warningf("redeem: decrement coupon %d: %v", *item.CouponID, err)
		}
	}

	red := &Redemption{
		ID:         uuid.New(),
		ItemID:     item.ID,
		UserID:     userID,
		Status:     StatusVerified,
		VerifiedAt: now,
		Deadline:   now.Add(GraceWindow),
	}
	if err := p.store.Insert(ctx, red); err != nil {
		return nil, err
	}
	return &Result{OK: true, Code: CodeOK, Item: item, Redemption: red}, nil
}

// Confirm settles a verified redemption inside its grace window. Confirming
// an already-confirmed redemption is a no-op success. The same ownership
// rule as Redeem applies: someone else's redemption reads as not found.
func (p *Protocol) Confirm(ctx context.Context, userID, redemptionID uuid.UUID) (*Result, error) {
	red, err := p.store.Get(ctx, redemptionID)
	if err != nil {
		return nil, err
	}
	if red == nil || red.UserID != userID {
		return failure(CodeItemNotFound), nil
	}
	switch red.Status {
	case StatusConfirmed:
		return &Result{OK: true, Code: CodeOK, Redemption: red}, nil
	case StatusExpired:
		return failure(CodeItemExpired), nil
	}
	now := p.now()
	if now.After(red.Deadline) {
		// Sweeper hasn't caught it yet; close it here.
		red.Status = StatusExpired
		if err := p.store.Update(ctx, red); err != nil {
			return nil, err
		}
		return failure(CodeItemExpired), nil
	}
	red.Status = StatusConfirmed
	red.ConfirmedAt = &now
	if err := p.store.Update(ctx, red); err != nil {
		return nil, err
	}
	return &Result{OK: true, Code: CodeOK, Redemption: red}, nil
}

// SweepExpired force-closes verified redemptions past their deadline and
// makes sure the linked item stays redeemed. Returns how many were closed.
func (p *Protocol) SweepExpired(ctx context.Context) (int, error) {
	now := p.now()
	overdue, err := p.store.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	closed := 0
	for i := range overdue {
		red := overdue[i]
		red.Status = StatusExpired
		if err := p.store.Update(ctx, &red); err != nil {
			return closed, err
		}
		// The item was marked redeemed at verify time; re-assert in case a
		// partial write left it open.
		item, err := p.items.Get(ctx, red.ItemID)
		if err == nil && item.State != inventory.StateRedeemed {
			item.State = inventory.StateRedeemed
			item.RedeemedAt = &red.VerifiedAt
			if err := p.items.Update(ctx, item); err != nil {
				logger.Warningf("sweep: force-redeem item %s: %v", item.ID, err)
			}
		}
		closed++
	}
	return closed, nil
}
