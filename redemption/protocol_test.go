package redemption

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/inventory"
)

const testMerchant = int64(42)

type fixture struct {
	protocol *Protocol
	items    *inventory.Manager
	store    inventory.Store
	codes    *MemoryCodes
	coupons  *catalog.MemoryCoupons
	now      time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	dir := t.TempDir()
	itemStore := inventory.NewMemory(dir)
	codes := NewMemoryCodes(dir)
	coupons := catalog.NewMemoryCoupons(dir)
	coupons.Seed([]catalog.Coupon{
		{ID: 7, MerchantID: testMerchant, Title: "Free dessert", Tier: "SR", Remaining: 10, ValidDays: 14, Active: true},
	})
	f := &fixture{
		protocol: NewProtocol(itemStore, codes, NewMemoryStore(dir), coupons),
		items:    inventory.NewManager(itemStore),
		store:    itemStore,
		codes:    codes,
		coupons:  coupons,
		now:      time.Date(2024, 6, 10, 14, 0, 0, 0, time.Local),
	}
	f.protocol.SetNow(func() time.Time { return f.now })
	return f
}

func (f *fixture) admit(t *testing.T, user uuid.UUID) *inventory.Item {
	t.Helper()
	couponID := int64(7)
	merchantID := testMerchant
	item, err := f.items.Admit(context.Background(), user, inventory.Reward{
		Tier:       "SR",
		CouponID:   &couponID,
		MerchantID: &merchantID,
		Title:      "Free dessert",
		ValidDays:  14,
	})
	if err != nil || item == nil {
		t.Fatalf("admit fixture item: %v %v", item, err)
	}
	return item
}

func (f *fixture) issueCode(t *testing.T, code string) {
	t.Helper()
	if err := f.codes.SetCode(context.Background(), testMerchant, code, f.now); err != nil {
		t.Fatalf("SetCode: %v", err)
	}
}

func TestRedeem_HappyPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "sakura") // case-insensitive
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if !res.OK || res.Code != CodeOK {
		t.Fatalf("Redeem outcome %+v", res)
	}
	if res.Item.State != inventory.StateRedeemed {
		t.Errorf("item state %q, want redeemed", res.Item.State)
	}
	if res.Redemption.Status != StatusVerified {
		t.Errorf("redemption status %q, want verified", res.Redemption.Status)
	}
	if got := res.Redemption.Deadline.Sub(res.Redemption.VerifiedAt); got != GraceWindow {
		t.Errorf("deadline offset %v, want %v", got, GraceWindow)
	}
	if f.coupons.Remaining(7) != 9 {
		t.Errorf("coupon stock %d, want 9", f.coupons.Remaining(7))
	}
}

func TestRedeem_SecondAttemptIsIdempotent(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	if res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA"); err != nil || !res.OK {
		t.Fatalf("first redeem: %+v %v", res, err)
	}
	res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
	if err != nil {
		t.Fatalf("second redeem: %v", err)
	}
	if res.OK || res.Code != CodeAlreadyRedeemed {
		t.Errorf("second redeem outcome %+v, want ALREADY_REDEEMED", res)
	}
	// Merchant stock is decremented exactly once.
	if f.coupons.Remaining(7) != 9 {
		t.Errorf("coupon stock %d after double redeem, want 9", f.coupons.Remaining(7))
	}
}

func TestRedeem_FailureTaxonomy(t *testing.T) {
	ctx := context.Background()

	t.Run("item not found", func(t *testing.T) {
		f := newFixture(t)
		res, err := f.protocol.Redeem(ctx, uuid.New(), uuid.New(), "X")
		if err != nil || res.Code != CodeItemNotFound {
			t.Errorf("got %+v %v, want ITEM_NOT_FOUND", res, err)
		}
	})

	t.Run("wrong owner reads as not found", func(t *testing.T) {
		f := newFixture(t)
		item := f.admit(t, uuid.New())
		f.issueCode(t, "SAKURA")
		res, err := f.protocol.Redeem(ctx, uuid.New(), item.ID, "SAKURA")
		if err != nil || res.Code != CodeItemNotFound {
			t.Errorf("got %+v %v, want ITEM_NOT_FOUND", res, err)
		}
	})

	t.Run("no code set", func(t *testing.T) {
		f := newFixture(t)
		user := uuid.New()
		item := f.admit(t, user)
		res, err := f.protocol.Redeem(ctx, user, item.ID, "ANYTHING")
		if err != nil || res.Code != CodeNoMerchantCodeSet {
			t.Errorf("got %+v %v, want NO_MERCHANT_CODE_SET", res, err)
		}
	})

	t.Run("invalid code", func(t *testing.T) {
		f := newFixture(t)
		user := uuid.New()
		item := f.admit(t, user)
		f.issueCode(t, "SAKURA")
		res, err := f.protocol.Redeem(ctx, user, item.ID, "WRONG")
		if err != nil || res.Code != CodeInvalidCode {
			t.Errorf("got %+v %v, want INVALID_CODE", res, err)
		}
		if f.coupons.Remaining(7) != 10 {
			t.Error("failed redeem must not touch coupon stock")
		}
	})

	t.Run("no merchant link", func(t *testing.T) {
		f := newFixture(t)
		user := uuid.New()
		item, err := f.items.Admit(ctx, user, inventory.Reward{Tier: "R", Title: "place-only reward"})
		if err != nil || item == nil {
			t.Fatalf("admit: %v %v", item, err)
		}
		res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
		if err != nil || res.Code != CodeNoMerchantLink {
			t.Errorf("got %+v %v, want NO_MERCHANT_LINK", res, err)
		}
	})

	t.Run("item out of validity window", func(t *testing.T) {
		f := newFixture(t)
		user := uuid.New()
		item := f.admit(t, user) // valid 14 days
		f.now = f.now.AddDate(0, 0, 20)
		f.issueCode(t, "SAKURA")
		res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
		if err != nil || res.Code != CodeItemExpired {
			t.Errorf("got %+v %v, want ITEM_EXPIRED", res, err)
		}
	})
}

func TestRedeem_CodeExpiresAtDayBoundary(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "MONDAY") // issued on f.now's day

	// Next day, same code, never consumed: stale.
	f.now = f.now.AddDate(0, 0, 1)
	res, err := f.protocol.Redeem(ctx, user, item.ID, "MONDAY")
	if err != nil {
		t.Fatalf("Redeem: %v", err)
	}
	if res.OK || res.Code != CodeMerchantCodeExpired {
		t.Errorf("outcome %+v, want MERCHANT_CODE_EXPIRED", res)
	}
}

func TestRedeem_NewCodeReplacesOld(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "OLD")
	f.issueCode(t, "NEW")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "OLD")
	if err != nil || res.Code != CodeInvalidCode {
		t.Errorf("old code got %+v %v, want INVALID_CODE", res, err)
	}
	res, err = f.protocol.Redeem(ctx, user, item.ID, "NEW")
	if err != nil || !res.OK {
		t.Errorf("new code got %+v %v, want success", res, err)
	}
}

func TestConfirm_WithinGraceWindow(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
	if err != nil || !res.OK {
		t.Fatalf("redeem: %+v %v", res, err)
	}

	f.now = f.now.Add(time.Minute)
	conf, err := f.protocol.Confirm(ctx, user, res.Redemption.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if !conf.OK || conf.Redemption.Status != StatusConfirmed {
		t.Errorf("confirm outcome %+v", conf)
	}
	// Second confirm is a no-op success.
	again, err := f.protocol.Confirm(ctx, user, res.Redemption.ID)
	if err != nil || !again.OK {
		t.Errorf("repeat confirm %+v %v", again, err)
	}
}

func TestConfirm_WrongOwnerReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
	if err != nil || !res.OK {
		t.Fatalf("redeem: %+v %v", res, err)
	}

	conf, err := f.protocol.Confirm(ctx, uuid.New(), res.Redemption.ID)
	if err != nil || conf.Code != CodeItemNotFound {
		t.Errorf("foreign confirm got %+v %v, want ITEM_NOT_FOUND", conf, err)
	}
	// The owner can still settle it.
	conf, err = f.protocol.Confirm(ctx, user, res.Redemption.ID)
	if err != nil || !conf.OK {
		t.Errorf("owner confirm got %+v %v, want success", conf, err)
	}
}

func TestConfirm_AfterDeadlineExpires(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
	if err != nil || !res.OK {
		t.Fatalf("redeem: %+v %v", res, err)
	}

	f.now = f.now.Add(GraceWindow + time.Second)
	conf, err := f.protocol.Confirm(ctx, user, res.Redemption.ID)
	if err != nil {
		t.Fatalf("Confirm: %v", err)
	}
	if conf.OK || conf.Code != CodeItemExpired {
		t.Errorf("late confirm outcome %+v, want ITEM_EXPIRED", conf)
	}
}

func TestSweepExpired_ForcesItemClosed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	user := uuid.New()
	item := f.admit(t, user)
	f.issueCode(t, "SAKURA")

	res, err := f.protocol.Redeem(ctx, user, item.ID, "SAKURA")
	if err != nil || !res.OK {
		t.Fatalf("redeem: %+v %v", res, err)
	}

	f.now = f.now.Add(GraceWindow + time.Minute)
	closed, err := f.protocol.SweepExpired(ctx)
	if err != nil {
		t.Fatalf("SweepExpired: %v", err)
	}
	if closed != 1 {
		t.Errorf("swept %d, want 1", closed)
	}

	got, err := f.store.Get(ctx, item.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.State != inventory.StateRedeemed {
		t.Errorf("item state %q after sweep, want redeemed", got.State)
	}
	// Sweep again: nothing left to close.
	closed, err = f.protocol.SweepExpired(ctx)
	if err != nil || closed != 0 {
		t.Errorf("second sweep closed %d (%v), want 0", closed, err)
	}
}
