package inventory

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	return NewManager(NewMemory(t.TempDir()))
}

func rewardR() Reward {
	return Reward{Tier: "R", Title: "10% off ramen", ValidDays: 14}
}

func TestAdmit_FillsSlotsInOrder(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	for want := 0; want < 5; want++ {
		item, err := m.Admit(ctx, user, rewardR())
		if err != nil {
			t.Fatalf("Admit: %v", err)
		}
		if item == nil {
			t.Fatal("Admit returned nil with free slots")
		}
		if item.Slot != want {
			t.Errorf("slot %d, want %d", item.Slot, want)
		}
		if item.State != StateActive {
			t.Errorf("state %q, want active", item.State)
		}
		if item.ValidUntil == nil {
			t.Error("ValidDays > 0 should set a validity window")
		}
	}
	used, max, available, err := m.Capacity(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if used != 5 || max != MaxSlots || available != MaxSlots-5 {
		t.Errorf("capacity = (%d, %d, %d)", used, max, available)
	}
}

func TestAdmit_ReusesFreedSlot(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	var items []*Item
	for i := 0; i < 3; i++ {
		it, err := m.Admit(ctx, user, rewardR())
		if err != nil || it == nil {
			t.Fatalf("Admit: %v %v", it, err)
		}
		items = append(items, it)
	}
	// Free the middle slot; the next admission takes the gap, not slot 3.
	if err := m.SoftDelete(ctx, items[1].ID, user); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	it, err := m.Admit(ctx, user, rewardR())
	if err != nil || it == nil {
		t.Fatalf("Admit: %v %v", it, err)
	}
	if it.Slot != 1 {
		t.Errorf("admitted into slot %d, want freed slot 1", it.Slot)
	}
}

func TestAdmit_FullReturnsNil(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	for i := 0; i < MaxSlots; i++ {
		it, err := m.Admit(ctx, user, Reward{Tier: "R", Title: "stub"})
		if err != nil || it == nil {
			t.Fatalf("Admit %d: %v %v", i, it, err)
		}
	}
	it, err := m.Admit(ctx, user, rewardR())
	if err != nil {
		t.Fatalf("full inventory must not error: %v", err)
	}
	if it != nil {
		t.Error("full inventory must return nil item")
	}
	if n, _ := m.SlotCount(ctx, user); n != MaxSlots {
		t.Errorf("slot count %d, want %d", n, MaxSlots)
	}
}

func TestAdmit_ConcurrentLastSlot(t *testing.T) {
	// 199/200 occupied; two concurrent winning draws race for the last slot.
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	for i := 0; i < MaxSlots-1; i++ {
		if it, err := m.Admit(ctx, user, Reward{Tier: "R", Title: "stub"}); err != nil || it == nil {
			t.Fatalf("Admit %d: %v %v", i, it, err)
		}
	}

	var wg sync.WaitGroup
	results := make([]*Item, 2)
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = m.Admit(ctx, user, rewardR())
		}(i)
	}
	wg.Wait()

	admitted := 0
	for i := 0; i < 2; i++ {
		if errs[i] != nil {
			t.Errorf("admit %d errored: %v", i, errs[i])
		}
		if results[i] != nil {
			admitted++
		}
	}
	if admitted != 1 {
		t.Errorf("%d admissions succeeded, want exactly 1", admitted)
	}
	if n, _ := m.SlotCount(ctx, user); n != MaxSlots {
		t.Errorf("total %d, want %d", n, MaxSlots)
	}
}

func TestMutation_OwnershipReadsAsNotFound(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	owner, stranger := uuid.New(), uuid.New()

	it, err := m.Admit(ctx, owner, rewardR())
	if err != nil || it == nil {
		t.Fatalf("Admit: %v %v", it, err)
	}
	if err := m.MarkRead(ctx, it.ID, stranger); err != ErrNotFound {
		t.Errorf("MarkRead by stranger: %v, want ErrNotFound", err)
	}
	// SoftDelete by a stranger is a silent no-op (reads as not found).
	if err := m.SoftDelete(ctx, it.ID, stranger); err != nil {
		t.Errorf("SoftDelete by stranger: %v", err)
	}
	if n, _ := m.SlotCount(ctx, owner); n != 1 {
		t.Error("stranger's delete must not touch the owner's item")
	}
}

func TestSoftDelete_Idempotent(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	it, err := m.Admit(ctx, user, rewardR())
	if err != nil || it == nil {
		t.Fatalf("Admit: %v %v", it, err)
	}
	if err := m.SoftDelete(ctx, it.ID, user); err != nil {
		t.Fatalf("SoftDelete: %v", err)
	}
	if err := m.SoftDelete(ctx, it.ID, user); err != nil {
		t.Errorf("second SoftDelete: %v, want nil", err)
	}
	if n, _ := m.SlotCount(ctx, user); n != 0 {
		t.Errorf("slot count %d after delete, want 0", n)
	}
}

func TestList_UnreadCount(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	a, _ := m.Admit(ctx, user, rewardR())
	if _, err := m.Admit(ctx, user, rewardR()); err != nil {
		t.Fatal(err)
	}
	if err := m.MarkRead(ctx, a.ID, user); err != nil {
		t.Fatalf("MarkRead: %v", err)
	}
	// MarkRead twice is a no-op.
	if err := m.MarkRead(ctx, a.ID, user); err != nil {
		t.Fatalf("second MarkRead: %v", err)
	}
	items, unread, err := m.List(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if len(items) != 2 || unread != 1 {
		t.Errorf("got %d items, %d unread; want 2, 1", len(items), unread)
	}
}

func TestListExpiring_WindowBounds(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	m.SetNow(func() time.Time { return base })

	if _, err := m.Admit(ctx, user, Reward{Tier: "R", Title: "soon", ValidDays: 2}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Admit(ctx, user, Reward{Tier: "S", Title: "later", ValidDays: 30}); err != nil {
		t.Fatal(err)
	}
	if _, err := m.Admit(ctx, user, Reward{Tier: "R", Title: "no-window"}); err != nil {
		t.Fatal(err)
	}

	soon, err := m.ListExpiring(ctx, user, 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(soon) != 1 || soon[0].Title != "soon" {
		t.Errorf("expiring within 7 days: %+v, want just the 2-day item", soon)
	}
}

func TestExpireOutOfWindow(t *testing.T) {
	ctx := context.Background()
	m := newTestManager(t)
	user := uuid.New()

	base := time.Date(2024, 6, 1, 12, 0, 0, 0, time.Local)
	m.SetNow(func() time.Time { return base })
	it, err := m.Admit(ctx, user, Reward{Tier: "R", Title: "short", ValidDays: 1})
	if err != nil || it == nil {
		t.Fatalf("Admit: %v %v", it, err)
	}

	m.SetNow(func() time.Time { return base.AddDate(0, 0, 3) })
	n, err := m.ExpireOutOfWindow(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("expired %d items, want 1", n)
	}
	got, _, err := m.List(ctx, user)
	if err != nil {
		t.Fatal(err)
	}
	if got[0].State != StateExpired {
		t.Errorf("state %q, want expired", got[0].State)
	}
	// Expired items still occupy their slot until deleted.
	if count, _ := m.SlotCount(ctx, user); count != 1 {
		t.Errorf("slot count %d, want 1", count)
	}
}
