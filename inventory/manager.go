package inventory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// admitRetries bounds how many times Admit re-scans for a free slot after a
// concurrent admission stole the one it picked.
const admitRetries = 3

// Manager implements the slot-allocation rules over a Store.
type Manager struct {
	store Store
	now   func() time.Time
}

func NewManager(store Store) *Manager {
	return &Manager{store: store, now: time.Now}
}

// SetNow overrides the clock. Test helper.
func (m *Manager) SetNow(now func() time.Time) { m.now = now }

// SlotCount returns the number of occupied (non-deleted) slots.
func (m *Manager) SlotCount(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := m.store.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(items), nil
}

func (m *Manager) IsFull(ctx context.Context, userID uuid.UUID) (bool, error) {
	n, err := m.SlotCount(ctx, userID)
	if err != nil {
		return false, err
	}
	return n >= MaxSlots, nil
}

// NextFreeSlot scans slots 0..MaxSlots-1 against the occupied set and
// returns the first gap. Second return is false when the inventory is full.
func (m *Manager) NextFreeSlot(ctx context.Context, userID uuid.UUID) (int, bool, error) {
	items, err := m.store.ListActive(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	occupied := make(map[int]bool, len(items))
	for _, it := range items {
		occupied[it.Slot] = true
	}
	for slot := 0; slot < MaxSlots; slot++ {
		if !occupied[slot] {
			return slot, true, nil
		}
	}
	return 0, false, nil
}

// Admit reserves the next free slot and stores the reward. Returns
// (nil, nil) when the inventory is full: the draw flow surfaces that as
// "reward lost", not as a failure. A slot collision from a concurrent
// admission is retried with the next free slot.
func (m *Manager) Admit(ctx context.Context, userID uuid.UUID, reward Reward) (*Item, error) {
	for attempt := 0; attempt <= admitRetries; attempt++ {
		slot, ok, err := m.NextFreeSlot(ctx, userID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, nil
		}
		now := m.now()
		item := &Item{
			ID:         uuid.New(),
			UserID:     userID,
			Slot:       slot,
			Tier:       reward.Tier,
			CouponID:   reward.CouponID,
			MerchantID: reward.MerchantID,
			Title:      reward.Title,
			State:      StateActive,
			CreatedAt:  now,
		}
		if reward.ValidDays > 0 {
			until := now.AddDate(0, 0, reward.ValidDays)
			item.ValidFrom = &now
			item.ValidUntil = &until
		}
		err = m.store.Insert(ctx, item)
		if err == nil {
			return item, nil
		}
		if !errors.Is(err, ErrSlotTaken) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("inventory: admit for user %s: %w", userID, ErrSlotTaken)
}

// getOwned loads an item and applies the ownership rule: wrong owner or
// deleted item both read as not found.
func (m *Manager) getOwned(ctx context.Context, itemID, userID uuid.UUID) (*Item, error) {
	item, err := m.store.Get(ctx, itemID)
	if err != nil {
		return nil, err
	}
	if item.UserID != userID || item.State == StateDeleted {
		return nil, ErrNotFound
	}
	return item, nil
}

// MarkRead flags the item as seen by its owner.
func (m *Manager) MarkRead(ctx context.Context, itemID, userID uuid.UUID) error {
	item, err := m.getOwned(ctx, itemID, userID)
	if err != nil {
		return err
	}
	if item.Read {
		return nil
	}
	item.Read = true
	return m.store.Update(ctx, item)
}

// SoftDelete frees the item's slot while keeping the row for audit.
// Idempotent: a second delete reads as not found and is a no-op.
func (m *Manager) SoftDelete(ctx context.Context, itemID, userID uuid.UUID) error {
	item, err := m.getOwned(ctx, itemID, userID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	item.State = StateDeleted
	return m.store.Update(ctx, item)
}

// List returns the user's visible items plus the unread count.
func (m *Manager) List(ctx context.Context, userID uuid.UUID) ([]Item, int, error) {
	items, err := m.store.ListActive(ctx, userID)
	if err != nil {
		return nil, 0, err
	}
	unread := 0
	for _, it := range items {
		if !it.Read {
			unread++
		}
	}
	return items, unread, nil
}

// ListExpiring returns active items whose validity window ends within
// daysAhead days. Feeds the notification collaborator.
func (m *Manager) ListExpiring(ctx context.Context, userID uuid.UUID, daysAhead int) ([]Item, error) {
	now := m.now()
	return m.store.ListExpiring(ctx, userID, now, now.AddDate(0, 0, daysAhead))
}

// UsersExpiring returns the owners who hold active items ending within
// daysAhead days. Feeds the expiry warning sweep.
func (m *Manager) UsersExpiring(ctx context.Context, daysAhead int) ([]uuid.UUID, error) {
	now := m.now()
	return m.store.ExpiringUsers(ctx, now, now.AddDate(0, 0, daysAhead))
}

// Capacity reports used/max/available slot counts.
func (m *Manager) Capacity(ctx context.Context, userID uuid.UUID) (used, max, available int, err error) {
	used, err = m.SlotCount(ctx, userID)
	if err != nil {
		return 0, 0, 0, err
	}
	available = MaxSlots - used
	if available < 0 {
		available = 0
	}
	return used, MaxSlots, available, nil
}

// ExpireOutOfWindow transitions active items whose validity window has
// passed to expired. Runs lazily when the owner reads their inventory.
func (m *Manager) ExpireOutOfWindow(ctx context.Context, userID uuid.UUID) (int, error) {
	items, err := m.store.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}
	now := m.now()
	expired := 0
	for i := range items {
		it := items[i]
		if it.State != StateActive || it.ValidUntil == nil || !it.ValidUntil.Before(now) {
			continue
		}
		it.State = StateExpired
		if err := m.store.Update(ctx, &it); err != nil {
			return expired, err
		}
		expired++
	}
	return expired, nil
}
