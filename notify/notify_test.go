package notify

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trippop/gacha-reward-server/inventory"
)

// recordingSink captures events for assertions.
type recordingSink struct {
	admitted map[uuid.UUID]int
	expiring map[uuid.UUID][]inventory.Item
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		admitted: make(map[uuid.UUID]int),
		expiring: make(map[uuid.UUID][]inventory.Item),
	}
}

func (s *recordingSink) ItemAdmitted(ctx context.Context, userID uuid.UUID, item *inventory.Item) {
	s.admitted[userID]++
}

func (s *recordingSink) ItemsExpiring(ctx context.Context, userID uuid.UUID, items []inventory.Item) {
	s.expiring[userID] = items
}

func TestWarnExpiring(t *testing.T) {
	ctx := context.Background()
	manager := inventory.NewManager(inventory.NewMemory(t.TempDir()))
	fixed := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	manager.SetNow(func() time.Time { return fixed })

	soon := uuid.New()
	later := uuid.New()
	timeless := uuid.New()

	_, err := manager.Admit(ctx, soon, inventory.Reward{Tier: "SR", Title: "Free dessert", ValidDays: 2})
	require.NoError(t, err)
	_, err = manager.Admit(ctx, later, inventory.Reward{Tier: "R", Title: "Sticker", ValidDays: 30})
	require.NoError(t, err)
	_, err = manager.Admit(ctx, timeless, inventory.Reward{Tier: "R", Title: "No window"})
	require.NoError(t, err)

	sink := newRecordingSink()
	notified, err := WarnExpiring(ctx, manager, sink, 3)
	require.NoError(t, err)
	require.Equal(t, 1, notified)

	require.Len(t, sink.expiring[soon], 1)
	require.Equal(t, "Free dessert", sink.expiring[soon][0].Title)
	require.NotContains(t, sink.expiring, later)
	require.NotContains(t, sink.expiring, timeless)
}

func TestWarnExpiring_SkipsNonActiveItems(t *testing.T) {
	ctx := context.Background()
	manager := inventory.NewManager(inventory.NewMemory(t.TempDir()))
	fixed := time.Date(2024, 6, 10, 9, 0, 0, 0, time.Local)
	manager.SetNow(func() time.Time { return fixed })

	user := uuid.New()
	item, err := manager.Admit(ctx, user, inventory.Reward{Tier: "SR", Title: "Free dessert", ValidDays: 2})
	require.NoError(t, err)
	require.NoError(t, manager.SoftDelete(ctx, item.ID, user))

	sink := newRecordingSink()
	notified, err := WarnExpiring(ctx, manager, sink, 3)
	require.NoError(t, err)
	require.Equal(t, 0, notified)
	require.Empty(t, sink.expiring)
}
