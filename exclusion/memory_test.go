package exclusion

import (
	"context"
	"strconv"
	"testing"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/confstore"
)

var testLocale = catalog.Locale{Country: "JP", City: "Kyoto", District: "Gion"}

func newTestLedger(t *testing.T) (*Memory, confstore.Store) {
	t.Helper()
	conf := confstore.NewMemory(t.TempDir())
	return NewMemory(t.TempDir(), conf), conf
}

func TestPenalize_ReachesThreshold(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)
	user := uuid.New()

	for i := 0; i < DefaultThreshold-1; i++ {
		if err := ledger.Penalize(ctx, user, "Ramen Alley", testLocale); err != nil {
			t.Fatalf("Penalize: %v", err)
		}
		excluded, err := ledger.IsExcluded(ctx, user, "Ramen Alley", testLocale)
		if err != nil {
			t.Fatalf("IsExcluded: %v", err)
		}
		if excluded {
			t.Fatalf("excluded after %d penalties, threshold is %d", i+1, DefaultThreshold)
		}
	}
	if err := ledger.Penalize(ctx, user, "Ramen Alley", testLocale); err != nil {
		t.Fatalf("Penalize: %v", err)
	}
	excluded, err := ledger.IsExcluded(ctx, user, "Ramen Alley", testLocale)
	if err != nil {
		t.Fatalf("IsExcluded: %v", err)
	}
	if !excluded {
		t.Error("place should be excluded at threshold")
	}

	// Another user is unaffected by the first user's penalties.
	other := uuid.New()
	excluded, _ = ledger.IsExcluded(ctx, other, "Ramen Alley", testLocale)
	if excluded {
		t.Error("user-scoped penalties must not leak to other users")
	}
}

func TestGlobalExclude_AllUsers(t *testing.T) {
	ctx := context.Background()
	ledger, _ := newTestLedger(t)

	if err := ledger.GlobalExclude(ctx, "Closed Museum", testLocale); err != nil {
		t.Fatalf("GlobalExclude: %v", err)
	}
	// Idempotent second call.
	if err := ledger.GlobalExclude(ctx, "Closed Museum", testLocale); err != nil {
		t.Fatalf("GlobalExclude repeat: %v", err)
	}

	for i := 0; i < 5; i++ {
		excluded, err := ledger.IsExcluded(ctx, uuid.New(), "Closed Museum", testLocale)
		if err != nil {
			t.Fatalf("IsExcluded: %v", err)
		}
		if !excluded {
			t.Fatal("global exclusion must apply to every user")
		}
	}

	// Same name in a different district stays available.
	elsewhere := catalog.Locale{Country: "JP", City: "Kyoto", District: "Arashiyama"}
	excluded, _ := ledger.IsExcluded(ctx, uuid.New(), "Closed Museum", elsewhere)
	if excluded {
		t.Error("exclusion is locale-scoped")
	}
}

func TestThreshold_Configurable(t *testing.T) {
	ctx := context.Background()
	ledger, conf := newTestLedger(t)
	user := uuid.New()

	if err := conf.Set(ctx, ConfCategory, ConfKeyThreshold, strconv.Itoa(1)); err != nil {
		t.Fatalf("Set threshold: %v", err)
	}
	if err := ledger.Penalize(ctx, user, "Loud Bar", testLocale); err != nil {
		t.Fatalf("Penalize: %v", err)
	}
	excluded, err := ledger.IsExcluded(ctx, user, "Loud Bar", testLocale)
	if err != nil {
		t.Fatalf("IsExcluded: %v", err)
	}
	if !excluded {
		t.Error("threshold of 1 should exclude after one penalty")
	}
}

func TestThreshold_FallsBackOnGarbage(t *testing.T) {
	ctx := context.Background()
	conf := confstore.NewMemory(t.TempDir())
	if err := conf.Set(ctx, ConfCategory, ConfKeyThreshold, "not-a-number"); err != nil {
		t.Fatal(err)
	}
	if got := Threshold(ctx, conf); got != DefaultThreshold {
		t.Errorf("Threshold = %d, want default %d", got, DefaultThreshold)
	}
}
