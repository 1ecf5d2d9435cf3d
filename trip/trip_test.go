package trip

import (
	"context"
	"testing"

	"github.com/trippop/gacha-reward-server/catalog"
)

var kyoto = catalog.Locale{Country: "JP", City: "Kyoto", District: "Gion"}

func TestSignature_OrderIndependent(t *testing.T) {
	if Signature([]int64{12, 7, 3}) != Signature([]int64{3, 7, 12}) {
		t.Error("signature must be order-independent")
	}
	if Signature([]int64{1, 2, 3}) == Signature([]int64{1, 2, 4}) {
		t.Error("different sets must differ")
	}
	if got := Signature([]int64{12, 7, 3}); got != "3-7-12" {
		t.Errorf("Signature = %q, want 3-7-12", got)
	}
}

func TestShouldPublish_MinimumSize(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(NewMemory(t.TempDir()))
	ok, err := p.ShouldPublish(ctx, "Kyoto", []int64{1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("two places must not publish")
	}
}

func TestPublish_SetDedupPerCity(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(NewMemory(t.TempDir()))

	trip, ok, err := p.Publish(ctx, kyoto, []int64{12, 7, 3})
	if err != nil || !ok {
		t.Fatalf("first publish: ok=%v err=%v", ok, err)
	}
	if trip.Seq != 1 {
		t.Errorf("first trip seq %d, want 1", trip.Seq)
	}

	// Same set, different order, same city: rejected.
	if ok, err := p.ShouldPublish(ctx, "Kyoto", []int64{3, 7, 12}); err != nil || ok {
		t.Errorf("reordered duplicate: ok=%v err=%v, want false", ok, err)
	}

	// Same set in another city publishes fine.
	osaka := catalog.Locale{Country: "JP", City: "Osaka"}
	if _, ok, err := p.Publish(ctx, osaka, []int64{3, 7, 12}); err != nil || !ok {
		t.Errorf("other city: ok=%v err=%v, want published", ok, err)
	}
}

func TestPublish_SequencePerCity(t *testing.T) {
	ctx := context.Background()
	p := NewPublisher(NewMemory(t.TempDir()))

	sets := [][]int64{
		{1, 2, 3},
		{4, 5, 6},
		{7, 8, 9},
	}
	for i, ids := range sets {
		trip, ok, err := p.Publish(ctx, kyoto, ids)
		if err != nil || !ok {
			t.Fatalf("publish %d: ok=%v err=%v", i, ok, err)
		}
		if trip.Seq != i+1 {
			t.Errorf("trip %d seq %d, want %d", i, trip.Seq, i+1)
		}
	}

	// A different city numbers independently.
	osaka := catalog.Locale{Country: "JP", City: "Osaka"}
	trip, ok, err := p.Publish(ctx, osaka, []int64{1, 2, 3})
	if err != nil || !ok {
		t.Fatalf("osaka publish: ok=%v err=%v", ok, err)
	}
	if trip.Seq != 1 {
		t.Errorf("osaka seq %d, want 1", trip.Seq)
	}
}
