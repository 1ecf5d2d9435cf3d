// Package trip deduplicates and publishes completed draws as public trips.
package trip

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/trippop/gacha-reward-server/catalog"
)

// minPlaces is the smallest place set worth publishing.
const minPlaces = 3

// dedupWindow bounds how many recent publications the set comparison scans.
const dedupWindow = 1000

// Trip is one published place composition. Publication is permanent.
type Trip struct {
	ID          int64     `json:"id" db:"id"`
	Country     string    `json:"country" db:"country"`
	City        string    `json:"city" db:"city"`
	District    string    `json:"district" db:"district"`
	PlaceIDs    []int64   `json:"placeIds" db:"place_ids"`
	Signature   string    `json:"signature" db:"signature"`
	Seq         int       `json:"seq" db:"seq"`
	PublishedAt time.Time `json:"publishedAt" db:"published_at"`
}

// Signature is the order-independent identity of a place set: sorted ids
// joined with "-". [12,7,3] and [3,7,12] share a signature.
func Signature(ids []int64) string {
	sorted := make([]int64, len(ids))
	copy(sorted, ids)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	parts := make([]string, len(sorted))
	for i, id := range sorted {
		parts[i] = strconv.FormatInt(id, 10)
	}
	return strings.Join(parts, "-")
}

// Store persists published trips.
type Store interface {
	// RecentSignatures returns the signatures of the most recent published
	// trips in the city, newest first, up to limit.
	RecentSignatures(ctx context.Context, city string, limit int) ([]string, error)
	// Insert stores the trip and assigns its ID.
	Insert(ctx context.Context, t *Trip) error
	// CountUpTo counts published trips in the city with id <= the given id.
	CountUpTo(ctx context.Context, city string, id int64) (int, error)
}

// Publisher applies the dedup policy.
type Publisher struct {
	store Store
	now   func() time.Time
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store, now: time.Now}
}

// SetNow overrides the clock. Test helper.
func (p *Publisher) SetNow(now func() time.Time) { p.now = now }

// ShouldPublish rejects sets with fewer than minPlaces ids and sets whose
// signature matches a recent publication in the same city.
func (p *Publisher) ShouldPublish(ctx context.Context, city string, placeIDs []int64) (bool, error) {
	if len(placeIDs) < minPlaces {
		return false, nil
	}
	sig := Signature(placeIDs)
	recent, err := p.store.RecentSignatures(ctx, city, dedupWindow)
	if err != nil {
		return false, err
	}
	for _, s := range recent {
		if s == sig {
			return false, nil
		}
	}
	return true, nil
}

// Publish stores the composition if it passes ShouldPublish and derives its
// per-city sequence number. Second return is false when the set was
// rejected by the dedup policy.
func (p *Publisher) Publish(ctx context.Context, loc catalog.Locale, placeIDs []int64) (*Trip, bool, error) {
	ok, err := p.ShouldPublish(ctx, loc.City, placeIDs)
	if err != nil || !ok {
		return nil, false, err
	}
	t := &Trip{
		Country:     loc.Country,
		City:        loc.City,
		District:    loc.District,
		PlaceIDs:    append([]int64(nil), placeIDs...),
		Signature:   Signature(placeIDs),
		PublishedAt: p.now(),
	}
	if err := p.store.Insert(ctx, t); err != nil {
		return nil, false, err
	}
	// Human-readable numbering only; the signature does the dedup.
	seq, err := p.store.CountUpTo(ctx, loc.City, t.ID)
	if err != nil {
		return nil, false, err
	}
	t.Seq = seq
	return t, true, nil
}
