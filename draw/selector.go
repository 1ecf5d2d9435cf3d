// Package draw runs the gacha loop: candidate selection, rarity roll,
// reward admission and trip evaluation.
package draw

import (
	"context"
	"sort"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/exclusion"
	"github.com/trippop/gacha-reward-server/geo"
)

// Selector produces the deduplicated, exclusion-filtered candidate pool for
// one draw.
type Selector struct {
	places catalog.PlaceProvider
	ledger exclusion.Ledger
	radii  geo.RadiusTable
}

func NewSelector(places catalog.PlaceProvider, ledger exclusion.Ledger, radii geo.RadiusTable) *Selector {
	if radii == nil {
		radii = geo.DefaultRadii()
	}
	return &Selector{places: places, ledger: ledger, radii: radii}
}

// SelectCandidates returns up to count places for the locale. The bool is
// the shortfall flag: fewer survivors than requested is a graceful degrade,
// not an error.
func (s *Selector) SelectCandidates(ctx context.Context, userID uuid.UUID, loc catalog.Locale, count int) ([]catalog.Place, bool, error) {
	active, err := s.places.ListActive(ctx, loc)
	if err != nil {
		return nil, false, err
	}

	filtered := active[:0:0]
	for _, p := range active {
		placeLoc := catalog.Locale{Country: p.Country, City: p.City, District: p.District}
		excluded, err := s.ledger.IsExcluded(ctx, userID, p.Name, placeLoc)
		if err != nil {
			return nil, false, err
		}
		if !excluded {
			filtered = append(filtered, p)
		}
	}

	survivors := s.geoDedup(filtered)
	shortfall := len(survivors) < count
	if len(survivors) > count {
		survivors = survivors[:count]
	}
	return survivors, shortfall, nil
}

// geoDedup collapses same-category places within the category's dedup
// radius, keeping the higher-scored entry. Walking in descending score
// order makes the keep choice deterministic: the first of a duplicate pair
// seen is the winner.
func (s *Selector) geoDedup(places []catalog.Place) []catalog.Place {
	sorted := make([]catalog.Place, len(places))
	copy(sorted, places)
	sort.Slice(sorted, func(i, j int) bool {
		si, sj := sorted[i].Score(), sorted[j].Score()
		if si != sj {
			return si > sj
		}
		return sorted[i].ID < sorted[j].ID
	})

	var kept []catalog.Place
	for _, p := range sorted {
		if s.duplicatesAny(p, kept) {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (s *Selector) duplicatesAny(p catalog.Place, kept []catalog.Place) bool {
	if !p.HasCoords() {
		return false
	}
	radius := s.radii.For(p.Category)
	if radius <= 0 {
		return false
	}
	for _, k := range kept {
		if k.Category != p.Category || !k.HasCoords() {
			continue
		}
		if geo.WithinRadius(*p.Lat, *p.Lng, *k.Lat, *k.Lng, radius) {
			return true
		}
	}
	return false
}
