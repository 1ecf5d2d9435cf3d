package geo

import (
	"math"
	"testing"
)

func TestDistanceMeters_KnownPairs(t *testing.T) {
	// Tokyo Station -> Shinjuku Station, roughly 6.4 km.
	d := DistanceMeters(35.681236, 139.767125, 35.690921, 139.700258)
	if d < 6000 || d > 6800 {
		t.Errorf("Tokyo->Shinjuku distance %.0f m, want ~6400", d)
	}
	// Same point is zero.
	if d := DistanceMeters(35.0, 139.0, 35.0, 139.0); d != 0 {
		t.Errorf("same point distance %.4f, want 0", d)
	}
}

func TestDistanceMeters_SmallOffsets(t *testing.T) {
	// ~0.00045 deg latitude is about 50 m.
	d := DistanceMeters(35.0, 139.0, 35.00045, 139.0)
	if math.Abs(d-50) > 2 {
		t.Errorf("50 m offset measured as %.2f m", d)
	}
}

func TestRadiusTable_For(t *testing.T) {
	radii := DefaultRadii()
	cases := []struct {
		category string
		want     float64
	}{
		{"scenic", 200},
		{"cultural", 200},
		{"food", 50},
		{"shopping", 50},
		{"activity", 100},
		{"entertainment", 100},
		{"lodging", 0},
		{"unknown-category", fallbackRadius},
	}
	for _, c := range cases {
		if got := radii.For(c.category); got != c.want {
			t.Errorf("For(%q) = %v, want %v", c.category, got, c.want)
		}
	}
}

func TestWithinRadius(t *testing.T) {
	// Two points ~30 m apart.
	lat1, lng1 := 35.0, 139.0
	lat2, lng2 := 35.00027, 139.0
	if !WithinRadius(lat1, lng1, lat2, lng2, 50) {
		t.Error("30 m apart should be within 50 m radius")
	}
	if WithinRadius(lat1, lng1, lat2, lng2, 10) {
		t.Error("30 m apart should not be within 10 m radius")
	}
	// Zero radius never matches, even for identical points.
	if WithinRadius(lat1, lng1, lat1, lng1, 0) {
		t.Error("zero radius must disable dedup")
	}
}
