package catalog

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"math/big"
	"os"
	"path/filepath"
	"sync"
)

// secureIntn returns a uniform random int in [0, n) using crypto/rand (CSPRNG).
func secureIntn(n int) int {
	if n <= 0 {
		return 0
	}
	max := big.NewInt(int64(n))
	v, err := rand.Int(rand.Reader, max)
	if err != nil {
		return 0
	}
	return int(v.Int64())
}

// MemoryPlaces serves places from places.json under dataDir. Used in tests
// and DSN-less local mode.
type MemoryPlaces struct {
	mu     sync.RWMutex
	places []Place
}

func NewMemoryPlaces(dataDir string) *MemoryPlaces {
	if dataDir == "" {
		dataDir = "data"
	}
	m := &MemoryPlaces{}
	if data, err := os.ReadFile(filepath.Join(dataDir, "places.json")); err == nil {
		var list []Place
		if err := json.Unmarshal(data, &list); err == nil {
			m.places = list
		}
	}
	return m
}

// Seed replaces the in-memory place list. Test helper.
func (m *MemoryPlaces) Seed(places []Place) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.places = places
}

func (m *MemoryPlaces) ListActive(ctx context.Context, loc Locale) ([]Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Place
	for _, p := range m.places {
		if !p.Active {
			continue
		}
		if p.Country != loc.Country || p.City != loc.City {
			continue
		}
		if loc.District != "" && p.District != loc.District {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *MemoryPlaces) FindByID(ctx context.Context, id int64) (*Place, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for i := range m.places {
		if m.places[i].ID == id {
			p := m.places[i]
			return &p, nil
		}
	}
	return nil, nil
}

// MemoryCoupons serves coupon stock from coupons.json under dataDir.
type MemoryCoupons struct {
	mu      sync.RWMutex
	coupons []Coupon
}

func NewMemoryCoupons(dataDir string) *MemoryCoupons {
	if dataDir == "" {
		dataDir = "data"
	}
	m := &MemoryCoupons{}
	if data, err := os.ReadFile(filepath.Join(dataDir, "coupons.json")); err == nil {
		var list []Coupon
		if err := json.Unmarshal(data, &list); err == nil {
			m.coupons = list
		}
	}
	return m
}

// Seed replaces the in-memory coupon list. Test helper.
func (m *MemoryCoupons) Seed(coupons []Coupon) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.coupons = coupons
}

func (m *MemoryCoupons) ListActive(ctx context.Context, merchantID int64) ([]Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []Coupon
	for _, c := range m.coupons {
		if c.Active && c.MerchantID == merchantID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (m *MemoryCoupons) RandomActive(ctx context.Context, tier string) (*Coupon, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var eligible []int
	for i, c := range m.coupons {
		if c.Active && c.Remaining > 0 && c.Tier == tier {
			eligible = append(eligible, i)
		}
	}
	if len(eligible) == 0 {
		return nil, nil
	}
	c := m.coupons[eligible[secureIntn(len(eligible))]]
	return &c, nil
}

func (m *MemoryCoupons) DecrementRemaining(ctx context.Context, couponID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.coupons {
		if m.coupons[i].ID == couponID && m.coupons[i].Remaining > 0 {
			m.coupons[i].Remaining--
			return nil
		}
	}
	return nil
}

// Remaining reports current stock for a coupon. Test helper.
func (m *MemoryCoupons) Remaining(couponID int64) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, c := range m.coupons {
		if c.ID == couponID {
			return c.Remaining
		}
	}
	return 0
}
