// Package rarity rolls a reward tier from a mutable probability table.
package rarity

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/trippop/gacha-reward-server/confstore"
)

// Tier is a named reward class.
type Tier string

const (
	TierSP  Tier = "SP"
	TierSSR Tier = "SSR"
	TierSR  Tier = "SR"
	TierS   Tier = "S"
	TierR   Tier = "R"
)

// rollOrder is the fixed priority walk for cumulative weights. Rarer tiers
// come first so their bands sit at the bottom of the [0,100) range.
var rollOrder = []Tier{TierSP, TierSSR, TierSR, TierS, TierR}

// Weights maps tier to its percentage weight. Weights sum to at most 100;
// the remainder is the no-reward band.
type Weights map[Tier]float64

// DefaultWeights is the shipped probability table: 80% of draws win some
// tier, 20% win nothing.
func DefaultWeights() Weights {
	return Weights{
		TierSP:  2,
		TierSSR: 8,
		TierSR:  15,
		TierS:   23,
		TierR:   32,
	}
}

// Sum returns the total win probability of the table.
func (w Weights) Sum() float64 {
	var total float64
	for _, v := range w {
		total += v
	}
	return total
}

// Validate rejects tables with negative weights or a sum above 100.
func (w Weights) Validate() error {
	for tier, v := range w {
		if v < 0 {
			return fmt.Errorf("rarity: negative weight for tier %s", tier)
		}
	}
	if w.Sum() > 100 {
		return fmt.Errorf("rarity: weights sum %.2f exceeds 100", w.Sum())
	}
	return nil
}

// Configuration store keys for the weight table.
const (
	ConfCategory   = "gacha"
	ConfKeyWeights = "rarity_weights"
)

// rollResolution gives 0.01 percentage-point resolution on the uniform draw.
const rollResolution = 10000

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

// RollWith draws one uniform value in [0,100) and walks the table in fixed
// tier order. Returns false when the draw lands in the no-reward remainder.
func RollWith(w Weights) (Tier, bool) {
	x := float64(secureIntn(rollResolution)) / (rollResolution / 100.0)
	var cum float64
	for _, tier := range rollOrder {
		weight := w[tier]
		if weight <= 0 {
			continue
		}
		cum += weight
		if x < cum {
			return tier, true
		}
	}
	return "", false
}

// Roller reads its weight table through the configuration store on every
// roll, so admin updates apply without a restart. Caching is the store's
// concern (invalidate-on-write), not the roller's.
type Roller struct {
	conf confstore.Store
}

func NewRoller(conf confstore.Store) *Roller {
	return &Roller{conf: conf}
}

func (r *Roller) weights(ctx context.Context) (Weights, error) {
	raw, ok, err := r.conf.Get(ctx, ConfCategory, ConfKeyWeights)
	if err != nil {
		return nil, err
	}
	if !ok || raw == "" {
		return DefaultWeights(), nil
	}
	var w Weights
	if err := json.Unmarshal([]byte(raw), &w); err != nil {
		return nil, fmt.Errorf("rarity: bad weight table in config: %w", err)
	}
	return w, nil
}

// Roll returns the won tier, or false when no reward was won.
func (r *Roller) Roll(ctx context.Context) (Tier, bool, error) {
	w, err := r.weights(ctx)
	if err != nil {
		return "", false, err
	}
	tier, won := RollWith(w)
	return tier, won, nil
}

// Update validates and stores a new weight table. Takes effect on the next
// roll via the store's write-through invalidation.
func (r *Roller) Update(ctx context.Context, w Weights) error {
	if err := w.Validate(); err != nil {
		return err
	}
	data, err := json.Marshal(w)
	if err != nil {
		return err
	}
	return r.conf.Set(ctx, ConfCategory, ConfKeyWeights, string(data))
}
