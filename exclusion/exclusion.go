// Package exclusion keeps the penalty ledger that suppresses rejected
// places from future draws.
package exclusion

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/trippop/gacha-reward-server/catalog"
	"github.com/trippop/gacha-reward-server/confstore"
)

// Scope distinguishes per-user scored records from permanent global ones.
// A global record excludes the place for every user regardless of score.
type Scope string

const (
	ScopeUser   Scope = "user"
	ScopeGlobal Scope = "global"
)

// Record is one ledger row. UserID is nil for global records.
type Record struct {
	UserID    *uuid.UUID     `json:"userId,omitempty"`
	PlaceName string         `json:"placeName"`
	Locale    catalog.Locale `json:"locale"`
	Scope     Scope          `json:"scope"`
	Score     int            `json:"score"`
	LastAt    time.Time      `json:"lastAt"`
}

// Ledger filters DrawSelector's candidate pool.
type Ledger interface {
	// IsExcluded is true when a global record exists for the place, or the
	// user's penalty score has reached the configured threshold.
	IsExcluded(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) (bool, error)
	// Penalize adds one penalty point for the user (create-if-absent) and
	// stamps the last interaction time.
	Penalize(ctx context.Context, userID uuid.UUID, placeName string, loc catalog.Locale) error
	// GlobalExclude permanently excludes the place for all users. Idempotent.
	GlobalExclude(ctx context.Context, placeName string, loc catalog.Locale) error
}

// Configuration store keys.
const (
	ConfCategory     = "gacha"
	ConfKeyThreshold = "exclusion_threshold"
)

// DefaultThreshold is the penalty score at which a user-scoped record
// starts excluding the place.
const DefaultThreshold = 3

// Threshold reads the configured penalty threshold, falling back to the
// default on missing or malformed values.
func Threshold(ctx context.Context, conf confstore.Store) int {
	raw, ok, err := conf.Get(ctx, ConfCategory, ConfKeyThreshold)
	if err != nil || !ok {
		return DefaultThreshold
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return DefaultThreshold
	}
	return n
}
