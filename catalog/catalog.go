package catalog

import "context"

// Locale identifies a draw area. District may be empty, meaning the whole
// city.
type Locale struct {
	Country  string `json:"country"`
	City     string `json:"city"`
	District string `json:"district,omitempty"`
}

// Place categories recognized by the dedup radius table.
const (
	CategoryScenic        = "scenic"
	CategoryCultural      = "cultural"
	CategoryFood          = "food"
	CategoryShopping      = "shopping"
	CategoryActivity      = "activity"
	CategoryEntertainment = "entertainment"
	CategoryLodging       = "lodging"
)

// Place is reference data owned by the catalog collaborator. Read-only to
// the gacha core.
type Place struct {
	ID          int64    `json:"id" db:"id"`
	Name        string   `json:"name" db:"name"`
	Country     string   `json:"country" db:"country"`
	City        string   `json:"city" db:"city"`
	District    string   `json:"district" db:"district"`
	Category    string   `json:"category" db:"category"`
	Rating      float64  `json:"rating" db:"rating"`
	Lat         *float64 `json:"lat,omitempty" db:"lat"`
	Lng         *float64 `json:"lng,omitempty" db:"lng"`
	Photo       string   `json:"photo,omitempty" db:"photo"`
	Description string   `json:"description,omitempty" db:"description"`
	Active      bool     `json:"active" db:"active"`
}

func (p *Place) HasCoords() bool { return p.Lat != nil && p.Lng != nil }

// Score ranks a place among geo-duplicates: rating plus bonuses for having
// coordinates, a photo and a description.
func (p *Place) Score() float64 {
	s := p.Rating
	if p.HasCoords() {
		s += 0.5
	}
	if p.Photo != "" {
		s += 0.3
	}
	if p.Description != "" {
		s += 0.2
	}
	return s
}

// Coupon is merchant-issued reward stock.
type Coupon struct {
	ID         int64  `json:"id" db:"id"`
	MerchantID int64  `json:"merchantId" db:"merchant_id"`
	Title      string `json:"title" db:"title"`
	Tier       string `json:"tier" db:"tier"`
	Remaining  int    `json:"remaining" db:"remaining"`
	ValidDays  int    `json:"validDays" db:"valid_days"`
	Active     bool   `json:"active" db:"active"`
}

// PlaceProvider is the place catalog collaborator contract.
type PlaceProvider interface {
	ListActive(ctx context.Context, loc Locale) ([]Place, error)
	FindByID(ctx context.Context, id int64) (*Place, error)
}

// CouponProvider is the coupon catalog collaborator contract.
type CouponProvider interface {
	ListActive(ctx context.Context, merchantID int64) ([]Coupon, error)
	// RandomActive picks one coupon with stock in the given tier, or nil
	// when the tier has none.
	RandomActive(ctx context.Context, tier string) (*Coupon, error)
	DecrementRemaining(ctx context.Context, couponID int64) error
}
