// Package pricing validates the venue pricing configuration and computes
// quotes for a package on a given date.
package pricing

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"time"
)

const (
	MinPeakMultiplier  = 1.0
	MaxPeakMultiplier  = 3.0
	MaxWeekdayDiscount = 0.5
)

var (
	ErrTooManyGuests = errors.New("guest count exceeds capacity")
	ErrInvalidGuests = errors.New("guest count must be positive")
)

// GuestTier charges PricePerGuest for every guest over the package allowance
// while the party is at most MaxGuests.
type GuestTier struct {
	MaxGuests     int     `json:"max_guests"`
	PricePerGuest float64 `json:"price_per_guest"`
}

// Config is the singleton pricing_config record
type Config struct {
	Currency        string      `json:"currency"`
	BasePrice       float64     `json:"base_price"`
	PeakMultiplier  float64     `json:"peak_multiplier"`
	PeakMonths      []int       `json:"peak_months"`
	WeekdayDiscount float64     `json:"weekday_discount"`
	DepositRate     float64     `json:"deposit_rate"`
	GuestTiers      []GuestTier `json:"guest_tiers"`
}

// Default is seeded on first migration
func Default() Config {
	return Config{
		Currency:        "AUD",
		BasePrice:       4500,
		PeakMultiplier:  1.25,
		PeakMonths:      []int{3, 4, 10, 11},
		WeekdayDiscount: 0.15,
		DepositRate:     0.25,
		GuestTiers: []GuestTier{
			{MaxGuests: 80, PricePerGuest: 95},
			{MaxGuests: 150, PricePerGuest: 85},
			{MaxGuests: 250, PricePerGuest: 75},
		},
	}
}

// Validate enforces the admin form rules
func (c Config) Validate() error {
	if c.BasePrice < 0 {
		return errors.New("base_price must be zero or more")
	}
	if c.PeakMultiplier < MinPeakMultiplier || c.PeakMultiplier > MaxPeakMultiplier {
		return fmt.Errorf("peak_multiplier must be between %.0f and %.0f", MinPeakMultiplier, MaxPeakMultiplier)
	}
	if c.WeekdayDiscount < 0 || c.WeekdayDiscount > MaxWeekdayDiscount {
		return fmt.Errorf("weekday_discount must be between 0 and %.1f", MaxWeekdayDiscount)
	}
	if c.DepositRate < 0 || c.DepositRate > 1 {
		return errors.New("deposit_rate must be between 0 and 1")
	}
	for _, m := range c.PeakMonths {
		if m < 1 || m > 12 {
			return fmt.Errorf("peak_months: %d is not a month", m)
		}
	}
	for i, t := range c.GuestTiers {
		if t.MaxGuests <= 0 {
			return fmt.Errorf("guest_tiers[%d]: max_guests must be positive", i)
		}
		if t.PricePerGuest < 0 {
			return fmt.Errorf("guest_tiers[%d]: price_per_guest must be zero or more", i)
		}
		if i > 0 && t.MaxGuests <= c.GuestTiers[i-1].MaxGuests {
			return fmt.Errorf("guest_tiers must be strictly ascending by max_guests")
		}
	}
	return nil
}

// Package is the priced subset of a packages record
type Package struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	IncludedGuests int     `json:"included_guests"`
	MaxGuests      int     `json:"max_guests"`
}

// Quote is the breakdown returned to the pricing widget
type Quote struct {
	PackageID       string  `json:"package_id"`
	Date            string  `json:"date"`
	Weekday         string  `json:"weekday"`
	Guests          int     `json:"guests"`
	Currency        string  `json:"currency"`
	BasePrice       float64 `json:"base_price"`
	PackagePrice    float64 `json:"package_price"`
	ExtraGuests     int     `json:"extra_guests"`
	PricePerGuest   float64 `json:"price_per_guest"`
	GuestCharge     float64 `json:"guest_charge"`
	Subtotal        float64 `json:"subtotal"`
	Peak            bool    `json:"peak"`
	PeakAdjustment  float64 `json:"peak_adjustment"`
	OffPeakWeekday  bool    `json:"off_peak_weekday"`
	WeekdayDiscount float64 `json:"weekday_discount"`
	Total           float64 `json:"total"`
	Deposit         float64 `json:"deposit"`
}

// IsWeekday reports Monday to Thursday, the discounted days
func IsWeekday(d time.Time) bool {
	switch d.Weekday() {
	case time.Friday, time.Saturday, time.Sunday:
		return false
	}
	return true
}

// QuoteFor prices pkg for guests on date. The peak multiplier applies to the
// subtotal first, then the weekday discount applies to the adjusted amount.
func QuoteFor(cfg Config, pkg Package, date time.Time, guests int) (Quote, error) {
	if guests <= 0 {
		return Quote{}, ErrInvalidGuests
	}
	if pkg.MaxGuests > 0 && guests > pkg.MaxGuests {
		return Quote{}, fmt.Errorf("%w: %s allows %d", ErrTooManyGuests, pkg.Name, pkg.MaxGuests)
	}

	q := Quote{
		PackageID:    pkg.ID,
		Date:         date.Format("2006-01-02"),
		Weekday:      date.Weekday().String(),
		Guests:       guests,
		Currency:     cfg.Currency,
		BasePrice:    cfg.BasePrice,
		PackagePrice: pkg.Price,
	}

	if extra := guests - pkg.IncludedGuests; extra > 0 {
		tier, ok := tierFor(cfg.GuestTiers, guests)
		if !ok {
			return Quote{}, ErrTooManyGuests
		}
		q.ExtraGuests = extra
		q.PricePerGuest = tier.PricePerGuest
		q.GuestCharge = round(float64(extra) * tier.PricePerGuest)
	}

	q.Subtotal = round(q.BasePrice + q.PackagePrice + q.GuestCharge)
	amount := q.Subtotal

	if slices.Contains(cfg.PeakMonths, int(date.Month())) && cfg.PeakMultiplier > 1 {
		q.Peak = true
		q.PeakAdjustment = round(amount*cfg.PeakMultiplier - amount)
		amount += q.PeakAdjustment
	}

	if IsWeekday(date) && cfg.WeekdayDiscount > 0 {
		q.OffPeakWeekday = true
		q.WeekdayDiscount = round(amount * cfg.WeekdayDiscount)
		amount -= q.WeekdayDiscount
	}

	q.Total = round(amount)
	q.Deposit = round(q.Total * cfg.DepositRate)
	return q, nil
}

// tierFor returns the first tier whose cap covers guests. No tiers means
// extra guests are free.
func tierFor(tiers []GuestTier, guests int) (GuestTier, bool) {
	if len(tiers) == 0 {
		return GuestTier{}, true
	}
	for _, t := range tiers {
		if guests <= t.MaxGuests {
			return t, true
		}
	}
	return GuestTier{}, false
}

func round(v float64) float64 {
	return math.Round(v*100) / 100
}
