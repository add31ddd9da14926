package main

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"slices"
	"strconv"

	"github.com/grtshw/venue-bookings/availability"
	"github.com/grtshw/venue-bookings/pricing"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

// loadPricingConfig returns the stored pricing config, or the defaults when
// none has been saved. The record is nil in that case.
func loadPricingConfig(app core.App) (pricing.Config, *core.Record, error) {
	records, err := app.FindRecordsByFilter(utils.CollectionPricingConfig, "", "-updated", 1, 0)
	if err != nil || len(records) == 0 {
		return pricing.Default(), nil, nil
	}
	record := records[0]

	cfg := pricing.Config{
		Currency:        record.GetString("currency"),
		BasePrice:       record.GetFloat("base_price"),
		PeakMultiplier:  record.GetFloat("peak_multiplier"),
		WeekdayDiscount: record.GetFloat("weekday_discount"),
		DepositRate:     record.GetFloat("deposit_rate"),
	}
	if err := record.UnmarshalJSONField("peak_months", &cfg.PeakMonths); err != nil {
		return cfg, record, err
	}
	if err := record.UnmarshalJSONField("guest_tiers", &cfg.GuestTiers); err != nil {
		return cfg, record, err
	}
	return cfg, record, nil
}

func setPricingFields(record *core.Record, cfg pricing.Config) {
	record.Set("currency", cfg.Currency)
	record.Set("base_price", cfg.BasePrice)
	record.Set("peak_multiplier", cfg.PeakMultiplier)
	record.Set("peak_months", cfg.PeakMonths)
	record.Set("weekday_discount", cfg.WeekdayDiscount)
	record.Set("deposit_rate", cfg.DepositRate)
	record.Set("guest_tiers", cfg.GuestTiers)
}

// mergePricing applies a partial JSON config over current. Fields absent from
// body keep their current values; lists present in body replace the current
// lists outright. current is not modified.
func mergePricing(current pricing.Config, body []byte) (pricing.Config, error) {
	var present map[string]json.RawMessage
	if err := json.Unmarshal(body, &present); err != nil {
		return current, err
	}

	merged := current
	merged.PeakMonths = slices.Clone(current.PeakMonths)
	merged.GuestTiers = slices.Clone(current.GuestTiers)
	if _, ok := present["peak_months"]; ok {
		merged.PeakMonths = nil
	}
	if _, ok := present["guest_tiers"]; ok {
		merged.GuestTiers = nil
	}

	if err := json.Unmarshal(body, &merged); err != nil {
		return current, err
	}
	return merged, nil
}

// handlePublicPricing returns the active pricing config
func handlePublicPricing(re *core.RequestEvent, app core.App) error {
	cfg, _, err := loadPricingConfig(app)
	if err != nil {
		log.Printf("[Pricing] Stored config unreadable: %v", err)
		return utils.InternalErrorResponse(re, "Failed to load pricing")
	}
	return utils.DataResponse(re, cfg)
}

// handlePricingUpdate merges a partial config over the current one and saves it
func handlePricingUpdate(re *core.RequestEvent, app core.App) error {
	cfg, record, err := loadPricingConfig(app)
	if err != nil {
		log.Printf("[Pricing] Stored config unreadable, starting from defaults: %v", err)
		cfg = pricing.Default()
	}
	before := cfg

	body, err := io.ReadAll(re.Request.Body)
	if err != nil {
		return utils.BadRequestResponse(re, "Failed to read request body")
	}
	cfg, err = mergePricing(before, body)
	if err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if err := cfg.Validate(); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	if record == nil {
		collection, err := app.FindCollectionByNameOrId(utils.CollectionPricingConfig)
		if err != nil {
			return utils.InternalErrorResponse(re, "Failed to find pricing collection")
		}
		record = core.NewRecord(collection)
	}
	setPricingFields(record, cfg)
	if re.Auth != nil {
		record.Set("updated_by", re.Auth.Id)
	}

	if err := app.Save(record); err != nil {
		log.Printf("[Pricing] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to update pricing")
	}

	utils.LogFromRequest(app, re, "pricing_update", utils.CollectionPricingConfig, record.Id, "success", map[string]any{
		"before": before,
		"after":  cfg,
	}, "")

	return utils.DataResponse(re, cfg)
}

// handlePricingQuote prices a package for a date and guest count
func handlePricingQuote(re *core.RequestEvent, app core.App, svc *services) error {
	q := re.Request.URL.Query()

	pkgRecord, err := app.FindRecordById(utils.CollectionPackages, q.Get("package"))
	if err != nil || pkgRecord.GetString(utils.FieldStatus) != "active" {
		return utils.NotFoundResponse(re, "Package not found")
	}

	loc := svc.loc
	if venue, err := app.FindRecordById(utils.CollectionVenues, pkgRecord.GetString("venue")); err == nil {
		loc = venueTarget(venue, svc).Location
	}

	date, err := availability.ParseDate(q.Get("date"), loc)
	if err != nil {
		return utils.BadRequestResponse(re, "date must be YYYY-MM-DD")
	}

	guests, err := strconv.Atoi(q.Get("guests"))
	if err != nil {
		return utils.BadRequestResponse(re, "guests must be a number")
	}

	cfg, _, err := loadPricingConfig(app)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load pricing")
	}

	quote, err := pricing.QuoteFor(cfg, pricing.Package{
		ID:             pkgRecord.Id,
		Name:           pkgRecord.GetString("name"),
		Price:          pkgRecord.GetFloat("price"),
		IncludedGuests: pkgRecord.GetInt("included_guests"),
		MaxGuests:      pkgRecord.GetInt("max_guests"),
	}, date, guests)
	if err != nil {
		if errors.Is(err, pricing.ErrTooManyGuests) || errors.Is(err, pricing.ErrInvalidGuests) {
			return utils.BadRequestResponse(re, err.Error())
		}
		return utils.InternalErrorResponse(re, "Failed to compute quote")
	}

	return utils.DataResponse(re, quote)
}
