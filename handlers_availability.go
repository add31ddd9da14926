package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/grtshw/venue-bookings/availability"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
	"golang.org/x/sync/errgroup"
)

const (
	defaultRangeDays    = 180
	alternateSearchDays = 28
	maxPublicLookahead  = 2 * 365
)

// calendarTarget is the vendor calendar behind a venue
type calendarTarget struct {
	VenueID    string
	VenueName  string
	CalendarID string
	Location   *time.Location
}

// resolveCalendar maps a venue id or slug to its calendar. An empty venue
// resolves to the default calendar.
func resolveCalendar(app core.App, svc *services, venue string, activeOnly bool) (*calendarTarget, error) {
	target := &calendarTarget{CalendarID: svc.crm.CalendarID(), Location: svc.loc}
	if venue == "" {
		if target.CalendarID == "" {
			return nil, errors.New("no default calendar configured")
		}
		return target, nil
	}

	record, err := findVenue(app, venue)
	if err != nil {
		return nil, fmt.Errorf("venue %q not found", venue)
	}
	if activeOnly && record.GetString(utils.FieldStatus) != "active" {
		return nil, fmt.Errorf("venue %q not found", venue)
	}

	return venueTarget(record, svc), nil
}

func venueTarget(record *core.Record, svc *services) *calendarTarget {
	target := &calendarTarget{
		VenueID:    record.Id,
		VenueName:  record.GetString("name"),
		CalendarID: record.GetString("calendar_id"),
		Location:   svc.loc,
	}
	if target.CalendarID == "" {
		target.CalendarID = svc.crm.CalendarID()
	}
	if tz := record.GetString("timezone"); tz != "" {
		if loc, err := time.LoadLocation(tz); err == nil {
			target.Location = loc
		}
	}
	return target
}

// parseRange reads start/end query dates in loc. A missing start means today and
// a missing end means start plus defaultDays.
func parseRange(startStr, endStr string, loc *time.Location, now time.Time, defaultDays int) (time.Time, time.Time, error) {
	today := availability.StartOfDay(now.In(loc))

	start := today
	if startStr != "" {
		d, err := availability.ParseDate(startStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		start = d
	}

	end := start.AddDate(0, 0, defaultDays-1)
	if endStr != "" {
		d, err := availability.ParseDate(endStr, loc)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end = d
	}

	if err := availability.ValidateRange(start, end); err != nil {
		return time.Time{}, time.Time{}, err
	}
	return start, end, nil
}

func (s *services) chunkDays() int {
	if s.cfg.AvailabilityChunkDays > 0 {
		return s.cfg.AvailabilityChunkDays
	}
	return availability.DefaultChunkDays
}

func (s *services) fetchAvailability(ctx context.Context, target *calendarTarget, start, end time.Time) (*availability.Report, error) {
	return availability.Fetch(ctx, s.crm, target.CalendarID, start, end, availability.Options{
		ChunkDays: s.chunkDays(),
		Timezone:  target.Location.String(),
		Limiter:   s.slotLimiter,
	})
}

// listMissingDates returns the dates in range with no free slots
func listMissingDates(ctx context.Context, svc *services, target *calendarTarget, start, end time.Time) (*availability.Report, error) {
	report, err := svc.fetchAvailability(ctx, target, start, end)
	if err != nil {
		return nil, err
	}
	log.Printf("[Availability] %s: %d missing, %d unknown between %s and %s",
		target.CalendarID, len(report.Missing), len(report.Unknown), report.Start, report.End)
	return report, nil
}

func calendarUnavailable(re *core.RequestEvent) error {
	return utils.ErrorResponse(re, http.StatusServiceUnavailable, "Calendar is not configured")
}

// handlePublicAvailability returns available and missing dates for a venue
func handlePublicAvailability(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	q := re.Request.URL.Query()
	target, err := resolveCalendar(app, svc, q.Get("venue"), true)
	if err != nil {
		return utils.NotFoundResponse(re, err.Error())
	}

	start, end, err := parseRange(q.Get("start"), q.Get("end"), target.Location, time.Now(), defaultRangeDays)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}
	today := availability.StartOfDay(time.Now().In(target.Location))
	if start.Before(today) {
		start = today
	}
	if end.After(today.AddDate(0, 0, maxPublicLookahead)) || end.Before(start) {
		return utils.BadRequestResponse(re, "Date range must be in the future and within two years")
	}

	report, err := svc.fetchAvailability(re.Request.Context(), target, start, end)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	return utils.DataResponse(re, map[string]any{
		"venue":       target.VenueID,
		"calendar_id": target.CalendarID,
		"timezone":    target.Location.String(),
		"start":       report.Start,
		"end":         report.End,
		"available":   report.Available,
		"missing":     report.Missing,
		"unknown":     report.Unknown,
	})
}

type slotOffer struct {
	Time  string `json:"time"`
	Start string `json:"start"`
	Hold  string `json:"hold"`
}

// handlePublicAvailabilityDay returns sorted slot times for a date, each with a
// signed hold token. When the date is full, nearby alternates are suggested.
func handlePublicAvailabilityDay(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	q := re.Request.URL.Query()
	target, err := resolveCalendar(app, svc, q.Get("venue"), true)
	if err != nil {
		return utils.NotFoundResponse(re, err.Error())
	}

	dateStr := q.Get("date")
	date, err := availability.ParseDate(dateStr, target.Location)
	if err != nil {
		return utils.BadRequestResponse(re, "date must be YYYY-MM-DD")
	}
	now := time.Now()
	today := availability.StartOfDay(now.In(target.Location))
	if date.Before(today) {
		return utils.BadRequestResponse(re, "date is in the past")
	}

	ctx := re.Request.Context()
	report, err := svc.fetchAvailability(ctx, target, date, date)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}
	if len(report.Unknown) > 0 {
		return utils.BadGatewayResponse(re, "Calendar is temporarily unavailable")
	}

	offers, err := slotOffers(target, dateStr, report.Slots[dateStr], svc.cfg.HoldTTL, now)
	if err != nil {
		log.Printf("[Availability] Failed to sign slot holds: %v", err)
		return utils.InternalErrorResponse(re, "Failed to prepare slots")
	}

	resp := map[string]any{
		"date":       dateStr,
		"venue":      target.VenueID,
		"timezone":   target.Location.String(),
		"slots":      offers,
		"alternates": []string{},
	}

	if len(offers) == 0 {
		alternates, err := suggestAlternates(ctx, svc, target, date, today)
		if err != nil {
			log.Printf("[Availability] Alternates lookup failed for %s: %v", dateStr, err)
		} else {
			resp["alternates"] = alternates
		}
	}

	return utils.DataResponse(re, resp)
}

// slotOffers formats raw vendor slots and signs a hold for each
func slotOffers(target *calendarTarget, date string, raw []string, ttl time.Duration, now time.Time) ([]slotOffer, error) {
	offers := []slotOffer{}
	for _, clock := range availability.SlotTimes(raw, target.Location) {
		start, err := availability.SlotStart(date, clock, target.Location)
		if err != nil {
			continue
		}
		token, err := utils.CreateSlotHold(utils.SlotHoldClaims{
			VenueID:    target.VenueID,
			CalendarID: target.CalendarID,
			Date:       date,
			Time:       clock,
			Start:      start.Format(time.RFC3339),
		}, ttl, now)
		if err != nil {
			return nil, err
		}
		offers = append(offers, slotOffer{Time: clock, Start: start.Format(time.RFC3339), Hold: token})
	}
	return offers, nil
}

// suggestAlternates looks alternateSearchDays either side of date, never before
// today. When nothing there is open it walks forward one window at a time, up to
// MaxRangeDays past date, and suggests the first open dates it finds.
func suggestAlternates(ctx context.Context, svc *services, target *calendarTarget, date, today time.Time) ([]string, error) {
	requested := date.Format(availability.DateLayout)

	from := date.AddDate(0, 0, -alternateSearchDays)
	if from.Before(today) {
		from = today
	}
	to := date.AddDate(0, 0, alternateSearchDays)

	report, err := svc.fetchAvailability(ctx, target, from, to)
	if err != nil {
		return nil, err
	}
	if slices.Contains(report.Available, requested) {
		return []string{}, nil
	}
	alternates, err := availability.Alternates(requested, report.Available, availability.DefaultMaxAlternates)
	if err != nil {
		return nil, err
	}

	horizon := date.AddDate(0, 0, availability.MaxRangeDays)
	for len(alternates) == 0 && to.Before(horizon) {
		start := to.AddDate(0, 0, 1)
		to = start.AddDate(0, 0, svc.chunkDays()-1)
		if to.After(horizon) {
			to = horizon
		}

		report, err := svc.fetchAvailability(ctx, target, start, to)
		if err != nil {
			return nil, err
		}
		if len(report.Available) == 0 {
			continue
		}
		alternates, err = availability.Alternates(requested, report.Available, availability.DefaultMaxAlternates)
		if err != nil {
			return nil, err
		}
	}

	if alternates == nil {
		alternates = []string{}
	}
	return alternates, nil
}

// handleAdminAvailabilityDebug returns per-chunk diagnostics and raw slots
func handleAdminAvailabilityDebug(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	q := re.Request.URL.Query()
	target, err := resolveCalendar(app, svc, q.Get("venue"), false)
	if err != nil {
		return utils.NotFoundResponse(re, err.Error())
	}
	if cal := q.Get("calendar_id"); cal != "" {
		target.CalendarID = cal
	}

	start, end, err := parseRange(q.Get("start"), q.Get("end"), target.Location, time.Now(), 60)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	report, err := svc.fetchAvailability(re.Request.Context(), target, start, end)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	slotTimes := make(map[string][]string, len(report.Slots))
	for date, raw := range report.Slots {
		slotTimes[date] = availability.SlotTimes(raw, target.Location)
	}

	return utils.DataResponse(re, map[string]any{
		"report":     report,
		"raw_slots":  report.Slots,
		"slot_times": slotTimes,
		"chunk_days": svc.cfg.AvailabilityChunkDays,
		"timezone":   target.Location.String(),
	})
}

// handleAdminMissingDates lists booked or blocked dates for a calendar
func handleAdminMissingDates(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	q := re.Request.URL.Query()
	target, err := resolveCalendar(app, svc, q.Get("venue"), false)
	if err != nil {
		return utils.NotFoundResponse(re, err.Error())
	}

	start, end, err := parseRange(q.Get("start"), q.Get("end"), target.Location, time.Now(), defaultRangeDays)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	report, err := listMissingDates(re.Request.Context(), svc, target, start, end)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	return utils.DataResponse(re, map[string]any{
		"calendar_id": target.CalendarID,
		"start":       report.Start,
		"end":         report.End,
		"missing":     report.Missing,
		"unknown":     report.Unknown,
		"count":       len(report.Missing),
		"errors":      report.Errors,
	})
}

type venueAvailability struct {
	VenueID       string `json:"venue_id"`
	Name          string `json:"name"`
	CalendarID    string `json:"calendar_id"`
	Available     int    `json:"available"`
	Missing       int    `json:"missing"`
	Unknown       int    `json:"unknown"`
	NextAvailable string `json:"next_available,omitempty"`
	Error         string `json:"error,omitempty"`
}

// handleAdminVenueAvailability summarises availability for every active venue
func handleAdminVenueAvailability(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	venues, err := app.FindRecordsByFilter(utils.CollectionVenues, "status = 'active'", "sort_order,name", svc.cfg.AvailabilityMaxVenues, 0)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to load venues")
	}

	q := re.Request.URL.Query()
	start, end, err := parseRange(q.Get("start"), q.Get("end"), svc.loc, time.Now(), 90)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	results := summariseVenues(re.Request.Context(), svc, venues, start, end)

	return utils.DataResponse(re, map[string]any{
		"start":  start.Format(availability.DateLayout),
		"end":    end.Format(availability.DateLayout),
		"venues": results,
	})
}

// summariseVenues fetches each venue concurrently, bounded by
// AvailabilityMaxParallel. Per-venue failures land in the row's Error.
func summariseVenues(ctx context.Context, svc *services, venues []*core.Record, start, end time.Time) []venueAvailability {
	results := make([]venueAvailability, len(venues))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, svc.cfg.AvailabilityMaxParallel))

	for i, v := range venues {
		target := venueTarget(v, svc)
		results[i] = venueAvailability{VenueID: target.VenueID, Name: target.VenueName, CalendarID: target.CalendarID}

		g.Go(func() error {
			if target.CalendarID == "" {
				results[i].Error = "no calendar configured"
				return nil
			}
			report, err := svc.fetchAvailability(gctx, target, start, end)
			if err != nil {
				results[i].Error = err.Error()
				return nil
			}
			results[i].Available = len(report.Available)
			results[i].Missing = len(report.Missing)
			results[i].Unknown = len(report.Unknown)
			if len(report.Available) > 0 {
				results[i].NextAvailable = report.Available[0]
			}
			return nil
		})
	}

	_ = g.Wait()
	return results
}
