package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/grtshw/venue-bookings/availability"
	"github.com/grtshw/venue-bookings/crm"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const (
	tourDuration  = time.Hour
	maxGuestCount = 2000
	maxNotesLen   = 5000
)

// inquiryForm is the public inquiry and tour-booking payload
type inquiryForm struct {
	FirstName   string `json:"first_name"`
	LastName    string `json:"last_name"`
	Email       string `json:"email"`
	Phone       string `json:"phone"`
	PartnerName string `json:"partner_name"`
	EventDate   string `json:"event_date"`
	GuestCount  int    `json:"guest_count"`
	Venue       string `json:"venue"`
	Package     string `json:"package"`
	Notes       string `json:"notes"`

	// Slot hold from /api/public/availability/day, bookings only
	Hold string `json:"hold,omitempty"`
}

func (f *inquiryForm) normalize() {
	f.FirstName = strings.TrimSpace(f.FirstName)
	f.LastName = strings.TrimSpace(f.LastName)
	f.Email = utils.NormalizeEmail(f.Email)
	f.Phone = strings.TrimSpace(f.Phone)
	f.PartnerName = strings.TrimSpace(f.PartnerName)
	f.EventDate = strings.TrimSpace(f.EventDate)
	f.Venue = strings.TrimSpace(f.Venue)
	f.Package = strings.TrimSpace(f.Package)
	f.Notes = strings.TrimSpace(f.Notes)
}

func (f *inquiryForm) clientName() string {
	return strings.TrimSpace(f.FirstName + " " + f.LastName)
}

// validateInquiry normalizes and checks an inquiry form. Event dates are
// optional but must be today or later in loc.
func validateInquiry(f *inquiryForm, loc *time.Location, now time.Time) error {
	f.normalize()

	if f.FirstName == "" {
		return errors.New("first_name is required")
	}
	if !utils.IsValidEmail(f.Email) {
		return errors.New("a valid email is required")
	}
	if f.GuestCount < 0 || f.GuestCount > maxGuestCount {
		return fmt.Errorf("guest_count must be between 0 and %d", maxGuestCount)
	}
	if len(f.Notes) > maxNotesLen {
		return fmt.Errorf("notes must be at most %d characters", maxNotesLen)
	}
	if f.EventDate != "" {
		d, err := availability.ParseDate(f.EventDate, loc)
		if err != nil {
			return errors.New("event_date must be YYYY-MM-DD")
		}
		if d.Before(availability.StartOfDay(now.In(loc))) {
			return errors.New("event_date is in the past")
		}
	}
	return nil
}

// bookingRefs are the venue and package records an inquiry points at
type bookingRefs struct {
	Venue   *core.Record
	Package *core.Record
}

func (r bookingRefs) venueName() string {
	if r.Venue == nil {
		return ""
	}
	return r.Venue.GetString("name")
}

func (r bookingRefs) packageName() string {
	if r.Package == nil {
		return ""
	}
	return r.Package.GetString("name")
}

// resolveRefs loads the active venue and package named by the form
func resolveRefs(app core.App, f *inquiryForm) (bookingRefs, error) {
	var refs bookingRefs
	if f.Venue != "" {
		v, err := findVenue(app, f.Venue)
		if err != nil || v.GetString(utils.FieldStatus) != "active" {
			return refs, errors.New("venue not found")
		}
		refs.Venue = v
	}
	if f.Package != "" {
		p, err := app.FindRecordById(utils.CollectionPackages, f.Package)
		if err != nil || p.GetString(utils.FieldStatus) != "active" {
			return refs, errors.New("package not found")
		}
		if refs.Venue != nil && p.GetString("venue") != refs.Venue.Id {
			return refs, errors.New("package does not belong to venue")
		}
		refs.Package = p
	}
	return refs, nil
}

// findVenue looks a venue up by id, then by slug
func findVenue(app core.App, idOrSlug string) (*core.Record, error) {
	if v, err := app.FindRecordById(utils.CollectionVenues, idOrSlug); err == nil {
		return v, nil
	}
	return app.FindFirstRecordByFilter(utils.CollectionVenues, "slug = {:slug}", map[string]any{"slug": idOrSlug})
}

func contactInput(f *inquiryForm, refs bookingRefs, source string, tags ...string) crm.ContactInput {
	return crm.ContactInput{
		FirstName:  f.FirstName,
		LastName:   f.LastName,
		Email:      f.Email,
		Phone:      f.Phone,
		Source:     source,
		Tags:       tags,
		EventDate:  f.EventDate,
		GuestCount: f.GuestCount,
		Venue:      refs.venueName(),
		Package:    refs.packageName(),
		Notes:      f.Notes,
	}
}

// newBookingRecord builds an unsaved bookings record from a validated form
func newBookingRecord(app core.App, f *inquiryForm, refs bookingRefs, status, source string) (*core.Record, error) {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionBookings)
	if err != nil {
		return nil, err
	}

	record := core.NewRecord(collection)
	record.Set("client_name", f.clientName())
	record.Set("client_email", f.Email)
	record.Set("client_phone", f.Phone)
	record.Set("partner_name", f.PartnerName)
	record.Set("guest_count", f.GuestCount)
	record.Set("notes", f.Notes)
	record.Set(utils.FieldStatus, status)
	record.Set(utils.FieldSource, source)
	if f.EventDate != "" {
		record.Set(utils.FieldEventDate, f.EventDate)
	}
	if refs.Venue != nil {
		record.Set("venue", refs.Venue.Id)
		record.Set("calendar_id", refs.Venue.GetString("calendar_id"))
	}
	if refs.Package != nil {
		record.Set("package", refs.Package.Id)
		record.Set("value", refs.Package.GetFloat("price"))
	}
	return record, nil
}

// crmFailureMessage logs a vendor error and returns a client-safe message
func crmFailureMessage(op string, err error) string {
	var apiErr *crm.APIError
	if errors.As(err, &apiErr) {
		log.Printf("[CRM] %s failed with status %d: %s", op, apiErr.StatusCode, apiErr.Body)
	} else {
		log.Printf("[CRM] %s failed: %v", op, err)
	}
	return "Our booking system is temporarily unavailable. Please try again shortly."
}

// handlePublicInquiry stores an inquiry and pushes the contact to the CRM.
// The booking is kept even when the CRM is down; crm_synced reports the outcome.
func handlePublicInquiry(re *core.RequestEvent, app core.App, svc *services) error {
	var form inquiryForm
	if err := json.NewDecoder(re.Request.Body).Decode(&form); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}
	if err := validateInquiry(&form, svc.loc, time.Now()); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	refs, err := resolveRefs(app, &form)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	record, err := newBookingRecord(app, &form, refs, utils.BookingInquiry, "website")
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find bookings collection")
	}

	synced := false
	if svc.crm.Configured() {
		contact, created, err := svc.crm.UpsertContact(re.Request.Context(), contactInput(&form, refs, "website"))
		if err != nil {
			crmFailureMessage("upsert_contact", err)
			utils.LogFromRequest(app, re, "crm_upsert", utils.CollectionBookings, "", "failure", nil, err.Error())
		} else {
			synced = true
			record.Set(utils.FieldCRMContact, contact.ID)
			log.Printf("[CRM] Upserted contact %s (new=%v) for inquiry", contact.ID, created)
		}
	}

	if err := app.Save(record); err != nil {
		log.Printf("[Inquiry] Failed to save booking: %v", err)
		return utils.InternalErrorResponse(re, "Failed to save inquiry")
	}

	if synced {
		utils.LogFromRequest(app, re, "crm_upsert", utils.CollectionBookings, record.Id, "success", map[string]any{
			"crm_contact_id": record.GetString(utils.FieldCRMContact),
		}, "")
	}

	return re.JSON(http.StatusCreated, map[string]any{
		"id":         record.Id,
		"status":     utils.BookingInquiry,
		"crm_synced": synced,
	})
}

// handlePublicBooking books a venue tour for a held slot
func handlePublicBooking(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	var form inquiryForm
	if err := json.NewDecoder(re.Request.Body).Decode(&form); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}

	now := time.Now()
	hold, err := utils.ValidateSlotHold(form.Hold, now)
	if err != nil {
		if errors.Is(err, utils.ErrHoldExpired) {
			return utils.GoneResponse(re, "This time slot hold has expired. Please choose a time again.")
		}
		return utils.BadRequestResponse(re, "A valid slot hold is required")
	}

	if err := validateInquiry(&form, svc.loc, now); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}
	if hold.VenueID != "" {
		form.Venue = hold.VenueID
	}

	refs, err := resolveRefs(app, &form)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	start, err := time.Parse(time.RFC3339, hold.Start)
	if err != nil {
		return utils.BadRequestResponse(re, "A valid slot hold is required")
	}

	target := &calendarTarget{CalendarID: hold.CalendarID, Location: svc.loc}
	if refs.Venue != nil {
		target = venueTarget(refs.Venue, svc)
		target.CalendarID = hold.CalendarID
	}

	ctx := re.Request.Context()
	stillFree, alternates, err := confirmSlotFree(ctx, svc, target, hold)
	if err != nil {
		return utils.BadGatewayResponse(re, crmFailureMessage("free_slots", err))
	}
	if !stillFree {
		return re.JSON(http.StatusConflict, map[string]any{
			"error":      "That time has just been taken. Please pick another.",
			"alternates": alternates,
		})
	}

	contact, _, err := svc.crm.UpsertContact(ctx, contactInput(&form, refs, "website", "tour-booked"))
	if err != nil {
		utils.LogFromRequest(app, re, "crm_upsert", utils.CollectionBookings, "", "failure", nil, err.Error())
		return utils.BadGatewayResponse(re, crmFailureMessage("upsert_contact", err))
	}

	title := "Venue tour: " + form.clientName()
	if name := refs.venueName(); name != "" {
		title += " @ " + name
	}
	address := ""
	if refs.Venue != nil {
		address = refs.Venue.GetString("address")
	}

	appt, err := svc.crm.BookAppointment(ctx, crm.AppointmentInput{
		CalendarID: hold.CalendarID,
		ContactID:  contact.ID,
		Title:      title,
		Start:      start,
		End:        start.Add(tourDuration),
		Address:    address,
		Notes:      form.Notes,
	})
	if err != nil {
		utils.LogFromRequest(app, re, "crm_booking", utils.CollectionBookings, "", "failure", map[string]any{
			"calendar_id": hold.CalendarID,
			"start":       hold.Start,
		}, err.Error())
		return utils.BadGatewayResponse(re, crmFailureMessage("book_appointment", err))
	}

	record, err := newBookingRecord(app, &form, refs, utils.BookingTourBooked, "website")
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find bookings collection")
	}
	record.Set("calendar_id", hold.CalendarID)
	record.Set("start_time", hold.Time)
	record.Set("appointment_at", start.UTC())
	record.Set(utils.FieldCRMContact, contact.ID)
	record.Set(utils.FieldCRMAppt, appt.ID)

	if err := app.Save(record); err != nil {
		// The appointment exists in the CRM; calendar sync recreates the record
		log.Printf("[Booking] Failed to save booking for appointment %s: %v", appt.ID, err)
		return utils.InternalErrorResponse(re, "Booking confirmed but could not be saved locally")
	}

	utils.LogFromRequest(app, re, "crm_booking", utils.CollectionBookings, record.Id, "success", map[string]any{
		"crm_appointment_id": appt.ID,
		"calendar_id":        hold.CalendarID,
		"start":              hold.Start,
	}, "")

	confirmation := bookingConfirmation{
		Email:     form.Email,
		Name:      form.FirstName,
		Venue:     refs.venueName(),
		Address:   address,
		Date:      hold.Date,
		Time:      hold.Time,
		Timezone:  target.Location.String(),
		Reference: record.Id,
	}
	go func() {
		if err := sendBookingConfirmationEmail(app, confirmation); err != nil {
			log.Printf("[Booking] Confirmation email failed for %s: %v", record.Id, err)
		}
	}()

	return re.JSON(http.StatusCreated, map[string]any{
		"id":                 record.Id,
		"status":             utils.BookingTourBooked,
		"crm_appointment_id": appt.ID,
		"date":               hold.Date,
		"time":               hold.Time,
		"start":              hold.Start,
	})
}

// confirmSlotFree re-reads the held date and reports whether the held time is
// still offered. When it is not, alternates for the date are returned.
func confirmSlotFree(ctx context.Context, svc *services, target *calendarTarget, hold *utils.SlotHoldClaims) (bool, []string, error) {
	date, err := availability.ParseDate(hold.Date, target.Location)
	if err != nil {
		return false, nil, err
	}

	report, err := svc.fetchAvailability(ctx, target, date, date)
	if err != nil {
		return false, nil, err
	}
	if len(report.Unknown) > 0 {
		return false, nil, fmt.Errorf("free slots unavailable: %s", strings.Join(report.Errors, "; "))
	}

	if slices.Contains(availability.SlotTimes(report.Slots[hold.Date], target.Location), hold.Time) {
		return true, nil, nil
	}

	today := availability.StartOfDay(time.Now().In(target.Location))
	alternates, err := suggestAlternates(ctx, svc, target, date, today)
	if err != nil {
		log.Printf("[Booking] Alternates lookup failed for %s: %v", hold.Date, err)
		alternates = []string{}
	}
	if !slices.Contains(alternates, hold.Date) && len(report.Available) > 0 {
		// other times remain on the same day
		alternates = append([]string{hold.Date}, alternates...)
	}
	return false, alternates, nil
}
