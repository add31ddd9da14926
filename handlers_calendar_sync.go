package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/grtshw/venue-bookings/availability"
	"github.com/grtshw/venue-bookings/crm"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const defaultSyncDays = 90

// syncCounts tallies a calendar sync run
type syncCounts struct {
	Processed int      `json:"records_processed"`
	Created   int      `json:"records_created"`
	Updated   int      `json:"records_updated"`
	Errors    []string `json:"errors,omitempty"`
}

// mapAppointmentStatus converts a vendor appointment status to a booking
// status. ok is false for statuses we do not track.
func mapAppointmentStatus(vendorStatus string, deleted bool) (status string, ok bool) {
	if deleted {
		return utils.BookingCancelled, true
	}
	switch strings.ToLower(strings.TrimSpace(vendorStatus)) {
	case "new", "booked", "confirmed", "showed":
		return utils.BookingTourBooked, true
	case "cancelled", "canceled", "noshow", "no_show", "invalid":
		return utils.BookingCancelled, true
	}
	return "", false
}

// nextBookingStatus applies a status derived from the tour appointment.
// Bookings past the tour stage (hold, confirmed, completed) are left as they are.
func nextBookingStatus(current, fromAppointment string) string {
	switch current {
	case "", utils.BookingInquiry, utils.BookingTourBooked:
		return fromAppointment
	case utils.BookingCancelled:
		if fromAppointment == utils.BookingTourBooked {
			return utils.BookingTourBooked
		}
	}
	return current
}

// parseEventTime reads vendor event timestamps, which are RFC3339 or a local
// "2006-01-02 15:04:05" in the calendar timezone.
func parseEventTime(s string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	return time.ParseInLocation("2006-01-02 15:04:05", s, loc)
}

// reconcileEvent creates or updates the booking for a calendar event
func reconcileEvent(app core.App, ev crm.CalendarEvent, loc *time.Location) (created, updated bool, err error) {
	status, ok := mapAppointmentStatus(ev.Status, ev.Deleted)
	if !ok {
		return false, false, nil
	}
	if ev.ID == "" {
		return false, false, fmt.Errorf("event without id")
	}

	start, err := parseEventTime(ev.StartTime, loc)
	if err != nil {
		return false, false, fmt.Errorf("event %s: invalid start time %q", ev.ID, ev.StartTime)
	}

	existing, _ := app.FindFirstRecordByFilter(utils.CollectionBookings,
		"crm_appointment_id = {:id}", map[string]any{"id": ev.ID})

	if existing != nil {
		changed := false
		if next := nextBookingStatus(existing.GetString(utils.FieldStatus), status); next != existing.GetString(utils.FieldStatus) {
			existing.Set(utils.FieldStatus, next)
			changed = true
		}
		if !existing.GetDateTime("appointment_at").Time().Equal(start.UTC()) {
			existing.Set("appointment_at", start.UTC())
			existing.Set("start_time", availability.FormatClock(start.In(loc).Hour()*60+start.In(loc).Minute()))
			changed = true
		}
		if !changed {
			return false, false, nil
		}
		decryptBookingPII(existing)
		if err := app.Save(existing); err != nil {
			return false, false, fmt.Errorf("update booking %s: %w", existing.Id, err)
		}
		return false, true, nil
	}

	if ev.Deleted || status == utils.BookingCancelled {
		return false, false, nil
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionBookings)
	if err != nil {
		return false, false, err
	}

	name := strings.TrimSpace(ev.Title)
	if name == "" {
		name = "Calendar booking"
	}

	record := core.NewRecord(collection)
	record.Set("client_name", name)
	record.Set(utils.FieldStatus, status)
	record.Set(utils.FieldSource, "crm")
	record.Set("calendar_id", ev.CalendarID)
	record.Set(utils.FieldCRMContact, ev.ContactID)
	record.Set(utils.FieldCRMAppt, ev.ID)
	record.Set("appointment_at", start.UTC())
	record.Set("start_time", availability.FormatClock(start.In(loc).Hour()*60+start.In(loc).Minute()))
	if venue, err := app.FindFirstRecordByFilter(utils.CollectionVenues,
		"calendar_id = {:cal}", map[string]any{"cal": ev.CalendarID}); err == nil {
		record.Set("venue", venue.Id)
	}

	if err := app.Save(record); err != nil {
		return false, false, fmt.Errorf("create booking for event %s: %w", ev.ID, err)
	}
	return true, false, nil
}

// decryptBookingPII restores plaintext before a save so field validation sees
// the real values. The encryption hook re-encrypts on write.
func decryptBookingPII(record *core.Record) {
	for _, field := range utils.PIIFields[utils.CollectionBookings] {
		if v := record.GetString(field); v != "" {
			record.Set(field, utils.DecryptField(v))
		}
	}
}

// newSyncLog creates a running calendar_sync_logs record
func newSyncLog(app core.App, syncType, calendarID string, start, end time.Time) (*core.Record, error) {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionCalendarSyncLogs)
	if err != nil {
		return nil, err
	}
	syncLog := core.NewRecord(collection)
	syncLog.Set("run_id", uuid.NewString())
	syncLog.Set("sync_type", syncType)
	syncLog.Set("calendar_id", calendarID)
	syncLog.Set("range_start", start.UTC())
	syncLog.Set("range_end", end.UTC())
	syncLog.Set("status", "running")
	syncLog.Set("started_at", time.Now().UTC())
	if err := app.Save(syncLog); err != nil {
		return nil, err
	}
	return syncLog, nil
}

// runCalendarSync pulls calendar events in range and reconciles bookings.
// Results are written to the sync log when syncLogID is set.
func runCalendarSync(ctx context.Context, app core.App, svc *services, syncLogID string, target *calendarTarget, start, end time.Time) syncCounts {
	var counts syncCounts

	defer func() {
		log.Printf("[CalendarSync] %s complete: %d processed, %d created, %d updated, %d errors",
			target.CalendarID, counts.Processed, counts.Created, counts.Updated, len(counts.Errors))

		if syncLogID == "" {
			return
		}
		syncLog, err := app.FindRecordById(utils.CollectionCalendarSyncLogs, syncLogID)
		if err != nil {
			log.Printf("[CalendarSync] Failed to find sync log %s: %v", syncLogID, err)
			return
		}
		syncLog.Set("records_processed", counts.Processed)
		syncLog.Set("records_created", counts.Created)
		syncLog.Set("records_updated", counts.Updated)
		syncLog.Set("completed_at", time.Now().UTC())
		if len(counts.Errors) > 0 {
			syncLog.Set("errors", counts.Errors)
			syncLog.Set("status", "failed")
		} else {
			syncLog.Set("status", "completed")
		}
		if err := app.Save(syncLog); err != nil {
			log.Printf("[CalendarSync] Failed to update sync log: %v", err)
		}
	}()

	// Same window size as free-slot fetches
	for _, w := range availability.Chunk(start, end, svc.cfg.AvailabilityChunkDays) {
		events, err := svc.crm.CalendarEvents(ctx, target.CalendarID, w.Start, w.Until())
		if err != nil {
			counts.Errors = append(counts.Errors, fmt.Sprintf("%s to %s: %v",
				w.Start.Format(availability.DateLayout), w.End.Format(availability.DateLayout), err))
			continue
		}

		for _, ev := range events {
			counts.Processed++
			created, updated, err := reconcileEvent(app, ev, target.Location)
			if err != nil {
				counts.Errors = append(counts.Errors, err.Error())
				continue
			}
			if created {
				counts.Created++
			}
			if updated {
				counts.Updated++
			}
		}
	}

	return counts
}

// handleCalendarSync starts a background calendar sync
func handleCalendarSync(re *core.RequestEvent, app core.App, svc *services) error {
	if !svc.crm.Configured() {
		return calendarUnavailable(re)
	}

	var input struct {
		Venue string `json:"venue"`
		Start string `json:"start"`
		End   string `json:"end"`
	}
	if re.Request.ContentLength != 0 {
		if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
			return utils.BadRequestResponse(re, "Invalid request body")
		}
	}

	target, err := resolveCalendar(app, svc, input.Venue, false)
	if err != nil {
		return utils.NotFoundResponse(re, err.Error())
	}

	start, end, err := parseRange(input.Start, input.End, target.Location, time.Now(), defaultSyncDays)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	syncLog, err := newSyncLog(app, "manual", target.CalendarID, start, end)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to create sync log")
	}

	utils.LogFromRequest(app, re, "calendar_sync", utils.CollectionCalendarSyncLogs, syncLog.Id, "success", map[string]any{
		"calendar_id": target.CalendarID,
		"start":       start.Format(availability.DateLayout),
		"end":         end.Format(availability.DateLayout),
	}, "")

	go runCalendarSync(context.Background(), app, svc, syncLog.Id, target, start, end)

	return re.JSON(http.StatusAccepted, map[string]any{
		"sync_log_id": syncLog.Id,
		"run_id":      syncLog.GetString("run_id"),
		"message":     "Sync started",
	})
}

// handleCalendarSyncLogs returns recent sync runs
func handleCalendarSyncLogs(re *core.RequestEvent, app core.App) error {
	records, err := app.FindRecordsByFilter(utils.CollectionCalendarSyncLogs, "", "-created", 50, 0)
	if err != nil {
		return utils.DataResponse(re, []any{})
	}

	logs := make([]map[string]any, 0, len(records))
	for _, r := range records {
		logs = append(logs, map[string]any{
			"id":                r.Id,
			"run_id":            r.GetString("run_id"),
			"sync_type":         r.GetString("sync_type"),
			"calendar_id":       r.GetString("calendar_id"),
			"range_start":       r.GetString("range_start"),
			"range_end":         r.GetString("range_end"),
			"records_processed": r.GetInt("records_processed"),
			"records_created":   r.GetInt("records_created"),
			"records_updated":   r.GetInt("records_updated"),
			"errors":            r.Get("errors"),
			"status":            r.GetString("status"),
			"started_at":        r.GetString("started_at"),
			"completed_at":      r.GetString("completed_at"),
		})
	}

	return utils.DataResponse(re, logs)
}
