package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/grtshw/venue-bookings/availability"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

// staff-editable booking fields
var bookingFields = []string{
	"client_name", "client_email", "client_phone", "partner_name",
	"venue", "package", "event_date", "start_time", "guest_count", "value",
	"status", "notes",
}

func buildBookingResponse(r *core.Record) map[string]any {
	return map[string]any{
		"id":                 r.Id,
		"client_name":        r.GetString("client_name"),
		"client_email":       utils.DecryptField(r.GetString("client_email")),
		"client_phone":       utils.DecryptField(r.GetString("client_phone")),
		"partner_name":       utils.DecryptField(r.GetString("partner_name")),
		"venue":              r.GetString("venue"),
		"package":            r.GetString("package"),
		"event_date":         r.GetString("event_date"),
		"start_time":         r.GetString("start_time"),
		"appointment_at":     r.GetString("appointment_at"),
		"guest_count":        r.GetInt("guest_count"),
		"value":              r.GetFloat("value"),
		"status":             r.GetString("status"),
		"source":             r.GetString("source"),
		"calendar_id":        r.GetString("calendar_id"),
		"crm_contact_id":     r.GetString("crm_contact_id"),
		"crm_appointment_id": r.GetString("crm_appointment_id"),
		"chat_flow":          r.GetString("chat_flow"),
		"notes":              utils.DecryptField(r.GetString("notes")),
		"created":            r.GetString("created"),
		"updated":            r.GetString("updated"),
	}
}

// bookingListFilter builds the filter for the bookings list from query values.
// from/to bound event_date inclusively.
func bookingListFilter(status, venue, from, to, search string) (string, map[string]any) {
	var parts []string
	params := map[string]any{}

	if status != "" {
		parts = append(parts, "status = {:status}")
		params["status"] = status
	}
	if venue != "" {
		parts = append(parts, "venue = {:venue}")
		params["venue"] = venue
	}
	if from != "" {
		parts = append(parts, "event_date >= {:from}")
		params["from"] = from + " 00:00:00.000Z"
	}
	if to != "" {
		parts = append(parts, "event_date <= {:to}")
		params["to"] = to + " 23:59:59.999Z"
	}
	if search = strings.TrimSpace(search); search != "" {
		// email search only matches exactly, through the blind index
		searchFilter := "(client_name ~ {:search}"
		if utils.IsEncryptionEnabled() {
			searchFilter += " || client_email_index = {:emailIdx}"
			params["emailIdx"] = utils.BlindIndex(search)
		} else {
			searchFilter += " || client_email ~ {:search}"
		}
		searchFilter += ")"
		parts = append(parts, searchFilter)
		params["search"] = search
	}

	return utils.JoinFilters(parts...), params
}

// handleBookingsList returns paginated bookings filtered by status, venue and event date range
func handleBookingsList(re *core.RequestEvent, app core.App) error {
	q := re.Request.URL.Query()
	pg := utils.ParsePagination(q.Get("page"), q.Get("perPage"))

	status := q.Get("status")
	if status != "" && !utils.IsValidBookingStatus(status) {
		return utils.BadRequestResponse(re, "Invalid status")
	}
	for _, d := range []string{q.Get("from"), q.Get("to")} {
		if d == "" {
			continue
		}
		if _, err := availability.ParseDate(d, nil); err != nil {
			return utils.BadRequestResponse(re, "from and to must be YYYY-MM-DD")
		}
	}

	sort := q.Get("sort")
	if sort == "" {
		sort = "-created"
	}

	filter, params := bookingListFilter(status, q.Get("venue"), q.Get("from"), q.Get("to"), q.Get("search"))

	allRecords, _ := app.FindRecordsByFilter(utils.CollectionBookings, filter, "", 0, 0, params)
	records, err := app.FindRecordsByFilter(utils.CollectionBookings, filter, sort, pg.PerPage, pg.Offset(), params)
	if err != nil {
		return utils.ListResponse(re, []any{}, pg, 0)
	}

	items := make([]map[string]any, len(records))
	for i, r := range records {
		items[i] = buildBookingResponse(r)
	}
	return utils.ListResponse(re, items, pg, len(allRecords))
}

func handleBookingGet(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionBookings, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Booking not found")
	}
	return utils.DataResponse(re, buildBookingResponse(record))
}

// handleBookingCreate records a booking taken by staff (phone, walk-in)
func handleBookingCreate(re *core.RequestEvent, app core.App) error {
	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	if name, _ := input["client_name"].(string); strings.TrimSpace(name) == "" {
		return utils.BadRequestResponse(re, "client_name is required")
	}
	status, _ := input["status"].(string)
	if status == "" {
		input["status"] = utils.BookingInquiry
	} else if !utils.IsValidBookingStatus(status) {
		return utils.BadRequestResponse(re, "Invalid status")
	}
	if email, ok := input["client_email"].(string); ok && email != "" {
		if !utils.IsValidEmail(email) {
			return utils.BadRequestResponse(re, "Invalid client_email")
		}
		input["client_email"] = utils.NormalizeEmail(email)
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionBookings)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find bookings collection")
	}

	record := core.NewRecord(collection)
	utils.ApplyFields(record, input, bookingFields)
	record.Set(utils.FieldSource, "manual")

	if err := app.Save(record); err != nil {
		log.Printf("[BookingCreate] Failed to save: %v", err)
		return utils.BadRequestResponse(re, "Failed to create booking")
	}

	return re.JSON(http.StatusCreated, buildBookingResponse(record))
}

// handleBookingUpdate updates status and details of a booking
func handleBookingUpdate(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionBookings, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Booking not found")
	}

	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if status, ok := input["status"].(string); ok && !utils.IsValidBookingStatus(status) {
		return utils.BadRequestResponse(re, "Invalid status")
	}
	if email, ok := input["client_email"].(string); ok && email != "" {
		if !utils.IsValidEmail(email) {
			return utils.BadRequestResponse(re, "Invalid client_email")
		}
		input["client_email"] = utils.NormalizeEmail(email)
	}

	// Decrypt PII fields before save so PocketBase validation passes
	// (the encryption hook will re-encrypt them before DB write)
	decryptBookingPII(record)
	utils.ApplyFields(record, input, bookingFields)

	if err := app.Save(record); err != nil {
		log.Printf("[BookingUpdate] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to update booking")
	}

	return utils.DataResponse(re, buildBookingResponse(record))
}

func handleBookingDelete(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionBookings, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Booking not found")
	}

	if err := app.Delete(record); err != nil {
		log.Printf("[BookingDelete] Failed to delete: %v", err)
		return utils.InternalErrorResponse(re, "Failed to delete booking")
	}

	return utils.SuccessResponse(re, "Booking deleted successfully")
}
