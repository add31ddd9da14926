package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"regexp"
	"slices"
	"time"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

var venueFields = []string{
	"name", "slug", "status", "calendar_id", "timezone", "capacity",
	"description", "address", "hero_image_url", "sort_order",
}

var slugPattern = regexp.MustCompile(`^[a-z0-9]+(?:-[a-z0-9]+)*$`)

// validateVenueInput checks the writable venue fields that are present
func validateVenueInput(input map[string]any) error {
	if v, ok := input["slug"].(string); ok && v != "" && !slugPattern.MatchString(v) {
		return fmt.Errorf("slug must be lowercase words separated by dashes")
	}
	if v, ok := input["status"].(string); ok && !slices.Contains(utils.VenueStatuses, v) {
		return fmt.Errorf("invalid status: %s", v)
	}
	if v, ok := input["timezone"].(string); ok && v != "" {
		if _, err := time.LoadLocation(v); err != nil {
			return fmt.Errorf("unknown timezone: %s", v)
		}
	}
	if v, ok := input["capacity"].(float64); ok && v < 0 {
		return fmt.Errorf("capacity must not be negative")
	}
	return nil
}

func buildVenueResponse(r *core.Record) map[string]any {
	return map[string]any{
		"id":             r.Id,
		"name":           r.GetString("name"),
		"slug":           r.GetString("slug"),
		"status":         r.GetString("status"),
		"calendar_id":    r.GetString("calendar_id"),
		"timezone":       r.GetString("timezone"),
		"capacity":       r.GetInt("capacity"),
		"description":    r.GetString("description"),
		"address":        r.GetString("address"),
		"hero_image_url": r.GetString("hero_image_url"),
		"sort_order":     r.GetInt("sort_order"),
		"created":        r.GetString("created"),
		"updated":        r.GetString("updated"),
	}
}

// buildPublicVenueResponse drops internal fields
func buildPublicVenueResponse(r *core.Record) map[string]any {
	data := buildVenueResponse(r)
	delete(data, "calendar_id")
	delete(data, "status")
	delete(data, "created")
	delete(data, "updated")
	return data
}

// handlePublicVenues returns active venues with their active packages
func handlePublicVenues(re *core.RequestEvent, app core.App) error {
	venues, err := app.FindRecordsByFilter(utils.CollectionVenues, "status = 'active'", "sort_order,name", 0, 0)
	if err != nil {
		return utils.DataResponse(re, []any{})
	}

	packages, _ := app.FindRecordsByFilter(utils.CollectionPackages, "status = 'active'", "sort_order,price", 0, 0)
	byVenue := make(map[string][]map[string]any)
	for _, p := range packages {
		v := p.GetString("venue")
		byVenue[v] = append(byVenue[v], buildPackageResponse(p))
	}

	items := make([]map[string]any, len(venues))
	for i, v := range venues {
		items[i] = buildPublicVenueResponse(v)
		pkgs := byVenue[v.Id]
		if pkgs == nil {
			pkgs = []map[string]any{}
		}
		items[i]["packages"] = pkgs
	}

	return utils.DataResponse(re, items)
}

// handleVenuesList returns all venues for staff
func handleVenuesList(re *core.RequestEvent, app core.App) error {
	q := re.Request.URL.Query()
	pg := utils.ParsePagination(q.Get("page"), q.Get("perPage"))

	filter := ""
	params := map[string]any{}
	if status := q.Get("status"); status != "" {
		filter = "status = {:status}"
		params["status"] = status
	}

	allRecords, _ := app.FindRecordsByFilter(utils.CollectionVenues, filter, "", 0, 0, params)
	records, err := app.FindRecordsByFilter(utils.CollectionVenues, filter, "sort_order,name", pg.PerPage, pg.Offset(), params)
	if err != nil {
		return utils.ListResponse(re, []any{}, pg, 0)
	}

	items := make([]map[string]any, len(records))
	for i, r := range records {
		items[i] = buildVenueResponse(r)
	}
	return utils.ListResponse(re, items, pg, len(allRecords))
}

func handleVenueGet(re *core.RequestEvent, app core.App) error {
	record, err := findVenue(app, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Venue not found")
	}
	return utils.DataResponse(re, buildVenueResponse(record))
}

func handleVenueCreate(re *core.RequestEvent, app core.App) error {
	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	name, _ := input["name"].(string)
	if name == "" {
		return utils.BadRequestResponse(re, "Name is required")
	}
	if slug, _ := input["slug"].(string); slug == "" {
		input["slug"] = utils.Slugify(name)
	}
	if _, ok := input["status"]; !ok {
		input["status"] = "active"
	}
	if err := validateVenueInput(input); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionVenues)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find venues collection")
	}

	record := core.NewRecord(collection)
	utils.ApplyFields(record, input, venueFields)

	if err := app.Save(record); err != nil {
		log.Printf("[VenueCreate] Failed to save: %v", err)
		return utils.BadRequestResponse(re, "Failed to create venue (is the slug already used?)")
	}

	utils.LogFromRequest(app, re, "create", utils.CollectionVenues, record.Id, "success", map[string]any{"name": name}, "")
	return re.JSON(http.StatusCreated, buildVenueResponse(record))
}

func handleVenueUpdate(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionVenues, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Venue not found")
	}

	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if name, ok := input["name"].(string); ok && name == "" {
		return utils.BadRequestResponse(re, "Name is required")
	}
	if err := validateVenueInput(input); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	utils.ApplyFields(record, input, venueFields)
	if err := app.Save(record); err != nil {
		log.Printf("[VenueUpdate] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to update venue")
	}

	return utils.DataResponse(re, buildVenueResponse(record))
}

// handleVenueDelete removes a venue and its packages. Venues with bookings are
// kept so history survives; set them inactive instead.
func handleVenueDelete(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionVenues, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Venue not found")
	}

	bookings, err := app.CountRecords(utils.CollectionBookings, dbx.HashExp{"venue": record.Id})
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to check bookings")
	}
	if bookings > 0 {
		return re.JSON(http.StatusConflict, map[string]string{"error": "Venue has bookings; set it inactive instead"})
	}

	if err := app.Delete(record); err != nil {
		log.Printf("[VenueDelete] Failed to delete: %v", err)
		return utils.InternalErrorResponse(re, "Failed to delete venue")
	}

	return utils.SuccessResponse(re, "Venue deleted successfully")
}
