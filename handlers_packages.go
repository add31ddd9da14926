package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"slices"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/dbx"
	"github.com/pocketbase/pocketbase/core"
)

var packageFields = []string{
	"venue", "name", "description", "price", "included_guests", "max_guests",
	"inclusions", "status", "sort_order",
}

// validatePackageInput checks numeric bounds, merged over the current values
func validatePackageInput(input map[string]any, current *core.Record) error {
	num := func(key string) float64 {
		if v, ok := input[key].(float64); ok {
			return v
		}
		if current != nil {
			return current.GetFloat(key)
		}
		return 0
	}

	if num("price") < 0 {
		return errors.New("price must not be negative")
	}
	included, maxGuests := num("included_guests"), num("max_guests")
	if included < 0 || maxGuests < 0 {
		return errors.New("guest counts must not be negative")
	}
	if maxGuests > 0 && included > maxGuests {
		return errors.New("included_guests exceeds max_guests")
	}
	if v, ok := input["status"].(string); ok && !slices.Contains(utils.PackageStatuses, v) {
		return errors.New("invalid status: " + v)
	}
	return nil
}

func buildPackageResponse(r *core.Record) map[string]any {
	return map[string]any{
		"id":              r.Id,
		"venue":           r.GetString("venue"),
		"name":            r.GetString("name"),
		"description":     r.GetString("description"),
		"price":           r.GetFloat("price"),
		"included_guests": r.GetInt("included_guests"),
		"max_guests":      r.GetInt("max_guests"),
		"inclusions":      r.Get("inclusions"),
		"status":          r.GetString("status"),
		"sort_order":      r.GetInt("sort_order"),
	}
}

// handlePackagesList returns packages, optionally for one venue
func handlePackagesList(re *core.RequestEvent, app core.App) error {
	q := re.Request.URL.Query()
	pg := utils.ParsePagination(q.Get("page"), q.Get("perPage"))

	var filters []string
	params := map[string]any{}
	if venue := q.Get("venue"); venue != "" {
		filters = append(filters, "venue = {:venue}")
		params["venue"] = venue
	}
	if status := q.Get("status"); status != "" {
		filters = append(filters, "status = {:status}")
		params["status"] = status
	}
	filter := utils.JoinFilters(filters...)

	allRecords, _ := app.FindRecordsByFilter(utils.CollectionPackages, filter, "", 0, 0, params)
	records, err := app.FindRecordsByFilter(utils.CollectionPackages, filter, "venue,sort_order,price", pg.PerPage, pg.Offset(), params)
	if err != nil {
		return utils.ListResponse(re, []any{}, pg, 0)
	}

	items := make([]map[string]any, len(records))
	for i, r := range records {
		items[i] = buildPackageResponse(r)
	}
	return utils.ListResponse(re, items, pg, len(allRecords))
}

func handlePackageGet(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionPackages, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Package not found")
	}
	return utils.DataResponse(re, buildPackageResponse(record))
}

func handlePackageCreate(re *core.RequestEvent, app core.App) error {
	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	venueID, _ := input["venue"].(string)
	if venueID == "" {
		return utils.BadRequestResponse(re, "Venue is required")
	}
	if _, err := app.FindRecordById(utils.CollectionVenues, venueID); err != nil {
		return utils.BadRequestResponse(re, "Venue not found")
	}
	if name, _ := input["name"].(string); name == "" {
		return utils.BadRequestResponse(re, "Name is required")
	}
	if _, ok := input["status"]; !ok {
		input["status"] = "active"
	}
	if err := validatePackageInput(input, nil); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionPackages)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find packages collection")
	}

	record := core.NewRecord(collection)
	utils.ApplyFields(record, input, packageFields)

	if err := app.Save(record); err != nil {
		log.Printf("[PackageCreate] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to create package")
	}

	utils.LogFromRequest(app, re, "create", utils.CollectionPackages, record.Id, "success", nil, "")
	return re.JSON(http.StatusCreated, buildPackageResponse(record))
}

func handlePackageUpdate(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionPackages, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Package not found")
	}

	var input map[string]any
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	if venueID, ok := input["venue"].(string); ok {
		if _, err := app.FindRecordById(utils.CollectionVenues, venueID); err != nil {
			return utils.BadRequestResponse(re, "Venue not found")
		}
	}
	if err := validatePackageInput(input, record); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	utils.ApplyFields(record, input, packageFields)
	if err := app.Save(record); err != nil {
		log.Printf("[PackageUpdate] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to update package")
	}

	return utils.DataResponse(re, buildPackageResponse(record))
}

func handlePackageDelete(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionPackages, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Package not found")
	}

	bookings, err := app.CountRecords(utils.CollectionBookings, dbx.HashExp{"package": record.Id})
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to check bookings")
	}
	if bookings > 0 {
		return re.JSON(http.StatusConflict, map[string]string{"error": "Package has bookings; archive it instead"})
	}

	if err := app.Delete(record); err != nil {
		log.Printf("[PackageDelete] Failed to delete: %v", err)
		return utils.InternalErrorResponse(re, "Failed to delete package")
	}

	return utils.SuccessResponse(re, "Package deleted successfully")
}
