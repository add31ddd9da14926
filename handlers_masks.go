package main

import (
	"encoding/json"
	"log"
	"net/http"
	"time"

	"github.com/grtshw/venue-bookings/masks"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const maskKeyPrefix = "masks"

// maskInput is a render request plus where to file the result
type maskInput struct {
	masks.Request
	Label  string `json:"label"`
	Venue  string `json:"venue"`
	Upload *bool  `json:"upload,omitempty"`
}

func (in maskInput) wantsUpload() bool {
	return in.Upload == nil || *in.Upload
}

// handleMaskGenerate renders a PNG mask. When uploads are configured the PNG
// is stored and recorded, otherwise the image is returned directly.
func handleMaskGenerate(re *core.RequestEvent, app core.App, svc *services) error {
	var input maskInput
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	if err := input.Request.Validate(); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	data, err := masks.RenderPNG(input.Request)
	if err != nil {
		log.Printf("[Masks] Render failed: %v", err)
		return utils.InternalErrorResponse(re, "Failed to render mask")
	}

	if svc.masks == nil || !input.wantsUpload() {
		return re.Blob(http.StatusOK, "image/png", data)
	}

	if input.Venue != "" {
		if _, err := app.FindRecordById(utils.CollectionVenues, input.Venue); err != nil {
			return utils.BadRequestResponse(re, "Venue not found")
		}
	}

	key := masks.ObjectKey(maskKeyPrefix, time.Now().UTC())
	if err := svc.masks.PutBytes(re.Request.Context(), key, data, "image/png"); err != nil {
		log.Printf("[Masks] Upload failed for %s: %v", key, err)
		return utils.BadGatewayResponse(re, "Failed to upload mask")
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionMasks)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find masks collection")
	}

	record := core.NewRecord(collection)
	record.Set("object_key", key)
	record.Set("url", svc.masks.URL(key))
	record.Set("venue", input.Venue)
	record.Set("label", input.Label)
	record.Set("width", input.Width)
	record.Set("height", input.Height)
	record.Set("shapes", input.Request)
	if re.Auth != nil {
		record.Set("created_by", re.Auth.Id)
	}
	if err := app.Save(record); err != nil {
		log.Printf("[Masks] Failed to record %s: %v", key, err)
		return utils.InternalErrorResponse(re, "Mask uploaded but could not be recorded")
	}

	utils.LogFromRequest(app, re, "mask_generated", utils.CollectionMasks, record.Id, "success", map[string]any{
		"object_key": key,
		"shapes":     len(input.Shapes),
	}, "")

	return re.JSON(http.StatusCreated, map[string]any{
		"id":         record.Id,
		"object_key": key,
		"url":        record.GetString("url"),
		"width":      input.Width,
		"height":     input.Height,
	})
}

// handleMasksList returns stored masks, newest first
func handleMasksList(re *core.RequestEvent, app core.App) error {
	q := re.Request.URL.Query()
	pg := utils.ParsePagination(q.Get("page"), q.Get("perPage"))

	filter := ""
	params := map[string]any{}
	if venue := q.Get("venue"); venue != "" {
		filter = "venue = {:venue}"
		params["venue"] = venue
	}

	allRecords, _ := app.FindRecordsByFilter(utils.CollectionMasks, filter, "", 0, 0, params)
	records, err := app.FindRecordsByFilter(utils.CollectionMasks, filter, "-created", pg.PerPage, pg.Offset(), params)
	if err != nil {
		return utils.ListResponse(re, []any{}, pg, 0)
	}

	items := make([]map[string]any, len(records))
	for i, r := range records {
		items[i] = map[string]any{
			"id":         r.Id,
			"object_key": r.GetString("object_key"),
			"url":        r.GetString("url"),
			"venue":      r.GetString("venue"),
			"label":      r.GetString("label"),
			"width":      r.GetInt("width"),
			"height":     r.GetInt("height"),
			"created":    r.GetString("created"),
		}
	}
	return utils.ListResponse(re, items, pg, len(allRecords))
}
