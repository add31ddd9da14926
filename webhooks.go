package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/grtshw/venue-bookings/crm"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const maxWebhookBody = 1 << 20

// crmWebhookPayload is the appointment webhook body sent by the CRM
type crmWebhookPayload struct {
	Type        string            `json:"type"` // AppointmentCreate, AppointmentUpdate, AppointmentDelete
	LocationID  string            `json:"locationId"`
	Appointment crm.CalendarEvent `json:"appointment"`
}

// signBody returns the hex HMAC-SHA256 of body
func signBody(body []byte, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// verifySignature checks a hex signature in constant time
func verifySignature(body []byte, signature, secret string) bool {
	if signature == "" || secret == "" {
		return false
	}
	return hmac.Equal([]byte(strings.ToLower(signature)), []byte(signBody(body, secret)))
}

// handleCRMWebhook applies appointment changes pushed by the CRM
func handleCRMWebhook(re *core.RequestEvent, app core.App, svc *services) error {
	secret := svc.cfg.WebhookSecret
	if secret == "" {
		log.Printf("[CRMWebhook] Rejected: CRM_WEBHOOK_SECRET not configured")
		return utils.ErrorResponse(re, http.StatusServiceUnavailable, "Webhook not configured")
	}

	// Read raw body for HMAC validation
	bodyBytes, err := io.ReadAll(io.LimitReader(re.Request.Body, maxWebhookBody))
	if err != nil {
		return utils.BadRequestResponse(re, "Failed to read request body")
	}

	signature := re.Request.Header.Get("X-Webhook-Signature")
	if signature == "" {
		log.Printf("[CRMWebhook] Missing signature from %s", re.RealIP())
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "Missing signature"})
	}
	if !verifySignature(bodyBytes, signature, secret) {
		log.Printf("[CRMWebhook] Invalid signature from %s", re.RealIP())
		utils.LogWebhook(app, "crm", "", "failure", map[string]any{"ip": re.RealIP()}, "invalid signature")
		return re.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid signature"})
	}

	var payload crmWebhookPayload
	if err := json.Unmarshal(bodyBytes, &payload); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	ev := payload.Appointment
	if ev.ID == "" {
		return utils.BadRequestResponse(re, "appointment.id is required")
	}
	if strings.EqualFold(payload.Type, "AppointmentDelete") {
		ev.Deleted = true
	}

	loc := svc.loc
	if venue, err := app.FindFirstRecordByFilter(utils.CollectionVenues,
		"calendar_id = {:cal}", map[string]any{"cal": ev.CalendarID}); err == nil {
		loc = venueTarget(venue, svc).Location
	}

	created, updated, err := reconcileEvent(app, ev, loc)
	meta := map[string]any{
		"type":        payload.Type,
		"calendar_id": ev.CalendarID,
		"status":      ev.Status,
		"created":     created,
		"updated":     updated,
	}
	if err != nil {
		log.Printf("[CRMWebhook] Failed to apply %s for %s: %v", payload.Type, ev.ID, err)
		utils.LogWebhook(app, "crm", ev.ID, "error", meta, err.Error())
		return utils.InternalErrorResponse(re, "Failed to apply webhook")
	}

	utils.LogWebhook(app, "crm", ev.ID, "success", meta, "")
	log.Printf("[CRMWebhook] %s %s: created=%v updated=%v", payload.Type, ev.ID, created, updated)

	return utils.SuccessResponse(re, "Webhook processed")
}
