package main

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/grtshw/venue-bookings/chatflows"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const tagChatbot = "chatbot"

func handleChatFlowsList(re *core.RequestEvent, svc *services) error {
	return utils.DataResponse(re, svc.flows.List())
}

func handleChatFlowGet(re *core.RequestEvent, svc *services) error {
	flow, err := svc.flows.Get(re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Flow not found")
	}
	return utils.DataResponse(re, flow)
}

// leadForm maps checked flow answers onto the inquiry form
func leadForm(answers chatflows.Answers) (inquiryForm, error) {
	form := inquiryForm{
		FirstName: answers["first_name"],
		LastName:  answers["last_name"],
		Email:     answers["email"],
		Phone:     answers["phone"],
		EventDate: answers["event_date"],
		Venue:     answers["venue"],
		Package:   answers["package"],
		Notes:     answers["notes"],
	}
	if v := answers["guest_count"]; v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return form, errors.New("guest_count must be a number")
		}
		form.GuestCount = n
	}
	return form, nil
}

// handleChatLead turns a completed chat flow into a CRM contact and an inquiry
func handleChatLead(re *core.RequestEvent, app core.App, svc *services) error {
	var input struct {
		Flow    string            `json:"flow"`
		Answers chatflows.Answers `json:"answers"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid JSON")
	}

	flow, err := svc.flows.Get(input.Flow)
	if err != nil {
		return utils.NotFoundResponse(re, "Flow not found")
	}

	answers, err := flow.Check(input.Answers)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	form, err := leadForm(answers)
	if err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}
	if err := validateInquiry(&form, svc.loc, time.Now()); err != nil {
		return utils.BadRequestResponse(re, err.Error())
	}

	// Free-text venue and package answers are kept in the notes rather than rejected
	refs, err := resolveRefs(app, &form)
	if err != nil {
		if form.Venue != "" || form.Package != "" {
			form.Notes = appendNote(form.Notes, "Venue/package answer: "+form.Venue+" "+form.Package)
		}
		form.Venue, form.Package = "", ""
		refs = bookingRefs{}
	}

	record, err := newBookingRecord(app, &form, refs, utils.BookingInquiry, "chatbot")
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find bookings collection")
	}
	record.Set("chat_flow", flow.ID)

	synced := false
	if svc.crm.Configured() {
		tags := append([]string{tagChatbot}, flow.Tags...)
		in := contactInput(&form, refs, "chatbot", tags...)
		in.ChatFlow = flow.ID

		contact, _, err := svc.crm.UpsertContact(re.Request.Context(), in)
		if err != nil {
			crmFailureMessage("upsert_contact", err)
			utils.LogFromRequest(app, re, "crm_upsert", utils.CollectionBookings, "", "failure", map[string]any{"flow": flow.ID}, err.Error())
		} else {
			synced = true
			record.Set(utils.FieldCRMContact, contact.ID)
		}
	}

	if err := app.Save(record); err != nil {
		log.Printf("[ChatLead] Failed to save booking: %v", err)
		return utils.InternalErrorResponse(re, "Failed to save lead")
	}

	log.Printf("[ChatLead] Lead %s captured by flow %s (crm_synced=%v)", record.Id, flow.ID, synced)

	return re.JSON(http.StatusCreated, map[string]any{
		"id":         record.Id,
		"flow":       flow.ID,
		"crm_synced": synced,
	})
}

func appendNote(notes, line string) string {
	if notes == "" {
		return line
	}
	return notes + "\n" + line
}
