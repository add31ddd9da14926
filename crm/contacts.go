package crm

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

// Custom field keys configured on the vendor location
const (
	FieldEventDate  = "contact.event_date"
	FieldGuestCount = "contact.guest_count"
	FieldVenue      = "contact.venue"
	FieldPackage    = "contact.package"
	FieldNotes      = "contact.inquiry_notes"
	FieldChatFlow   = "contact.chat_flow"
)

// TagInquiry is applied to every contact pushed from the site
const TagInquiry = "wedding-inquiry"

// ContactInput is a contact in our own field naming.
type ContactInput struct {
	FirstName  string
	LastName   string
	Email      string
	Phone      string
	Source     string
	Tags       []string
	EventDate  string
	GuestCount int
	Venue      string
	Package    string
	Notes      string
	ChatFlow   string
}

// Contact is the vendor's representation of a contact.
type Contact struct {
	ID        string   `json:"id"`
	FirstName string   `json:"firstName"`
	LastName  string   `json:"lastName"`
	Email     string   `json:"email"`
	Phone     string   `json:"phone"`
	Tags      []string `json:"tags"`
}

type customField struct {
	Key   string `json:"key"`
	Value string `json:"field_value"`
}

type upsertContactRequest struct {
	LocationID   string        `json:"locationId"`
	FirstName    string        `json:"firstName,omitempty"`
	LastName     string        `json:"lastName,omitempty"`
	Name         string        `json:"name,omitempty"`
	Email        string        `json:"email,omitempty"`
	Phone        string        `json:"phone,omitempty"`
	Source       string        `json:"source,omitempty"`
	Tags         []string      `json:"tags,omitempty"`
	CustomFields []customField `json:"customFields,omitempty"`
}

type upsertContactResponse struct {
	New     bool    `json:"new"`
	Contact Contact `json:"contact"`
}

// UpsertContact creates or updates a contact matched by email/phone.
// The bool result is true when the vendor created a new contact.
func (c *Client) UpsertContact(ctx context.Context, in ContactInput) (*Contact, bool, error) {
	var resp upsertContactResponse
	if err := c.do(ctx, "upsert_contact", http.MethodPost, "/contacts/upsert", nil, c.contactPayload(in), &resp); err != nil {
		return nil, false, err
	}
	return &resp.Contact, resp.New, nil
}

// contactPayload maps our field names onto the vendor's
func (c *Client) contactPayload(in ContactInput) upsertContactRequest {
	req := upsertContactRequest{
		LocationID: c.cfg.LocationID,
		FirstName:  strings.TrimSpace(in.FirstName),
		LastName:   strings.TrimSpace(in.LastName),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:      strings.TrimSpace(in.Phone),
		Source:     in.Source,
	}
	req.Name = strings.TrimSpace(req.FirstName + " " + req.LastName)
	if req.Source == "" {
		req.Source = "website"
	}

	req.Tags = mergeTags(TagInquiry, in.Tags)

	add := func(key, value string) {
		if value != "" {
			req.CustomFields = append(req.CustomFields, customField{Key: key, Value: value})
		}
	}
	add(FieldEventDate, in.EventDate)
	if in.GuestCount > 0 {
		add(FieldGuestCount, strconv.Itoa(in.GuestCount))
	}
	add(FieldVenue, in.Venue)
	add(FieldPackage, in.Package)
	add(FieldNotes, in.Notes)
	add(FieldChatFlow, in.ChatFlow)

	return req
}

func mergeTags(first string, rest []string) []string {
	seen := map[string]bool{first: true}
	tags := []string{first}
	for _, t := range rest {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		tags = append(tags, t)
	}
	return tags
}
