package main

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
)

const minPasswordLength = 10

// Invite states reported to the accept page
const (
	inviteValid    = "valid"
	inviteExpired  = "expired"
	inviteRevoked  = "revoked"
	inviteAccepted = "accepted"
)

// inviteState derives the effective state from the stored status and expiry
func inviteState(status, expiresAt string, now time.Time) string {
	switch status {
	case "accepted":
		return inviteAccepted
	case "revoked":
		return inviteRevoked
	}
	if expiresAt == "" || utils.IsExpired(expiresAt, now) {
		return inviteExpired
	}
	return inviteValid
}

func buildInviteResponse(r *core.Record, now time.Time) map[string]any {
	return map[string]any{
		"id":            r.Id,
		"email":         r.GetString("email"),
		"name":          r.GetString("name"),
		"role":          r.GetString("role"),
		"status":        r.GetString("status"),
		"state":         inviteState(r.GetString("status"), r.GetString("expires_at"), now),
		"expires_at":    r.GetString("expires_at"),
		"invited_by":    r.GetString("invited_by"),
		"accepted_user": r.GetString("accepted_user"),
		"accepted_at":   r.GetString("accepted_at"),
		"last_sent_at":  r.GetString("last_sent_at"),
		"created":       r.GetString("created"),
	}
}

func (s *services) inviteURL(token string) string {
	return strings.TrimRight(s.cfg.PublicBaseURL, "/") + "/invite/" + token
}

// issueInviteToken sets a fresh token and expiry on the invite and returns the plaintext
func issueInviteToken(record *core.Record, ttl time.Duration, now time.Time) (string, error) {
	token, err := generateToken()
	if err != nil {
		return "", err
	}
	record.Set("token_hash", hashToken(token))
	record.Set("status", "pending")
	record.Set("expires_at", now.Add(ttl).UTC())
	record.Set("last_sent_at", now.UTC())
	return token, nil
}

// handleInviteCreate invites a staff member by email
func handleInviteCreate(re *core.RequestEvent, app core.App, svc *services) error {
	var input struct {
		Email string `json:"email"`
		Name  string `json:"name"`
		Role  string `json:"role"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}

	email := utils.NormalizeEmail(input.Email)
	if !utils.IsValidEmail(email) {
		return utils.BadRequestResponse(re, "A valid email is required")
	}
	role := input.Role
	if role == "" {
		role = utils.RoleCoordinator
	}
	if !utils.IsValidRole(role) {
		return utils.BadRequestResponse(re, "Invalid role")
	}

	if _, err := app.FindAuthRecordByEmail(utils.CollectionUsers, email); err == nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": "A user with this email already exists"})
	}

	// Only one live invite per email
	pending, _ := app.FindRecordsByFilter(utils.CollectionUserInvites, "email = {:email} && status = 'pending'", "", 0, 0, map[string]any{"email": email})
	for _, p := range pending {
		p.Set("status", "revoked")
		if err := app.Save(p); err != nil {
			log.Printf("[Invites] Failed to revoke superseded invite %s: %v", p.Id, err)
		}
	}

	collection, err := app.FindCollectionByNameOrId(utils.CollectionUserInvites)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to find invites collection")
	}

	now := time.Now()
	record := core.NewRecord(collection)
	record.Set("email", email)
	record.Set("name", strings.TrimSpace(input.Name))
	record.Set("role", role)
	if re.Auth != nil {
		record.Set("invited_by", re.Auth.Id)
	}
	token, err := issueInviteToken(record, svc.cfg.InviteTTL, now)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to generate token")
	}

	if err := app.Save(record); err != nil {
		log.Printf("[Invites] Failed to save: %v", err)
		return utils.InternalErrorResponse(re, "Failed to create invite")
	}

	emailSent := true
	if err := sendInviteEmail(app, email, record.GetString("name"), role, svc.inviteURL(token), now.Add(svc.cfg.InviteTTL)); err != nil {
		emailSent = false
	}

	utils.LogFromRequest(app, re, "invite_sent", utils.CollectionUserInvites, record.Id, "success", map[string]any{
		"email":      utils.MaskEmail(email),
		"role":       role,
		"email_sent": emailSent,
	}, "")

	resp := buildInviteResponse(record, now)
	resp["email_sent"] = emailSent
	return re.JSON(http.StatusCreated, resp)
}

// handleInviteResend issues a new token for a pending or expired invite
func handleInviteResend(re *core.RequestEvent, app core.App, svc *services) error {
	record, err := app.FindRecordById(utils.CollectionUserInvites, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Invite not found")
	}
	if status := record.GetString("status"); status != "pending" {
		return re.JSON(http.StatusConflict, map[string]string{"error": fmt.Sprintf("Invite is %s", status)})
	}

	now := time.Now()
	token, err := issueInviteToken(record, svc.cfg.InviteTTL, now)
	if err != nil {
		return utils.InternalErrorResponse(re, "Failed to generate token")
	}
	if err := app.Save(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to update invite")
	}

	if err := sendInviteEmail(app, record.GetString("email"), record.GetString("name"), record.GetString("role"), svc.inviteURL(token), now.Add(svc.cfg.InviteTTL)); err != nil {
		return utils.InternalErrorResponse(re, "Failed to send invite email")
	}

	utils.LogFromRequest(app, re, "invite_sent", utils.CollectionUserInvites, record.Id, "success", map[string]any{"resend": true}, "")
	return utils.DataResponse(re, buildInviteResponse(record, now))
}

// handleInvitesList returns invites, newest first
func handleInvitesList(re *core.RequestEvent, app core.App) error {
	q := re.Request.URL.Query()
	pg := utils.ParsePagination(q.Get("page"), q.Get("perPage"))

	filter := ""
	params := map[string]any{}
	if status := q.Get("status"); status != "" {
		filter = "status = {:status}"
		params["status"] = status
	}

	allRecords, _ := app.FindRecordsByFilter(utils.CollectionUserInvites, filter, "", 0, 0, params)
	records, err := app.FindRecordsByFilter(utils.CollectionUserInvites, filter, "-created", pg.PerPage, pg.Offset(), params)
	if err != nil {
		return utils.ListResponse(re, []any{}, pg, 0)
	}

	now := time.Now()
	items := make([]map[string]any, len(records))
	for i, r := range records {
		items[i] = buildInviteResponse(r, now)
	}
	return utils.ListResponse(re, items, pg, len(allRecords))
}

// handleInviteRevoke revokes a pending invite
func handleInviteRevoke(re *core.RequestEvent, app core.App) error {
	record, err := app.FindRecordById(utils.CollectionUserInvites, re.Request.PathValue("id"))
	if err != nil {
		return utils.NotFoundResponse(re, "Invite not found")
	}
	if record.GetString("status") == "accepted" {
		return re.JSON(http.StatusConflict, map[string]string{"error": "Invite has already been accepted"})
	}

	record.Set("status", "revoked")
	if err := app.Save(record); err != nil {
		return utils.InternalErrorResponse(re, "Failed to revoke invite")
	}

	utils.LogFromRequest(app, re, "invite_revoked", utils.CollectionUserInvites, record.Id, "success", nil, "")
	return utils.SuccessResponse(re, "Invite revoked")
}

// findInviteByToken looks an invite up by the digest of its token
func findInviteByToken(app core.App, token string) (*core.Record, error) {
	if _, err := utils.SafeFilterValue(token); err != nil {
		return nil, err
	}
	record, err := app.FindFirstRecordByFilter(utils.CollectionUserInvites, "token_hash = {:hash}", map[string]any{"hash": hashToken(token)})
	if err != nil {
		return nil, err
	}
	if !verifyToken(token, record.GetString("token_hash")) {
		return nil, fmt.Errorf("token mismatch")
	}
	return record, nil
}

// handlePublicInviteInfo describes an invite for the accept page
func handlePublicInviteInfo(re *core.RequestEvent, app core.App) error {
	record, err := findInviteByToken(app, re.Request.PathValue("token"))
	if err != nil {
		return utils.NotFoundResponse(re, "Invite not found")
	}

	state := inviteState(record.GetString("status"), record.GetString("expires_at"), time.Now())
	return utils.DataResponse(re, map[string]any{
		"email":      utils.MaskEmail(record.GetString("email")),
		"name":       record.GetString("name"),
		"role":       record.GetString("role"),
		"state":      state,
		"valid":      state == inviteValid,
		"expires_at": record.GetString("expires_at"),
	})
}

// handlePublicInviteAccept creates the invited user
func handlePublicInviteAccept(re *core.RequestEvent, app core.App) error {
	invite, err := findInviteByToken(app, re.Request.PathValue("token"))
	if err != nil {
		return utils.NotFoundResponse(re, "Invite not found")
	}

	now := time.Now()
	switch inviteState(invite.GetString("status"), invite.GetString("expires_at"), now) {
	case inviteExpired:
		return utils.GoneResponse(re, "This invite has expired")
	case inviteRevoked:
		return utils.GoneResponse(re, "This invite has been revoked")
	case inviteAccepted:
		return utils.GoneResponse(re, "This invite has already been used")
	}

	var input struct {
		Name     string `json:"name"`
		Password string `json:"password"`
	}
	if err := json.NewDecoder(re.Request.Body).Decode(&input); err != nil {
		return utils.BadRequestResponse(re, "Invalid request body")
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = invite.GetString("name")
	}
	if name == "" {
		return utils.BadRequestResponse(re, "Name is required")
	}
	if len(input.Password) < minPasswordLength {
		return utils.BadRequestResponse(re, fmt.Sprintf("Password must be at least %d characters", minPasswordLength))
	}

	email := invite.GetString("email")
	if _, err := app.FindAuthRecordByEmail(utils.CollectionUsers, email); err == nil {
		return re.JSON(http.StatusConflict, map[string]string{"error": "A user with this email already exists"})
	}

	var userID string
	err = app.RunInTransaction(func(txApp core.App) error {
		users, err := txApp.FindCollectionByNameOrId(utils.CollectionUsers)
		if err != nil {
			return err
		}

		user := core.NewRecord(users)
		user.SetEmail(email)
		user.SetPassword(input.Password)
		user.SetVerified(true)
		user.Set("name", name)
		user.Set(utils.FieldRole, invite.GetString("role"))
		if err := txApp.Save(user); err != nil {
			return err
		}
		userID = user.Id

		invite.Set("status", "accepted")
		invite.Set("accepted_user", user.Id)
		invite.Set("accepted_at", now.UTC())
		return txApp.Save(invite)
	})
	if err != nil {
		log.Printf("[Invites] Accept failed for %s: %v", invite.Id, err)
		return utils.InternalErrorResponse(re, "Failed to create account")
	}

	utils.LogAudit(app, utils.AuditEntry{
		UserID:       userID,
		UserEmail:    email,
		Action:       "invite_accepted",
		ResourceType: utils.CollectionUserInvites,
		ResourceID:   invite.Id,
		IPAddress:    re.RealIP(),
		UserAgent:    re.Request.UserAgent(),
	})

	return re.JSON(http.StatusCreated, map[string]any{
		"user_id": userID,
		"email":   email,
		"role":    invite.GetString("role"),
	})
}
