package utils

import (
	"log"

	"github.com/pocketbase/pocketbase/core"
)

// AuditEntry represents an audit log entry
type AuditEntry struct {
	UserID       string
	UserEmail    string
	Action       string
	ResourceType string
	ResourceID   string
	IPAddress    string
	UserAgent    string
	Changes      map[string]any
	Metadata     map[string]any
	Status       string // success, failure, error
	ErrorMessage string
}

// LogAudit creates an audit log entry asynchronously to avoid blocking requests
func LogAudit(app core.App, entry AuditEntry) {
	go func() {
		if err := SaveAudit(app, entry); err != nil {
			log.Printf("[Audit] Failed to save audit log: %v", err)
		}
	}()
}

// SaveAudit writes an audit log entry synchronously
func SaveAudit(app core.App, entry AuditEntry) error {
	collection, err := app.FindCollectionByNameOrId(CollectionAuditLogs)
	if err != nil {
		return err
	}

	if entry.Status == "" {
		entry.Status = "success"
	}

	record := core.NewRecord(collection)
	record.Set("user_id", entry.UserID)
	record.Set("user_email", entry.UserEmail)
	record.Set("action", entry.Action)
	record.Set("resource_type", entry.ResourceType)
	record.Set("resource_id", entry.ResourceID)
	record.Set("ip_address", entry.IPAddress)
	record.Set("user_agent", entry.UserAgent)
	record.Set("changes", entry.Changes)
	record.Set("metadata", entry.Metadata)
	record.Set("status", entry.Status)
	record.Set("error_message", entry.ErrorMessage)

	return app.Save(record)
}

// LogFromRequest creates an audit entry from a request event
func LogFromRequest(app core.App, re *core.RequestEvent, action, resourceType, resourceID, status string, changes map[string]any, errorMessage string) {
	entry := AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    re.RealIP(),
		UserAgent:    re.Request.UserAgent(),
		Changes:      changes,
		Status:       status,
		ErrorMessage: errorMessage,
	}

	if re.Auth != nil {
		entry.UserID = re.Auth.Id
		entry.UserEmail = re.Auth.GetString("email")
	}

	LogAudit(app, entry)
}

// LogRecordChange logs a record change from PocketBase hooks
func LogRecordChange(app core.App, action, resourceType, resourceID string, changes map[string]any) {
	LogAudit(app, AuditEntry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Changes:      changes,
		Status:       "success",
	})
}

// LogWebhook logs inbound webhook events
func LogWebhook(app core.App, resourceType, resourceID, status string, metadata map[string]any, errorMessage string) {
	LogAudit(app, AuditEntry{
		Action:       "webhook_received",
		ResourceType: resourceType,
		ResourceID:   resourceID,
		Metadata:     metadata,
		Status:       status,
		ErrorMessage: errorMessage,
	})
}
