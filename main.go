package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/grtshw/venue-bookings/config"
	"github.com/grtshw/venue-bookings/crm"
	_ "github.com/grtshw/venue-bookings/migrations"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/plugins/migratecmd"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg := config.Load()
	utils.SetEncryptionKey(cfg.EncryptionKey)
	utils.SetSessionSecret(cfg.EncryptionKey)
	if !utils.SessionSecretConfigured() {
		log.Println("[Session] Warning: ENCRYPTION_KEY not set, slot holds use a development signing key")
	}

	svc, err := newServices(cfg)
	if err != nil {
		log.Fatalf("Failed to initialise services: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	if err := crm.RegisterMetrics(reg); err != nil {
		log.Fatalf("Failed to register metrics: %v", err)
	}

	app := pocketbase.New()

	// Register migrations
	migratecmd.MustRegister(app, app.RootCmd, migratecmd.Config{
		Automigrate: false,
	})

	registerCommands(app, svc)

	// OnServe hook - runs when the server starts
	app.OnServe().BindFunc(func(e *core.ServeEvent) error {
		configureSMTP(app, cfg)

		// Security headers middleware
		e.Router.BindFunc(securityHeadersMiddleware)

		// Register custom routes
		registerRoutes(e, app, svc, reg)

		// Serve frontend SPA
		serveFrontend(e)

		if cfg.BackupConfigured() {
			go scheduleBackups(app, svc)
		} else {
			log.Println("[Backup] Backup storage not configured, scheduler disabled")
		}

		if !svc.crm.Configured() {
			log.Println("[CRM] Warning: CRM_API_KEY/CRM_LOCATION_ID not set, calendar endpoints return 503")
		}

		return e.Next()
	})

	// Register audit logging hooks
	registerAuditHooks(app)

	// Register encryption hooks for PII fields
	registerEncryptionHooks(app)

	// Start the application
	if err := app.Start(); err != nil {
		log.Fatal(err)
	}
}

// securityHeadersMiddleware adds security headers to all responses
func securityHeadersMiddleware(e *core.RequestEvent) error {
	h := e.Response.Header()

	h.Set("X-Content-Type-Options", "nosniff")
	h.Set("X-Frame-Options", "DENY")
	h.Set("X-XSS-Protection", "1; mode=block")

	// HSTS - enforce HTTPS for 1 year, include subdomains
	h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

	// Content Security Policy - restrict sources
	h.Set("Content-Security-Policy", "default-src 'self'; script-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data: https:; connect-src 'self' https:; frame-ancestors 'none'")

	// Referrer Policy - don't leak URLs to external sites
	h.Set("Referrer-Policy", "strict-origin-when-cross-origin")

	// Permissions Policy - disable unused browser features
	h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")

	return e.Next()
}

// serveFrontend serves the SPA frontend
func serveFrontend(e *core.ServeEvent) {
	// Check if frontend dist exists
	staticDir := "./pb_public"
	if _, err := os.Stat(staticDir); os.IsNotExist(err) {
		staticDir = "../frontend/dist"
	}

	// Serve static files
	e.Router.GET("/{path...}", func(re *core.RequestEvent) error {
		path := re.Request.PathValue("path")

		// Don't handle API routes - let them 404 if not matched
		if len(path) >= 4 && path[:4] == "api/" {
			return re.JSON(http.StatusNotFound, map[string]string{"error": "Not found"})
		}

		// Root path or empty - serve index.html
		if path == "" || path == "/" {
			return re.FileFS(os.DirFS(staticDir), "index.html")
		}

		filePath := staticDir + "/" + path

		// Check if file exists (and is not a directory)
		if info, err := os.Stat(filePath); err == nil && !info.IsDir() {
			return re.FileFS(os.DirFS(staticDir), path)
		}

		// SPA fallback - serve index.html for client-side routing
		return re.FileFS(os.DirFS(staticDir), "index.html")
	})
}

// encryptRecordPII encrypts a record's PII fields in place and refreshes its blind indexes
func encryptRecordPII(record *core.Record) {
	collection := record.Collection().Name
	data := make(map[string]any)
	for _, field := range utils.PIIFields[collection] {
		data[field] = record.GetString(field)
	}

	for field, value := range utils.EncryptPIIFields(collection, data) {
		record.Set(field, value)
	}
}

// registerEncryptionHooks sets up PII field encryption for bookings
func registerEncryptionHooks(app *pocketbase.PocketBase) {
	for collection := range utils.PIIFields {
		// Execute hooks fire after validation passes, right before the DB write
		app.OnRecordCreateExecute(collection).BindFunc(func(e *core.RecordEvent) error {
			if utils.IsEncryptionEnabled() {
				encryptRecordPII(e.Record)
			}
			return e.Next()
		})

		app.OnRecordUpdateExecute(collection).BindFunc(func(e *core.RecordEvent) error {
			if utils.IsEncryptionEnabled() {
				encryptRecordPII(e.Record)
			}
			return e.Next()
		})
	}
}

// registerAuditHooks sets up audit logging for CRUD operations and auth events
func registerAuditHooks(app *pocketbase.PocketBase) {
	collections := []string{
		utils.CollectionVenues,
		utils.CollectionPackages,
		utils.CollectionBookings,
		utils.CollectionPricingConfig,
		utils.CollectionUserInvites,
		utils.CollectionMasks,
	}

	for _, collName := range collections {
		app.OnRecordAfterCreateSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "create", collName, e.Record.Id, auditData(e.Record))
			return e.Next()
		})

		app.OnRecordAfterUpdateSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "update", collName, e.Record.Id, auditData(e.Record))
			return e.Next()
		})

		app.OnRecordAfterDeleteSuccess(collName).BindFunc(func(e *core.RecordEvent) error {
			utils.LogRecordChange(app, "delete", collName, e.Record.Id, nil)
			return e.Next()
		})
	}

	// Log successful authentication
	app.OnRecordAuthRequest(utils.CollectionUsers).BindFunc(func(e *core.RecordAuthRequestEvent) error {
		utils.LogAudit(app, utils.AuditEntry{
			UserID:    e.Record.Id,
			UserEmail: e.Record.GetString("email"),
			Action:    "login",
			IPAddress: e.RealIP(),
			UserAgent: e.Request.UserAgent(),
		})
		return e.Next()
	})
}

// auditData is the record snapshot kept in audit logs. Token hashes never leave the invites table.
func auditData(record *core.Record) map[string]any {
	data := record.FieldsData()
	delete(data, "token_hash")
	return map[string]any{"data": data}
}

// runPIIEncryptionMigration encrypts PII stored before ENCRYPTION_KEY was set
func runPIIEncryptionMigration(app core.App) error {
	if !utils.IsEncryptionEnabled() {
		return fmt.Errorf("ENCRYPTION_KEY not set - cannot encrypt data")
	}

	log.Println("[EncryptPII] Starting PII encryption migration...")

	migrated, skipped := 0, 0
	for collection := range utils.PIIFields {
		records, err := app.FindAllRecords(collection)
		if err != nil {
			return fmt.Errorf("failed to fetch %s: %w", collection, err)
		}

		log.Printf("[EncryptPII] Found %d %s to process", len(records), collection)

		for _, record := range records {
			if !needsEncryption(record) {
				skipped++
				continue
			}

			encryptRecordPII(record)

			// SaveNoValidate: ciphertext may exceed validation rules written for plaintext
			if err := app.SaveNoValidate(record); err != nil {
				log.Printf("[EncryptPII] Error: failed to save %s %s: %v", collection, record.Id, err)
				continue
			}
			migrated++
		}
	}

	log.Printf("[EncryptPII] Migration complete: %d encrypted, %d already encrypted/empty", migrated, skipped)
	return nil
}

// needsEncryption reports whether any PII field still holds plaintext
func needsEncryption(record *core.Record) bool {
	for _, field := range utils.PIIFields[record.Collection().Name] {
		if v := record.GetString(field); v != "" && !utils.IsEncrypted(v) {
			return true
		}
	}
	return false
}
