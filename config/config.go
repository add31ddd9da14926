package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// CRM / scheduling vendor
	CRMBaseURL    string
	CRMAPIKey     string
	CRMLocationID string
	CRMCalendarID string
	CRMVersion    string
	CRMTimeout    time.Duration
	CRMMaxTries   uint

	// Availability
	VenueTimezone           string
	AvailabilityChunkDays   int
	AvailabilityPace        time.Duration
	AvailabilityMaxVenues   int
	AvailabilityMaxParallel int

	// Security
	EncryptionKey string
	WebhookSecret string
	HoldTTL       time.Duration
	InviteTTL     time.Duration

	// Links in outbound email
	PublicBaseURL string

	// Email
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	SenderName   string
	SenderEmail  string

	// Backups (S3-compatible)
	BackupBucket        string
	BackupEndpoint      string
	BackupAccessKey     string
	BackupSecretKey     string
	BackupRegion        string
	BackupHour          int
	BackupRetentionDays int

	// Mask uploads, falls back to backup credentials
	MaskBucket    string
	MaskEndpoint  string
	MaskPublicURL string
}

// Load reads configuration from environment variables, after loading an
// optional .env file from the working directory.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		log.Println("[Config] Loaded .env")
	}

	cfg := &Config{
		CRMBaseURL:    getEnv("CRM_BASE_URL", "https://services.leadconnectorhq.com"),
		CRMAPIKey:     getEnv("CRM_API_KEY", ""),
		CRMLocationID: getEnv("CRM_LOCATION_ID", ""),
		CRMCalendarID: getEnv("CRM_CALENDAR_ID", ""),
		CRMVersion:    getEnv("CRM_API_VERSION", "2021-04-15"),
		CRMTimeout:    getDuration("CRM_TIMEOUT", 15*time.Second),
		CRMMaxTries:   uint(getMinInt("CRM_MAX_TRIES", 3, 1)),

		VenueTimezone:           getEnv("VENUE_TIMEZONE", "Australia/Sydney"),
		AvailabilityChunkDays:   getInt("AVAILABILITY_CHUNK_DAYS", 30),
		AvailabilityPace:        getDuration("AVAILABILITY_PACE", 250*time.Millisecond),
		AvailabilityMaxVenues:   getInt("AVAILABILITY_MAX_VENUES", 50),
		AvailabilityMaxParallel: getInt("AVAILABILITY_MAX_PARALLEL", 4),

		EncryptionKey: getEnv("ENCRYPTION_KEY", ""),
		WebhookSecret: getEnv("CRM_WEBHOOK_SECRET", ""),
		HoldTTL:       getDuration("SLOT_HOLD_TTL", 15*time.Minute),
		InviteTTL:     getDuration("INVITE_TTL", 7*24*time.Hour),

		PublicBaseURL: getEnv("PUBLIC_BASE_URL", "http://localhost:8090"),

		SMTPHost:     getEnv("SMTP_HOST", "smtp.sendgrid.net"),
		SMTPPort:     getInt("SMTP_PORT", 587),
		SMTPUsername: getEnv("SMTP_USERNAME", "apikey"),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SenderName:   getEnv("SENDER_NAME", "Venue Bookings"),
		SenderEmail:  getEnv("SENDER_EMAIL", "bookings@example.com"),

		BackupBucket:        getEnv("BACKUP_BUCKET_NAME", ""),
		BackupEndpoint:      getEnv("BACKUP_ENDPOINT_URL", ""),
		BackupAccessKey:     getEnv("BACKUP_ACCESS_KEY_ID", ""),
		BackupSecretKey:     getEnv("BACKUP_SECRET_ACCESS_KEY", ""),
		BackupRegion:        getEnv("BACKUP_REGION", "auto"),
		BackupHour:          getInt("BACKUP_HOUR", 3),
		BackupRetentionDays: getInt("BACKUP_RETENTION_DAYS", 30),

		MaskBucket:    getEnv("MASK_BUCKET_NAME", ""),
		MaskEndpoint:  getEnv("MASK_ENDPOINT_URL", ""),
		MaskPublicURL: getEnv("MASK_PUBLIC_URL", ""),
	}

	if cfg.MaskEndpoint == "" {
		cfg.MaskEndpoint = cfg.BackupEndpoint
	}

	if cfg.CRMAPIKey == "" {
		log.Println("[Config] Warning: CRM_API_KEY not set, CRM endpoints will return 503")
	}
	if cfg.CRMCalendarID == "" {
		log.Println("[Config] Warning: CRM_CALENDAR_ID not set")
	}
	if cfg.WebhookSecret == "" {
		log.Println("[Config] Warning: CRM_WEBHOOK_SECRET not set, CRM webhooks will be rejected")
	}

	return cfg
}

// Location resolves the venue timezone, falling back to UTC
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.VenueTimezone)
	if err != nil {
		log.Printf("[Config] Warning: unknown timezone %q, using UTC", c.VenueTimezone)
		return time.UTC
	}
	return loc
}

// BackupConfigured reports whether backup uploads have credentials
func (c *Config) BackupConfigured() bool {
	return c.BackupBucket != "" && c.BackupAccessKey != "" && c.BackupSecretKey != ""
}

// MaskUploadsConfigured reports whether generated masks can be uploaded
func (c *Config) MaskUploadsConfigured() bool {
	return c.MaskBucket != "" && c.BackupAccessKey != "" && c.BackupSecretKey != ""
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Printf("[Config] Warning: %s=%q is not an integer, using %d", key, value, defaultValue)
		return defaultValue
	}
	return n
}

// getMinInt is getInt with values below floor raised to floor
func getMinInt(key string, defaultValue, floor int) int {
	n := getInt(key, defaultValue)
	if n < floor {
		log.Printf("[Config] Warning: %s=%d is below %d, using %d", key, n, floor, floor)
		return floor
	}
	return n
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		log.Printf("[Config] Warning: %s=%q is not a duration, using %s", key, value, defaultValue)
		return defaultValue
	}
	return d
}
