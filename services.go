package main

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/grtshw/venue-bookings/chatflows"
	"github.com/grtshw/venue-bookings/config"
	"github.com/grtshw/venue-bookings/crm"
	"github.com/grtshw/venue-bookings/storage"
	"golang.org/x/time/rate"
)

// services bundles the clients shared by handlers, hooks and commands
type services struct {
	cfg   *config.Config
	crm   *crm.Client
	flows *chatflows.Catalog
	masks *storage.Store // nil when mask uploads are not configured
	loc   *time.Location

	// shared by every free-slot fetch, across requests
	slotLimiter *rate.Limiter
}

func newServices(cfg *config.Config) (*services, error) {
	flows, err := chatflows.Default()
	if err != nil {
		return nil, err
	}

	svc := &services{
		cfg: cfg,
		crm: crm.New(crm.Config{
			BaseURL:    cfg.CRMBaseURL,
			APIKey:     cfg.CRMAPIKey,
			LocationID: cfg.CRMLocationID,
			CalendarID: cfg.CRMCalendarID,
			Version:    cfg.CRMVersion,
			Timezone:   cfg.VenueTimezone,
			Timeout:    cfg.CRMTimeout,
			MaxTries:   cfg.CRMMaxTries,
		}),
		flows:       flows,
		loc:         cfg.Location(),
		slotLimiter: rate.NewLimiter(rate.Every(cfg.AvailabilityPace), 1),
	}

	if cfg.MaskUploadsConfigured() {
		store, err := storage.New(context.Background(), storage.Config{
			Bucket:    cfg.MaskBucket,
			Endpoint:  cfg.MaskEndpoint,
			Region:    cfg.BackupRegion,
			AccessKey: cfg.BackupAccessKey,
			SecretKey: cfg.BackupSecretKey,
			PublicURL: cfg.MaskPublicURL,
		})
		if err != nil && !errors.Is(err, storage.ErrNotConfigured) {
			log.Printf("[Masks] Warning: uploads disabled: %v", err)
		}
		svc.masks = store
	}

	return svc, nil
}

// backupStore returns the S3 store for database backups
func (s *services) backupStore(ctx context.Context) (*storage.Store, error) {
	return storage.New(ctx, storage.Config{
		Bucket:    s.cfg.BackupBucket,
		Endpoint:  s.cfg.BackupEndpoint,
		Region:    s.cfg.BackupRegion,
		AccessKey: s.cfg.BackupAccessKey,
		SecretKey: s.cfg.BackupSecretKey,
	})
}
