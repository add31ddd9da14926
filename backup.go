package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"github.com/grtshw/venue-bookings/storage"
	"github.com/pocketbase/pocketbase/core"
)

const appName = "venues"

// nextBackupTime returns the next occurrence of hour:00 after now, in now's location
func nextBackupTime(now time.Time, hour int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(now.Year(), now.Month(), now.Day()+1, hour, 0, 0, 0, now.Location())
	}
	return next
}

func backupPrefix() string {
	return fmt.Sprintf("%s/database/", appName)
}

// scheduleBackups runs daily backups at the configured hour in the venue timezone
func scheduleBackups(app core.App, svc *services) {
	// Wait for app to fully start
	time.Sleep(30 * time.Second)

	for {
		next := nextBackupTime(time.Now().In(svc.loc), svc.cfg.BackupHour)
		duration := time.Until(next)
		log.Printf("[Backup] Next backup scheduled for %s (in %v)", next.Format("2006-01-02 15:04 MST"), duration.Round(time.Minute))

		time.Sleep(duration)

		if err := runBackup(app, svc); err != nil {
			log.Printf("[Backup] ERROR: %v", err)
		}
	}
}

// runBackup creates a PocketBase backup, uploads it and prunes old copies
func runBackup(app core.App, svc *services) error {
	log.Printf("[Backup] Starting daily backup...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	store, err := svc.backupStore(ctx)
	if err != nil {
		return fmt.Errorf("backup storage: %w", err)
	}

	backupName := fmt.Sprintf("%s-db-%s.zip", appName, time.Now().In(svc.loc).Format("2006-01-02"))

	if err := app.CreateBackup(ctx, backupName); err != nil {
		return fmt.Errorf("create backup: %w", err)
	}

	backupPath := filepath.Join(app.DataDir(), "backups", backupName)
	if _, err := os.Stat(backupPath); os.IsNotExist(err) {
		return fmt.Errorf("backup file not found at %s", backupPath)
	}

	if err := uploadBackup(ctx, store, backupPath, backupName); err != nil {
		return fmt.Errorf("upload backup: %w", err)
	}

	// Delete local backup to save space
	if err := os.Remove(backupPath); err != nil {
		log.Printf("[Backup] Warning: Failed to delete local backup: %v", err)
	}

	cutoff := time.Now().AddDate(0, 0, -svc.cfg.BackupRetentionDays)
	deleted, err := store.Prune(ctx, backupPrefix(), cutoff)
	if err != nil {
		log.Printf("[Backup] Warning: Failed to clean old backups: %v", err)
	} else if deleted > 0 {
		log.Printf("[Backup] Cleaned up %d old backup(s)", deleted)
	}

	log.Printf("[Backup] Completed successfully: %s", backupName)
	return nil
}

func uploadBackup(ctx context.Context, store *storage.Store, localPath, backupName string) error {
	file, err := os.Open(localPath)
	if err != nil {
		return fmt.Errorf("open backup file: %w", err)
	}
	defer file.Close()

	key := backupPrefix() + backupName
	if err := store.Put(ctx, key, file, "application/zip"); err != nil {
		return err
	}

	log.Printf("[Backup] Uploaded to s3://%s/%s", store.Bucket(), key)
	return nil
}
