package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/grtshw/venue-bookings/masks"
	"github.com/pocketbase/pocketbase"
	"github.com/spf13/cobra"
)

// registerCommands adds the operator commands to the pocketbase root command
func registerCommands(app *pocketbase.PocketBase, svc *services) {
	// Register encrypt-pii command for migrating legacy unencrypted data
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "encrypt-pii",
		Short: "Encrypt existing unencrypted PII fields in bookings",
		Run: func(cmd *cobra.Command, args []string) {
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := runPIIEncryptionMigration(app); err != nil {
				log.Fatalf("Migration failed: %v", err)
			}
		},
	})

	// Register backup-now command for an immediate S3 backup
	app.RootCmd.AddCommand(&cobra.Command{
		Use:   "backup-now",
		Short: "Create a database backup and upload it to S3",
		Run: func(cmd *cobra.Command, args []string) {
			if !svc.cfg.BackupConfigured() {
				log.Fatal("BACKUP_BUCKET_NAME, BACKUP_ACCESS_KEY_ID and BACKUP_SECRET_ACCESS_KEY must be set")
			}
			if err := app.Bootstrap(); err != nil {
				log.Fatalf("Failed to bootstrap: %v", err)
			}
			if err := runBackup(app, svc); err != nil {
				log.Fatalf("Backup failed: %v", err)
			}
			fmt.Println("Backup complete")
		},
	})

	app.RootCmd.AddCommand(syncCalendarCommand(app, svc))
	app.RootCmd.AddCommand(missingDatesCommand(app, svc))
	app.RootCmd.AddCommand(debugAvailabilityCommand(app, svc))
	app.RootCmd.AddCommand(generateMaskCommand())
}

// rangeFlags are the --venue/--start/--end flags shared by calendar commands
type rangeFlags struct {
	venue string
	start string
	end   string
}

func (f *rangeFlags) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.venue, "venue", "", "venue id or slug (default calendar when empty)")
	cmd.Flags().StringVar(&f.start, "start", "", "first date, YYYY-MM-DD (default today)")
	cmd.Flags().StringVar(&f.end, "end", "", "last date, YYYY-MM-DD")
}

// resolve bootstraps the app and turns the flags into a calendar and date range
func (f *rangeFlags) resolve(app *pocketbase.PocketBase, svc *services, defaultDays int) (*calendarTarget, time.Time, time.Time) {
	if !svc.crm.Configured() {
		log.Fatal("CRM_API_KEY and CRM_LOCATION_ID must be set")
	}
	if err := app.Bootstrap(); err != nil {
		log.Fatalf("Failed to bootstrap: %v", err)
	}

	target, err := resolveCalendar(app, svc, f.venue, false)
	if err != nil {
		log.Fatal(err)
	}

	start, end, err := parseRange(f.start, f.end, target.Location, time.Now(), defaultDays)
	if err != nil {
		log.Fatalf("Invalid range: %v", err)
	}
	return target, start, end
}

func syncCalendarCommand(app *pocketbase.PocketBase, svc *services) *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "sync-calendar",
		Short: "Pull calendar appointments from the CRM and reconcile bookings",
		Run: func(cmd *cobra.Command, args []string) {
			target, start, end := flags.resolve(app, svc, defaultSyncDays)

			syncLog, err := newSyncLog(app, "cli", target.CalendarID, start, end)
			if err != nil {
				log.Fatalf("Failed to create sync log: %v", err)
			}

			counts := runCalendarSync(context.Background(), app, svc, syncLog.Id, target, start, end)
			fmt.Printf("Processed %d events: %d created, %d updated (run_id: %s)\n",
				counts.Processed, counts.Created, counts.Updated, syncLog.GetString("run_id"))
			for _, e := range counts.Errors {
				fmt.Println("  error:", e)
			}
			if len(counts.Errors) > 0 {
				os.Exit(1)
			}
		},
	}
	flags.bind(cmd)
	return cmd
}

func missingDatesCommand(app *pocketbase.PocketBase, svc *services) *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "list-missing-dates",
		Short: "List dates with no free tour slots",
		Run: func(cmd *cobra.Command, args []string) {
			target, start, end := flags.resolve(app, svc, defaultRangeDays)

			report, err := listMissingDates(context.Background(), svc, target, start, end)
			if err != nil {
				log.Fatalf("Availability lookup failed: %v", err)
			}

			for _, d := range report.Missing {
				fmt.Println(d)
			}
			if len(report.Unknown) > 0 {
				fmt.Fprintf(os.Stderr, "%d dates could not be checked: %s\n",
					len(report.Unknown), strings.Join(report.Unknown, ", "))
			}
		},
	}
	flags.bind(cmd)
	return cmd
}

func debugAvailabilityCommand(app *pocketbase.PocketBase, svc *services) *cobra.Command {
	var flags rangeFlags
	cmd := &cobra.Command{
		Use:   "debug-availability",
		Short: "Print the per-window availability report as JSON",
		Run: func(cmd *cobra.Command, args []string) {
			target, start, end := flags.resolve(app, svc, defaultRangeDays)

			report, err := svc.fetchAvailability(context.Background(), target, start, end)
			if err != nil {
				log.Fatalf("Availability lookup failed: %v", err)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				log.Fatal(err)
			}
		},
	}
	flags.bind(cmd)
	return cmd
}

func generateMaskCommand() *cobra.Command {
	var inPath, outPath string
	cmd := &cobra.Command{
		Use:   "generate-mask",
		Short: "Render a mask image from a JSON shape file",
		Run: func(cmd *cobra.Command, args []string) {
			data, err := os.ReadFile(inPath)
			if err != nil {
				log.Fatalf("Failed to read %s: %v", inPath, err)
			}

			var req masks.Request
			if err := json.Unmarshal(data, &req); err != nil {
				log.Fatalf("Invalid mask file: %v", err)
			}

			png, err := masks.RenderPNG(req)
			if err != nil {
				log.Fatalf("Render failed: %v", err)
			}

			if err := os.WriteFile(outPath, png, 0o644); err != nil {
				log.Fatalf("Failed to write %s: %v", outPath, err)
			}
			fmt.Printf("Wrote %s (%dx%d, %d shapes)\n", outPath, req.Width, req.Height, len(req.Shapes))
		},
	}
	cmd.Flags().StringVar(&inPath, "in", "mask.json", "JSON file with width, height and shapes")
	cmd.Flags().StringVar(&outPath, "out", "mask.png", "output PNG path")
	return cmd
}
