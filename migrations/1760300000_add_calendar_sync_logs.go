package migrations

import (
	"log"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

func init() {
	m.Register(func(app core.App) error {
		existing, _ := app.FindCollectionByNameOrId(utils.CollectionCalendarSyncLogs)
		if existing != nil {
			return nil
		}

		collection := core.NewBaseCollection(utils.CollectionCalendarSyncLogs)

		collection.Fields.Add(&core.TextField{
			Id:   "csl_run_id",
			Name: "run_id",
			Max:  36,
		})

		collection.Fields.Add(&core.SelectField{
			Id:        "csl_sync_type",
			Name:      "sync_type",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"manual", "scheduled", "webhook", "cli"},
		})

		collection.Fields.Add(&core.TextField{
			Id:   "csl_calendar_id",
			Name: "calendar_id",
			Max:  100,
		})

		collection.Fields.Add(&core.TextField{
			Id:   "csl_range_start",
			Name: "range_start",
			Max:  10,
		})

		collection.Fields.Add(&core.TextField{
			Id:   "csl_range_end",
			Name: "range_end",
			Max:  10,
		})

		collection.Fields.Add(&core.NumberField{
			Id:   "csl_records_processed",
			Name: "records_processed",
		})

		collection.Fields.Add(&core.NumberField{
			Id:   "csl_records_created",
			Name: "records_created",
		})

		collection.Fields.Add(&core.NumberField{
			Id:   "csl_records_updated",
			Name: "records_updated",
		})

		collection.Fields.Add(&core.JSONField{
			Id:      "csl_errors",
			Name:    "errors",
			MaxSize: 10000,
		})

		collection.Fields.Add(&core.DateField{
			Id:   "csl_started_at",
			Name: "started_at",
		})

		collection.Fields.Add(&core.DateField{
			Id:   "csl_completed_at",
			Name: "completed_at",
		})

		collection.Fields.Add(&core.SelectField{
			Id:        "csl_status",
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    []string{"running", "completed", "failed"},
		})

		addTimestamps(collection, "csl")

		collection.Indexes = []string{
			"CREATE INDEX idx_calendar_sync_logs_started ON calendar_sync_logs (started_at)",
		}

		collection.ListRule = types.Pointer(staffRule)
		collection.ViewRule = types.Pointer(staffRule)
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = types.Pointer(adminRule)

		if err := app.Save(collection); err != nil {
			return err
		}

		log.Println("[Migration] Created calendar_sync_logs collection")
		return nil
	}, func(app core.App) error {
		if collection, err := app.FindCollectionByNameOrId(utils.CollectionCalendarSyncLogs); err == nil {
			app.Delete(collection)
		}
		return nil
	})
}
