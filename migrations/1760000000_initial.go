package migrations

import (
	"github.com/grtshw/venue-bookings/pricing"
	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/core"
	m "github.com/pocketbase/pocketbase/migrations"
	"github.com/pocketbase/pocketbase/tools/types"
)

const (
	staffRule = "@request.auth.role = 'admin' || @request.auth.role = 'coordinator'"
	adminRule = "@request.auth.role = 'admin'"
)

func init() {
	m.Register(func(app core.App) error {
		// Extend the default users collection with roles
		if err := createUsersCollection(app); err != nil {
			return err
		}

		// Venues FIRST (packages and bookings reference it)
		if err := createVenuesCollection(app); err != nil {
			return err
		}

		if err := createPackagesCollection(app); err != nil {
			return err
		}

		if err := createBookingsCollection(app); err != nil {
			return err
		}

		return createPricingConfigCollection(app)
	}, func(app core.App) error {
		for _, name := range []string{utils.CollectionPricingConfig, utils.CollectionBookings, utils.CollectionPackages, utils.CollectionVenues} {
			if collection, err := app.FindCollectionByNameOrId(name); err == nil {
				app.Delete(collection)
			}
		}
		return nil
	})
}

func createUsersCollection(app core.App) error {
	collection, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
	if err != nil {
		// Users collection should exist by default, just extend it
		return nil
	}

	if !fieldExists(collection, "role") {
		collection.Fields.Add(&core.SelectField{
			Id:        "users_role",
			Name:      "role",
			Required:  false,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})
	}

	if !fieldExists(collection, "name") {
		collection.Fields.Add(&core.TextField{
			Id:       "users_name",
			Name:     "name",
			Required: false,
			Max:      200,
		})
	}

	return app.Save(collection)
}

func createVenuesCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionVenues)
	if existing != nil {
		return nil // Already exists
	}

	collection := core.NewBaseCollection(utils.CollectionVenues)

	collection.Fields.Add(&core.TextField{
		Id:       "ven_name",
		Name:     "name",
		Required: true,
		Max:      200,
	})

	collection.Fields.Add(&core.TextField{
		Id:       "ven_slug",
		Name:     "slug",
		Required: true,
		Max:      100,
		Pattern:  `^[a-z0-9]+(?:-[a-z0-9]+)*$`,
	})

	collection.Fields.Add(&core.SelectField{
		Id:        "ven_status",
		Name:      "status",
		Required:  true,
		MaxSelect: 1,
		Values:    utils.VenueStatuses,
	})

	// Scheduling vendor calendar backing this venue's tours
	collection.Fields.Add(&core.TextField{
		Id:   "ven_calendar_id",
		Name: "calendar_id",
		Max:  100,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "ven_timezone",
		Name: "timezone",
		Max:  64,
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "ven_capacity",
		Name:    "capacity",
		OnlyInt: true,
		Min:     types.Pointer(0.0),
	})

	collection.Fields.Add(&core.TextField{
		Id:   "ven_description",
		Name: "description",
		Max:  10000,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "ven_address",
		Name: "address",
		Max:  500,
	})

	collection.Fields.Add(&core.URLField{
		Id:   "ven_hero_image_url",
		Name: "hero_image_url",
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "ven_sort_order",
		Name:    "sort_order",
		OnlyInt: true,
	})

	addTimestamps(collection, "ven")

	collection.Indexes = []string{
		"CREATE UNIQUE INDEX idx_venues_slug ON venues (slug)",
		"CREATE INDEX idx_venues_status ON venues (status)",
	}

	// Public site reads active venues, staff manage them
	collection.ListRule = types.Pointer("status = 'active' || " + staffRule)
	collection.ViewRule = types.Pointer("status = 'active' || " + staffRule)
	collection.CreateRule = types.Pointer(adminRule)
	collection.UpdateRule = types.Pointer(staffRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createPackagesCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionPackages)
	if existing != nil {
		return nil
	}

	venues, err := app.FindCollectionByNameOrId(utils.CollectionVenues)
	if err != nil {
		return err
	}

	collection := core.NewBaseCollection(utils.CollectionPackages)

	collection.Fields.Add(&core.RelationField{
		Id:            "pkg_venue",
		Name:          "venue",
		Required:      true,
		CollectionId:  venues.Id,
		MaxSelect:     1,
		CascadeDelete: true,
	})

	collection.Fields.Add(&core.TextField{
		Id:       "pkg_name",
		Name:     "name",
		Required: true,
		Max:      200,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "pkg_description",
		Name: "description",
		Max:  10000,
	})

	collection.Fields.Add(&core.NumberField{
		Id:   "pkg_price",
		Name: "price",
		Min:  types.Pointer(0.0),
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "pkg_included_guests",
		Name:    "included_guests",
		OnlyInt: true,
		Min:     types.Pointer(0.0),
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "pkg_max_guests",
		Name:    "max_guests",
		OnlyInt: true,
		Min:     types.Pointer(0.0),
	})

	collection.Fields.Add(&core.JSONField{
		Id:      "pkg_inclusions",
		Name:    "inclusions",
		MaxSize: 20000,
	})

	collection.Fields.Add(&core.SelectField{
		Id:        "pkg_status",
		Name:      "status",
		Required:  true,
		MaxSelect: 1,
		Values:    utils.PackageStatuses,
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "pkg_sort_order",
		Name:    "sort_order",
		OnlyInt: true,
	})

	addTimestamps(collection, "pkg")

	collection.Indexes = []string{
		"CREATE INDEX idx_packages_venue ON packages (venue)",
		"CREATE INDEX idx_packages_status ON packages (status)",
	}

	collection.ListRule = types.Pointer("status = 'active' || " + staffRule)
	collection.ViewRule = types.Pointer("status = 'active' || " + staffRule)
	collection.CreateRule = types.Pointer(staffRule)
	collection.UpdateRule = types.Pointer(staffRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createBookingsCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionBookings)
	if existing != nil {
		return nil
	}

	venues, err := app.FindCollectionByNameOrId(utils.CollectionVenues)
	if err != nil {
		return err
	}
	packages, err := app.FindCollectionByNameOrId(utils.CollectionPackages)
	if err != nil {
		return err
	}

	collection := core.NewBaseCollection(utils.CollectionBookings)

	collection.Fields.Add(&core.TextField{
		Id:       "bk_client_name",
		Name:     "client_name",
		Required: true,
		Max:      200,
	})

	// PII fields hold "enc:" ciphertext, so plain text fields with room to spare
	collection.Fields.Add(&core.TextField{
		Id:   "bk_client_email",
		Name: "client_email",
		Max:  1000,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_client_email_index",
		Name: "client_email_index",
		Max:  64,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_client_phone",
		Name: "client_phone",
		Max:  500,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_partner_name",
		Name: "partner_name",
		Max:  1000,
	})

	collection.Fields.Add(&core.RelationField{
		Id:           "bk_venue",
		Name:         "venue",
		CollectionId: venues.Id,
		MaxSelect:    1,
	})

	collection.Fields.Add(&core.RelationField{
		Id:           "bk_package",
		Name:         "package",
		CollectionId: packages.Id,
		MaxSelect:    1,
	})

	collection.Fields.Add(&core.DateField{
		Id:   "bk_event_date",
		Name: "event_date",
	})

	// Tour/appointment slot as shown to the client, e.g. "3:00 PM"
	collection.Fields.Add(&core.TextField{
		Id:   "bk_start_time",
		Name: "start_time",
		Max:  20,
	})

	collection.Fields.Add(&core.DateField{
		Id:   "bk_appointment_at",
		Name: "appointment_at",
	})

	collection.Fields.Add(&core.NumberField{
		Id:      "bk_guest_count",
		Name:    "guest_count",
		OnlyInt: true,
		Min:     types.Pointer(0.0),
	})

	collection.Fields.Add(&core.NumberField{
		Id:   "bk_value",
		Name: "value",
		Min:  types.Pointer(0.0),
	})

	collection.Fields.Add(&core.SelectField{
		Id:        "bk_status",
		Name:      "status",
		Required:  true,
		MaxSelect: 1,
		Values:    utils.BookingStatuses,
	})

	collection.Fields.Add(&core.SelectField{
		Id:        "bk_source",
		Name:      "source",
		MaxSelect: 1,
		Values:    utils.SourceValues,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_calendar_id",
		Name: "calendar_id",
		Max:  100,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_crm_contact_id",
		Name: "crm_contact_id",
		Max:  100,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_crm_appointment_id",
		Name: "crm_appointment_id",
		Max:  100,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_chat_flow",
		Name: "chat_flow",
		Max:  100,
	})

	collection.Fields.Add(&core.TextField{
		Id:   "bk_notes",
		Name: "notes",
		Max:  20000,
	})

	addTimestamps(collection, "bk")

	collection.Indexes = []string{
		"CREATE INDEX idx_bookings_status ON bookings (status)",
		"CREATE INDEX idx_bookings_venue ON bookings (venue)",
		"CREATE INDEX idx_bookings_event_date ON bookings (event_date)",
		"CREATE INDEX idx_bookings_email_index ON bookings (client_email_index)",
		"CREATE INDEX idx_bookings_crm_appointment ON bookings (crm_appointment_id)",
	}

	// Public writes go through the inquiry/booking endpoints only
	collection.ListRule = types.Pointer(staffRule)
	collection.ViewRule = types.Pointer(staffRule)
	collection.CreateRule = nil
	collection.UpdateRule = types.Pointer(staffRule)
	collection.DeleteRule = types.Pointer(adminRule)

	return app.Save(collection)
}

func createPricingConfigCollection(app core.App) error {
	existing, _ := app.FindCollectionByNameOrId(utils.CollectionPricingConfig)
	if existing != nil {
		return nil
	}

	collection := core.NewBaseCollection(utils.CollectionPricingConfig)

	collection.Fields.Add(&core.TextField{
		Id:   "pc_currency",
		Name: "currency",
		Max:  3,
	})
	collection.Fields.Add(&core.NumberField{
		Id:   "pc_base_price",
		Name: "base_price",
	})
	collection.Fields.Add(&core.NumberField{
		Id:   "pc_peak_multiplier",
		Name: "peak_multiplier",
	})
	collection.Fields.Add(&core.JSONField{
		Id:      "pc_peak_months",
		Name:    "peak_months",
		MaxSize: 1000,
	})
	collection.Fields.Add(&core.NumberField{
		Id:   "pc_weekday_discount",
		Name: "weekday_discount",
	})
	collection.Fields.Add(&core.NumberField{
		Id:   "pc_deposit_rate",
		Name: "deposit_rate",
	})
	collection.Fields.Add(&core.JSONField{
		Id:      "pc_guest_tiers",
		Name:    "guest_tiers",
		MaxSize: 10000,
	})
	collection.Fields.Add(&core.TextField{
		Id:   "pc_updated_by",
		Name: "updated_by",
		Max:  50,
	})

	addTimestamps(collection, "pc")

	// Public read for the quote widget; writes go through PATCH /api/admin/pricing
	publicRule := ""
	collection.ListRule = &publicRule
	collection.ViewRule = &publicRule
	collection.CreateRule = nil
	collection.UpdateRule = nil
	collection.DeleteRule = nil

	if err := app.Save(collection); err != nil {
		return err
	}

	return seedPricingConfig(app, collection)
}

// seedPricingConfig creates the single pricing_config record
func seedPricingConfig(app core.App, collection *core.Collection) error {
	def := pricing.Default()

	record := core.NewRecord(collection)
	record.Set("currency", def.Currency)
	record.Set("base_price", def.BasePrice)
	record.Set("peak_multiplier", def.PeakMultiplier)
	record.Set("peak_months", def.PeakMonths)
	record.Set("weekday_discount", def.WeekdayDiscount)
	record.Set("deposit_rate", def.DepositRate)
	record.Set("guest_tiers", def.GuestTiers)

	return app.Save(record)
}

// addTimestamps adds created/updated autodate fields
func addTimestamps(collection *core.Collection, prefix string) {
	collection.Fields.Add(&core.AutodateField{
		Id:       prefix + "_created",
		Name:     "created",
		OnCreate: true,
	})
	collection.Fields.Add(&core.AutodateField{
		Id:       prefix + "_updated",
		Name:     "updated",
		OnCreate: true,
		OnUpdate: true,
	})
}

// fieldExists checks if a field with the given name exists in the collection
func fieldExists(collection *core.Collection, fieldName string) bool {
	for _, f := range collection.Fields {
		if f.GetName() == fieldName {
			return true
		}
	}
	return false
}
