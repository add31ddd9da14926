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
		existing, _ := app.FindCollectionByNameOrId(utils.CollectionMasks)
		if existing != nil {
			return nil
		}

		venues, err := app.FindCollectionByNameOrId(utils.CollectionVenues)
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection(utils.CollectionMasks)

		collection.Fields.Add(
			&core.TextField{
				Id:       "mask_object_key",
				Name:     "object_key",
				Required: true,
				Max:      500,
			},
			&core.TextField{
				Id:   "mask_url",
				Name: "url",
				Max:  1000,
			},
			&core.RelationField{
				Id:           "mask_venue",
				Name:         "venue",
				CollectionId: venues.Id,
				MaxSelect:    1,
			},
			&core.TextField{
				Id:   "mask_label",
				Name: "label",
				Max:  200,
			},
			&core.NumberField{
				Id:      "mask_width",
				Name:    "width",
				OnlyInt: true,
			},
			&core.NumberField{
				Id:      "mask_height",
				Name:    "height",
				OnlyInt: true,
			},
			&core.JSONField{
				Id:      "mask_shapes",
				Name:    "shapes",
				MaxSize: 50000,
			},
			&core.TextField{
				Id:   "mask_created_by",
				Name: "created_by",
				Max:  50,
			},
		)

		addTimestamps(collection, "mask")

		collection.Indexes = []string{
			"CREATE UNIQUE INDEX idx_mask_images_key ON mask_images (object_key)",
			"CREATE INDEX idx_mask_images_venue ON mask_images (venue)",
		}

		collection.ListRule = types.Pointer(staffRule)
		collection.ViewRule = types.Pointer(staffRule)
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = types.Pointer(adminRule)

		if err := app.Save(collection); err != nil {
			return err
		}

		log.Println("[Migration] Created mask_images collection")
		return nil
	}, func(app core.App) error {
		if collection, err := app.FindCollectionByNameOrId(utils.CollectionMasks); err == nil {
			app.Delete(collection)
		}
		return nil
	})
}
