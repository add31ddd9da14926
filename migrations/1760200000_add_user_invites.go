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
		existing, _ := app.FindCollectionByNameOrId(utils.CollectionUserInvites)
		if existing != nil {
			return nil
		}

		users, err := app.FindCollectionByNameOrId(utils.CollectionUsers)
		if err != nil {
			return err
		}

		collection := core.NewBaseCollection(utils.CollectionUserInvites)

		collection.Fields.Add(&core.EmailField{
			Id:       "inv_email",
			Name:     "email",
			Required: true,
		})

		collection.Fields.Add(&core.TextField{
			Id:   "inv_name",
			Name: "name",
			Max:  200,
		})

		collection.Fields.Add(&core.SelectField{
			Id:        "inv_role",
			Name:      "role",
			Required:  true,
			MaxSelect: 1,
			Values:    utils.UserRoles,
		})

		// SHA-256 of the emailed token; the plaintext is never stored
		collection.Fields.Add(&core.TextField{
			Id:       "inv_token_hash",
			Name:     "token_hash",
			Required: true,
			Max:      64,
		})

		collection.Fields.Add(&core.SelectField{
			Id:        "inv_status",
			Name:      "status",
			Required:  true,
			MaxSelect: 1,
			Values:    utils.InviteStatuses,
		})

		collection.Fields.Add(&core.DateField{
			Id:       "inv_expires_at",
			Name:     "expires_at",
			Required: true,
		})

		collection.Fields.Add(&core.RelationField{
			Id:           "inv_invited_by",
			Name:         "invited_by",
			CollectionId: users.Id,
			MaxSelect:    1,
		})

		collection.Fields.Add(&core.RelationField{
			Id:           "inv_accepted_user",
			Name:         "accepted_user",
			CollectionId: users.Id,
			MaxSelect:    1,
		})

		collection.Fields.Add(&core.DateField{
			Id:   "inv_accepted_at",
			Name: "accepted_at",
		})

		collection.Fields.Add(&core.DateField{
			Id:   "inv_last_sent_at",
			Name: "last_sent_at",
		})

		addTimestamps(collection, "inv")

		collection.Indexes = []string{
			"CREATE UNIQUE INDEX idx_user_invites_token ON user_invites (token_hash)",
			"CREATE INDEX idx_user_invites_email ON user_invites (email)",
			"CREATE INDEX idx_user_invites_status ON user_invites (status)",
		}

		collection.ListRule = types.Pointer(adminRule)
		collection.ViewRule = types.Pointer(adminRule)
		collection.CreateRule = nil
		collection.UpdateRule = nil
		collection.DeleteRule = nil

		if err := app.Save(collection); err != nil {
			return err
		}

		log.Println("[Migration] Created user_invites collection")
		return nil
	}, func(app core.App) error {
		if collection, err := app.FindCollectionByNameOrId(utils.CollectionUserInvites); err == nil {
			app.Delete(collection)
		}
		return nil
	})
}
