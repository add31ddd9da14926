package utils

// Collection names
const (
	CollectionUsers            = "users"
	CollectionVenues           = "venues"
	CollectionPackages         = "packages"
	CollectionBookings         = "bookings"
	CollectionPricingConfig    = "pricing_config"
	CollectionUserInvites      = "user_invites"
	CollectionCalendarSyncLogs = "calendar_sync_logs"
	CollectionMasks            = "mask_images"
	CollectionAuditLogs        = "audit_logs"
)

// Field names
const (
	FieldStatus     = "status"
	FieldRole       = "role"
	FieldSource     = "source"
	FieldEventDate  = "event_date"
	FieldCRMContact = "crm_contact_id"
	FieldCRMAppt    = "crm_appointment_id"
)

// Role values
const (
	RoleAdmin       = "admin"
	RoleCoordinator = "coordinator"
)

// Booking status values, in pipeline order
const (
	BookingInquiry    = "inquiry"
	BookingTourBooked = "tour_booked"
	BookingHold       = "hold"
	BookingConfirmed  = "confirmed"
	BookingCompleted  = "completed"
	BookingCancelled  = "cancelled"
)

// Status values
var (
	UserRoles       = []string{RoleAdmin, RoleCoordinator}
	VenueStatuses   = []string{"active", "inactive"}
	PackageStatuses = []string{"active", "archived"}
	BookingStatuses = []string{
		BookingInquiry,
		BookingTourBooked,
		BookingHold,
		BookingConfirmed,
		BookingCompleted,
		BookingCancelled,
	}
	InviteStatuses = []string{"pending", "accepted", "revoked"}
)

// Source values (where a booking originated)
var SourceValues = []string{"website", "chatbot", "crm", "manual"}

// Audit actions
var AuditActions = []string{
	"create", "read", "update", "delete",
	"login", "login_failed",
	"invite_sent", "invite_accepted", "invite_revoked",
	"crm_upsert", "crm_booking", "calendar_sync",
	"pricing_update", "mask_generated",
	"webhook_received",
}

// IsValidBookingStatus reports whether s is a known booking status
func IsValidBookingStatus(s string) bool {
	for _, v := range BookingStatuses {
		if v == s {
			return true
		}
	}
	return false
}

// IsValidRole reports whether r is an assignable user role
func IsValidRole(r string) bool {
	return r == RoleAdmin || r == RoleCoordinator
}
