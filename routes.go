package main

import (
	"log"

	"github.com/grtshw/venue-bookings/utils"
	"github.com/pocketbase/pocketbase/apis"
	"github.com/pocketbase/pocketbase/core"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// registerRoutes sets up all custom API endpoints
func registerRoutes(e *core.ServeEvent, app core.App, svc *services, reg *prometheus.Registry) {
	// Public site endpoints (no auth), rate limited per IP
	e.Router.GET("/api/public/venues", func(re *core.RequestEvent) error {
		return handlePublicVenues(re, app)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/public/availability", func(re *core.RequestEvent) error {
		return handlePublicAvailability(re, app, svc)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/public/availability/day", func(re *core.RequestEvent) error {
		return handlePublicAvailabilityDay(re, app, svc)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/public/pricing", func(re *core.RequestEvent) error {
		return handlePublicPricing(re, app)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/public/pricing/quote", func(re *core.RequestEvent) error {
		return handlePricingQuote(re, app, svc)
	}).BindFunc(utils.RateLimitPublic)

	// Form submissions reach the CRM, so they get the tighter limit
	e.Router.POST("/api/public/inquiries", func(re *core.RequestEvent) error {
		return handlePublicInquiry(re, app, svc)
	}).BindFunc(utils.RateLimitSubmit)

	e.Router.POST("/api/public/bookings", func(re *core.RequestEvent) error {
		return handlePublicBooking(re, app, svc)
	}).BindFunc(utils.RateLimitSubmit)

	// Chatbot
	e.Router.GET("/api/public/chat/flows", func(re *core.RequestEvent) error {
		return handleChatFlowsList(re, svc)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.GET("/api/public/chat/flows/{id}", func(re *core.RequestEvent) error {
		return handleChatFlowGet(re, svc)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.POST("/api/public/chat/lead", func(re *core.RequestEvent) error {
		return handleChatLead(re, app, svc)
	}).BindFunc(utils.RateLimitSubmit)

	// Staff invites (public side)
	e.Router.GET("/api/public/invites/{token}", func(re *core.RequestEvent) error {
		return handlePublicInviteInfo(re, app)
	}).BindFunc(utils.RateLimitPublic)

	e.Router.POST("/api/public/invites/{token}/accept", func(re *core.RequestEvent) error {
		return handlePublicInviteAccept(re, app)
	}).BindFunc(utils.RateLimitSubmit)

	// CRM webhook receiver (HMAC signed)
	e.Router.POST("/api/webhooks/crm", func(re *core.RequestEvent) error {
		return handleCRMWebhook(re, app, svc)
	}).BindFunc(utils.RateLimitWebhook)

	// Dashboard
	e.Router.GET("/api/dashboard/stats", func(re *core.RequestEvent) error {
		return handleDashboardStats(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	// Venues CRUD (staff)
	e.Router.GET("/api/venues", func(re *core.RequestEvent) error {
		return handleVenuesList(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.GET("/api/venues/{id}", func(re *core.RequestEvent) error {
		return handleVenueGet(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.POST("/api/venues", func(re *core.RequestEvent) error {
		return handleVenueCreate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.PATCH("/api/venues/{id}", func(re *core.RequestEvent) error {
		return handleVenueUpdate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.DELETE("/api/venues/{id}", func(re *core.RequestEvent) error {
		return handleVenueDelete(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	// Packages CRUD (staff)
	e.Router.GET("/api/packages", func(re *core.RequestEvent) error {
		return handlePackagesList(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.GET("/api/packages/{id}", func(re *core.RequestEvent) error {
		return handlePackageGet(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.POST("/api/packages", func(re *core.RequestEvent) error {
		return handlePackageCreate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.PATCH("/api/packages/{id}", func(re *core.RequestEvent) error {
		return handlePackageUpdate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.DELETE("/api/packages/{id}", func(re *core.RequestEvent) error {
		return handlePackageDelete(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	// Bookings (staff)
	e.Router.GET("/api/bookings", func(re *core.RequestEvent) error {
		return handleBookingsList(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.GET("/api/bookings/{id}", func(re *core.RequestEvent) error {
		return handleBookingGet(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.POST("/api/bookings", func(re *core.RequestEvent) error {
		return handleBookingCreate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.PATCH("/api/bookings/{id}", func(re *core.RequestEvent) error {
		return handleBookingUpdate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	e.Router.DELETE("/api/bookings/{id}", func(re *core.RequestEvent) error {
		return handleBookingDelete(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	// Pricing (admin)
	e.Router.PATCH("/api/admin/pricing", func(re *core.RequestEvent) error {
		return handlePricingUpdate(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	// Availability diagnostics (admin)
	e.Router.GET("/api/admin/availability/debug", func(re *core.RequestEvent) error {
		return handleAdminAvailabilityDebug(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/admin/availability/missing", func(re *core.RequestEvent) error {
		return handleAdminMissingDates(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/admin/availability/venues", func(re *core.RequestEvent) error {
		return handleAdminVenueAvailability(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	// Calendar sync (admin)
	e.Router.POST("/api/admin/calendar/sync", func(re *core.RequestEvent) error {
		return handleCalendarSync(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/admin/calendar/sync-logs", func(re *core.RequestEvent) error {
		return handleCalendarSyncLogs(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	// Invites (admin)
	e.Router.GET("/api/admin/invites", func(re *core.RequestEvent) error {
		return handleInvitesList(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.POST("/api/admin/invites", func(re *core.RequestEvent) error {
		return handleInviteCreate(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.POST("/api/admin/invites/{id}/resend", func(re *core.RequestEvent) error {
		return handleInviteResend(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.DELETE("/api/admin/invites/{id}", func(re *core.RequestEvent) error {
		return handleInviteRevoke(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	// Masks (admin)
	e.Router.POST("/api/admin/masks", func(re *core.RequestEvent) error {
		return handleMaskGenerate(re, app, svc)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireAdmin)

	e.Router.GET("/api/admin/masks", func(re *core.RequestEvent) error {
		return handleMasksList(re, app)
	}).BindFunc(utils.RateLimitAuth).BindFunc(utils.RequireStaff)

	// Metrics (admin)
	e.Router.GET("/api/admin/metrics", apis.WrapStdHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))).
		BindFunc(utils.RequireAdmin)

	log.Printf("[Routes] Registered API endpoints")
}
