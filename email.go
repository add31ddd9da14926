package main

import (
	"fmt"
	"html"
	"log"
	"net/mail"
	"strings"
	"time"

	"github.com/grtshw/venue-bookings/config"
	"github.com/pocketbase/pocketbase/core"
	"github.com/pocketbase/pocketbase/tools/mailer"
)

// configureSMTP applies the SMTP settings from config to PocketBase
func configureSMTP(app core.App, cfg *config.Config) {
	if cfg.SMTPHost == "" || cfg.SMTPPassword == "" {
		log.Println("[SMTP] No SMTP_HOST/SMTP_PASSWORD configured, skipping SMTP setup")
		return
	}

	settings := app.Settings()

	// Check if already configured correctly
	if settings.SMTP.Enabled && settings.SMTP.Host == cfg.SMTPHost && settings.SMTP.Port == cfg.SMTPPort &&
		settings.SMTP.Username == cfg.SMTPUsername && settings.Meta.SenderAddress == cfg.SenderEmail {
		log.Println("[SMTP] Already configured correctly")
		return
	}

	settings.SMTP.Enabled = true
	settings.SMTP.Host = cfg.SMTPHost
	settings.SMTP.Port = cfg.SMTPPort
	settings.SMTP.Username = cfg.SMTPUsername
	settings.SMTP.Password = cfg.SMTPPassword
	settings.SMTP.TLS = cfg.SMTPPort == 465

	settings.Meta.SenderName = cfg.SenderName
	settings.Meta.SenderAddress = cfg.SenderEmail

	if err := app.Save(settings); err != nil {
		log.Printf("[SMTP] Failed to save settings: %v", err)
	} else {
		log.Println("[SMTP] Settings saved successfully")
	}
}

// wrapEmailHTML wraps content in the branded email template.
func wrapEmailHTML(content, senderName string) string {
	return `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
</head>
<body style="font-family: Georgia, 'Times New Roman', serif; line-height: 1.4; color: #2b2622; font-size: 16px; margin: 0; padding: 0; background: #ffffff;">

    <div style="text-align: center; max-width: 660px; margin: auto; padding: 24px;">
        <p style="font-size: 22px; letter-spacing: 3px; text-transform: uppercase; margin: 20px 0;">` + html.EscapeString(senderName) + `</p>
    </div>

    <div style="max-width: 660px; margin: auto; padding: 24px; background: #f7f3ee;">
        <div style="background: #ffffff; padding: 24px; border-radius: 8px;">
` + content + `
        </div>
    </div>

    <div style="max-width: 660px; margin: auto; padding: 16px; text-align: center;">
        <p style="font-size: 12px; color: #8a8178;">You are receiving this email because of an enquiry or account with ` + html.EscapeString(senderName) + `.</p>
    </div>

</body>
</html>`
}

func paragraph(text string) string {
	return `
            <p style="color: #4a4540; font-size: 16px; line-height: 1.6; margin: 0 0 16px 0;">` + text + `</p>`
}

func button(href, label string) string {
	return fmt.Sprintf(`
            <div style="text-align: center; margin: 32px 0;">
                <a href="%s" style="display: inline-block; background: #2b2622; color: #ffffff; padding: 14px 32px; text-decoration: none; border-radius: 6px; font-size: 16px;">
                    %s
                </a>
            </div>
            <p style="color: #9a9088; font-size: 14px; margin: 24px 0 8px 0;">
                Copy and paste if the link doesn't work:
            </p>
            <div style="background: #f5f1ec; padding: 12px 16px; border-radius: 6px; margin: 0;">
                <p style="color: #666666; font-size: 13px; font-family: 'Courier New', Courier, monospace; word-break: break-all; margin: 0;">
                    %s
                </p>
            </div>`, html.EscapeString(href), label, html.EscapeString(href))
}

func sendEmail(app core.App, to mail.Address, subject, content string) error {
	meta := app.Settings().Meta
	msg := &mailer.Message{
		From:    mail.Address{Address: meta.SenderAddress, Name: meta.SenderName},
		To:      []mail.Address{to},
		Subject: subject,
		HTML:    wrapEmailHTML(content, meta.SenderName),
	}
	return app.NewMailClient().Send(msg)
}

func greetingName(name string) string {
	if f := strings.Fields(name); len(f) > 0 {
		return html.EscapeString(f[0])
	}
	return "there"
}

// sendInviteEmail sends a staff invite with the plaintext accept link.
func sendInviteEmail(app core.App, email, name, role, inviteURL string, expires time.Time) error {
	subject := "You've been invited to the venue bookings dashboard"
	content := paragraph("Hi "+greetingName(name)+",") +
		paragraph(fmt.Sprintf("You've been invited to join the bookings dashboard as <strong>%s</strong>.", html.EscapeString(role))) +
		button(inviteURL, "Accept invite") + `
            <p style="color: #9a9088; font-size: 14px; margin: 24px 0 0 0;">This invite expires on ` + expires.Format("2 January 2006") + `.</p>`

	if err := sendEmail(app, mail.Address{Address: email, Name: name}, subject, content); err != nil {
		log.Printf("[Email] Failed to send invite to %s: %v", email, err)
		return err
	}

	log.Printf("[Email] Invite sent to %s", email)
	return nil
}

// bookingConfirmation is what the tour confirmation email shows
type bookingConfirmation struct {
	Email     string
	Name      string
	Venue     string
	Address   string
	Date      string // YYYY-MM-DD
	Time      string // "3:00 PM"
	Timezone  string
	Reference string
}

// sendBookingConfirmationEmail confirms a booked venue tour.
func sendBookingConfirmationEmail(app core.App, b bookingConfirmation) error {
	when := b.Date
	if d, err := time.Parse("2006-01-02", b.Date); err == nil {
		when = d.Format("Monday 2 January 2006")
	}

	venue := "the venue"
	if b.Venue != "" {
		venue = "<strong>" + html.EscapeString(b.Venue) + "</strong>"
	}

	subject := "Your venue tour is booked"
	content := paragraph("Hi "+greetingName(b.Name)+",") +
		paragraph(fmt.Sprintf("Your tour of %s is confirmed for <strong>%s at %s</strong> (%s).",
			venue, when, html.EscapeString(b.Time), html.EscapeString(b.Timezone)))
	if b.Address != "" {
		content += paragraph("Address: " + html.EscapeString(b.Address))
	}
	content += `
            <p style="color: #9a9088; font-size: 14px; margin: 24px 0 0 0;">Booking reference: ` + html.EscapeString(b.Reference) + `</p>`

	if err := sendEmail(app, mail.Address{Address: b.Email, Name: b.Name}, subject, content); err != nil {
		log.Printf("[Email] Failed to send booking confirmation to %s: %v", b.Email, err)
		return err
	}

	log.Printf("[Email] Booking confirmation sent to %s", b.Email)
	return nil
}
