// Package notify fans an alert out to the SMS and email side channels.
// Each channel is independent and best-effort: a provider failure is logged
// and reported as a degraded outcome, never as an error that aborts the
// pipeline.
package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/wildguard/wildguard/internal/models"
)

// Outcome reports per-channel delivery as data rather than control flow.
type Outcome struct {
	SMSSent   bool `json:"sms_sent"`
	EmailSent bool `json:"email_sent"`
}

// SMSConfig holds the Twilio credentials and destination. The channel is
// silently disabled unless all fields are set.
type SMSConfig struct {
	AccountSID string
	AuthToken  string
	From       string
	To         string
}

// EmailConfig holds the SMTP credentials. The channel is silently disabled
// unless Host and From are set.
type EmailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

type smsSender interface {
	Send(ctx context.Context, to, body string) error
}

type emailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

// Dispatcher delivers alert notifications across the configured channels.
type Dispatcher struct {
	sms   smsSender
	smsTo string
	email emailSender
}

func NewDispatcher(sms SMSConfig, email EmailConfig) *Dispatcher {
	d := &Dispatcher{}

	if sms.AccountSID != "" && sms.AuthToken != "" && sms.From != "" && sms.To != "" {
		d.sms = NewTwilioClient(sms.AccountSID, sms.AuthToken, sms.From)
		d.smsTo = sms.To
	} else {
		log.Info().Msg("SMS channel not configured, alerts will not be sent via SMS")
	}

	if email.Host != "" && email.From != "" {
		d.email = NewSMTPSender(email.Host, email.Port, email.Username, email.Password, email.From)
	} else {
		log.Info().Msg("Email channel not configured, alerts will not be sent via email")
	}

	return d
}

// Dispatch sends the alert on every configured channel. recipientEmail may
// be empty, which disables the email channel for this dispatch. A failure
// on one channel never prevents the other from being attempted.
func (d *Dispatcher) Dispatch(ctx context.Context, det models.Detection, at time.Time, recipientEmail string) Outcome {
	body := fmt.Sprintf("DANGER ALERT: %s detected with confidence %.2f at %s",
		det.Label, det.Confidence, at.Local().Format("Mon, 02 Jan 2006 15:04:05"))

	var out Outcome

	if d.sms != nil {
		if err := d.sms.Send(ctx, d.smsTo, body); err != nil {
			log.Error().Err(err).Str("animal", det.Label).Msg("Failed to send SMS alert")
		} else {
			out.SMSSent = true
			log.Info().Str("animal", det.Label).Msg("SMS alert sent")
		}
	}

	if d.email != nil && recipientEmail != "" {
		subject := fmt.Sprintf("Wildlife danger alert: %s", det.Label)
		if err := d.email.Send(ctx, recipientEmail, subject, body); err != nil {
			log.Error().Err(err).Str("animal", det.Label).Str("recipient", recipientEmail).Msg("Failed to send email alert")
		} else {
			out.EmailSent = true
			log.Info().Str("animal", det.Label).Str("recipient", recipientEmail).Msg("Email alert sent")
		}
	}

	return out
}
