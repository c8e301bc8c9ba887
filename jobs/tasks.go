package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"

	"github.com/hibiken/asynq"
	"github.com/jordan-wright/email"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	MessageID string `json:"message_id"`
	To        string `json:"to"`
	Subject   string `json:"subject"`
	HTML      string `json:"html"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig carries the delivery endpoint for transactional mail.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer delivers queued emails over SMTP.
type Mailer struct {
	cfg SMTPConfig
}

// NewMailer constructs a Mailer.
func NewMailer(cfg SMTPConfig) *Mailer {
	return &Mailer{cfg: cfg}
}

// Send delivers one message. Transport failures propagate so Asynq retries
// the task.
func (m *Mailer) Send(payload SendEmailPayload) error {
	msg := email.NewEmail()
	msg.From = m.cfg.From
	msg.To = []string{payload.To}
	msg.Subject = payload.Subject
	msg.HTML = []byte(payload.HTML)
	if payload.MessageID != "" {
		msg.Headers.Set("Message-ID", "<"+payload.MessageID+"@meridian>")
	}

	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	var auth smtp.Auth
	if m.cfg.Username != "" {
		auth = smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)
	}
	return msg.Send(addr, auth)
}

// NewSendEmailHandler returns the Asynq handler for TaskTypeSendEmail.
func NewSendEmailHandler(mailer *Mailer, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if err := mailer.Send(payload); err != nil {
			if logger != nil {
				logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
			}
			return err
		}
		if logger != nil {
			logger.Info("email sent",
				slog.String("to", payload.To),
				slog.String("subject", payload.Subject),
				slog.String("message_id", payload.MessageID))
		}
		return nil
	}
}
