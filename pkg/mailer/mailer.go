// Package mailer delivers transactional email.
package mailer

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
	"go.uber.org/zap"
)

// Message is a single outbound email. When TemplateID is empty the message is
// rendered as plain text from Subject and Data.
type Message struct {
	TemplateID string
	ToEmail    string
	ToName     string
	Subject    string
	Data       map[string]interface{}
}

// Sender delivers messages.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGridSender delivers mail through the SendGrid v3 API.
type SendGridSender struct {
	client *sendgrid.Client
	from   *mail.Email
}

// NewSendGridSender constructs a SendGrid backed sender.
func NewSendGridSender(apiKey, fromAddress, fromName string) *SendGridSender {
	return &SendGridSender{
		client: sendgrid.NewSendClient(apiKey),
		from:   mail.NewEmail(fromName, fromAddress),
	}
}

// Send delivers the message. Any 4xx/5xx response is returned as an error so the
// caller may retry.
func (s *SendGridSender) Send(ctx context.Context, msg Message) error {
	response, err := s.client.SendWithContext(ctx, build(s.from, msg))
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	if response.StatusCode >= 400 {
		return fmt.Errorf("sendgrid error: status %d, body: %s", response.StatusCode, response.Body)
	}
	return nil
}

func build(from *mail.Email, msg Message) *mail.SGMailV3 {
	recipient := mail.NewEmail(msg.ToName, msg.ToEmail)
	if msg.TemplateID == "" {
		return mail.NewSingleEmail(from, msg.Subject, recipient, PlainText(msg.Data), "")
	}

	message := mail.NewV3Mail()
	message.SetFrom(from)
	message.SetTemplateID(msg.TemplateID)
	personalization := mail.NewPersonalization()
	personalization.AddTos(recipient)
	for key, value := range msg.Data {
		personalization.SetDynamicTemplateData(key, value)
	}
	message.AddPersonalizations(personalization)
	return message
}

// PlainText renders template data as sorted "key: value" lines.
func PlainText(data map[string]interface{}) string {
	keys := make([]string, 0, len(data))
	for key := range data {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	var b strings.Builder
	for _, key := range keys {
		fmt.Fprintf(&b, "%s: %v\n", key, data[key])
	}
	return b.String()
}

// LogSender writes messages to the log instead of delivering them. Used when no
// SendGrid key is configured.
type LogSender struct {
	logger *zap.Logger
}

// NewLogSender constructs a log-only sender.
func NewLogSender(logger *zap.Logger) *LogSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSender{logger: logger}
}

// Send logs the message metadata. The recipient address is not logged.
func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email delivery disabled, message dropped",
		zap.String("template_id", msg.TemplateID),
		zap.String("subject", msg.Subject),
		zap.Int("fields", len(msg.Data)),
	)
	return nil
}
