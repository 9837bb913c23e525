package mailer

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/wecr8/damp-backend/pkg/logger"
)

const (
	sendPath    = "/v3/mail/send"
	fromName    = "DAMP"
	sendTimeout = 10 * time.Second
)

// Message is a single transactional email.
type Message struct {
	To        string
	ToName    string
	Subject   string
	PlainText string
	HTML      string
	// Categories tag the message in the provider dashboard.
	Categories []string
}

// Sender delivers transactional email.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// SendGrid delivers through the v3 mail/send API.
type SendGrid struct {
	request rest.Request
	from    *mail.Email
	timeout time.Duration
}

// Option configures optional client behavior.
type Option func(*SendGrid)

// WithHost points the client at another API host, e.g. a local mock.
func WithHost(host string) Option {
	return func(s *SendGrid) {
		if trimmed := strings.TrimRight(strings.TrimSpace(host), "/"); trimmed != "" {
			s.request.BaseURL = trimmed + sendPath
		}
	}
}

func WithTimeout(d time.Duration) Option {
	return func(s *SendGrid) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewSendGrid(apiKey, from string, opts ...Option) (*SendGrid, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	from = strings.TrimSpace(from)
	if from == "" {
		return nil, errors.New("sendgrid from address is required")
	}

	request := sendgrid.GetRequest(apiKey, sendPath, "")
	request.Method = rest.Post
	s := &SendGrid{
		request: request,
		from:    mail.NewEmail(fromName, from),
		timeout: sendTimeout,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s, nil
}

func (s *SendGrid) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return errors.New("recipient is required")
	}
	if msg.PlainText == "" && msg.HTML == "" {
		return errors.New("message body is required")
	}

	m := mail.NewV3Mail()
	m.SetFrom(s.from)
	m.Subject = msg.Subject
	p := mail.NewPersonalization()
	p.AddTos(mail.NewEmail(msg.ToName, msg.To))
	m.AddPersonalizations(p)
	if msg.PlainText != "" {
		m.AddContent(mail.NewContent("text/plain", msg.PlainText))
	}
	if msg.HTML != "" {
		m.AddContent(mail.NewContent("text/html", msg.HTML))
	}
	if len(msg.Categories) > 0 {
		m.AddCategories(msg.Categories...)
	}

	// Copy the template request; the shared one is never mutated.
	request := s.request
	request.Body = mail.GetRequestBody(m)

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	resp, err := sendgrid.MakeRequestWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, strings.TrimSpace(resp.Body))
	}
	return nil
}

// LogSender records messages instead of sending them. Used when no provider is configured.
type LogSender struct {
	Logg *logger.Logger
}

func (l LogSender) Send(ctx context.Context, msg Message) error {
	if l.Logg != nil {
		ctx = l.Logg.WithFields(ctx, map[string]any{"to": msg.To, "subject": msg.Subject})
		l.Logg.Info(ctx, "mailer.skipped_not_configured")
	}
	return nil
}
