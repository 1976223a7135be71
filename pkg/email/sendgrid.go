// Package email sends transactional mail through SendGrid.
package email

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/circlemart/circlemart-backend/pkg/config"
)

// Message is a rendered email ready to hand to a provider.
type Message struct {
	ToName   string
	ToEmail  string
	Subject  string
	Text     string
	HTML     string
	Category string
}

// Sender is implemented by every outbound mail transport.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

type sendgridAPI interface {
	SendWithContext(ctx context.Context, email *mail.SGMailV3) (*rest.Response, error)
}

// SendGridClient delivers messages through the SendGrid v3 API.
type SendGridClient struct {
	api      sendgridAPI
	fromName string
	from     string
}

func NewSendGridClient(cfg config.SendgridConfig) (*SendGridClient, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, errors.New("sendgrid api key is required")
	}
	if strings.TrimSpace(cfg.DefaultFrom) == "" {
		return nil, errors.New("sendgrid from address is required")
	}
	return &SendGridClient{
		api:      sendgrid.NewSendClient(cfg.APIKey),
		fromName: cfg.FromName,
		from:     cfg.DefaultFrom,
	}, nil
}

func (c *SendGridClient) Send(ctx context.Context, msg Message) error {
	if strings.TrimSpace(msg.ToEmail) == "" {
		return errors.New("recipient email is required")
	}
	from := mail.NewEmail(c.fromName, c.from)
	to := mail.NewEmail(msg.ToName, msg.ToEmail)
	payload := mail.NewSingleEmail(from, msg.Subject, to, msg.Text, msg.HTML)
	if msg.Category != "" {
		payload.AddCategories(msg.Category)
	}

	resp, err := c.api.SendWithContext(ctx, payload)
	if err != nil {
		return fmt.Errorf("sendgrid send: %w", err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sendgrid error: status %d, body: %s", resp.StatusCode, resp.Body)
	}
	return nil
}

// NopSender drops every message. Used when no API key is configured.
type NopSender struct{}

func (NopSender) Send(context.Context, Message) error { return nil }
