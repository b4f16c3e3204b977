package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	brevo "github.com/getbrevo/brevo-go/lib"
)

// BrevoSender sends transactional email through the Brevo API client.
type BrevoSender struct {
	cfg    *brevo.Configuration
	client *brevo.APIClient
	sender BrevoContact
}

type BrevoContact struct {
	Name  string
	Email string
}

// BrevoError is a non-2xx answer from the API.
type BrevoError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *BrevoError) Error() string {
	return fmt.Sprintf("brevo: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

func NewBrevoSender(key string, sender BrevoContact) *BrevoSender {
	cfg := brevo.NewConfiguration()
	cfg.AddDefaultHeader("api-key", key)
	cfg.HTTPClient = &http.Client{Timeout: 15 * time.Second}
	return &BrevoSender{
		cfg:    cfg,
		client: brevo.NewAPIClient(cfg),
		sender: sender,
	}
}

// SetBaseURL points the client at another endpoint.
func (b *BrevoSender) SetBaseURL(u string) { b.cfg.BasePath = u }

func (b *BrevoSender) SendEmail(ctx context.Context, to, subject, body string) error {
	_, resp, err := b.client.TransactionalEmailsApi.SendTransacEmail(ctx, brevo.SendSmtpEmail{
		Sender:      &brevo.SendSmtpEmailSender{Name: b.sender.Name, Email: b.sender.Email},
		To:          []brevo.SendSmtpEmailTo{{Email: to}},
		Subject:     subject,
		TextContent: body,
	})
	if err == nil {
		return nil
	}
	if resp == nil || resp.StatusCode < 300 {
		return fmt.Errorf("brevo: %w", err)
	}

	e := &BrevoError{StatusCode: resp.StatusCode, Message: err.Error()}
	var apiErr brevo.GenericSwaggerError
	if errors.As(err, &apiErr) && len(apiErr.Body()) > 0 {
		if jerr := json.Unmarshal(apiErr.Body(), e); jerr != nil {
			e.Message = string(apiErr.Body())
		}
	}
	return e
}
