package feedback

import (
	"context"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/notification"
)

const maxMessageLen = 5000

// ValidationError marks a submission rejected before anything was stored.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func invalid(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// Mailer sends a rendered template to a recipient.
type Mailer interface {
	SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*notification.Notification, error)
}

type Service struct {
	repo      Repository
	mailer    Mailer
	recipient string
	logger    zerolog.Logger
	now       func() time.Time
}

// NewService builds the feedback service. A nil mailer or empty recipient
// disables delivery; submissions are still logged.
func NewService(repo Repository, mailer Mailer, recipient string) *Service {
	return &Service{repo: repo, mailer: mailer, recipient: recipient, logger: zerolog.Nop(), now: time.Now}
}

func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

func (s *Service) Submit(ctx context.Context, f *Feedback) (*Result, error) {
	f.Name = strings.TrimSpace(f.Name)
	f.Email = strings.TrimSpace(f.Email)
	f.Message = strings.TrimSpace(f.Message)
	if f.Name == "" {
		return nil, invalid("name is required")
	}
	if f.Message == "" {
		return nil, invalid("message is required")
	}
	if len(f.Message) > maxMessageLen {
		return nil, invalid("message must be at most %d characters", maxMessageLen)
	}
	if f.Email != "" {
		if _, err := mail.ParseAddress(f.Email); err != nil {
			return nil, invalid("email %q is invalid", f.Email)
		}
	}

	f.ID = uuid.New()
	f.CreatedAt = s.now()
	if err := s.repo.Append(ctx, f); err != nil {
		return nil, fmt.Errorf("log feedback: %w", err)
	}

	res := &Result{Feedback: f}
	if s.mailer == nil || s.recipient == "" {
		res.Error = "email delivery is not configured"
		return res, nil
	}

	n, err := s.mailer.SendFromTemplate(ctx, notification.TemplateFeedback, map[string]string{
		"name":    f.Name,
		"email":   f.Email,
		"message": f.Message,
	}, s.recipient)
	if n != nil {
		res.NotificationID = n.ID
	}
	if err != nil {
		s.logger.Warn().Err(err).Str("feedback_id", f.ID.String()).Msg("feedback email failed")
		res.Error = err.Error()
		return res, nil
	}
	res.Delivered = true
	return res, nil
}
