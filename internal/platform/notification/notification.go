// Package notification delivers session alerts over email and message buses
// such as MQTT, Kafka and the dashboard websocket feed. Delivery status is
// tracked in memory and failed notifications can be retried over HTTP.
package notification

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Notification Types
// ---------------------------------------------------------------------------

// Channel is the transport used to deliver a notification.
type Channel string

const (
	ChannelEmail     Channel = "email"
	ChannelMQTT      Channel = "mqtt"
	ChannelKafka     Channel = "kafka"
	ChannelWebSocket Channel = "websocket" // dashboards on the live feed
)

const (
	StatusPending = "pending"
	StatusSent    = "sent"
	StatusFailed  = "failed"
)

// Notification represents a single outbound notification. For bus channels
// Recipient holds the topic (MQTT) or message key (Kafka).
type Notification struct {
	ID        string            `json:"id"`
	Channel   Channel           `json:"channel"`
	Recipient string            `json:"recipient"`
	Subject   string            `json:"subject,omitempty"`
	Body      string            `json:"body"`
	Status    string            `json:"status"`
	Attempts  int               `json:"attempts"`
	CreatedAt time.Time         `json:"created_at"`
	SentAt    *time.Time        `json:"sent_at,omitempty"`
	Error     string            `json:"error,omitempty"`
	Metadata  map[string]string `json:"metadata,omitempty"`
}

func (n *Notification) clone() *Notification {
	cp := *n
	if n.SentAt != nil {
		t := *n.SentAt
		cp.SentAt = &t
	}
	if n.Metadata != nil {
		cp.Metadata = make(map[string]string, len(n.Metadata))
		for k, v := range n.Metadata {
			cp.Metadata[k] = v
		}
	}
	return &cp
}

// ErrNotFound is returned for unknown notification ids.
var ErrNotFound = errors.New("notification not found")

// ---------------------------------------------------------------------------
// Sender Interfaces
// ---------------------------------------------------------------------------

// EmailSender is the interface for sending email messages.
type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Publisher delivers a payload to a message bus.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
	Close() error
}

// ---------------------------------------------------------------------------
// Template Engine
// ---------------------------------------------------------------------------

// Template defines a reusable notification template.
type Template struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

const (
	TemplateCriticalAlert = "critical-alert"
	TemplateFeedback      = "feedback"
)

// TemplateEngine manages notification templates and renders them with data.
type TemplateEngine struct {
	mu        sync.RWMutex
	templates map[string]*Template
}

// NewTemplateEngine creates a TemplateEngine with the built-in templates pre-registered.
func NewTemplateEngine() *TemplateEngine {
	e := &TemplateEngine{
		templates: make(map[string]*Template),
	}
	e.registerBuiltIn()
	return e
}

func (e *TemplateEngine) registerBuiltIn() {
	builtIn := []Template{
		{
			ID:      TemplateCriticalAlert,
			Name:    "Critical Vitals Alert",
			Subject: "ICU ALERT: {{title}} ({{patient_id}})",
			Body: "Critical vitals detected for patient {{patient_id}}.\n\n" +
				"{{title}}\n{{explanation}}\n\n" +
				"Heart Rate: {{heart_rate}} bpm\nOxygen: {{oxygen}} %\nGlucose: {{glucose}} mg/dL\n" +
				"Risk: {{risk}}\nTopic: {{topic}}",
		},
		{
			ID:      TemplateFeedback,
			Name:    "Simulator Feedback",
			Subject: "Feedback from {{name}}",
			Body:    "Name: {{name}}\nEmail: {{email}}\nMessage: {{message}}",
		},
	}
	for i := range builtIn {
		t := builtIn[i]
		e.templates[t.ID] = &t
	}
}

// RegisterTemplate adds or replaces a template in the engine.
func (e *TemplateEngine) RegisterTemplate(t Template) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.templates[t.ID] = &t
}

// Render looks up a template by ID and performs {{key}} replacement using the
// supplied data map. Keys present in the template but absent from data are left
// as-is.
func (e *TemplateEngine) Render(templateID string, data map[string]string) (subject, body string, err error) {
	e.mu.RLock()
	t, ok := e.templates[templateID]
	e.mu.RUnlock()
	if !ok {
		return "", "", fmt.Errorf("template %q not found", templateID)
	}

	subject = t.Subject
	body = t.Body
	for k, v := range data {
		placeholder := "{{" + k + "}}"
		subject = strings.ReplaceAll(subject, placeholder, v)
		body = strings.ReplaceAll(body, placeholder, v)
	}
	return subject, body, nil
}

// ---------------------------------------------------------------------------
// Manager
// ---------------------------------------------------------------------------

// DefaultTimeout bounds a single dispatched delivery.
const DefaultTimeout = 10 * time.Second

// Observer is told about every delivery attempt.
type Observer func(channel, status string)

// Manager orchestrates sending, storage, and retrieval of notifications.
type Manager struct {
	email      EmailSender
	publishers map[Channel]Publisher
	templates  *TemplateEngine
	logger     zerolog.Logger
	observer   Observer
	timeout    time.Duration

	mu            sync.RWMutex
	notifications map[string]*Notification
	wg            sync.WaitGroup
}

// NewManager constructs a Manager. email may be nil when no email transport
// is configured.
func NewManager(email EmailSender, tpl *TemplateEngine) *Manager {
	if tpl == nil {
		tpl = NewTemplateEngine()
	}
	return &Manager{
		email:         email,
		publishers:    make(map[Channel]Publisher),
		templates:     tpl,
		logger:        zerolog.Nop(),
		timeout:       DefaultTimeout,
		notifications: make(map[string]*Notification),
	}
}

// SetPublisher enables a bus channel.
func (m *Manager) SetPublisher(ch Channel, p Publisher) { m.publishers[ch] = p }

func (m *Manager) SetLogger(l zerolog.Logger) { m.logger = l }

func (m *Manager) SetObserver(o Observer) { m.observer = o }

func (m *Manager) SetTimeout(d time.Duration) {
	if d > 0 {
		m.timeout = d
	}
}

// Templates returns the manager's template engine.
func (m *Manager) Templates() *TemplateEngine { return m.templates }

// HasEmail reports whether an email transport is configured.
func (m *Manager) HasEmail() bool { return m.email != nil }

// Channels lists the enabled bus channels in a stable order.
func (m *Manager) Channels() []Channel {
	out := make([]Channel, 0, len(m.publishers))
	for ch := range m.publishers {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (m *Manager) deliver(ctx context.Context, n *Notification) error {
	switch n.Channel {
	case ChannelEmail:
		if m.email == nil {
			return fmt.Errorf("email channel is not configured")
		}
		return m.email.SendEmail(ctx, n.Recipient, n.Subject, n.Body)
	case ChannelMQTT, ChannelKafka, ChannelWebSocket:
		p, ok := m.publishers[n.Channel]
		if !ok {
			return fmt.Errorf("%s channel is not configured", n.Channel)
		}
		return p.Publish(ctx, n.Recipient, []byte(n.Body))
	default:
		return fmt.Errorf("unsupported notification channel: %s", n.Channel)
	}
}

// Send delivers a notification synchronously, assigns an ID and timestamps,
// and stores the result in memory.
func (m *Manager) Send(ctx context.Context, n *Notification) error {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	n.CreatedAt = time.Now().UTC()
	n.Status = StatusPending

	m.mu.Lock()
	m.notifications[n.ID] = n
	m.mu.Unlock()

	return m.attempt(ctx, n)
}

func (m *Manager) attempt(ctx context.Context, n *Notification) error {
	sendErr := m.deliver(ctx, n)

	m.mu.Lock()
	n.Attempts++
	if sendErr != nil {
		n.Status = StatusFailed
		n.Error = sendErr.Error()
	} else {
		n.Status = StatusSent
		sentAt := time.Now().UTC()
		n.SentAt = &sentAt
		n.Error = ""
	}
	status := n.Status
	m.mu.Unlock()

	if m.observer != nil {
		m.observer(string(n.Channel), status)
	}
	return sendErr
}

// SendFromTemplate renders an email template and sends it to recipient.
func (m *Manager) SendFromTemplate(ctx context.Context, templateID string, data map[string]string, recipient string) (*Notification, error) {
	subject, body, err := m.templates.Render(templateID, data)
	if err != nil {
		return nil, fmt.Errorf("render template: %w", err)
	}

	n := &Notification{
		Channel:   ChannelEmail,
		Recipient: recipient,
		Subject:   subject,
		Body:      body,
		Metadata:  map[string]string{"template_id": templateID},
	}
	if err := m.Send(ctx, n); err != nil {
		return n, err
	}
	return n, nil
}

// Dispatch sends notifications on a background goroutine bounded by the
// manager timeout. Failures are logged and kept for Retry; the caller is
// never blocked.
func (m *Manager) Dispatch(ns ...*Notification) {
	if len(ns) == 0 {
		return
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		for _, n := range ns {
			ctx, cancel := context.WithTimeout(context.Background(), m.timeout)
			err := m.Send(ctx, n)
			cancel()
			if err != nil {
				m.logger.Warn().Err(err).
					Str("notification_id", n.ID).
					Str("channel", string(n.Channel)).
					Str("recipient", n.Recipient).
					Msg("notification delivery failed")
				continue
			}
			m.logger.Debug().
				Str("notification_id", n.ID).
				Str("channel", string(n.Channel)).
				Msg("notification delivered")
		}
	}()
}

// Wait blocks until every dispatched notification has been attempted.
func (m *Manager) Wait() { m.wg.Wait() }

// Close waits for in-flight dispatches and closes the bus publishers.
func (m *Manager) Close() error {
	m.wg.Wait()
	var errs []error
	for ch, p := range m.publishers {
		if err := p.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", ch, err))
		}
	}
	return errors.Join(errs...)
}

// Get retrieves a copy of a notification by ID.
func (m *Manager) Get(_ context.Context, id string) (*Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n, ok := m.notifications[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return n.clone(), nil
}

// List returns up to limit notifications, newest first, optionally filtered
// by status.
func (m *Manager) List(_ context.Context, status string, limit int) []*Notification {
	m.mu.RLock()
	out := make([]*Notification, 0, len(m.notifications))
	for _, n := range m.notifications {
		if status != "" && n.Status != status {
			continue
		}
		out = append(out, n.clone())
	}
	m.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// Retry re-sends a failed notification. Returns an error if the notification is
// not in "failed" status. The notification is claimed as pending before
// delivery, so concurrent retries deliver it at most once.
func (m *Manager) Retry(ctx context.Context, id string) (*Notification, error) {
	m.mu.Lock()
	n, ok := m.notifications[id]
	if !ok {
		m.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if status := n.Status; status != StatusFailed {
		m.mu.Unlock()
		return nil, fmt.Errorf("notification %q is not in failed status (current: %s)", id, status)
	}
	n.Status = StatusPending
	m.mu.Unlock()

	err := m.attempt(ctx, n)
	m.mu.RLock()
	cp := n.clone()
	m.mu.RUnlock()
	return cp, err
}

// Stats returns counts of notifications grouped by status.
func (m *Manager) Stats(_ context.Context) map[string]int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stats := map[string]int{StatusPending: 0, StatusSent: 0, StatusFailed: 0}
	for _, n := range m.notifications {
		stats[n.Status]++
	}
	return stats
}
