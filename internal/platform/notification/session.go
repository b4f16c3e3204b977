package notification

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
)

// ProtocolMessage is the payload published to the buses for a session.
type ProtocolMessage struct {
	CaseID      int       `json:"case_id"`
	Title       string    `json:"title"`
	Explanation string    `json:"explanation"`
	Topic       string    `json:"topic"`
	Critical    bool      `json:"critical"`
	Risk        string    `json:"risk"`
	Alarming    bool      `json:"alarming"`
	PatientID   string    `json:"patient_id"`
	SentAt      time.Time `json:"sent_at"`
}

// SessionNotifier adapts a Manager to icu.Notifier.
type SessionNotifier struct {
	manager        *Manager
	alertRecipient string
	logger         zerolog.Logger
	now            func() time.Time
}

var _ icu.Notifier = (*SessionNotifier)(nil)

// NewSessionNotifier publishes every session to the manager's buses and
// emails alertRecipient when the vitals are alarming. An empty recipient
// disables alert email.
func NewSessionNotifier(m *Manager, alertRecipient string, logger zerolog.Logger) *SessionNotifier {
	return &SessionNotifier{manager: m, alertRecipient: alertRecipient, logger: logger, now: time.Now}
}

// Build returns the notifications for a session without sending them.
// Sessions for unknown cases are rejected.
func (s *SessionNotifier) Build(res icu.SessionResult) ([]*Notification, error) {
	if !res.Exportable() {
		return nil, &icu.UnknownCaseError{CaseID: res.CaseID}
	}

	payload, err := json.Marshal(ProtocolMessage{
		CaseID:      res.CaseID,
		Title:       res.Protocol.Title,
		Explanation: res.Protocol.Explanation,
		Topic:       res.Protocol.Topic,
		Critical:    res.Protocol.Critical,
		Risk:        res.Risk.Label(),
		Alarming:    res.Vitals.Alarming(),
		PatientID:   res.Patient.ID,
		SentAt:      s.now().UTC(),
	})
	if err != nil {
		return nil, err
	}
	meta := map[string]string{
		"case_id":    strconv.Itoa(res.CaseID),
		"patient_id": res.Patient.ID,
	}

	var out []*Notification
	for _, ch := range s.manager.Channels() {
		out = append(out, &Notification{
			Channel:   ch,
			Recipient: res.Protocol.Topic,
			Subject:   res.Protocol.Title,
			Body:      string(payload),
			Metadata:  meta,
		})
	}

	if s.alertRecipient != "" && s.manager.HasEmail() && res.Vitals.Alarming() {
		subject, body, err := s.manager.Templates().Render(TemplateCriticalAlert, map[string]string{
			"title":       res.Protocol.Title,
			"explanation": res.Protocol.Explanation,
			"patient_id":  res.Patient.ID,
			"heart_rate":  strconv.Itoa(res.Vitals.HeartRate),
			"oxygen":      strconv.Itoa(res.Vitals.Oxygen),
			"glucose":     strconv.Itoa(res.Vitals.Glucose),
			"risk":        res.Risk.Label(),
			"topic":       res.Protocol.Topic,
		})
		if err != nil {
			return nil, err
		}
		out = append(out, &Notification{
			Channel:   ChannelEmail,
			Recipient: s.alertRecipient,
			Subject:   subject,
			Body:      body,
			Metadata:  meta,
		})
	}
	return out, nil
}

// NotifySession dispatches the session's notifications in the background.
func (s *SessionNotifier) NotifySession(_ context.Context, res icu.SessionResult) {
	ns, err := s.Build(res)
	if err != nil {
		s.logger.Warn().Err(err).Int("case_id", res.CaseID).Msg("session not published")
		return
	}
	s.manager.Dispatch(ns...)
}
