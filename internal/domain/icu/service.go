package icu

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// SessionRecorder appends a finished session to the session log.
type SessionRecorder interface {
	Record(ctx context.Context, s SessionResult) error
}

// Notifier publishes a session to the notification collaborators. It must
// not block on delivery and reports nothing back.
type Notifier interface {
	NotifySession(ctx context.Context, s SessionResult)
}

// recordError marks a session-log failure, as opposed to bad input.
type recordError struct{ err error }

func (e *recordError) Error() string { return "record session: " + e.err.Error() }
func (e *recordError) Unwrap() error { return e.err }

// MetricsRecorder receives session counters.
type MetricsRecorder interface {
	ObserveSession(caseID int, risk RiskLevel)
	ObserveUnknownCase()
}

type Service struct {
	patients *PatientRegistry
	recorder SessionRecorder
	notifier Notifier
	metrics  MetricsRecorder
	logger   zerolog.Logger

	randMu sync.Mutex
	rand   *rand.Rand
}

func NewService(patients *PatientRegistry, recorder SessionRecorder, notifier Notifier) *Service {
	return &Service{
		patients: patients,
		recorder: recorder,
		notifier: notifier,
		logger:   zerolog.Nop(),
		rand:     rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// SetMetrics attaches an optional metrics sink.
func (s *Service) SetMetrics(m MetricsRecorder) { s.metrics = m }

// SetLogger replaces the default no-op logger.
func (s *Service) SetLogger(l zerolog.Logger) { s.logger = l }

// SetRandSource replaces the trend generator source, mainly for tests.
func (s *Service) SetRandSource(src rand.Source) {
	s.randMu.Lock()
	s.rand = rand.New(src)
	s.randMu.Unlock()
}

// -- Cases --

func (s *Service) ListCases() []CaseSummary {
	return CaseSummaries()
}

func (s *Service) GetCase(caseID int) (VitalsSnapshot, ProtocolRecord) {
	return GetVitals(caseID), GetProtocol(caseID)
}

func (s *Service) CaseTrend(caseID, points int) Trend {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return GenerateTrend(GetVitals(caseID), points, s.rand)
}

// -- Patients --

func (s *Service) ListPatients() []PatientProfile {
	return s.patients.List()
}

func (s *Service) GetPatient(id string) (PatientProfile, error) {
	return s.patients.Get(id)
}

func (s *Service) UpdatePatientAge(id string, age int) (PatientProfile, error) {
	return s.patients.SetAge(id, age)
}

// -- Sessions --

// Preview builds a session without logging or notifying. Unknown cases
// yield an empty session. An age override applies to this preview only.
func (s *Service) Preview(_ context.Context, caseID int, patientID string, age *int) (SessionResult, error) {
	p, err := s.resolvePatient(patientID, age)
	if err != nil {
		return SessionResult{}, err
	}
	return BuildSession(caseID, p), nil
}

// Simulate builds an exportable session, appends it to the session log and
// hands it to the notifier. A log failure is returned; notification
// failures never are. An age override applies to this session only; the
// registry is changed through UpdatePatientAge.
func (s *Service) Simulate(ctx context.Context, caseID int, patientID string, age *int) (SessionResult, error) {
	p, err := s.resolvePatient(patientID, age)
	if err != nil {
		return SessionResult{}, err
	}

	res, err := BuildExportableSession(caseID, p)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveUnknownCase()
		}
		return SessionResult{}, err
	}

	if s.recorder != nil {
		if err := s.recorder.Record(ctx, res); err != nil {
			return res, &recordError{err: err}
		}
	}
	if s.metrics != nil {
		s.metrics.ObserveSession(res.CaseID, res.Risk)
	}
	if s.notifier != nil {
		s.notifier.NotifySession(ctx, res)
	}

	s.logger.Info().
		Int("case_id", res.CaseID).
		Str("patient_id", res.Patient.ID).
		Str("risk", res.Risk.Label()).
		Bool("alarming", res.Vitals.Alarming()).
		Msg("session simulated")
	return res, nil
}

// ExportSession builds the session used by file exporters.
func (s *Service) ExportSession(caseID int, patientID string) (SessionResult, error) {
	p, err := s.patients.Get(patientID)
	if err != nil {
		return SessionResult{}, err
	}
	return BuildExportableSession(caseID, p)
}

// resolvePatient returns a copy of the registered profile with the age
// override applied. The registry itself is never touched.
func (s *Service) resolvePatient(patientID string, age *int) (PatientProfile, error) {
	if patientID == "" {
		return PatientProfile{}, fmt.Errorf("patient_id is required")
	}
	p, err := s.patients.Get(patientID)
	if err != nil {
		return PatientProfile{}, err
	}
	if age != nil {
		if err := ValidateAge(*age); err != nil {
			return PatientProfile{}, err
		}
		p.Age = *age
	}
	return p, nil
}
