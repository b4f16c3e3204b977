package icu

import (
	"errors"
	"fmt"
)

// VitalsSnapshot is the simulated bedside reading for a case.
type VitalsSnapshot struct {
	HeartRate int  `json:"heart_rate"`
	Oxygen    int  `json:"oxygen"`
	Glucose   int  `json:"glucose"`
	Movement  bool `json:"movement"`
}

// IsEmpty reports whether v is the snapshot returned for an unsupported case.
func (v VitalsSnapshot) IsEmpty() bool {
	return v == VitalsSnapshot{}
}

// Alarming reports whether the dashboard should raise its audible critical
// alert. It is unrelated to the risk level.
func (v VitalsSnapshot) Alarming() bool {
	if v.IsEmpty() {
		return false
	}
	return v.Oxygen < 90 || v.HeartRate > 120
}

// PatientProfile is the patient the operator is simulating against.
type PatientProfile struct {
	ID        string   `json:"id"`
	Name      string   `json:"name"`
	Age       int      `json:"age"`
	Diabetic  bool     `json:"diabetic"`
	Allergies []string `json:"allergies"`
	History   string   `json:"history"`
}

// ProtocolRecord is the canned emergency protocol for a case.
type ProtocolRecord struct {
	Title       string   `json:"title"`
	Explanation string   `json:"explanation"`
	Topic       string   `json:"topic"`
	Actions     []string `json:"actions"`
	Critical    bool     `json:"critical"`
}

// IsEmpty reports whether p is the record returned for an unsupported case.
func (p ProtocolRecord) IsEmpty() bool {
	return p.Title == "" && p.Explanation == "" && p.Topic == "" && len(p.Actions) == 0 && !p.Critical
}

// RiskLevel is the scorecard result, 0 through 3.
type RiskLevel int

const (
	RiskLow RiskLevel = iota
	RiskModerate
	RiskHigh
	RiskCritical
)

var riskLabels = [...]string{"Low", "Moderate", "High", "Critical"}

// Label returns the display name of the level.
func (r RiskLevel) Label() string {
	if r < RiskLow || r > RiskCritical {
		return "Unknown"
	}
	return riskLabels[r]
}

func (r RiskLevel) String() string { return r.Label() }

// SessionResult is everything the renderers, exporters and notifiers need
// for one case selection.
type SessionResult struct {
	CaseID   int            `json:"case_id"`
	Vitals   VitalsSnapshot `json:"vitals"`
	Protocol ProtocolRecord `json:"protocol"`
	Risk     RiskLevel      `json:"risk"`
	Patient  PatientProfile `json:"patient"`
}

// RiskLabel is a convenience for flat exporters.
func (s SessionResult) RiskLabel() string { return s.Risk.Label() }

// Exportable reports whether the session carries a known case.
func (s SessionResult) Exportable() bool {
	return !s.Vitals.IsEmpty() && !s.Protocol.IsEmpty()
}

// UnknownCaseError is returned where an empty lookup result would be unsafe
// to use, i.e. export and notification.
type UnknownCaseError struct {
	CaseID int
}

func (e *UnknownCaseError) Error() string {
	return fmt.Sprintf("unknown case id %d", e.CaseID)
}

// IsUnknownCase reports whether err is, or wraps, an *UnknownCaseError.
func IsUnknownCase(err error) bool {
	var uce *UnknownCaseError
	return errors.As(err, &uce)
}
