package icu

import (
	"errors"
	"fmt"
	"testing"
)

func TestRiskLevel_Label(t *testing.T) {
	tests := []struct {
		level RiskLevel
		want  string
	}{
		{RiskLow, "Low"},
		{RiskModerate, "Moderate"},
		{RiskHigh, "High"},
		{RiskCritical, "Critical"},
		{RiskLevel(-1), "Unknown"},
		{RiskLevel(4), "Unknown"},
	}
	for _, tt := range tests {
		if got := tt.level.Label(); got != tt.want {
			t.Errorf("RiskLevel(%d).Label() = %q, want %q", int(tt.level), got, tt.want)
		}
	}
}

func TestVitalsSnapshot_IsEmpty(t *testing.T) {
	if !(VitalsSnapshot{}).IsEmpty() {
		t.Error("expected zero snapshot to be empty")
	}
	if (VitalsSnapshot{HeartRate: 80}).IsEmpty() {
		t.Error("expected snapshot with heart rate to be non-empty")
	}
}

func TestVitalsSnapshot_Alarming(t *testing.T) {
	tests := []struct {
		name string
		v    VitalsSnapshot
		want bool
	}{
		{"normal", VitalsSnapshot{HeartRate: 80, Oxygen: 97, Glucose: 100}, false},
		{"low oxygen", VitalsSnapshot{HeartRate: 80, Oxygen: 89, Glucose: 100}, true},
		{"oxygen at threshold", VitalsSnapshot{HeartRate: 80, Oxygen: 90, Glucose: 100}, false},
		{"tachycardia", VitalsSnapshot{HeartRate: 121, Oxygen: 97, Glucose: 100}, true},
		{"heart rate at threshold", VitalsSnapshot{HeartRate: 120, Oxygen: 97, Glucose: 100}, false},
		{"empty", VitalsSnapshot{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.Alarming(); got != tt.want {
				t.Errorf("Alarming() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestProtocolRecord_IsEmpty(t *testing.T) {
	if !(ProtocolRecord{}).IsEmpty() {
		t.Error("expected zero record to be empty")
	}
	if (ProtocolRecord{Critical: true}).IsEmpty() {
		t.Error("expected record with critical flag to be non-empty")
	}
	if (ProtocolRecord{Actions: []string{"x"}}).IsEmpty() {
		t.Error("expected record with actions to be non-empty")
	}
}

func TestSessionResult_Exportable(t *testing.T) {
	s := SessionResult{Vitals: GetVitals(1), Protocol: GetProtocol(1)}
	if !s.Exportable() {
		t.Error("expected case 1 session to be exportable")
	}
	s = SessionResult{Vitals: GetVitals(1)}
	if s.Exportable() {
		t.Error("expected session without protocol to be non-exportable")
	}
}

func TestUnknownCaseError(t *testing.T) {
	err := fmt.Errorf("export: %w", &UnknownCaseError{CaseID: 99})
	if !IsUnknownCase(err) {
		t.Fatal("expected wrapped UnknownCaseError to be detected")
	}
	var uce *UnknownCaseError
	if !errors.As(err, &uce) || uce.CaseID != 99 {
		t.Errorf("expected case id 99, got %+v", uce)
	}
	if IsUnknownCase(errors.New("other")) {
		t.Error("expected unrelated error not to match")
	}
	if got := (&UnknownCaseError{CaseID: 7}).Error(); got != "unknown case id 7" {
		t.Errorf("unexpected message %q", got)
	}
}
