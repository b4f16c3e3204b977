package icu

import (
	"errors"
	"testing"
)

func TestBuildSession_Case5(t *testing.T) {
	p := PatientProfile{ID: "PT-1002", Diabetic: false, History: "none"}
	s := BuildSession(5, p)

	if s.CaseID != 5 {
		t.Errorf("expected case id 5, got %d", s.CaseID)
	}
	want := VitalsSnapshot{HeartRate: 28, Oxygen: 76, Glucose: 114, Movement: false}
	if s.Vitals != want {
		t.Errorf("vitals = %+v, want %+v", s.Vitals, want)
	}
	if s.Risk != RiskModerate {
		t.Errorf("expected Moderate, got %s", s.Risk.Label())
	}
	if s.Protocol.Title != "CASE 5: Cardiac Arrest" {
		t.Errorf("unexpected title %q", s.Protocol.Title)
	}
	if !s.Protocol.Critical {
		t.Error("expected case 5 to be critical")
	}
	if s.Patient.ID != "PT-1002" {
		t.Errorf("expected patient to be carried, got %q", s.Patient.ID)
	}
}

func TestBuildSession_UnknownCaseIsLenient(t *testing.T) {
	p := PatientProfile{ID: "PT-1001", Diabetic: true, History: "Coma"}
	s := BuildSession(99, p)
	if !s.Vitals.IsEmpty() || !s.Protocol.IsEmpty() {
		t.Errorf("expected empty lookups, got %+v", s)
	}
	if s.Exportable() {
		t.Error("expected unknown case to be non-exportable")
	}
	if s.Risk != RiskLow {
		t.Errorf("expected Low for empty vitals, got %s", s.Risk.Label())
	}
}

func TestBuildExportableSession(t *testing.T) {
	p := PatientProfile{ID: "PT-1001", Diabetic: true, History: "Coma (3 days)"}

	s, err := BuildExportableSession(1, p)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Risk != RiskModerate {
		t.Errorf("expected risk 1, got %d", s.Risk)
	}

	_, err = BuildExportableSession(99, p)
	if err == nil {
		t.Fatal("expected error for unknown case")
	}
	var uce *UnknownCaseError
	if !errors.As(err, &uce) {
		t.Fatalf("expected *UnknownCaseError, got %T", err)
	}
	if uce.CaseID != 99 {
		t.Errorf("expected case id 99, got %d", uce.CaseID)
	}
}
