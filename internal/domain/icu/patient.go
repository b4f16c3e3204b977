package icu

import (
	"errors"
	"fmt"
	"sync"
)

const (
	MinAge = 1
	MaxAge = 120
)

// ErrPatientNotFound is returned by PatientRegistry lookups.
var ErrPatientNotFound = errors.New("patient not found")

// DefaultPatients is the profile table loaded at process start.
func DefaultPatients() []PatientProfile {
	return []PatientProfile{
		{
			ID:        "PT-1001",
			Name:      "John Doe",
			Age:       58,
			Diabetic:  true,
			Allergies: []string{"Penicillin"},
			History:   "Coma (3 days)",
		},
		{
			ID:        "PT-1002",
			Name:      "Maria Rossi",
			Age:       45,
			Diabetic:  false,
			Allergies: []string{"Latex", "Sulfa drugs"},
			History:   "none",
		},
		{
			ID:        "PT-1003",
			Name:      "Arjun Mehta",
			Age:       67,
			Diabetic:  true,
			Allergies: []string{},
			History:   "Hypertension, prior myocardial infarction",
		},
	}
}

// PatientRegistry holds the in-memory profiles. Only age is editable.
type PatientRegistry struct {
	mu       sync.RWMutex
	order    []string
	patients map[string]PatientProfile
}

func NewPatientRegistry(profiles []PatientProfile) *PatientRegistry {
	r := &PatientRegistry{patients: make(map[string]PatientProfile, len(profiles))}
	for _, p := range profiles {
		if _, dup := r.patients[p.ID]; !dup {
			r.order = append(r.order, p.ID)
		}
		r.patients[p.ID] = clonePatient(p)
	}
	return r
}

// List returns the profiles in load order.
func (r *PatientRegistry) List() []PatientProfile {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]PatientProfile, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, clonePatient(r.patients[id]))
	}
	return out
}

func (r *PatientRegistry) Get(id string) (PatientProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.patients[id]
	if !ok {
		return PatientProfile{}, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}
	return clonePatient(p), nil
}

// SetAge overwrites the age of a patient.
func (r *PatientRegistry) SetAge(id string, age int) (PatientProfile, error) {
	if err := ValidateAge(age); err != nil {
		return PatientProfile{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	p, ok := r.patients[id]
	if !ok {
		return PatientProfile{}, fmt.Errorf("%w: %s", ErrPatientNotFound, id)
	}
	p.Age = age
	r.patients[id] = p
	return clonePatient(p), nil
}

func ValidateAge(age int) error {
	if age < MinAge || age > MaxAge {
		return fmt.Errorf("age must be between %d and %d, got %d", MinAge, MaxAge, age)
	}
	return nil
}

func clonePatient(p PatientProfile) PatientProfile {
	p.Allergies = append([]string(nil), p.Allergies...)
	return p
}
