package sessionlog

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
)

// TimestampLayout is the wall-clock format used in the CSV log.
const TimestampLayout = "2006-01-02 15:04:05"

// Header is the column order of the session log file.
var Header = []string{
	"ID", "Timestamp", "Patient ID", "Case ID", "Case", "Topic",
	"Heart Rate", "Oxygen", "Glucose", "Movement", "Risk",
}

// Entry is one flattened session row.
type Entry struct {
	ID        uuid.UUID `db:"id" json:"id"`
	Timestamp time.Time `db:"logged_at" json:"timestamp"`
	PatientID string    `db:"patient_id" json:"patient_id"`
	CaseID    int       `db:"case_id" json:"case_id"`
	CaseTitle string    `db:"case_title" json:"case_title"`
	Topic     string    `db:"topic" json:"topic"`
	HeartRate int       `db:"heart_rate" json:"heart_rate"`
	Oxygen    int       `db:"oxygen" json:"oxygen"`
	Glucose   int       `db:"glucose" json:"glucose"`
	Movement  bool      `db:"movement" json:"movement"`
	RiskLabel string    `db:"risk_label" json:"risk_label"`
}

// NewEntry flattens a session. The timestamp is supplied by the caller.
func NewEntry(s icu.SessionResult, ts time.Time) *Entry {
	return &Entry{
		Timestamp: ts,
		PatientID: s.Patient.ID,
		CaseID:    s.CaseID,
		CaseTitle: s.Protocol.Title,
		Topic:     s.Protocol.Topic,
		HeartRate: s.Vitals.HeartRate,
		Oxygen:    s.Vitals.Oxygen,
		Glucose:   s.Vitals.Glucose,
		Movement:  s.Vitals.Movement,
		RiskLabel: s.Risk.Label(),
	}
}

// Record renders the entry in Header order.
func (e *Entry) Record() []string {
	return []string{
		e.ID.String(),
		e.Timestamp.Format(TimestampLayout),
		e.PatientID,
		strconv.Itoa(e.CaseID),
		e.CaseTitle,
		e.Topic,
		strconv.Itoa(e.HeartRate),
		strconv.Itoa(e.Oxygen),
		strconv.Itoa(e.Glucose),
		strconv.FormatBool(e.Movement),
		e.RiskLabel,
	}
}

// ParseRecord is the inverse of Record.
func ParseRecord(rec []string) (*Entry, error) {
	if len(rec) != len(Header) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(Header), len(rec))
	}
	id, err := uuid.Parse(rec[0])
	if err != nil {
		return nil, fmt.Errorf("parse id: %w", err)
	}
	ts, err := time.ParseInLocation(TimestampLayout, rec[1], time.Local)
	if err != nil {
		return nil, fmt.Errorf("parse timestamp: %w", err)
	}
	caseID, err := strconv.Atoi(rec[3])
	if err != nil {
		return nil, fmt.Errorf("parse case id: %w", err)
	}
	var ints [3]int
	for i, col := range rec[6:9] {
		if ints[i], err = strconv.Atoi(col); err != nil {
			return nil, fmt.Errorf("parse %s: %w", Header[6+i], err)
		}
	}
	movement, err := strconv.ParseBool(rec[9])
	if err != nil {
		return nil, fmt.Errorf("parse movement: %w", err)
	}
	return &Entry{
		ID:        id,
		Timestamp: ts,
		PatientID: rec[2],
		CaseID:    caseID,
		CaseTitle: rec[4],
		Topic:     rec[5],
		HeartRate: ints[0],
		Oxygen:    ints[1],
		Glucose:   ints[2],
		Movement:  movement,
		RiskLabel: rec[10],
	}, nil
}
