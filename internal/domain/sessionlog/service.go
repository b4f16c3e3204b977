package sessionlog

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"time"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/domain/icu"
)

const exportBatch = 500

type Service struct {
	repo Repository
	now  func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// SetClock overrides the timestamp source.
func (s *Service) SetClock(now func() time.Time) { s.now = now }

// Record implements icu.SessionRecorder.
func (s *Service) Record(ctx context.Context, res icu.SessionResult) error {
	if !res.Exportable() {
		return &icu.UnknownCaseError{CaseID: res.CaseID}
	}
	if res.Patient.ID == "" {
		return fmt.Errorf("patient_id is required")
	}
	return s.repo.Append(ctx, NewEntry(res, s.now()))
}

func (s *Service) List(ctx context.Context, limit, offset int) ([]*Entry, int, error) {
	return s.repo.List(ctx, limit, offset)
}

// WriteCSV streams the whole log to w in Header order.
func (s *Service) WriteCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(Header); err != nil {
		return 0, err
	}

	written := 0
	for offset := 0; ; offset += exportBatch {
		items, total, err := s.repo.List(ctx, exportBatch, offset)
		if err != nil {
			return written, fmt.Errorf("list session log: %w", err)
		}
		for _, e := range items {
			if err := cw.Write(e.Record()); err != nil {
				return written, err
			}
			written++
		}
		if len(items) == 0 || offset+exportBatch >= total {
			break
		}
	}
	cw.Flush()
	return written, cw.Error()
}
