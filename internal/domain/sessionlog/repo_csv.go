package sessionlog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
)

type csvRepo struct {
	mu   sync.Mutex
	path string
}

// NewCSVRepo appends entries to the CSV file at path. The header is written
// when the file is empty.
func NewCSVRepo(path string) Repository { return &csvRepo{path: path} }

func (r *csvRepo) Append(_ context.Context, e *Entry) error {
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return fmt.Errorf("stat session log: %w", err)
	}

	w := csv.NewWriter(f)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(e.Record()); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	w.Flush()
	return w.Error()
}

func (r *csvRepo) List(_ context.Context, limit, offset int) ([]*Entry, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, 0, nil
	}
	if err != nil {
		return nil, 0, fmt.Errorf("open session log: %w", err)
	}
	defer f.Close()

	rd := csv.NewReader(f)
	rd.FieldsPerRecord = len(Header)

	var all []*Entry
	for line := 0; ; line++ {
		rec, err := rd.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("read session log: %w", err)
		}
		if line == 0 && rec[0] == Header[0] {
			continue
		}
		e, err := ParseRecord(rec)
		if err != nil {
			return nil, 0, fmt.Errorf("session log line %d: %w", line+1, err)
		}
		all = append(all, e)
	}

	total := len(all)
	if offset >= total {
		return []*Entry{}, total, nil
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}
	return all[offset:end], total, nil
}
