package feedback

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"sync"
)

type Repository interface {
	Append(ctx context.Context, f *Feedback) error
}

type csvRepo struct {
	mu   sync.Mutex
	path string
}

// NewCSVRepo appends feedback to the CSV file at path, writing the header
// when the file is empty.
func NewCSVRepo(path string) Repository { return &csvRepo{path: path} }

func (r *csvRepo) Append(_ context.Context, f *Feedback) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	file, err := os.OpenFile(r.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open feedback log: %w", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("stat feedback log: %w", err)
	}
	w := csv.NewWriter(file)
	if info.Size() == 0 {
		if err := w.Write(Header); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
	}
	if err := w.Write(f.Record()); err != nil {
		return fmt.Errorf("write feedback: %w", err)
	}
	w.Flush()
	return w.Error()
}
