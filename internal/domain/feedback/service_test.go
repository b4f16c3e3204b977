package feedback

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/RealHAPPY4/impunity-protocol-sim/internal/platform/notification"
)

type mockRepo struct {
	mu      sync.Mutex
	entries []*Feedback
	err     error
}

func (m *mockRepo) Append(_ context.Context, f *Feedback) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.entries = append(m.entries, f)
	return nil
}

var fixedNow = time.Date(2026, 3, 4, 5, 6, 7, 0, time.Local)

func newTestService(mailer Mailer, recipient string) (*Service, *mockRepo) {
	repo := &mockRepo{}
	svc := NewService(repo, mailer, recipient)
	svc.now = func() time.Time { return fixedNow }
	return svc, repo
}

func newTestMailer() (*notification.Manager, *notification.MockEmailSender) {
	email := &notification.MockEmailSender{}
	return notification.NewManager(email, notification.NewTemplateEngine()), email
}

func TestSubmit_Delivered(t *testing.T) {
	mgr, email := newTestMailer()
	svc, repo := newTestService(mgr, "team@example.com")

	res, err := svc.Submit(context.Background(), &Feedback{Name: "  Ana ", Email: "ana@example.com", Message: "Great drills"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !res.Delivered || res.Error != "" || res.NotificationID == "" {
		t.Errorf("unexpected result %+v", res)
	}
	if len(repo.entries) != 1 || repo.entries[0].Name != "Ana" || !repo.entries[0].CreatedAt.Equal(fixedNow) {
		t.Errorf("unexpected log entries %+v", repo.entries)
	}

	calls := email.Calls()
	if len(calls) != 1 {
		t.Fatalf("expected 1 email, got %d", len(calls))
	}
	if calls[0].To != "team@example.com" || calls[0].Subject != "Feedback from Ana" {
		t.Errorf("unexpected email %+v", calls[0])
	}
	want := "Name: Ana\nEmail: ana@example.com\nMessage: Great drills"
	if calls[0].Body != want {
		t.Errorf("body = %q, want %q", calls[0].Body, want)
	}
}

func TestSubmit_Validation(t *testing.T) {
	svc, repo := newTestService(nil, "")
	tests := []struct {
		name string
		in   Feedback
		msg  string
	}{
		{"missing name", Feedback{Message: "hi"}, "name is required"},
		{"blank message", Feedback{Name: "Ana", Message: "   "}, "message is required"},
		{"bad email", Feedback{Name: "Ana", Email: "not-an-email", Message: "hi"}, "is invalid"},
		{"too long", Feedback{Name: "Ana", Message: strings.Repeat("x", maxMessageLen+1)}, "at most"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := tt.in
			_, err := svc.Submit(context.Background(), &in)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !strings.Contains(ve.Msg, tt.msg) {
				t.Errorf("message %q does not contain %q", ve.Msg, tt.msg)
			}
		})
	}
	if len(repo.entries) != 0 {
		t.Errorf("invalid feedback must not be logged, got %d entries", len(repo.entries))
	}
}

func TestSubmit_EmailOptional(t *testing.T) {
	svc, _ := newTestService(nil, "")
	res, err := svc.Submit(context.Background(), &Feedback{Name: "Ana", Message: "hi"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Delivered || res.Error != "email delivery is not configured" {
		t.Errorf("unexpected result %+v", res)
	}
}

func TestSubmit_DeliveryFailureStillLogged(t *testing.T) {
	mgr, email := newTestMailer()
	email.SetFail(true, "brevo unauthorized")
	svc, repo := newTestService(mgr, "team@example.com")

	res, err := svc.Submit(context.Background(), &Feedback{Name: "Ana", Message: "hi"})
	if err != nil {
		t.Fatalf("delivery failure must not fail the submission: %v", err)
	}
	if res.Delivered || !strings.Contains(res.Error, "brevo unauthorized") {
		t.Errorf("unexpected result %+v", res)
	}
	if res.NotificationID == "" {
		t.Error("expected failed notification id for retry")
	}
	if len(repo.entries) != 1 {
		t.Errorf("expected feedback logged, got %d", len(repo.entries))
	}
	if n, err := mgr.Get(context.Background(), res.NotificationID); err != nil || n.Status != notification.StatusFailed {
		t.Errorf("expected failed notification, got %+v %v", n, err)
	}
}

func TestSubmit_RepoError(t *testing.T) {
	mgr, email := newTestMailer()
	svc, repo := newTestService(mgr, "team@example.com")
	repo.err = errors.New("disk full")

	_, err := svc.Submit(context.Background(), &Feedback{Name: "Ana", Message: "hi"})
	if err == nil || !strings.Contains(err.Error(), "disk full") {
		t.Fatalf("expected repo error, got %v", err)
	}
	var ve *ValidationError
	if errors.As(err, &ve) {
		t.Error("storage failure must not be a ValidationError")
	}
	if len(email.Calls()) != 0 {
		t.Error("no email should be sent when logging fails")
	}
}

func TestCSVRepo_Append(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feedback_log.csv")
	repo := NewCSVRepo(path)

	for _, name := range []string{"Ana", "Ben"} {
		f := &Feedback{Name: name, Email: "x@y.z", Message: "line one, with comma", CreatedAt: fixedNow}
		if err := repo.Append(context.Background(), f); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer file.Close()
	rows, err := csv.NewReader(file).ReadAll()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if len(rows) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d", len(rows))
	}
	if strings.Join(rows[0], ",") != "Timestamp,Name,Email,Message" {
		t.Errorf("unexpected header %v", rows[0])
	}
	if rows[1][0] != "2026-03-04 05:06:07" || rows[2][1] != "Ben" || rows[2][3] != "line one, with comma" {
		t.Errorf("unexpected rows %v", rows[1:])
	}
}

func TestCSVRepo_Unwritable(t *testing.T) {
	repo := NewCSVRepo(filepath.Join(t.TempDir(), "missing", "feedback_log.csv"))
	if err := repo.Append(context.Background(), &Feedback{Name: "Ana", Message: "hi"}); err == nil {
		t.Error("expected error for missing directory")
	}
}
