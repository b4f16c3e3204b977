package feedback

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
)

func postFeedback(t *testing.T, h *Handler, body string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return rec, h.SubmitFeedback(e.NewContext(req, rec))
}

func TestHandler_SubmitFeedback(t *testing.T) {
	mgr, _ := newTestMailer()
	svc, _ := newTestService(mgr, "team@example.com")
	h := NewHandler(svc)

	rec, err := postFeedback(t, h, `{"name":"Ana","email":"ana@example.com","message":"Useful"}`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var res Result
	if err := json.Unmarshal(rec.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !res.Delivered || res.Feedback == nil || res.Feedback.Name != "Ana" {
		t.Errorf("unexpected response %+v", res)
	}
}

func TestHandler_SubmitFeedback_Invalid(t *testing.T) {
	svc, _ := newTestService(nil, "")
	h := NewHandler(svc)

	for _, body := range []string{`{"name":"","message":"hi"}`, `{"name":"Ana"}`, `{bad json`} {
		_, err := postFeedback(t, h, body)
		var he *echo.HTTPError
		if !errors.As(err, &he) || he.Code != http.StatusBadRequest {
			t.Errorf("body %s: expected 400, got %v", body, err)
		}
	}
}

func TestHandler_SubmitFeedback_StorageError(t *testing.T) {
	svc, repo := newTestService(nil, "")
	repo.err = errors.New("read-only file system")
	h := NewHandler(svc)

	_, err := postFeedback(t, h, `{"name":"Ana","message":"hi"}`)
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusInternalServerError {
		t.Errorf("expected 500, got %v", err)
	}
}
