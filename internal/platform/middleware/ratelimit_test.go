package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

func TestTokenBucket_Refill(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	b := newTokenBucket(1, 2, start)

	for i := 0; i < 2; i++ {
		if ok, _ := b.allow(start); !ok {
			t.Fatalf("request %d should be allowed by burst", i)
		}
	}
	ok, retry := b.allow(start)
	if ok || retry != 2 {
		t.Errorf("expected denial with retry 2, got ok=%v retry=%d", ok, retry)
	}
	if ok, _ := b.allow(start.Add(1500 * time.Millisecond)); !ok {
		t.Error("expected a refilled token after 1.5s")
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	store := newRateLimiterStore(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }
	mw := rateLimit(store)
	e := echo.New()

	call := func(ip string) (*httptest.ResponseRecorder, error) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/feedback", nil)
		req.Header.Set(echo.HeaderXRealIP, ip)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		c.SetPath("/api/v1/feedback")
		return rec, mw(func(c echo.Context) error { return c.NoContent(http.StatusCreated) })(c)
	}

	if _, err := call("10.0.0.1"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	rec, err := call("10.0.0.1")
	var he *echo.HTTPError
	if !errors.As(err, &he) || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" || rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("missing rate limit headers: %v", rec.Header())
	}
	if _, err := call("10.0.0.2"); err != nil {
		t.Errorf("other client should not be limited: %v", err)
	}

	now = now.Add(time.Second)
	if _, err := call("10.0.0.1"); err != nil {
		t.Errorf("expected token after refill: %v", err)
	}
}

func TestRateLimit_ReadsPassThrough(t *testing.T) {
	mw := RateLimit(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})
	e := echo.New()
	for i := 0; i < 5; i++ {
		c := e.NewContext(httptest.NewRequest(http.MethodGet, "/api/v1/cases", nil), httptest.NewRecorder())
		if err := mw(func(c echo.Context) error { return c.NoContent(http.StatusOK) })(c); err != nil {
			t.Fatalf("read %d limited: %v", i, err)
		}
	}
}
