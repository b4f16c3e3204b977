package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillawebsocket "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// ---------------------------------------------------------------------------
// Topic filters
// ---------------------------------------------------------------------------

func TestMatch(t *testing.T) {
	tests := []struct {
		filter, topic string
		want          bool
	}{
		{"#", "/icu/bed1/insulin", true},
		{"/icu/bed5/cardiac", "/icu/bed5/cardiac", true},
		{"/icu/bed5/cardiac", "/icu/bed4/oxygen", false},
		{"/icu/bed5/#", "/icu/bed5/cardiac", true},
		{"/icu/bed5/#", "/icu/bed5", true},
		{"/icu/bed5/#", "/icu/bed50/cardiac", false},
		{"/icu/#", "/icu/bed3/neuro", true},
	}
	for _, tt := range tests {
		if got := Match(tt.filter, tt.topic); got != tt.want {
			t.Errorf("Match(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.want)
		}
	}
}

// ---------------------------------------------------------------------------
// Hub tests
// ---------------------------------------------------------------------------

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()
	client := NewClient("client-1", 4, "/icu/bed1/insulin")

	hub.Register(client)
	if hub.ClientCount() != 1 {
		t.Fatalf("expected 1 client, got %d", hub.ClientCount())
	}
	if hub.Subscribers("/icu/bed1/insulin") != 1 {
		t.Fatalf("expected 1 subscriber, got %d", hub.Subscribers("/icu/bed1/insulin"))
	}

	hub.Unregister(client)
	hub.Unregister(client) // second call is a no-op
	if hub.ClientCount() != 0 {
		t.Fatalf("expected 0 clients, got %d", hub.ClientCount())
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send to be closed")
	}
}

func TestHub_BroadcastMatchesFilters(t *testing.T) {
	hub := NewHub()
	cardiac := NewClient("a", 4, "/icu/bed5/cardiac")
	bed4 := NewClient("b", 4, "/icu/bed4/#")
	all := NewClient("c", 4, "#")
	for _, c := range []*Client{cardiac, bed4, all} {
		hub.Register(c)
	}

	n, err := hub.Broadcast(Event{Type: EventProtocol, Topic: "/icu/bed5/cardiac"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 2 {
		t.Fatalf("expected 2 deliveries, got %d", n)
	}
	if len(cardiac.Send) != 1 || len(all.Send) != 1 || len(bed4.Send) != 0 {
		t.Errorf("unexpected buffers cardiac=%d bed4=%d all=%d", len(cardiac.Send), len(bed4.Send), len(all.Send))
	}
}

func TestHub_BroadcastSkipsFullBuffer(t *testing.T) {
	hub := NewHub()
	client := NewClient("slow", 1, "#")
	hub.Register(client)

	hub.Broadcast(Event{Topic: "/icu/bed1/insulin"})
	n, _ := hub.Broadcast(Event{Topic: "/icu/bed1/insulin"})
	if n != 0 {
		t.Errorf("expected slow client to be skipped, got %d deliveries", n)
	}
	if hub.ClientCount() != 1 {
		t.Error("slow client should stay registered")
	}
}

func TestHub_SubscribeUnsubscribe(t *testing.T) {
	hub := NewHub()
	client := NewClient("client", 4)
	hub.Register(client)

	hub.ProcessMessage(client, ClientMessage{Action: "subscribe", Topics: []string{"/icu/bed3/neuro", " "}})
	if hub.Subscribers("/icu/bed3/neuro") != 1 {
		t.Fatal("expected subscription after subscribe")
	}
	hub.ProcessMessage(client, ClientMessage{Action: "unsubscribe", Topics: []string{"/icu/bed3/neuro"}})
	if hub.Subscribers("/icu/bed3/neuro") != 0 {
		t.Fatal("expected no subscription after unsubscribe")
	}
	hub.ProcessMessage(client, ClientMessage{Action: "bogus", Topics: []string{"#"}})
	if hub.Subscribers("/icu/bed3/neuro") != 0 {
		t.Fatal("unknown actions should be ignored")
	}
}

func TestHub_PublishWrapsPayload(t *testing.T) {
	hub := NewHub()
	fixed := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	hub.now = func() time.Time { return fixed }
	client := NewClient("client", 4, "/icu/bed2/#")
	hub.Register(client)

	if err := hub.Publish(context.Background(), "/icu/bed2/pharmacy", []byte(`{"risk":"High"}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := hub.Publish(context.Background(), "/icu/bed2/pharmacy", []byte("STAT: plain text")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var first, second Event
	if err := json.Unmarshal(<-client.Send, &first); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if err := json.Unmarshal(<-client.Send, &second); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if first.Type != EventProtocol || first.Topic != "/icu/bed2/pharmacy" || !first.Timestamp.Equal(fixed) {
		t.Errorf("unexpected event %+v", first)
	}
	if string(first.Data) != `{"risk":"High"}` {
		t.Errorf("expected raw JSON data, got %s", first.Data)
	}
	if string(second.Data) != `"STAT: plain text"` {
		t.Errorf("expected quoted text data, got %s", second.Data)
	}
}

func TestHub_PublishWithoutSubscribers(t *testing.T) {
	hub := NewHub()
	if err := hub.Publish(context.Background(), "/icu/bed1/insulin", []byte("{}")); err != nil {
		t.Errorf("expected nil error, got %v", err)
	}
}

func TestHub_Close(t *testing.T) {
	hub := NewHub()
	client := NewClient("client", 4, "#")
	hub.Register(client)

	if err := hub.Close(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if hub.ClientCount() != 0 {
		t.Errorf("expected 0 clients after close, got %d", hub.ClientCount())
	}
	if _, ok := <-client.Send; ok {
		t.Error("expected Send to be closed")
	}

	late := NewClient("late", 1)
	hub.Register(late)
	if _, ok := <-late.Send; ok {
		t.Error("expected late client to be closed immediately")
	}
}

// ---------------------------------------------------------------------------
// Handler tests
// ---------------------------------------------------------------------------

func TestHandler_RejectsPlainHTTP(t *testing.T) {
	e := echo.New()
	h := NewHandler(NewHub(), nil, zerolog.Nop())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/live", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.HandleConnect(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for non-upgrade request, got %d", rec.Code)
	}
}

func TestHandler_CheckOrigin(t *testing.T) {
	h := NewHandler(NewHub(), []string{"http://localhost:3000"}, zerolog.Nop())
	tests := []struct {
		origin string
		want   bool
	}{
		{"", true},
		{"http://localhost:3000", true},
		{"http://evil.test", false},
	}
	for _, tt := range tests {
		req := httptest.NewRequest(http.MethodGet, "/api/v1/live", nil)
		if tt.origin != "" {
			req.Header.Set("Origin", tt.origin)
		}
		if got := h.upgrader.CheckOrigin(req); got != tt.want {
			t.Errorf("CheckOrigin(%q) = %v, want %v", tt.origin, got, tt.want)
		}
	}

	wildcard := NewHandler(NewHub(), []string{"*"}, zerolog.Nop())
	req := httptest.NewRequest(http.MethodGet, "/api/v1/live", nil)
	req.Header.Set("Origin", "http://evil.test")
	if !wildcard.upgrader.CheckOrigin(req) {
		t.Error("wildcard origin should accept any origin")
	}
}

func TestHandler_LiveFeedEndToEnd(t *testing.T) {
	hub := NewHub()
	e := echo.New()
	NewHandler(hub, nil, zerolog.Nop()).RegisterRoutes(e.Group("/api/v1"))

	server := httptest.NewServer(e)
	defer server.Close()

	url := "ws" + strings.TrimPrefix(server.URL, "http") + "/api/v1/live?topics=/icu/bed5/%23"
	dialer := gorillawebsocket.Dialer{HandshakeTimeout: 2 * time.Second}
	conn, resp, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	if resp.StatusCode != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101, got %d", resp.StatusCode)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hub.Subscribers("/icu/bed5/cardiac") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("client never registered")
		}
		time.Sleep(10 * time.Millisecond)
	}

	if err := hub.Publish(context.Background(), "/icu/bed5/cardiac", []byte(`{"case":5}`)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ev Event
	if err := conn.ReadJSON(&ev); err != nil {
		t.Fatalf("read: %v", err)
	}
	if ev.Topic != "/icu/bed5/cardiac" || string(ev.Data) != `{"case":5}` {
		t.Errorf("unexpected event %+v", ev)
	}

	// Subscribing over the socket widens the filter set.
	if err := conn.WriteJSON(ClientMessage{Action: "subscribe", Topics: []string{"/icu/bed1/insulin"}}); err != nil {
		t.Fatalf("write: %v", err)
	}
	deadline = time.Now().Add(2 * time.Second)
	for hub.Subscribers("/icu/bed1/insulin") == 0 {
		if time.Now().After(deadline) {
			t.Fatal("subscribe message not applied")
		}
		time.Sleep(10 * time.Millisecond)
	}

	conn.Close()
	deadline = time.Now().Add(2 * time.Second)
	for hub.ClientCount() != 0 {
		if time.Now().After(deadline) {
			t.Fatal("client not unregistered after close")
		}
		time.Sleep(10 * time.Millisecond)
	}
}
