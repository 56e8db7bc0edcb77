package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

type mockExporter struct {
	feed string
	err  error
}

func (m *mockExporter) ExportICS(ctx context.Context) (string, error) {
	return m.feed, m.err
}

func TestHandleHealth(t *testing.T) {
	server := NewServer(&mockExporter{}, ":0")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("expected status ok, got %q", body["status"])
	}
}

func TestHandleCalendar(t *testing.T) {
	feed := "BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"
	server := NewServer(&mockExporter{feed: feed}, ":0")

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", w.Code)
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("unexpected content type %q", ct)
	}
	if w.Body.String() != feed {
		t.Errorf("unexpected body %q", w.Body.String())
	}
}

func TestHandleCalendarError(t *testing.T) {
	server := NewServer(&mockExporter{err: errors.New("db closed")}, ":0")

	req := httptest.NewRequest(http.MethodGet, "/calendar.ics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", w.Code)
	}
}

func TestHandleCalendarMethod(t *testing.T) {
	server := NewServer(&mockExporter{}, ":0")

	req := httptest.NewRequest(http.MethodPost, "/calendar.ics", nil)
	w := httptest.NewRecorder()
	server.Handler().ServeHTTP(w, req)

	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected status 405, got %d", w.Code)
	}
}

func TestExtraRoutes(t *testing.T) {
	called := false
	route := func(mux *http.ServeMux) {
		mux.HandleFunc("/slack/events", func(w http.ResponseWriter, r *http.Request) {
			called = true
		})
	}
	server := NewServer(&mockExporter{}, ":0", route)

	req := httptest.NewRequest(http.MethodPost, "/slack/events", nil)
	server.Handler().ServeHTTP(httptest.NewRecorder(), req)

	if !called {
		t.Error("expected extra route to be mounted")
	}
}
