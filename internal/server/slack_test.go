package server

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

type mockAssistant struct {
	messages []*domain.Envelope
	actions  []*domain.ActionEnvelope
}

func (m *mockAssistant) HandleMessage(ctx context.Context, env *domain.Envelope) error {
	m.messages = append(m.messages, env)
	return nil
}

func (m *mockAssistant) HandleAction(ctx context.Context, act *domain.ActionEnvelope) error {
	m.actions = append(m.actions, act)
	return nil
}

func newTestSlackServer(botUserID string) (*SlackServer, *mockAssistant, *http.ServeMux) {
	assistant := &mockAssistant{}
	s := NewSlackServer(testSecret, botUserID, assistant)
	s.dispatch = func(f func()) { f() }
	mux := http.NewServeMux()
	s.Register(mux)
	return s, assistant, mux
}

func signedRequest(path, contentType, body string) *http.Request {
	ts := strconv.FormatInt(time.Now().Unix(), 10)
	mac := hmac.New(sha256.New, []byte(testSecret))
	mac.Write([]byte("v0:" + ts + ":" + body))

	req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("X-Slack-Request-Timestamp", ts)
	req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return req
}

func callback(inner string) string {
	return `{"token":"t","team_id":"T1","api_app_id":"A1","type":"event_callback","event_id":"Ev1","event_time":1722300000,"event":` + inner + `}`
}

func TestSlackEvents_URLVerification(t *testing.T) {
	_, _, mux := newTestSlackServer("")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, signedRequest("/slack/events", "application/json", `{"token":"t","challenge":"abc123","type":"url_verification"}`))

	if w.Code != http.StatusOK || w.Body.String() != "abc123" {
		t.Errorf("Expected challenge echoed, got %d %q", w.Code, w.Body.String())
	}
}

func TestSlackEvents_RejectsBadSignature(t *testing.T) {
	_, assistant, mux := newTestSlackServer("")
	req := signedRequest("/slack/events", "application/json", callback(`{"type":"message","channel":"D1","user":"U1","text":"hi","ts":"1.0","channel_type":"im"}`))
	req.Header.Set("X-Slack-Signature", "v0=deadbeef")

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, req)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", w.Code)
	}
	if len(assistant.messages) != 0 {
		t.Error("Expected no dispatch for unsigned request")
	}
}

func TestSlackEvents_DirectMessage(t *testing.T) {
	_, assistant, mux := newTestSlackServer("UBOT")
	body := callback(`{"type":"message","channel":"D1","user":"U1","text":"<@UBOT> 8/2 歯医者","ts":"1722300000.000100","channel_type":"im"}`)

	w := httptest.NewRecorder()
	mux.ServeHTTP(w, signedRequest("/slack/events", "application/json", body))
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if len(assistant.messages) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(assistant.messages))
	}
	env := assistant.messages[0]
	if env.EventID != "Ev1" || env.MessageTS != "1722300000.000100" || !env.IsDirect || !env.MentionsBot {
		t.Errorf("Unexpected envelope: %+v", env)
	}
	if env.Text != "8/2 歯医者" {
		t.Errorf("Expected mention stripped, got %q", env.Text)
	}
}

func TestSlackEvents_IgnoresBots(t *testing.T) {
	_, assistant, mux := newTestSlackServer("UBOT")
	body := callback(`{"type":"message","channel":"C1","bot_id":"B1","text":"8/2","ts":"1.0","channel_type":"channel"}`)

	mux.ServeHTTP(httptest.NewRecorder(), signedRequest("/slack/events", "application/json", body))
	if len(assistant.messages) != 0 {
		t.Errorf("Expected bot message ignored, got %d", len(assistant.messages))
	}
}

func TestSlackEvents_AppMentionWithoutBotID(t *testing.T) {
	_, assistant, mux := newTestSlackServer("")
	body := callback(`{"type":"app_mention","channel":"C1","user":"U1","text":"<@UBOT> 明日の予定","ts":"1.0"}`)

	mux.ServeHTTP(httptest.NewRecorder(), signedRequest("/slack/events", "application/json", body))
	if len(assistant.messages) != 1 || !assistant.messages[0].MentionsBot {
		t.Errorf("Expected mention dispatched, got %+v", assistant.messages)
	}
}

func TestSlackInteractions_BlockActions(t *testing.T) {
	payload := `{"type":"block_actions","user":{"id":"U1"},"channel":{"id":"C1"},"container":{"type":"message","message_ts":"1722300000.000200"},"actions":[{"type":"button","action_id":"cancel","block_id":"b1","value":"{\"v\":2,\"k\":\"cancel\"}"}]}`
	body := url.Values{"payload": {payload}}.Encode()

	for _, path := range []string{"/slack/interactions", "/slack/events"} {
		_, assistant, mux := newTestSlackServer("UBOT")
		w := httptest.NewRecorder()
		mux.ServeHTTP(w, signedRequest(path, "application/x-www-form-urlencoded", body))
		if w.Code != http.StatusOK {
			t.Fatalf("%s: expected 200, got %d", path, w.Code)
		}
		if len(assistant.actions) != 1 {
			t.Fatalf("%s: expected 1 action, got %d", path, len(assistant.actions))
		}
		act := assistant.actions[0]
		if act.ActionID != "cancel" || act.Value != `{"v":2,"k":"cancel"}` || act.MessageTS != "1722300000.000200" || act.Channel != "C1" {
			t.Errorf("%s: unexpected action: %+v", path, act)
		}
	}
}

func TestSlackEvents_MethodNotAllowed(t *testing.T) {
	_, _, mux := newTestSlackServer("")
	w := httptest.NewRecorder()
	mux.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/slack/events", nil))
	if w.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", w.Code)
	}
}
