package server

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/slack-go/slack"
	"github.com/slack-go/slack/slackevents"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// SourceSlack tags envelopes coming from Slack
const SourceSlack = "slack"

const maxBodyBytes = 1 << 20

// SlackServer receives the Events API and interactivity webhooks
type SlackServer struct {
	signingSecret string
	botUserID     string
	assistant     Assistant

	// dispatch runs handlers off the request goroutine; tests make it synchronous
	dispatch func(func())
}

// NewSlackServer creates a new Slack server. botUserID may be empty, in
// which case mentions are taken from app_mention events.
func NewSlackServer(signingSecret, botUserID string, assistant Assistant) *SlackServer {
	return &SlackServer{
		signingSecret: signingSecret,
		botUserID:     botUserID,
		assistant:     assistant,
		dispatch:      func(f func()) { go f() },
	}
}

// Register mounts the webhook routes on mux
func (s *SlackServer) Register(mux *http.ServeMux) {
	mux.HandleFunc("/slack/events", s.handleEvents)
	mux.HandleFunc("/slack/interactions", s.handleInteractions)
}

// readVerified reads the body and checks the Slack request signature
func (s *SlackServer) readVerified(w http.ResponseWriter, r *http.Request) ([]byte, bool) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return nil, false
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		http.Error(w, "read body", http.StatusBadRequest)
		return nil, false
	}

	verifier, err := slack.NewSecretsVerifier(r.Header, s.signingSecret)
	if err != nil {
		fmt.Printf("[Slack] Rejected request: %v\n", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if _, err := verifier.Write(body); err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	if err := verifier.Ensure(); err != nil {
		fmt.Printf("[Slack] Bad signature: %v\n", err)
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return nil, false
	}
	return body, true
}

func (s *SlackServer) handleEvents(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readVerified(w, r)
	if !ok {
		return
	}
	// Interactivity may share the events request URL
	if isForm(r) {
		s.serveInteraction(w, body)
		return
	}

	event, err := slackevents.ParseEvent(json.RawMessage(body), slackevents.OptionNoVerifyToken())
	if err != nil {
		http.Error(w, "bad event", http.StatusBadRequest)
		return
	}

	switch event.Type {
	case slackevents.URLVerification:
		var challenge slackevents.ChallengeResponse
		if err := json.Unmarshal(body, &challenge); err != nil {
			http.Error(w, "bad challenge", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte(challenge.Challenge))
		return

	case slackevents.CallbackEvent:
		eventID := ""
		if cb, ok := event.Data.(*slackevents.EventsAPICallbackEvent); ok {
			eventID = cb.EventID
		}
		if env := s.envelope(eventID, event.InnerEvent); env != nil {
			s.dispatch(func() { s.runMessage(env) })
		}
	}

	// Ack right away; Slack retries anything slower than three seconds
	w.WriteHeader(http.StatusOK)
}

// envelope normalizes a callback event, or returns nil for events the
// assistant does not handle
func (s *SlackServer) envelope(eventID string, inner slackevents.EventsAPIInnerEvent) *domain.Envelope {
	switch ev := inner.Data.(type) {
	case *slackevents.MessageEvent:
		if ev.BotID != "" || (ev.SubType != "" && ev.SubType != "file_share") {
			return nil
		}
		env := &domain.Envelope{
			Source:    SourceSlack,
			EventID:   eventID,
			Channel:   ev.Channel,
			UserID:    ev.User,
			MessageTS: ev.TimeStamp,
			Text:      ev.Text,
			IsDirect:  ev.ChannelType == "im",
		}
		if s.botUserID != "" {
			mention := "<@" + s.botUserID + ">"
			env.MentionsBot = strings.Contains(ev.Text, mention)
			env.Text = strings.TrimSpace(strings.ReplaceAll(ev.Text, mention, ""))
		}
		for _, f := range ev.Files {
			env.Files = append(env.Files, domain.FileRef{
				ID:       f.ID,
				Name:     f.Name,
				MimeType: f.Mimetype,
				URL:      f.URLPrivateDownload,
				Size:     int64(f.Size),
			})
		}
		return env

	case *slackevents.AppMentionEvent:
		// With a known bot id the matching message event already carries the mention
		if s.botUserID != "" || ev.BotID != "" {
			return nil
		}
		return &domain.Envelope{
			Source:      SourceSlack,
			EventID:     eventID,
			Channel:     ev.Channel,
			UserID:      ev.User,
			MessageTS:   ev.TimeStamp,
			Text:        ev.Text,
			MentionsBot: true,
		}
	}
	return nil
}

func (s *SlackServer) handleInteractions(w http.ResponseWriter, r *http.Request) {
	body, ok := s.readVerified(w, r)
	if !ok {
		return
	}
	s.serveInteraction(w, body)
}

func isForm(r *http.Request) bool {
	return strings.HasPrefix(r.Header.Get("Content-Type"), "application/x-www-form-urlencoded")
}

// serveInteraction dispatches the block actions of an interactive payload
func (s *SlackServer) serveInteraction(w http.ResponseWriter, body []byte) {
	form, err := url.ParseQuery(string(body))
	if err != nil {
		http.Error(w, "bad form", http.StatusBadRequest)
		return
	}
	var cb slack.InteractionCallback
	if err := json.Unmarshal([]byte(form.Get("payload")), &cb); err != nil {
		http.Error(w, "bad payload", http.StatusBadRequest)
		return
	}

	if cb.Type == slack.InteractionTypeBlockActions {
		ts := cb.Container.MessageTs
		if ts == "" {
			ts = cb.Message.Timestamp
		}
		for _, action := range cb.ActionCallback.BlockActions {
			act := &domain.ActionEnvelope{
				Source:    SourceSlack,
				Channel:   cb.Channel.ID,
				UserID:    cb.User.ID,
				MessageTS: ts,
				ActionID:  action.ActionID,
				Value:     action.Value,
			}
			s.dispatch(func() { s.runAction(act) })
		}
	}
	w.WriteHeader(http.StatusOK)
}

func (s *SlackServer) runMessage(env *domain.Envelope) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	fmt.Printf("[Slack] Message in %s: %s\n", env.Channel, truncate(env.Text, 50))
	if err := s.assistant.HandleMessage(ctx, env); err != nil {
		fmt.Printf("[Slack] Message %s failed: %v\n", env.MessageTS, err)
	}
}

func (s *SlackServer) runAction(act *domain.ActionEnvelope) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.assistant.HandleAction(ctx, act); err != nil {
		fmt.Printf("[Slack] Action %s failed: %v\n", act.ActionID, err)
	}
}
