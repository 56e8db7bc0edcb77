package server

import (
	"context"
	"fmt"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/infra/feishu"
)

// SourceFeishu tags envelopes coming from Feishu
const SourceFeishu = "feishu"

// FeishuServer feeds Feishu messages and card clicks to the assistant
type FeishuServer struct {
	feishuClient *feishu.Client
	assistant    Assistant
}

// NewFeishuServer creates a new Feishu server
func NewFeishuServer(feishuClient *feishu.Client, assistant Assistant) *FeishuServer {
	return &FeishuServer{
		feishuClient: feishuClient,
		assistant:    assistant,
	}
}

// Start connects to Feishu and blocks until ctx is done
func (s *FeishuServer) Start(ctx context.Context) error {
	s.feishuClient.OnMessage(s.handleMessage)
	s.feishuClient.OnCardAction(s.handleCardAction)
	return s.feishuClient.Start(ctx)
}

// Stop stops the server
func (s *FeishuServer) Stop() {
	s.feishuClient.Stop()
}

func (s *FeishuServer) handleMessage(msg *feishu.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	if err := s.assistant.HandleMessage(ctx, FeishuEnvelope(msg)); err != nil {
		fmt.Printf("[Server] Feishu message %s failed: %v\n", msg.MsgID, err)
	}
}

func (s *FeishuServer) handleCardAction(action *feishu.CardAction) {
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	act := &domain.ActionEnvelope{
		Source:    SourceFeishu,
		Channel:   action.ChatID,
		MessageTS: action.MessageID,
		ActionID:  action.ActionID,
		Value:     action.Value,
	}
	if err := s.assistant.HandleAction(ctx, act); err != nil {
		fmt.Printf("[Server] Feishu card action %s failed: %v\n", action.ActionID, err)
	}
}

// FeishuEnvelope normalizes a Feishu message. Feishu message ids are unique
// per delivery, so they serve as both event id and timestamp.
func FeishuEnvelope(msg *feishu.Message) *domain.Envelope {
	env := &domain.Envelope{
		Source:      SourceFeishu,
		EventID:     msg.MsgID,
		Channel:     msg.ChatID,
		UserID:      msg.SenderID,
		MessageTS:   msg.MsgID,
		Text:        msg.Content,
		IsDirect:    msg.ChatType == "p2p",
		MentionsBot: msg.MentionsBot,
	}
	for _, f := range msg.Files {
		env.Files = append(env.Files, domain.FileRef{ID: f.Key, MessageID: msg.MsgID, Name: f.Name})
	}
	return env
}
