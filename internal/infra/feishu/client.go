package feishu

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	lark "github.com/larksuite/oapi-sdk-go/v3"
	larkcore "github.com/larksuite/oapi-sdk-go/v3/core"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher"
	"github.com/larksuite/oapi-sdk-go/v3/event/dispatcher/callback"
	larkim "github.com/larksuite/oapi-sdk-go/v3/service/im/v1"
	larkws "github.com/larksuite/oapi-sdk-go/v3/ws"
)

// Message represents a received Feishu message
type Message struct {
	ChatID      string
	MsgID       string
	MsgType     string // text, post, file
	ChatType    string // p2p (private), group
	Content     string // Text content with mention placeholders resolved
	Files       []File
	SenderID    string
	MentionsBot bool
	CreateTime  int64 // milliseconds Unix timestamp from Feishu
}

// File is an attachment of a file message
type File struct {
	Key  string
	Name string
}

// CardAction is a button click on an interactive card
type CardAction struct {
	ChatID    string
	MessageID string
	ActionID  string
	Value     string
}

// MessageHandler is the callback for received messages
type MessageHandler func(msg *Message)

// CardActionHandler is the callback for card button clicks
type CardActionHandler func(action *CardAction)

// Client is the Feishu API client
type Client struct {
	appID        string
	appSecret    string
	larkCli      *lark.Client
	wsCli        *larkws.Client
	onMessage    MessageHandler
	onCardAction CardActionHandler
	cancel       context.CancelFunc
	botOpenID    string
}

// NewClient creates a new Feishu client
func NewClient(appID, appSecret string) *Client {
	return &Client{
		appID:     appID,
		appSecret: appSecret,
		larkCli:   lark.NewClient(appID, appSecret),
	}
}

// OnMessage sets the message handler
func (c *Client) OnMessage(handler MessageHandler) {
	c.onMessage = handler
}

// OnCardAction sets the card click handler
func (c *Client) OnCardAction(handler CardActionHandler) {
	c.onCardAction = handler
}

// Start connects to Feishu via WebSocket and blocks until ctx is done
func (c *Client) Start(ctx context.Context) error {
	ctx, c.cancel = context.WithCancel(ctx)

	if err := c.fetchBotOpenID(ctx); err != nil {
		fmt.Printf("[Feishu] Warning: failed to fetch bot open_id: %v\n", err)
	}

	// Handlers must return quickly so the SDK can ACK, otherwise Feishu redelivers
	eventHandler := dispatcher.NewEventDispatcher("", "").
		OnP2MessageReceiveV1(func(ctx context.Context, event *larkim.P2MessageReceiveV1) error {
			go c.handleMessage(event)
			return nil
		}).
		OnP2CardActionTrigger(func(ctx context.Context, event *callback.CardActionTriggerEvent) (*callback.CardActionTriggerResponse, error) {
			go c.handleCardAction(event)
			return &callback.CardActionTriggerResponse{}, nil
		})

	c.wsCli = larkws.NewClient(c.appID, c.appSecret,
		larkws.WithEventHandler(eventHandler),
		larkws.WithLogLevel(larkcore.LogLevelInfo),
	)

	fmt.Println("[Feishu] Starting WebSocket connection...")
	return c.wsCli.Start(ctx)
}

// Stop disconnects from Feishu
func (c *Client) Stop() {
	if c.cancel != nil {
		c.cancel()
	}
}

// fetchBotOpenID learns the bot's own open_id so mentions can be recognised
func (c *Client) fetchBotOpenID(ctx context.Context) error {
	tokenReq, _ := json.Marshal(map[string]string{"app_id": c.appID, "app_secret": c.appSecret})
	req, _ := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://open.feishu.cn/open-apis/auth/v3/tenant_access_token/internal", bytes.NewReader(tokenReq))
	req.Header.Set("Content-Type", "application/json")

	tokenResp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get token: %w", err)
	}
	defer tokenResp.Body.Close()

	var tokenResult struct {
		Code              int    `json:"code"`
		TenantAccessToken string `json:"tenant_access_token"`
	}
	if err := json.NewDecoder(tokenResp.Body).Decode(&tokenResult); err != nil {
		return fmt.Errorf("decode token: %w", err)
	}

	req, _ = http.NewRequestWithContext(ctx, http.MethodGet, "https://open.feishu.cn/open-apis/bot/v3/info", nil)
	req.Header.Set("Authorization", "Bearer "+tokenResult.TenantAccessToken)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("get bot info: %w", err)
	}
	defer resp.Body.Close()

	var botResult struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
		Bot  struct {
			OpenID  string `json:"open_id"`
			AppName string `json:"app_name"`
		} `json:"bot"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&botResult); err != nil {
		return fmt.Errorf("decode bot info: %w", err)
	}
	if botResult.Code != 0 {
		return fmt.Errorf("API error: %s", botResult.Msg)
	}

	c.botOpenID = botResult.Bot.OpenID
	fmt.Printf("[Feishu] Bot open_id: %s (name=%s)\n", c.botOpenID, botResult.Bot.AppName)
	return nil
}

// handleMessage turns a raw receive event into a Message
func (c *Client) handleMessage(event *larkim.P2MessageReceiveV1) {
	rawMsg := event.Event.Message
	if rawMsg == nil || rawMsg.ChatId == nil || rawMsg.MessageId == nil || rawMsg.MessageType == nil {
		return
	}

	// Ignore the bot's own messages
	if event.Event.Sender != nil && event.Event.Sender.SenderType != nil && *event.Event.Sender.SenderType == "app" {
		return
	}

	msg := &Message{
		ChatID:  *rawMsg.ChatId,
		MsgID:   *rawMsg.MessageId,
		MsgType: *rawMsg.MessageType,
	}
	if rawMsg.CreateTime != nil {
		if ts, err := strconv.ParseInt(*rawMsg.CreateTime, 10, 64); err == nil {
			msg.CreateTime = ts
		}
	}
	if rawMsg.ChatType != nil {
		msg.ChatType = *rawMsg.ChatType
	}
	if s := event.Event.Sender; s != nil && s.SenderId != nil && s.SenderId.OpenId != nil {
		msg.SenderID = *s.SenderId.OpenId
	}

	mentionMap := make(map[string]string)
	for _, mention := range rawMsg.Mentions {
		if mention.Id != nil && mention.Id.OpenId != nil && *mention.Id.OpenId == c.botOpenID {
			msg.MentionsBot = true
		}
		if mention.Key != nil && mention.Name != nil {
			mentionMap[*mention.Key] = *mention.Name
		}
	}

	content := ""
	if rawMsg.Content != nil {
		content = *rawMsg.Content
	}
	switch msg.MsgType {
	case "text":
		msg.Content = parseTextContent(content, mentionMap)
	case "post":
		msg.Content = parsePostContent(content, mentionMap)
	case "file":
		if f, ok := parseFileContent(content); ok {
			msg.Files = []File{f}
		}
	default:
		fmt.Printf("[Feishu] Unsupported message type: %s\n", msg.MsgType)
		return
	}

	fmt.Printf("[Feishu] Received %s from %s chat %s: %s\n", msg.MsgType, msg.ChatType, msg.ChatID, truncate(msg.Content, 50))

	if c.onMessage != nil {
		c.onMessage(msg)
	}
}

// handleCardAction extracts the action id and payload a card button carries
func (c *Client) handleCardAction(event *callback.CardActionTriggerEvent) {
	if event.Event == nil || event.Event.Action == nil {
		return
	}
	action := &CardAction{}
	if cc := event.Event.Context; cc != nil {
		action.ChatID = cc.OpenChatID
		action.MessageID = cc.OpenMessageID
	}
	if v, ok := event.Event.Action.Value["action"].(string); ok {
		action.ActionID = v
	}
	if v, ok := event.Event.Action.Value["payload"].(string); ok {
		action.Value = v
	}
	if action.ActionID == "" || action.MessageID == "" {
		fmt.Printf("[Feishu] Ignoring card action without id\n")
		return
	}

	fmt.Printf("[Feishu] Card action %s on message %s\n", action.ActionID, action.MessageID)
	if c.onCardAction != nil {
		c.onCardAction(action)
	}
}

func parseTextContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}
	return replaceMentions(parsed.Text, mentionMap)
}

// parsePostContent flattens a rich text message into lines of plain text
func parsePostContent(content string, mentionMap map[string]string) string {
	var parsed struct {
		Title   string `json:"title"`
		Content [][]struct {
			Tag    string `json:"tag"`
			Text   string `json:"text,omitempty"`
			Href   string `json:"href,omitempty"`
			UserID string `json:"user_id,omitempty"`
		} `json:"content"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil {
		return ""
	}

	var lines []string
	if parsed.Title != "" {
		lines = append(lines, parsed.Title)
	}
	for _, line := range parsed.Content {
		var parts []string
		for _, elem := range line {
			switch elem.Tag {
			case "text":
				parts = append(parts, elem.Text)
			case "a":
				// keep the href so URLs are visible to fusion
				parts = append(parts, elem.Text+" "+elem.Href)
			case "at":
				if name, ok := mentionMap[elem.UserID]; ok {
					parts = append(parts, "@"+name)
				}
			}
		}
		if len(parts) > 0 {
			lines = append(lines, strings.Join(parts, ""))
		}
	}
	return replaceMentions(strings.Join(lines, "\n"), mentionMap)
}

func parseFileContent(content string) (File, bool) {
	var parsed struct {
		FileKey  string `json:"file_key"`
		FileName string `json:"file_name"`
	}
	if err := json.Unmarshal([]byte(content), &parsed); err != nil || parsed.FileKey == "" {
		return File{}, false
	}
	return File{Key: parsed.FileKey, Name: parsed.FileName}, true
}

// replaceMentions replaces mention placeholders (@_user_1, ...) with real names
func replaceMentions(text string, mentionMap map[string]string) string {
	for key, name := range mentionMap {
		text = strings.ReplaceAll(text, key, "@"+name)
	}
	return text
}

// DownloadFile reads a message attachment into memory
func (c *Client) DownloadFile(ctx context.Context, messageID, fileKey string) ([]byte, error) {
	req := larkim.NewGetMessageResourceReqBuilder().
		MessageId(messageID).
		FileKey(fileKey).
		Type("file").
		Build()

	resp, err := c.larkCli.Im.MessageResource.Get(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	if !resp.Success() {
		return nil, fmt.Errorf("get file error: %s", resp.Msg)
	}

	data, err := io.ReadAll(resp.File)
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	fmt.Printf("[Feishu] Downloaded %s (%d bytes)\n", fileKey, len(data))
	return data, nil
}

// SendCard posts an interactive card and returns its message id
func (c *Client) SendCard(ctx context.Context, chatID, card string) (string, error) {
	req := larkim.NewCreateMessageReqBuilder().
		ReceiveIdType(larkim.ReceiveIdTypeChatId).
		Body(larkim.NewCreateMessageReqBodyBuilder().
			ReceiveId(chatID).
			MsgType(larkim.MsgTypeInteractive).
			Content(card).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Create(ctx, req)
	if err != nil {
		return "", fmt.Errorf("send card failed: %w", err)
	}
	if !resp.Success() {
		return "", fmt.Errorf("send card error: %s", resp.Msg)
	}
	if resp.Data == nil || resp.Data.MessageId == nil {
		return "", nil
	}
	return *resp.Data.MessageId, nil
}

// PatchCard replaces the content of a card sent earlier
func (c *Client) PatchCard(ctx context.Context, messageID, card string) error {
	req := larkim.NewPatchMessageReqBuilder().
		MessageId(messageID).
		Body(larkim.NewPatchMessageReqBodyBuilder().
			Content(card).
			Build()).
		Build()

	resp, err := c.larkCli.Im.Message.Patch(ctx, req)
	if err != nil {
		return fmt.Errorf("patch card failed: %w", err)
	}
	if !resp.Success() {
		return fmt.Errorf("patch card error: %s", resp.Msg)
	}
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
