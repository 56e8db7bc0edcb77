package data

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

// cardClient is the subset of feishu.Client the messenger needs
type cardClient interface {
	SendCard(ctx context.Context, chatID, card string) (string, error)
	PatchCard(ctx context.Context, messageID, card string) error
	DownloadFile(ctx context.Context, messageID, fileKey string) ([]byte, error)
}

// feishuRepo implements the messenger over Feishu interactive cards
type feishuRepo struct {
	client cardClient
}

// NewFeishuRepo creates a Feishu messenger
func NewFeishuRepo(client cardClient) repo.MessengerRepo {
	return &feishuRepo{client: client}
}

// Post sends the proposal as a card; the returned ts is the message id
func (r *feishuRepo) Post(ctx context.Context, chatID string, p *domain.Proposal) (string, error) {
	card, err := BuildCard(p)
	if err != nil {
		return "", err
	}
	return r.client.SendCard(ctx, chatID, card)
}

// Update patches the card in place. Feishu addresses messages by id alone.
func (r *feishuRepo) Update(ctx context.Context, _ string, messageID string, p *domain.Proposal) error {
	card, err := BuildCard(p)
	if err != nil {
		return err
	}
	return r.client.PatchCard(ctx, messageID, card)
}

// Download reads an attachment of the message that carried it
func (r *feishuRepo) Download(ctx context.Context, file domain.FileRef) ([]byte, error) {
	if file.MessageID == "" {
		return nil, fmt.Errorf("file %s: missing message id", file.ID)
	}
	return r.client.DownloadFile(ctx, file.MessageID, file.ID)
}

type cardText struct {
	Tag     string `json:"tag"`
	Content string `json:"content"`
}

type cardButton struct {
	Tag   string            `json:"tag"`
	Text  cardText          `json:"text"`
	Type  string            `json:"type"`
	Value map[string]string `json:"value"`
}

type cardElement struct {
	Tag     string       `json:"tag"`
	Text    *cardText    `json:"text,omitempty"`
	Extra   *cardButton  `json:"extra,omitempty"`
	Actions []cardButton `json:"actions,omitempty"`
}

type card struct {
	Config   map[string]bool `json:"config"`
	Elements []cardElement   `json:"elements"`
}

// BuildCard renders a proposal as a Feishu message card. Each button carries
// its action id and encoded payload in the value object.
func BuildCard(p *domain.Proposal) (string, error) {
	c := card{Config: map[string]bool{"wide_screen_mode": true, "update_multi": true}}
	for _, s := range p.Sections {
		el := cardElement{Tag: "div", Text: &cardText{Tag: "lark_md", Content: s.Text}}
		if s.Button != nil {
			b := toCardButton(*s.Button)
			el.Extra = &b
		}
		c.Elements = append(c.Elements, el)
	}
	if len(p.Actions) > 0 {
		el := cardElement{Tag: "action"}
		for _, b := range p.Actions {
			el.Actions = append(el.Actions, toCardButton(b))
		}
		c.Elements = append(c.Elements, el)
	}

	data, err := json.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("encode card: %w", err)
	}
	return string(data), nil
}

func toCardButton(b domain.Button) cardButton {
	typ := "default"
	switch b.Style {
	case domain.StylePrimary:
		typ = "primary"
	case domain.StyleDanger:
		typ = "danger"
	}
	return cardButton{
		Tag:   "button",
		Text:  cardText{Tag: "plain_text", Content: b.Label},
		Type:  typ,
		Value: map[string]string{"action": b.ActionID, "payload": b.Value},
	}
}
