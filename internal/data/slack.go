package data

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/slack-go/slack"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
)

// Slack rejects section text above this length
const maxSectionText = 3000

// slackAPI is the subset of *slack.Client the messenger needs
type slackAPI interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
	UpdateMessageContext(ctx context.Context, channelID, timestamp string, options ...slack.MsgOption) (string, string, string, error)
	GetFileContext(ctx context.Context, downloadURL string, writer io.Writer) error
}

// slackRepo implements the messenger over Slack Block Kit
type slackRepo struct {
	api slackAPI
}

// NewSlackRepo creates a Slack messenger
func NewSlackRepo(api slackAPI) repo.MessengerRepo {
	return &slackRepo{api: api}
}

// Post sends the proposal and returns the message timestamp
func (r *slackRepo) Post(ctx context.Context, channel string, p *domain.Proposal) (string, error) {
	_, ts, err := r.api.PostMessageContext(ctx, channel,
		slack.MsgOptionText(p.Text, false),
		slack.MsgOptionBlocks(BuildBlocks(p)...),
	)
	if err != nil {
		return "", fmt.Errorf("post message: %w", err)
	}
	return ts, nil
}

// Update replaces a posted message in place
func (r *slackRepo) Update(ctx context.Context, channel, ts string, p *domain.Proposal) error {
	_, _, _, err := r.api.UpdateMessageContext(ctx, channel, ts,
		slack.MsgOptionText(p.Text, false),
		slack.MsgOptionBlocks(BuildBlocks(p)...),
	)
	if err != nil {
		return fmt.Errorf("update message: %w", err)
	}
	return nil
}

// Download fetches a shared file through its private URL
func (r *slackRepo) Download(ctx context.Context, file domain.FileRef) ([]byte, error) {
	if file.URL == "" {
		return nil, fmt.Errorf("file %s: missing download url", file.ID)
	}
	var buf bytes.Buffer
	if err := r.api.GetFileContext(ctx, file.URL, &buf); err != nil {
		return nil, fmt.Errorf("download %s: %w", file.Name, err)
	}
	fmt.Printf("[Slack] Downloaded %s (%d bytes)\n", file.Name, buf.Len())
	return buf.Bytes(), nil
}

// BuildBlocks renders a proposal as Block Kit sections, with per-section
// buttons as accessories and the trailing actions in one action block.
func BuildBlocks(p *domain.Proposal) []slack.Block {
	blocks := make([]slack.Block, 0, len(p.Sections)+1)
	for _, s := range p.Sections {
		text := slack.NewTextBlockObject(slack.MarkdownType, clip(s.Text, maxSectionText), false, false)
		var accessory *slack.Accessory
		if s.Button != nil {
			accessory = slack.NewAccessory(toSlackButton(*s.Button))
		}
		blocks = append(blocks, slack.NewSectionBlock(text, nil, accessory))
	}
	if len(p.Actions) > 0 {
		elements := make([]slack.BlockElement, 0, len(p.Actions))
		for _, b := range p.Actions {
			elements = append(elements, toSlackButton(b))
		}
		blocks = append(blocks, slack.NewActionBlock("schedule_actions", elements...))
	}
	return blocks
}

func toSlackButton(b domain.Button) *slack.ButtonBlockElement {
	btn := slack.NewButtonBlockElement(b.ActionID, b.Value,
		slack.NewTextBlockObject(slack.PlainTextType, b.Label, true, false))
	switch b.Style {
	case domain.StylePrimary:
		btn = btn.WithStyle(slack.StylePrimary)
	case domain.StyleDanger:
		btn = btn.WithStyle(slack.StyleDanger)
	}
	return btn
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
