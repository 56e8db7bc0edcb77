package server

import (
	"context"
	"time"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// handleTimeout bounds the processing of one message or click, including
// document conversion and model retries
const handleTimeout = 5 * time.Minute

// Assistant is the service the chat servers hand their events to
type Assistant interface {
	HandleMessage(ctx context.Context, env *domain.Envelope) error
	HandleAction(ctx context.Context, act *domain.ActionEnvelope) error
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}
