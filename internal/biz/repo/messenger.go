package repo

import (
	"context"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// MessengerRepo is the chat platform as seen by the assistant
type MessengerRepo interface {
	FileDownloader

	// Post sends a proposal and returns the message timestamp
	Post(ctx context.Context, channel string, p *domain.Proposal) (string, error)

	// Update replaces a posted proposal in place, removing its buttons
	Update(ctx context.Context, channel, messageTS string, p *domain.Proposal) error
}
