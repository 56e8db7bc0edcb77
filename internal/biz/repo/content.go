package repo

import (
	"context"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
)

// ConverterRepo turns office documents into plain text
type ConverterRepo interface {
	// Convert returns *domain.ConversionError on failure
	Convert(ctx context.Context, data []byte, name, mimeType string) (string, error)
}

// WebFetcherRepo returns the readable text of a web page
type WebFetcherRepo interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// FileDownloader fetches attachment bytes from the chat platform
type FileDownloader interface {
	Download(ctx context.Context, file domain.FileRef) ([]byte, error)
}
