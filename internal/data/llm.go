package data

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/schedulebridge/schedule-bridge/internal/biz/domain"
	"github.com/schedulebridge/schedule-bridge/internal/biz/repo"
	"github.com/schedulebridge/schedule-bridge/internal/infra/llm"
)

// completer is the subset of llm.Client the repository needs
type completer interface {
	Complete(ctx context.Context, model, prompt string) (string, error)
}

// llmRepo implements the LLM repository
type llmRepo struct {
	client   completer
	provider string
}

// NewLLMRepo creates an LLM repository
func NewLLMRepo(client *llm.Client, provider string) repo.LLMRepo {
	if client == nil {
		return nil
	}
	return &llmRepo{client: client, provider: provider}
}

// Generate runs one prompt, marking rate limits, server errors and timeouts
// as transient so the caller can retry them.
func (r *llmRepo) Generate(ctx context.Context, model, prompt string) (string, error) {
	text, err := r.client.Complete(ctx, model, prompt)
	if err == nil {
		return text, nil
	}
	if status, ok := transientStatus(err); ok {
		return "", &domain.TransientProviderError{Provider: r.provider + "/" + model, StatusCode: status, Err: err}
	}
	return "", err
}

func transientStatus(err error) (int, bool) {
	status := llm.StatusCode(err)
	switch {
	case status == http.StatusTooManyRequests, status >= 500:
		return status, true
	case status != 0:
		return status, false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return 0, true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return 0, true
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "resource_exhausted") || strings.Contains(msg, "overloaded") {
		return 0, true
	}
	return 0, false
}
