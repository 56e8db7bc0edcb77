package repo

import "context"

// LLMRepo generates text from a prompt
// Retryable failures are returned as *domain.TransientProviderError
type LLMRepo interface {
	Generate(ctx context.Context, model, prompt string) (string, error)
}
