package ports

import (
	"context"

	"github.com/samirrijal/digipin/internal/core/domain"
)

// EventPublisher publishes domain events to a message broker.
type EventPublisher interface {
	PublishAgentTurn(ctx context.Context, turn *domain.AgentTurn) error
}

// CacheService provides read-through caching.
type CacheService interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttlSeconds int) error
	Delete(ctx context.Context, key string) error
}

// LanguageModel generates chat completions with function calling.
type LanguageModel interface {
	Generate(ctx context.Context, req *domain.ModelRequest) (*domain.ModelResponse, error)
}
