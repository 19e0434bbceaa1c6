package broker

import (
	"context"

	"image-enhancer/internal/domain"
)

// Publisher announces job lifecycle events. Publishing is best effort:
// callers log failures and carry on.
type Publisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
	Close() error
}

// NopPublisher is used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, domain.LifecycleEvent) error { return nil }

func (NopPublisher) Close() error { return nil }
