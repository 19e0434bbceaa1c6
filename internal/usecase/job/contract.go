package job

import (
	"context"

	"image-enhancer/internal/domain"
)

type enhancerClient interface {
	FetchCatalog(ctx context.Context) (domain.Catalog, error)
	Submit(ctx context.Context, req domain.SubmissionRequest, onProgress func(float64)) (domain.Job, error)
	Resolve(ctx context.Context, id string) (domain.Job, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, event domain.LifecycleEvent) error
}

type originalArchive interface {
	SaveOriginal(ctx context.Context, job domain.Job, upload domain.Upload) (string, error)
}
