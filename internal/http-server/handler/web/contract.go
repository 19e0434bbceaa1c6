package web

import (
	"context"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/usecase/job"
)

type jobUsecase interface {
	Catalog(ctx context.Context) (domain.Catalog, error)
	Submit(ctx context.Context, params job.SubmitParams) (*job.Operation, error)
	Operation(token string) (*job.Operation, error)
	Resolve(ctx context.Context, id string) (domain.Job, error)
}

type thumbnailer interface {
	DataURL(data []byte) (string, error)
}
