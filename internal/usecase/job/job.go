package job

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/usecase/preview"

	"github.com/wb-go/wbf/zlog"
)

const sideEffectTimeout = 30 * time.Second

// SubmitParams is a validated form submission before catalog and image
// checks.
type SubmitParams struct {
	Token     string
	Model     string
	Scale     int
	SkipAlpha bool
	Filename  string
	Data      []byte
}

type JobUsecase struct {
	client        enhancerClient
	registry      *Registry
	publisher     eventPublisher
	archive       originalArchive
	maxUploadSize int64
	logger        *zlog.Zerolog

	sideEffects sync.WaitGroup
}

// NewJobUsecase wires the usecase. archive may be nil when archiving is
// disabled.
func NewJobUsecase(client enhancerClient, registry *Registry, publisher eventPublisher, archive originalArchive, maxUploadSize int64, logger *zlog.Zerolog) *JobUsecase {
	if maxUploadSize <= 0 {
		maxUploadSize = domain.DefaultMaxUploadSize
	}
	return &JobUsecase{
		client:        client,
		registry:      registry,
		publisher:     publisher,
		archive:       archive,
		maxUploadSize: maxUploadSize,
		logger:        logger,
	}
}

func (u *JobUsecase) Catalog(ctx context.Context) (domain.Catalog, error) {
	return u.client.FetchCatalog(ctx)
}

// Prepare checks a submission against a freshly fetched catalog and
// inspects the image. Nothing is sent to the service.
func (u *JobUsecase) Prepare(ctx context.Context, p SubmitParams) (domain.SubmissionRequest, error) {
	if p.Scale < domain.MinScale || p.Scale > domain.MaxScale {
		return domain.SubmissionRequest{}, fmt.Errorf("%w: %d not in [%d, %d]", ErrInvalidScale, p.Scale, domain.MinScale, domain.MaxScale)
	}

	if int64(len(p.Data)) > u.maxUploadSize {
		return domain.SubmissionRequest{}, fmt.Errorf("%w: %d bytes", ErrFileTooLarge, len(p.Data))
	}

	upload, err := preview.Inspect(p.Filename, p.Data)
	if err != nil {
		return domain.SubmissionRequest{}, fmt.Errorf("%w: %w", ErrInvalidImage, err)
	}

	catalog, err := u.client.FetchCatalog(ctx)
	if err != nil {
		return domain.SubmissionRequest{}, err
	}

	selection, err := catalog.Lookup(p.Model)
	if err != nil {
		return domain.SubmissionRequest{}, fmt.Errorf("%w: %w", ErrInvalidSelection, err)
	}

	return domain.SubmissionRequest{
		Image:     upload,
		Selection: selection,
		Scale:     p.Scale,
		SkipAlpha: p.SkipAlpha,
	}, nil
}

// Submit prepares the request and starts it under the form token. The
// returned Operation carries progress and the terminal event.
func (u *JobUsecase) Submit(ctx context.Context, p SubmitParams) (*Operation, error) {
	req, err := u.Prepare(ctx, p)
	if err != nil {
		return nil, err
	}

	op, err := u.registry.Start(ctx, p.Token, func(runCtx context.Context, report func(float64)) (domain.Job, error) {
		job, err := u.client.Submit(runCtx, req, report)
		u.afterSubmit(runCtx, req, job, err)
		return job, err
	})
	if err != nil {
		return nil, err
	}

	u.logger.Info().
		Str("token", p.Token).
		Str("model", req.Selection.Key()).
		Int("scale", req.Scale).
		Int64("size", req.Image.Size()).
		Msg("Submission started")

	return op, nil
}

func (u *JobUsecase) Operation(token string) (*Operation, error) {
	return u.registry.Get(token)
}

func (u *JobUsecase) Resolve(ctx context.Context, id string) (domain.Job, error) {
	job, err := u.client.Resolve(ctx, id)
	if err != nil {
		return domain.Job{}, err
	}

	event := domain.LifecycleEvent{
		Type:      domain.LifecycleResolved,
		JobID:     job.ID,
		Scale:     job.Scale,
		Filename:  job.Input,
		OutputURL: job.OutputURL,
		At:        time.Now().UTC(),
	}
	if job.Algorithm != "" && job.Model != "" {
		event.Model = domain.Selection{Algorithm: job.Algorithm, Model: job.Model}.Key()
	}
	u.background(ctx, func(ctx context.Context) {
		u.publish(ctx, event)
	})

	return job, nil
}

// afterSubmit publishes the outcome and archives the original.
func (u *JobUsecase) afterSubmit(ctx context.Context, req domain.SubmissionRequest, job domain.Job, submitErr error) {
	event := domain.LifecycleEvent{
		Type:      domain.LifecycleSubmitted,
		JobID:     job.ID,
		Model:     req.Selection.Key(),
		Scale:     req.Scale,
		SkipAlpha: req.SkipAlpha,
		Filename:  req.Image.Filename,
		OutputURL: job.OutputURL,
		At:        time.Now().UTC(),
	}
	if submitErr != nil {
		event.Type = domain.LifecycleFailed
		event.Error = submitErr.Error()
	}

	u.background(ctx, func(sideCtx context.Context) {
		u.publish(sideCtx, event)

		if submitErr != nil || u.archive == nil {
			return
		}
		path, err := u.archive.SaveOriginal(sideCtx, job, req.Image)
		if err != nil {
			u.logger.Error().Err(err).Str("job_id", job.ID).Msg("Failed to archive original image")
			return
		}
		u.logger.Debug().Str("job_id", job.ID).Str("path", path).Msg("Original image archived")
	})
}

// background runs fn detached from the caller's cancellation, bounded by
// sideEffectTimeout.
func (u *JobUsecase) background(ctx context.Context, fn func(ctx context.Context)) {
	sideCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), sideEffectTimeout)

	u.sideEffects.Add(1)
	go func() {
		defer u.sideEffects.Done()
		defer cancel()
		fn(sideCtx)
	}()
}

func (u *JobUsecase) publish(ctx context.Context, event domain.LifecycleEvent) {
	if u.publisher == nil {
		return
	}
	if err := u.publisher.Publish(ctx, event); err != nil {
		u.logger.Warn().Err(err).
			Str("job_id", event.JobID).
			Str("type", string(event.Type)).
			Msg("Failed to publish lifecycle event")
	}
}

// Close waits for running submissions and their side effects.
func (u *JobUsecase) Close(ctx context.Context) error {
	regErr := u.registry.Wait(ctx)

	done := make(chan struct{})
	go func() {
		u.sideEffects.Wait()
		close(done)
	}()

	select {
	case <-done:
		return regErr
	case <-ctx.Done():
		return errors.Join(regErr, ctx.Err())
	}
}
