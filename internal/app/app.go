package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"image-enhancer/internal/broker"
	kafka_impl "image-enhancer/internal/broker/kafka"
	"image-enhancer/internal/config"
	"image-enhancer/internal/enhancer"
	web_h "image-enhancer/internal/http-server/handler/web"
	"image-enhancer/internal/http-server/router"
	minio_repo "image-enhancer/internal/repository/archive/minio"
	job_uc "image-enhancer/internal/usecase/job"
	"image-enhancer/internal/usecase/preview"

	"github.com/wb-go/wbf/zlog"
)

type App struct {
	cfg       *config.Config
	server    *http.Server
	logger    *zlog.Zerolog
	registry  *job_uc.Registry
	usecase   *job_uc.JobUsecase
	publisher broker.Publisher
}

func NewApp(cfg *config.Config, logger *zlog.Zerolog) (*App, error) {
	client := enhancer.NewClient(enhancer.Options{
		BaseURL:          cfg.Service.BaseURL,
		Timeout:          cfg.Service.Timeout,
		Algorithms:       cfg.Service.Algorithms,
		ProgressInterval: cfg.Upload.ProgressInterval,
	}, logger)

	var publisher broker.Publisher = broker.NopPublisher{}
	if cfg.Kafka.Enabled {
		publisher = kafka_impl.NewEventProducer(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, cfg.DefaultRetryStrategy())
		logger.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.EventsTopic).Msg("Publishing job events")
	}

	var archive *minio_repo.ArchiveRepository
	if cfg.Archive.Enabled {
		minioClient, err := minio_repo.NewClient(cfg.Archive)
		if err != nil {
			return nil, fmt.Errorf("failed to create archive client: %w", err)
		}
		archive = minio_repo.NewArchiveRepository(minioClient, cfg.Archive.Bucket, logger)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Service.Timeout)
		defer cancel()
		if err := archive.EnsureBucket(ctx); err != nil {
			return nil, fmt.Errorf("failed to prepare archive: %w", err)
		}
	}

	registry := job_uc.NewRegistry(cfg.Submission.Timeout, cfg.Submission.Retention)

	var usecase *job_uc.JobUsecase
	if archive != nil {
		usecase = job_uc.NewJobUsecase(client, registry, publisher, archive, cfg.Upload.MaxSize, logger)
	} else {
		usecase = job_uc.NewJobUsecase(client, registry, publisher, nil, cfg.Upload.MaxSize, logger)
	}

	webHandler, err := web_h.NewWebHandler(usecase, preview.NewThumbnailer(preview.DefaultThumbnailSize), cfg.Upload.MaxSize, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create web handler: %w", err)
	}

	h := &router.Handler{
		WebHandler: webHandler,
	}

	mux := router.SetupRouter(h)

	server := &http.Server{
		Addr:         ":" + cfg.Server.Addr,
		Handler:      mux,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &App{
		cfg:       cfg,
		server:    server,
		logger:    logger,
		registry:  registry,
		usecase:   usecase,
		publisher: publisher,
	}, nil
}

func (a *App) Run() error {
	a.logger.Info().
		Str("addr", a.cfg.Server.Addr).
		Str("service", a.cfg.Service.BaseURL).
		Msg("Starting server")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go a.handleSignals(cancel)
	go a.sweepSubmissions(ctx)

	serverErr := make(chan error, 1)
	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		a.logger.Error().Err(err).Msg("Server error")
		return err
	case <-ctx.Done():
		a.logger.Info().Msg("Shutting down server")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.logger.Error().Err(err).Msg("Server shutdown failed")
		}

		if err := a.usecase.Close(shutdownCtx); err != nil {
			a.logger.Warn().Err(err).Msg("Submissions still running at shutdown")
		}

		if err := a.publisher.Close(); err != nil {
			a.logger.Error().Err(err).Msg("Failed to close event publisher")
		}

		a.logger.Info().Msg("Server stopped gracefully")
		return nil
	}
}

// sweepSubmissions evicts finished submissions even when no new ones
// arrive.
func (a *App) sweepSubmissions(ctx context.Context) {
	interval := a.cfg.Submission.Retention
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.registry.Sweep()
		}
	}
}

func (a *App) handleSignals(cancel context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigChan
	a.logger.Info().Str("signal", sig.String()).Msg("Received signal")
	cancel()
}
