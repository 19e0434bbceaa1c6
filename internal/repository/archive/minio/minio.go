package minio

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strconv"
	"strings"

	"image-enhancer/internal/config"
	"image-enhancer/internal/domain"
	"image-enhancer/internal/repository/archive"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/wb-go/wbf/zlog"
)

type objectStore interface {
	BucketExists(ctx context.Context, bucketName string) (bool, error)
	MakeBucket(ctx context.Context, bucketName string, opts minio.MakeBucketOptions) error
	PutObject(ctx context.Context, bucketName, objectName string, reader io.Reader, objectSize int64, opts minio.PutObjectOptions) (minio.UploadInfo, error)
}

// ArchiveRepository keeps a copy of every accepted upload, keyed by the job
// id the service assigned.
type ArchiveRepository struct {
	client objectStore
	bucket string
	logger *zlog.Zerolog
}

func NewClient(cfg config.ArchiveConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	return client, nil
}

func NewArchiveRepository(client *minio.Client, bucket string, logger *zlog.Zerolog) *ArchiveRepository {
	return &ArchiveRepository{
		client: client,
		bucket: bucket,
		logger: logger,
	}
}

// EnsureBucket creates the archive bucket on first start.
func (r *ArchiveRepository) EnsureBucket(ctx context.Context) error {
	exists, err := r.client.BucketExists(ctx, r.bucket)
	if err != nil {
		return fmt.Errorf("%w: %w", archive.ErrBucketNotReady, err)
	}
	if exists {
		return nil
	}

	if err := r.client.MakeBucket(ctx, r.bucket, minio.MakeBucketOptions{}); err != nil {
		return fmt.Errorf("%w: %w", archive.ErrBucketNotReady, err)
	}

	r.logger.Info().Str("bucket", r.bucket).Msg("Archive bucket created")
	return nil
}

func (r *ArchiveRepository) SaveOriginal(ctx context.Context, job domain.Job, upload domain.Upload) (string, error) {
	if upload.Size() == 0 {
		return "", archive.ErrEmptyUpload
	}
	if !validJobID(job.ID) {
		return "", fmt.Errorf("%w: %q", archive.ErrInvalidJobID, job.ID)
	}

	objectName := originalObjectName(job.ID, upload.Filename)

	_, err := r.client.PutObject(ctx, r.bucket, objectName, bytes.NewReader(upload.Data), upload.Size(),
		minio.PutObjectOptions{
			ContentType: upload.ContentType,
			UserMetadata: map[string]string{
				"algorithm": job.Algorithm,
				"model":     job.Model,
				"scale":     strconv.Itoa(job.Scale),
			},
		})
	if err != nil {
		return "", fmt.Errorf("%w: %w", archive.ErrStorageError, err)
	}

	return objectName, nil
}

// validJobID accepts ids that stay a single path segment under originals/.
// The id comes from the enhancement service.
func validJobID(id string) bool {
	if id == "" || id == "." || id == ".." {
		return false
	}
	return !strings.ContainsAny(id, "/\\")
}

func originalObjectName(jobID, filename string) string {
	name := path.Base(strings.ReplaceAll(filename, "\\", "/"))
	if name == "." || name == "/" || name == "" {
		name = "upload"
	}
	return path.Join("originals", jobID, name)
}
