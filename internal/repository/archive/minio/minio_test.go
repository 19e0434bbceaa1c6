package minio

import (
	"context"
	"errors"
	"io"
	"testing"

	"image-enhancer/internal/domain"
	"image-enhancer/internal/repository/archive"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	exists  bool
	made    []string
	objects map[string][]byte
	opts    minio.PutObjectOptions
	putErr  error
}

func (f *fakeStore) BucketExists(context.Context, string) (bool, error) {
	return f.exists, nil
}

func (f *fakeStore) MakeBucket(_ context.Context, bucket string, _ minio.MakeBucketOptions) error {
	f.made = append(f.made, bucket)
	return nil
}

func (f *fakeStore) PutObject(_ context.Context, _, objectName string, reader io.Reader, _ int64, opts minio.PutObjectOptions) (minio.UploadInfo, error) {
	if f.putErr != nil {
		return minio.UploadInfo{}, f.putErr
	}
	data, _ := io.ReadAll(reader)
	if f.objects == nil {
		f.objects = make(map[string][]byte)
	}
	f.objects[objectName] = data
	f.opts = opts
	return minio.UploadInfo{Key: objectName, Size: int64(len(data))}, nil
}

func newTestRepository(store objectStore) *ArchiveRepository {
	logger := zerolog.Nop()
	return &ArchiveRepository{client: store, bucket: "submissions", logger: &logger}
}

func TestEnsureBucket(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepository(store)

	require.NoError(t, repo.EnsureBucket(context.Background()))
	assert.Equal(t, []string{"submissions"}, store.made)

	store.exists = true
	store.made = nil
	require.NoError(t, repo.EnsureBucket(context.Background()))
	assert.Empty(t, store.made)
}

func TestSaveOriginal(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepository(store)

	job := domain.Job{ID: "job-1", Algorithm: "real-esrgan", Model: "x4_Anime_6B-Official", Scale: 4}
	upload := domain.Upload{Filename: `C:\photos\cat.png`, ContentType: "image/png", Data: []byte("png")}

	name, err := repo.SaveOriginal(context.Background(), job, upload)
	require.NoError(t, err)

	assert.Equal(t, "originals/job-1/cat.png", name)
	assert.Equal(t, []byte("png"), store.objects[name])
	assert.Equal(t, "image/png", store.opts.ContentType)
	assert.Equal(t, "4", store.opts.UserMetadata["scale"])
}

func TestSaveOriginalErrors(t *testing.T) {
	repo := newTestRepository(&fakeStore{putErr: errors.New("connection refused")})
	job := domain.Job{ID: "job-1"}

	_, err := repo.SaveOriginal(context.Background(), job, domain.Upload{Filename: "a.png"})
	assert.ErrorIs(t, err, archive.ErrEmptyUpload)

	_, err = repo.SaveOriginal(context.Background(), job, domain.Upload{Filename: "a.png", Data: []byte{1}})
	assert.ErrorIs(t, err, archive.ErrStorageError)
}

func TestSaveOriginalRejectsUnsafeJobIDs(t *testing.T) {
	store := &fakeStore{}
	repo := newTestRepository(store)
	upload := domain.Upload{Filename: "a.png", Data: []byte{1}}

	for _, id := range []string{"", ".", "..", "../../etc", "a/b", `..\x`} {
		_, err := repo.SaveOriginal(context.Background(), domain.Job{ID: id}, upload)
		assert.ErrorIs(t, err, archive.ErrInvalidJobID, id)
	}
	assert.Empty(t, store.objects)
}

func TestOriginalObjectName(t *testing.T) {
	assert.Equal(t, "originals/x/upload", originalObjectName("x", ""))
	assert.Equal(t, "originals/x/b.png", originalObjectName("x", "../../b.png"))
}
