package presentation

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"image-enhancer/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModeFromRequest(t *testing.T) {
	tests := []struct {
		name    string
		headers map[string]string
		want    Mode
	}{
		{"direct load", nil, Standalone},
		{"in-app navigation", map[string]string{"HX-Request": "true", "HX-Target": "overlay"}, Overlay},
		{"htmx aimed elsewhere", map[string]string{"HX-Request": "true", "HX-Target": "main"}, Standalone},
		{"htmx without target", map[string]string{"HX-Request": "true"}, Standalone},
		{"history restore", map[string]string{"HX-Request": "true", "HX-Target": "overlay", "HX-History-Restore-Request": "true"}, Standalone},
		{"spoofed target only", map[string]string{"HX-Target": "overlay"}, Standalone},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodGet, "/tasks/xyz", nil)
			for k, v := range tt.headers {
				r.Header.Set(k, v)
			}
			assert.Equal(t, tt.want, ModeFromRequest(r))
		})
	}
}

type resolverFunc func(ctx context.Context, id string) (domain.Job, error)

func (f resolverFunc) Resolve(ctx context.Context, id string) (domain.Job, error) {
	return f(ctx, id)
}

func TestResolve(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, id string) (domain.Job, error) {
		return domain.Job{
			ID:        id,
			OutputURL: "http://localhost:9000/static/xyz/out.png?sig=1",
			Algorithm: "real-esrgan",
			Model:     "x4_Anime_6B-Official",
			Scale:     4,
			Input:     "cat.png",
		}, nil
	})

	view, err := Resolve(context.Background(), resolver, "xyz")
	require.NoError(t, err)

	assert.Equal(t, "Processed Image", view.Title)
	assert.Equal(t, "http://localhost:9000/static/xyz/out.png?sig=1", view.Job.OutputURL)
	assert.Equal(t, "out.png", view.DownloadName)
	assert.Equal(t, "real-esrgan:x4_Anime_6B-Official · x4 · cat.png", view.Caption)
}

func TestResolveMinimalJob(t *testing.T) {
	resolver := resolverFunc(func(_ context.Context, id string) (domain.Job, error) {
		return domain.Job{ID: id, OutputURL: "http://cdn/"}, nil
	})

	view, err := Resolve(context.Background(), resolver, "xyz")
	require.NoError(t, err)
	assert.Empty(t, view.Caption)
	assert.Equal(t, "xyz", view.DownloadName)
}

func TestResolvePassesErrorsThrough(t *testing.T) {
	notFound := errors.New("not found")
	resolver := resolverFunc(func(context.Context, string) (domain.Job, error) {
		return domain.Job{}, notFound
	})

	_, err := Resolve(context.Background(), resolver, "abc123")
	assert.ErrorIs(t, err, notFound)
}
