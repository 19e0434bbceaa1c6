package enhancer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"image-enhancer/internal/domain"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wb-go/wbf/zlog"
)

func testLogger() *zlog.Zerolog {
	l := zerolog.Nop()
	return &l
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestClient(t *testing.T, handler http.Handler, opts Options) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	opts.BaseURL = srv.URL
	return NewClient(opts, testLogger())
}

func TestFetchCatalog(t *testing.T) {
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models", r.URL.Path)
		writeJSON(w, http.StatusOK, map[string][]string{
			"real-esrgan": {"x4_Anime_6B-Official"},
			"real-hatgan": {"x4_jp_Illustration-fix1", "x2_universal-fix1"},
		})
	}), Options{})

	cat, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)
	require.Len(t, cat.Algorithms, 2)
	assert.Equal(t, "real-esrgan", cat.Algorithms[0].Name)
	assert.Len(t, cat.Options(), 3)
}

func TestFetchCatalogPerAlgorithm(t *testing.T) {
	models := map[string][]string{
		"real-esrgan": {"x4_Anime_6B-Official"},
		"real-hatgan": {"x2_universal-fix1"},
	}
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		algo := r.URL.Query().Get("algo")
		writeJSON(w, http.StatusOK, models[algo])
	}), Options{Algorithms: []string{"real-esrgan", "real-hatgan"}})

	cat, err := client.FetchCatalog(context.Background())
	require.NoError(t, err)

	sel, err := cat.Lookup("real-hatgan:x2_universal-fix1")
	require.NoError(t, err)
	assert.Equal(t, "real-hatgan", sel.Algorithm)
}

func TestFetchCatalogFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"real-esrgan":`))
		}},
		{"empty catalog", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string][]string{})
		}},
		{"algorithm without models", func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusOK, map[string][]string{"real-esrgan": {}})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, Options{})
			cat, err := client.FetchCatalog(context.Background())
			assert.ErrorIs(t, err, ErrServiceUnavailable)
			assert.True(t, cat.IsEmpty())
		})
	}
}

func TestFetchCatalogNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: baseURL}, testLogger())
	_, err := client.FetchCatalog(context.Background())
	assert.ErrorIs(t, err, ErrServiceUnavailable)
}

func sampleRequest() domain.SubmissionRequest {
	return domain.SubmissionRequest{
		Image: domain.Upload{
			Filename:    "cat.png",
			ContentType: "image/png",
			Data:        bytes.Repeat([]byte{0x89, 'P', 'N', 'G'}, 256),
		},
		Selection: domain.Selection{Algorithm: "real-esrgan", Model: "x4_Anime_6B-Official"},
		Scale:     4,
	}
}

type progressRecorder struct {
	mu     sync.Mutex
	values []float64
}

func (p *progressRecorder) record(f float64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.values = append(p.values, f)
}

func (p *progressRecorder) last() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.values) == 0 {
		return 0
	}
	return p.values[len(p.values)-1]
}

func (p *progressRecorder) assertValid(t *testing.T) {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()

	require.NotEmpty(t, p.values)
	for i, v := range p.values {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 1.0)
		if i > 0 {
			assert.GreaterOrEqual(t, v, p.values[i-1])
		}
	}
	assert.Equal(t, 1.0, p.values[len(p.values)-1])
}

func TestSubmitEncodesFields(t *testing.T) {
	req := sampleRequest()

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/run_process", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))

		file, header, err := r.FormFile("image")
		require.NoError(t, err)
		defer file.Close()
		data, _ := io.ReadAll(file)

		assert.Equal(t, "cat.png", header.Filename)
		assert.Equal(t, "image/png", header.Header.Get("Content-Type"))
		assert.Equal(t, req.Image.Data, data)
		assert.Equal(t, "real-esrgan:x4_Anime_6B-Official", r.FormValue("model"))
		assert.Equal(t, "4", r.FormValue("scale"))
		_, hasSkipAlpha := r.MultipartForm.Value["isSkipAlpha"]
		assert.False(t, hasSkipAlpha)

		writeJSON(w, http.StatusCreated, map[string]string{"id": "job-1"})
	}), Options{})

	var progress progressRecorder
	job, err := client.Submit(context.Background(), req, progress.record)
	require.NoError(t, err)

	assert.Equal(t, "job-1", job.ID)
	assert.Empty(t, job.OutputURL)
	progress.assertValid(t)
}

func TestSubmitSkipAlpha(t *testing.T) {
	req := sampleRequest()
	req.SkipAlpha = true

	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "true", r.FormValue("isSkipAlpha"))
		writeJSON(w, http.StatusOK, map[string]string{"id": "job-2", "outputUrl": "http://cdn/out.png"})
	}), Options{})

	job, err := client.Submit(context.Background(), req, nil)
	require.NoError(t, err)
	assert.Equal(t, "http://cdn/out.png", job.OutputURL)
}

func TestSubmitFailures(t *testing.T) {
	tests := []struct {
		name       string
		handler    http.HandlerFunc
		status     int
		message    string
		structured bool
	}{
		{
			name: "structured error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "A process is already running."})
			},
			status:     http.StatusBadRequest,
			message:    "A process is already running.",
			structured: true,
		},
		{
			name: "detail error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "CUDA out of memory"})
			},
			status:     http.StatusInternalServerError,
			message:    "CUDA out of memory",
			structured: true,
		},
		{
			name: "plain error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, "boom", http.StatusBadGateway)
			},
			status:  http.StatusBadGateway,
			message: genericSubmissionMessage,
		},
		{
			name: "missing id",
			handler: func(w http.ResponseWriter, r *http.Request) {
				writeJSON(w, http.StatusCreated, map[string]string{})
			},
			status:  http.StatusCreated,
			message: genericSubmissionMessage,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, tt.handler, Options{})

			_, err := client.Submit(context.Background(), sampleRequest(), nil)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSubmissionFailed)

			var subErr *SubmissionError
			require.True(t, errors.As(err, &subErr))
			assert.Equal(t, tt.status, subErr.StatusCode)
			assert.Equal(t, tt.message, subErr.Message)
			assert.Equal(t, tt.structured, subErr.Structured)
		})
	}
}

func TestSubmitNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: baseURL}, testLogger())

	var progress progressRecorder
	_, err := client.Submit(context.Background(), sampleRequest(), progress.record)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubmissionFailed)

	var subErr *SubmissionError
	require.True(t, errors.As(err, &subErr))
	assert.Zero(t, subErr.StatusCode)
	assert.Equal(t, genericSubmissionMessage, subErr.Message)
}

// slowTransport drains the request body in small chunks so the progress
// poller observes intermediate fractions.
type slowTransport struct {
	progress      *progressRecorder
	contentLength int64
	read          int64
	// progressAtStart is the last fraction reported before the body
	// was touched.
	progressAtStart float64
}

func (s *slowTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	s.contentLength = req.ContentLength
	if s.progress != nil {
		s.progressAtStart = s.progress.last()
	}

	buf := make([]byte, 1024)
	for {
		n, err := req.Body.Read(buf)
		s.read += int64(n)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		time.Sleep(2 * time.Millisecond)
	}

	return &http.Response{
		StatusCode: http.StatusCreated,
		Header:     http.Header{"Content-Type": []string{"application/json"}},
		Body:       io.NopCloser(strings.NewReader(`{"id":"slow-job"}`)),
		Request:    req,
	}, nil
}

func TestSubmitReportsIntermediateProgress(t *testing.T) {
	req := sampleRequest()
	req.Image.Data = bytes.Repeat([]byte{1}, 64*1024)

	var progress progressRecorder
	transport := &slowTransport{progress: &progress}
	client := NewClient(Options{
		BaseURL:          "http://enhancer.test",
		ProgressInterval: time.Millisecond,
		Transport:        transport,
	}, testLogger())

	job, err := client.Submit(context.Background(), req, progress.record)
	require.NoError(t, err)
	assert.Equal(t, "slow-job", job.ID)

	progress.assertValid(t)
	assert.Greater(t, len(progress.values), 2)
	assert.Zero(t, transport.progressAtStart, "nothing may be reported as sent before the transport reads the body")
	assert.Positive(t, transport.contentLength)
	assert.Equal(t, transport.read, transport.contentLength)
}

func TestSubmitSendsContentLength(t *testing.T) {
	req := sampleRequest()

	var (
		contentLength int64
		encoding      []string
	)
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		contentLength = r.ContentLength
		encoding = r.TransferEncoding
		_, _ = io.Copy(io.Discard, r.Body)
		writeJSON(w, http.StatusCreated, map[string]string{"id": "sized"})
	}), Options{})

	_, err := client.Submit(context.Background(), req, nil)
	require.NoError(t, err)

	assert.Positive(t, contentLength)
	assert.NotContains(t, encoding, "chunked")
}

func TestProgressTransportLeavesOtherRequestsAlone(t *testing.T) {
	var seen io.ReadCloser
	base := roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Body
		return &http.Response{StatusCode: http.StatusOK, Body: http.NoBody, Request: r}, nil
	})
	transport := &progressTransport{base: base}

	body := io.NopCloser(strings.NewReader("payload"))
	r, err := http.NewRequest(http.MethodPost, "http://enhancer.test/x", body)
	require.NoError(t, err)

	_, err = transport.RoundTrip(r)
	require.NoError(t, err)
	_, isCounted := seen.(*countingBody)
	assert.False(t, isCounted)

	counter := newUploadCounter(7)
	r = r.WithContext(withUploadCounter(context.Background(), counter))
	_, err = transport.RoundTrip(r)
	require.NoError(t, err)
	_, isCounted = seen.(*countingBody)
	assert.True(t, isCounted)

	_, _ = io.ReadAll(seen)
	assert.Equal(t, 1.0, counter.fraction())
}

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func TestResolve(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		switch r.URL.Path {
		case "/tasks/xyz":
			writeJSON(w, http.StatusOK, map[string]any{
				"id":        "xyz",
				"status":    "finished",
				"outputUrl": "http://localhost:9000/static/xyz/out.png",
				"model":     "x4_Anime_6B-Official",
				"algo":      "real-esrgan",
				"scale":     4,
				"input":     "cat.png",
			})
		case "/tasks/busy":
			writeJSON(w, http.StatusOK, map[string]any{"id": "busy", "status": "processing"})
		case "/tasks/odd":
			writeJSON(w, http.StatusOK, map[string]any{})
		case "/tasks/broken":
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"outputUrl":`))
		case "/tasks/fail":
			writeJSON(w, http.StatusInternalServerError, map[string]string{"detail": "disk full"})
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"detail": "Task not found."})
		}
	}), Options{})
	ctx := context.Background()

	job, err := client.Resolve(ctx, "xyz")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9000/static/xyz/out.png", job.OutputURL)
	assert.Equal(t, "real-esrgan", job.Algorithm)
	assert.Equal(t, 4, job.Scale)
	assert.Equal(t, "cat.png", job.Input)

	_, err = client.Resolve(ctx, "abc123")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NotErrorIs(t, err, ErrServiceError)

	_, err = client.Resolve(ctx, "busy")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, err, ErrNotReady)

	for _, id := range []string{"odd", "broken", "fail"} {
		_, err = client.Resolve(ctx, id)
		assert.ErrorIs(t, err, ErrServiceError, id)
		assert.NotErrorIs(t, err, ErrNotFound, id)
	}

	var svcErr *ServiceError
	_, err = client.Resolve(ctx, "fail")
	require.True(t, errors.As(err, &svcErr))
	assert.Equal(t, http.StatusInternalServerError, svcErr.StatusCode)
	assert.Equal(t, "disk full", svcErr.Message)
}

func TestResolveIsNotCached(t *testing.T) {
	var calls atomic.Int32
	client := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeJSON(w, http.StatusOK, map[string]string{"outputUrl": "http://cdn/x.png"})
	}), Options{})

	for i := 0; i < 2; i++ {
		_, err := client.Resolve(context.Background(), "xyz")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(2), calls.Load())
}

func TestResolveNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	baseURL := srv.URL
	srv.Close()

	client := NewClient(Options{BaseURL: baseURL}, testLogger())
	_, err := client.Resolve(context.Background(), "xyz")
	assert.ErrorIs(t, err, ErrServiceError)
	assert.NotErrorIs(t, err, ErrNotFound)
}
