package enhancer

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/wb-go/wbf/zlog"
)

const (
	pathModels     = "/models"
	pathRunProcess = "/run_process"
	pathTasks      = "/tasks/{id}"

	defaultProgressInterval = 100 * time.Millisecond
)

type Options struct {
	BaseURL string
	Timeout time.Duration
	// Algorithms selects the per-algorithm catalog variant when set.
	Algorithms       []string
	ProgressInterval time.Duration
	// Transport overrides the HTTP transport, mainly for tests.
	Transport http.RoundTripper
}

// Client talks to the enhancement service. It never retries and never
// caches: every call is exactly one request.
type Client struct {
	http             *resty.Client
	algorithms       []string
	progressInterval time.Duration
	logger           *zlog.Zerolog
}

func NewClient(opts Options, logger *zlog.Zerolog) *Client {
	rc := resty.New().
		SetBaseURL(strings.TrimRight(opts.BaseURL, "/")).
		SetRetryCount(0).
		SetHeader("Accept", "application/json")

	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}

	base := opts.Transport
	if base == nil {
		base = rc.GetClient().Transport
	}
	if base == nil {
		base = http.DefaultTransport
	}
	rc.SetTransport(&progressTransport{base: base})

	interval := opts.ProgressInterval
	if interval <= 0 {
		interval = defaultProgressInterval
	}

	return &Client{
		http:             rc,
		algorithms:       opts.Algorithms,
		progressInterval: interval,
		logger:           logger,
	}
}
