// Package httpx builds the HTTP client the API client talks through.
package httpx

import (
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

type Options struct {
	Timeout  time.Duration
	RetryMax int
	WaitMin  time.Duration
	WaitMax  time.Duration
	Logger   zerolog.Logger
}

// NewClient returns a client that retries GET/HEAD requests on transport
// errors, 429 and 5xx. Mutations are sent exactly once; a retried POST could
// create a duplicate run.
func NewClient(opts Options) *http.Client {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.RetryMax < 0 {
		opts.RetryMax = 0
	}
	if opts.WaitMin <= 0 {
		opts.WaitMin = 250 * time.Millisecond
	}
	if opts.WaitMax <= 0 {
		opts.WaitMax = 2 * time.Second
	}

	rc := retryablehttp.NewClient()
	rc.RetryMax = opts.RetryMax
	rc.RetryWaitMin = opts.WaitMin
	rc.RetryWaitMax = opts.WaitMax
	rc.Logger = leveledLogger{log: opts.Logger.With().Str("component", "http").Logger()}
	rc.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &http.Client{
		Timeout: opts.Timeout,
		Transport: methodRouter{
			retry: &retryablehttp.RoundTripper{Client: rc},
			plain: rc.HTTPClient.Transport,
		},
	}
}

type methodRouter struct {
	retry http.RoundTripper
	plain http.RoundTripper
}

func (m methodRouter) RoundTrip(req *http.Request) (*http.Response, error) {
	switch req.Method {
	case http.MethodGet, http.MethodHead:
		return m.retry.RoundTrip(req)
	default:
		return m.plain.RoundTrip(req)
	}
}

// leveledLogger adapts zerolog to retryablehttp.LeveledLogger. Per-request
// debug chatter is dropped; retries surface at warn.
type leveledLogger struct {
	log zerolog.Logger
}

func (l leveledLogger) Error(msg string, keysAndValues ...interface{}) {
	l.log.Error().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l leveledLogger) Debug(msg string, keysAndValues ...interface{}) {}

func (l leveledLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.log.Warn().Fields(keysAndValues).Msg(msg)
}
