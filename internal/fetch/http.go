package fetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/ZebulonRouseFrantzich/binstall/internal/logger"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 5 * time.Minute
	// DefaultRetries is the default number of retries after a failed attempt
	DefaultRetries = 3
	// DefaultUserAgent is the User-Agent header sent with requests
	DefaultUserAgent = "binstall/1.0"
	// DefaultMaxBytes bounds the size of a single artifact
	DefaultMaxBytes int64 = 512 << 20
	// DefaultBackoff is the delay before the first retry; it doubles each attempt
	DefaultBackoff = time.Second

	maxRedirects = 10
)

// Options configures an HTTPFetcher. Zero values select the defaults.
type Options struct {
	Timeout   time.Duration
	Retries   int
	UserAgent string
	MaxBytes  int64
	Backoff   time.Duration
	// Progress draws a progress bar on stderr when it is a terminal.
	Progress bool
	// NoRetry disables retries regardless of Retries.
	NoRetry bool
}

// HTTPFetcher fetches http, https and file URLs.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	retries   int
	maxBytes  int64
	backoff   time.Duration
	progress  bool
}

// NewHTTPFetcher creates a fetcher.
func NewHTTPFetcher(opts Options) *HTTPFetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Retries <= 0 {
		opts.Retries = DefaultRetries
	}
	if opts.NoRetry {
		opts.Retries = 0
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.MaxBytes <= 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.Backoff <= 0 {
		opts.Backoff = DefaultBackoff
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return fmt.Errorf("stopped after %d redirects", maxRedirects)
				}
				return nil
			},
		},
		userAgent: opts.UserAgent,
		retries:   opts.Retries,
		maxBytes:  opts.MaxBytes,
		backoff:   opts.Backoff,
		progress:  opts.Progress,
	}
}

// Fetch retrieves rawURL. Transport errors and 5xx responses are retried with
// exponential backoff; 4xx responses, oversized artifacts and cancellation
// are not.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (*Artifact, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("parse url: %w", err)}
	}

	switch u.Scheme {
	case "file":
		return f.fetchFile(ctx, rawURL, u)
	case "http", "https":
		return f.fetchHTTP(ctx, rawURL)
	default:
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("%w: %q", ErrUnsupportedScheme, u.Scheme)}
	}
}

func (f *HTTPFetcher) fetchHTTP(ctx context.Context, rawURL string) (*Artifact, error) {
	var lastErr *Error

	for attempt := 0; attempt <= f.retries; attempt++ {
		if ctx.Err() != nil {
			return nil, &Error{URL: rawURL, Attempts: attempt, Err: ctx.Err()}
		}

		if attempt > 0 {
			backoff := f.backoff << uint(attempt-1)
			logger.WarnKV(ctx, "retrying download", "url", rawURL, "attempt", attempt+1, "backoff", backoff, "error", lastErr)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, &Error{URL: rawURL, Attempts: attempt, Err: ctx.Err()}
			}
		}

		data, ferr := f.fetchOnce(ctx, rawURL)
		if ferr == nil {
			logger.DebugKV(ctx, "download complete", "url", rawURL, "bytes", len(data), "attempts", attempt+1)
			return &Artifact{Data: data, SourceURL: rawURL}, nil
		}

		ferr.Attempts = attempt + 1
		lastErr = ferr

		if ctx.Err() != nil {
			ferr.Err = ctx.Err()
			return nil, ferr
		}
		if !retryable(ferr) {
			return nil, ferr
		}
	}

	return nil, lastErr
}

// fetchOnce performs a single download attempt
func (f *HTTPFetcher) fetchOnce(ctx context.Context, rawURL string) ([]byte, *Error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("create request: %w", err)}
	}

	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &Error{URL: rawURL, StatusCode: resp.StatusCode}
	}

	if resp.ContentLength > f.maxBytes {
		return nil, &Error{URL: rawURL, Err: fmt.Errorf("%w: %d bytes > %d", ErrTooLarge, resp.ContentLength, f.maxBytes)}
	}

	var body io.Reader = resp.Body
	if f.progress && resp.ContentLength > 0 {
		var done func()
		body, done = progress(body, resp.ContentLength)
		defer done()
	}

	data, err := readLimited(body, f.maxBytes)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	return data, nil
}

func (f *HTTPFetcher) fetchFile(ctx context.Context, rawURL string, u *url.URL) (*Artifact, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	path := u.Path
	if path == "" {
		path = u.Opaque
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}
	defer file.Close()

	data, err := readLimited(file, f.maxBytes)
	if err != nil {
		return nil, &Error{URL: rawURL, Err: err}
	}

	logger.DebugKV(ctx, "read local artifact", "path", path, "bytes", len(data))
	return &Artifact{Data: data, SourceURL: rawURL}, nil
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if int64(len(data)) > limit {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrTooLarge, limit)
	}
	return data, nil
}

func retryable(err *Error) bool {
	if errors.Is(err.Err, ErrTooLarge) {
		return false
	}
	if err.StatusCode != 0 {
		return err.StatusCode >= 500 || err.StatusCode == http.StatusTooManyRequests
	}
	return true
}
