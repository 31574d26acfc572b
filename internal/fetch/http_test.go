package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testFetcher(opts Options) *HTTPFetcher {
	if opts.Backoff == 0 {
		opts.Backoff = time.Millisecond
	}
	return NewHTTPFetcher(opts)
}

func TestFetch_Success(t *testing.T) {
	var gotUA string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = r.Header.Get("User-Agent")
		_, _ = w.Write([]byte("twig binary"))
	}))
	defer srv.Close()

	f := testFetcher(Options{UserAgent: "binstall-test"})
	art, err := f.Fetch(context.Background(), srv.URL+"/twig.tar.gz")
	require.NoError(t, err)
	assert.Equal(t, []byte("twig binary"), art.Data)
	assert.Equal(t, srv.URL+"/twig.tar.gz", art.SourceURL)
	assert.Equal(t, "binstall-test", gotUA)
}

func TestFetch_FollowsRedirect(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/latest", func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/v1.0.0", http.StatusFound)
	})
	mux.HandleFunc("/v1.0.0", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("payload"))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	art, err := testFetcher(Options{}).Fetch(context.Background(), srv.URL+"/latest")
	require.NoError(t, err)
	assert.Equal(t, "payload", string(art.Data))
}

func TestFetch_StatusHandling(t *testing.T) {
	tests := []struct {
		name      string
		statuses  []int
		retries   int
		wantErr   bool
		wantCode  int
		wantCalls int32
	}{
		{name: "not_found_is_not_retried", statuses: []int{404}, retries: 3, wantErr: true, wantCode: 404, wantCalls: 1},
		{name: "forbidden_is_not_retried", statuses: []int{403}, retries: 3, wantErr: true, wantCode: 403, wantCalls: 1},
		{name: "server_error_then_success", statuses: []int{500, 502, 200}, retries: 3, wantCalls: 3},
		{name: "server_error_exhausts_retries", statuses: []int{503}, retries: 2, wantErr: true, wantCode: 503, wantCalls: 3},
		{name: "rate_limited_then_success", statuses: []int{429, 200}, retries: 1, wantCalls: 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				n := int(calls.Add(1)) - 1
				status := tt.statuses[len(tt.statuses)-1]
				if n < len(tt.statuses) {
					status = tt.statuses[n]
				}
				w.WriteHeader(status)
				if status == http.StatusOK {
					_, _ = w.Write([]byte("ok"))
				}
			}))
			defer srv.Close()

			art, err := testFetcher(Options{Retries: tt.retries}).Fetch(context.Background(), srv.URL)
			assert.Equal(t, tt.wantCalls, calls.Load())

			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "ok", string(art.Data))
				return
			}

			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFetch)

			var ferr *Error
			require.True(t, errors.As(err, &ferr))
			assert.Equal(t, tt.wantCode, ferr.StatusCode)
			assert.Equal(t, int(tt.wantCalls), ferr.Attempts)
			assert.Equal(t, srv.URL, ferr.URL)
		})
	}
}

func TestFetch_TooLarge(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(strings.Repeat("x", 100)))
	}))
	defer srv.Close()

	_, err := testFetcher(Options{MaxBytes: 10}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrTooLarge)
	assert.Equal(t, int32(1), calls.Load())
}

func TestFetch_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	_, err := testFetcher(Options{Timeout: 50 * time.Millisecond, NoRetry: true}).Fetch(context.Background(), srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
}

func TestFetch_ContextCancelled(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testFetcher(Options{}).Fetch(ctx, srv.URL)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, calls.Load())
}

func TestFetch_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "twig-1.0.0-linux-amd64")
	require.NoError(t, os.WriteFile(path, []byte("local artifact"), 0o644))

	fileURL := (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String()

	art, err := testFetcher(Options{}).Fetch(context.Background(), fileURL)
	require.NoError(t, err)
	assert.Equal(t, "local artifact", string(art.Data))

	_, err = testFetcher(Options{}).Fetch(context.Background(), fileURL+".missing")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = testFetcher(Options{MaxBytes: 4}).Fetch(context.Background(), fileURL)
	assert.ErrorIs(t, err, ErrTooLarge)
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	_, err := testFetcher(Options{}).Fetch(context.Background(), "ftp://example.com/twig")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFetch)
	assert.ErrorIs(t, err, ErrUnsupportedScheme)
}

func TestErrorMessage(t *testing.T) {
	err := &Error{URL: "https://example.com/twig", StatusCode: 404, Attempts: 1}
	assert.Equal(t, "fetch https://example.com/twig: unexpected status 404 Not Found", err.Error())

	err = &Error{URL: "https://example.com/twig", Err: errors.New("connection refused"), Attempts: 4}
	assert.Equal(t, "fetch https://example.com/twig: connection refused (after 4 attempts)", err.Error())
}
