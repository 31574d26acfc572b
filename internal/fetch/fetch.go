// Package fetch retrieves release artifacts over HTTP(S) or from the local
// filesystem. Fetched bytes are held in memory and never cached to disk: an
// artifact lives only until it is verified and installed or rejected.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// ErrFetch is matched by every retrieval failure.
var ErrFetch = errors.New("fetch failed")

var (
	ErrUnsupportedScheme = errors.New("unsupported url scheme")
	ErrTooLarge          = errors.New("artifact exceeds size limit")
)

// Artifact is a fetched payload and where it came from.
type Artifact struct {
	Data      []byte
	SourceURL string
}

// Fetcher retrieves the bytes at a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (*Artifact, error)
}

// Error describes a failed retrieval. StatusCode is set when the server
// answered with a non-success status.
type Error struct {
	URL        string
	StatusCode int
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	msg := "fetch " + e.URL
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(": unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	} else if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Attempts > 1 {
		msg += fmt.Sprintf(" (after %d attempts)", e.Attempts)
	}
	return msg
}

// Unwrap returns the transport cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is ErrFetch.
func (e *Error) Is(target error) bool {
	return target == ErrFetch
}
