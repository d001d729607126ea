//go:generate mockgen -destination=./mocks/mirror.go -package=mocks . Fetcher

package mirror

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/glorpus-work/chanmirror/pkg/auth"
	"github.com/glorpus-work/chanmirror/pkg/errors"
)

// Fetcher streams one remote artifact into w and returns the number of bytes
// written. Implementations must honor ctx cancellation.
type Fetcher interface {
	Fetch(ctx context.Context, u *url.URL, w io.Writer) (int64, error)
}

// HTTPFetcher is the production Fetcher: a plain HTTP GET with a request
// timeout and a User-Agent header.
type HTTPFetcher struct {
	client    *http.Client
	userAgent string
	auth      *auth.Registry
}

// NewHTTPFetcher creates an HTTP fetcher with the given timeout and user agent.
func NewHTTPFetcher(timeout time.Duration, userAgent string) *HTTPFetcher {
	if userAgent == "" {
		userAgent = "chanmirror/1.0"
	}
	return &HTTPFetcher{
		client:    &http.Client{Timeout: timeout},
		userAgent: userAgent,
	}
}

// WithAuth attaches per-host credentials for private channel servers.
func (f *HTTPFetcher) WithAuth(registry *auth.Registry) *HTTPFetcher {
	f.auth = registry
	return f
}

// Fetch performs the GET request and streams the body into w.
func (f *HTTPFetcher) Fetch(ctx context.Context, u *url.URL, w io.Writer) (int64, error) {
	if u == nil {
		return 0, fmt.Errorf("nil URL: %w", errors.ErrDownloadFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), http.NoBody)
	if err != nil {
		return 0, errors.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", f.userAgent)
	if err := f.auth.Apply(req); err != nil {
		return 0, errors.Wrap(err, "failed to apply credentials")
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return 0, errors.Wrap(err, "download failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("unexpected status code: %d: %w", resp.StatusCode, errors.ErrDownloadFailed)
	}

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, errors.Wrap(err, "could not write file")
	}
	return n, nil
}
