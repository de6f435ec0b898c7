package fetch

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/openspatial/spatial-cli/internal/resilience"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	Timeout   time.Duration
	Retry     resilience.Config

	// PerHostRate is the request rate applied to each host. Default: 10/s
	// with burst 10.
	PerHostRate rate.Limit
	Burst       int
}

// HTTPFetcher downloads files over HTTP with per-host rate limiting and
// retry on transient failures.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates an HTTP fetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "spatial-cli/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.PerHostRate == 0 {
		opts.PerHostRate = 10
	}
	if opts.Burst == 0 {
		opts.Burst = 10
	}
	return &HTTPFetcher{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		lim = rate.NewLimiter(f.opts.PerHostRate, f.opts.Burst)
		f.limiters[host] = lim
	}
	return lim
}

// Download fetches rawURL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	lim := f.limiterFor(rawURL)

	return resilience.DoVal(ctx, f.opts.Retry, "http download",
		func(ctx context.Context) (io.ReadCloser, error) {
			if err := lim.Wait(ctx); err != nil {
				return nil, eris.Wrap(err, "fetch: rate limiter wait")
			}

			req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
			if err != nil {
				return nil, eris.Wrapf(err, "fetch: build request for %s", rawURL)
			}
			req.Header.Set("User-Agent", f.opts.UserAgent)

			resp, err := f.client.Do(req)
			if err != nil {
				return nil, eris.Wrapf(err, "fetch: get %s", rawURL)
			}
			if resp.StatusCode != http.StatusOK {
				_ = resp.Body.Close()
				err := eris.Errorf("fetch: status %d from %s", resp.StatusCode, rawURL)
				if resilience.RetryableStatus(resp.StatusCode) {
					return nil, resilience.MarkTransient(err)
				}
				return nil, err
			}
			return resp.Body, nil
		})
}

// DownloadToFile fetches rawURL and writes it to path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	file, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "fetch: create %s", path)
	}
	defer file.Close() //nolint:errcheck

	n, err := io.Copy(file, body)
	if err != nil {
		return n, eris.Wrapf(err, "fetch: write %s", path)
	}

	zap.L().Debug("fetch: downloaded",
		zap.String("url", rawURL),
		zap.String("path", path),
		zap.Int64("bytes", n),
	)
	return n, nil
}
