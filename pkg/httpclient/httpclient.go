// Package httpclient wraps outbound HTTP behind a minimal interface so
// fetchers and scrapers can be tested against stub transports.
package httpclient

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

// Response is the subset of an HTTP response the fetch paths consume.
// *resty.Response satisfies it as-is.
type Response interface {
	StatusCode() int
	Body() []byte
}

// Client issues GET requests with per-request headers. Implementations
// must honor context cancellation.
type Client interface {
	Get(ctx context.Context, url string, headers map[string]string) (Response, error)
}

// RestyClient is the production Client backed by resty.
type RestyClient struct {
	rc *resty.Client
}

// NewRestyClient returns a RestyClient with the given total request
// timeout. Redirects are followed; non-2xx statuses are returned to the
// caller, not turned into errors.
func NewRestyClient(timeout time.Duration) *RestyClient {
	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept-Encoding", "gzip")
	return &RestyClient{rc: rc}
}

func (c *RestyClient) Get(ctx context.Context, url string, headers map[string]string) (Response, error) {
	resp, err := c.rc.R().
		SetContext(ctx).
		SetHeaders(headers).
		Get(url)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", url, err)
	}
	return resp, nil
}
