package publishers

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

// httpArticle is the body posted to HTTP sinks.
type httpArticle struct {
	Title     string `json:"title"`
	Text      string `json:"text"`
	ImageLink string `json:"image_link"`
}

// httpResult is the subset of the sink response the publisher inspects.
type httpResult struct {
	Success *bool  `json:"success"`
	Error   string `json:"error"`
}

// httpPublisher posts articles to a generic HTTP sink such as the
// content store.
type httpPublisher struct {
	id     string
	typ    string
	cfg    HTTPPublisherConfig
	client *resty.Client
	log    Logger
}

// newHTTPPublisher creates an HTTP publisher from the config entry.
func newHTTPPublisher(_ context.Context, cfg PublisherConfig, log Logger) (Publisher, error) {
	if cfg.HTTP == nil {
		return nil, fmt.Errorf("publisher %q missing http configuration", cfg.ID)
	}

	client := resty.New().SetTimeout(time.Duration(cfg.HTTP.TimeoutSeconds) * time.Second)

	return &httpPublisher{
		id:     cfg.ID,
		typ:    cfg.Type,
		cfg:    *cfg.HTTP,
		client: client,
		log:    ensureLogger(log),
	}, nil
}

func (p *httpPublisher) ID() string   { return p.id }
func (p *httpPublisher) Type() string { return p.typ }

// Publish posts the article fields to the sink and verifies that the
// sink acknowledged the write. A 2xx status alone is not enough: the
// response must carry a true success flag and no error field.
func (p *httpPublisher) Publish(ctx context.Context, evt Event) error {
	body := httpArticle{Title: evt.Title, Text: evt.Text, ImageLink: evt.ImageLink}

	req := p.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetHeaders(p.cfg.Headers).
		SetBody(body)

	resp, err := req.Execute(p.cfg.Method, p.cfg.URL)
	if err != nil {
		p.log.ErrorObj("http publisher request failed", "publisher_http_error", map[string]any{
			"url":   p.cfg.URL,
			"error": err.Error(),
		})
		return fmt.Errorf("post article to %s: %w", p.cfg.URL, err)
	}

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		return fmt.Errorf("http sink %s returned status %d: %s", p.cfg.URL, resp.StatusCode(), httpResponseSnippet(resp.Body()))
	}

	var result httpResult
	if err := json.Unmarshal(resp.Body(), &result); err != nil {
		return fmt.Errorf("http sink %s returned unreadable response: %s", p.cfg.URL, httpResponseSnippet(resp.Body()))
	}
	if result.Error != "" {
		return fmt.Errorf("http sink %s rejected article: %s", p.cfg.URL, result.Error)
	}
	if result.Success == nil || !*result.Success {
		return fmt.Errorf("http sink %s did not confirm the write", p.cfg.URL)
	}

	p.log.DebugObj("http publisher delivered article", "publisher_http_delivery", map[string]any{
		"url":    p.cfg.URL,
		"status": resp.StatusCode(),
	})
	return nil
}

// httpResponseSnippet returns a truncated snippet of the response body
// for error messages.
func httpResponseSnippet(body []byte) string {
	const limit = 512
	s := strings.TrimSpace(string(body))
	if s == "" {
		return "<empty>"
	}
	if len(s) > limit {
		return s[:limit] + "..."
	}
	return s
}
