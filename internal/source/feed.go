package source

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

const defaultFeedTimeout = 10 * time.Second

// feedStrategy discovers stubs from an RSS or Atom feed.
type feedStrategy struct {
	url     string
	client  httpclient.Client
	parser  *gofeed.Parser
	timeout time.Duration
}

func newFeedStrategy(cfg Config, client httpclient.Client) *feedStrategy {
	timeout := cfg.FeedTimeout
	if timeout <= 0 {
		timeout = defaultFeedTimeout
	}
	return &feedStrategy{
		url:     cfg.FeedURL,
		client:  client,
		parser:  gofeed.NewParser(),
		timeout: timeout,
	}
}

func (s *feedStrategy) name() string { return "feed" }

func (s *feedStrategy) discover(ctx context.Context) ([]domain.ArticleStub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Get(ctx, s.url, requestHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("feed returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	feed, err := s.parser.ParseString(string(resp.Body()))
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}

	stubs := make([]domain.ArticleStub, 0, len(feed.Items))
	for _, item := range feed.Items {
		link := strings.TrimSpace(item.Link)
		if link == "" {
			continue
		}

		title := strings.TrimSpace(item.Title)
		if title == "" {
			title = link
			if u, err := url.Parse(link); err == nil && u.Host != "" {
				title = u.Host
			}
		}

		stub := domain.ArticleStub{Title: title, URL: link}
		if item.PublishedParsed != nil {
			stub.PublishedAt = *item.PublishedParsed
		}
		stubs = append(stubs, stub)
	}
	return stubs, nil
}
