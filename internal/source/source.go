// Package source discovers candidate articles from the configured news
// site. Discovery strategies run in priority order: the RSS/Atom feed,
// the Google News sitemap, then the HTML listing-page fallback. The
// first strategy that yields anything wins.
package source

import (
	"context"
	"errors"
	"net/url"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

// ErrNoArticles is returned when every configured strategy came back
// empty or failed. A run cannot proceed without source articles.
var ErrNoArticles = errors.New("source: no articles discovered")

const (
	defaultMaxArticles = 5
	maxHTMLBodyBytes   = 1 << 20 // 1 MiB
)

// Config selects the source endpoints. Strategies whose URL is empty
// are not wired.
type Config struct {
	// Name labels the source in logs and published events.
	Name string

	FeedURL    string
	SitemapURL string
	ListingURL string

	// ListingSelectors overrides the built-in listing selector
	// strategies.
	ListingSelectors []string

	// MaxArticles caps how many stubs a run processes.
	MaxArticles int

	FeedTimeout    time.Duration
	ListingTimeout time.Duration
}

// strategy is one way of discovering article stubs.
type strategy interface {
	name() string
	discover(ctx context.Context) ([]domain.ArticleStub, error)
}

// Fetcher runs the configured discovery strategies in order.
type Fetcher struct {
	strategies []strategy
	log        logger.Logger
	max        int
}

// NewFetcher wires the strategies implied by the config. Per-strategy
// timeouts are enforced through request contexts, so a nil client
// falls back to a generously capped default.
func NewFetcher(cfg Config, client httpclient.Client, log logger.Logger) *Fetcher {
	if client == nil {
		client = DefaultHTTPClient()
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	max := cfg.MaxArticles
	if max <= 0 {
		max = defaultMaxArticles
	}

	var strategies []strategy
	if strings.TrimSpace(cfg.FeedURL) != "" {
		strategies = append(strategies, newFeedStrategy(cfg, client))
	}
	if strings.TrimSpace(cfg.SitemapURL) != "" {
		strategies = append(strategies, newSitemapStrategy(cfg, client))
	}
	if strings.TrimSpace(cfg.ListingURL) != "" {
		strategies = append(strategies, newListingStrategy(cfg, client))
	}

	return &Fetcher{strategies: strategies, log: log, max: max}
}

// DefaultHTTPClient returns a tuned client for source discovery.
func DefaultHTTPClient() httpclient.Client { return httpclient.NewRestyClient(30 * time.Second) }

// Fetch returns up to MaxArticles stubs from the first strategy that
// yields any. A strategy failure is logged and falls through to the
// next strategy; only a fully empty chain is an error.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.ArticleStub, error) {
	for _, s := range f.strategies {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		stubs, err := s.discover(ctx)
		if err != nil {
			f.log.WarnObj("source strategy failed", "source_strategy_error", map[string]any{
				"strategy": s.name(),
				"error":    err.Error(),
			})
			continue
		}
		if len(stubs) == 0 {
			f.log.WarnObj("source strategy found nothing", "source_strategy_empty", map[string]any{
				"strategy": s.name(),
			})
			continue
		}

		if len(stubs) > f.max {
			stubs = stubs[:f.max]
		}
		f.log.InfoObj("source articles discovered", "source_ok", map[string]any{
			"strategy": s.name(),
			"count":    len(stubs),
		})
		return stubs, nil
	}

	return nil, ErrNoArticles
}

// requestHeaders mimics a desktop browser; several news sites serve an
// empty shell to unknown agents.
func requestHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
}

// responseSnippet returns a truncated snippet of the response body for
// error messages.
func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}

// resolveURL resolves a possibly relative URL against a base URL.
func resolveURL(raw, base string) string {
	if raw == "" {
		return ""
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	if parsed.IsAbs() {
		return parsed.String()
	}

	baseURL, err := url.Parse(base)
	if err != nil {
		return raw
	}

	return baseURL.ResolveReference(parsed).String()
}

// isAbsoluteHTTP reports whether raw is a fully qualified http(s) URL.
func isAbsoluteHTTP(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
