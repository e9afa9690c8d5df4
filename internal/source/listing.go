package source

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

const (
	defaultListingTimeout = 15 * time.Second

	// minTitleRunes filters navigation anchors ("More", "Sports")
	// out of the listing scrape. Real headlines are longer.
	minTitleRunes = 10
)

// defaultListingSelectors are tried in order against the listing page.
// They cover the markup of the common news themes.
var defaultListingSelectors = []string{
	"article h2 a",
	"article h3 a",
	"h2.entry-title a",
	"h3.entry-title a",
	".td_module_wrap .entry-title a",
	".post-title a",
	"a[rel=bookmark]",
}

// listingStrategy scrapes headline anchors off the site's listing page
// when no structured source is available.
type listingStrategy struct {
	url       string
	client    httpclient.Client
	selectors []string
	timeout   time.Duration
}

func newListingStrategy(cfg Config, client httpclient.Client) *listingStrategy {
	selectors := cfg.ListingSelectors
	if len(selectors) == 0 {
		selectors = defaultListingSelectors
	}
	timeout := cfg.ListingTimeout
	if timeout <= 0 {
		timeout = defaultListingTimeout
	}
	return &listingStrategy{
		url:       cfg.ListingURL,
		client:    client,
		selectors: selectors,
		timeout:   timeout,
	}
}

func (s *listingStrategy) name() string { return "listing" }

func (s *listingStrategy) discover(ctx context.Context) ([]domain.ArticleStub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	resp, err := s.client.Get(ctx, s.url, requestHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch listing: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("listing returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing html: %w", err)
	}

	for _, selector := range s.selectors {
		if stubs := s.collect(doc, selector); len(stubs) > 0 {
			return stubs, nil
		}
	}
	return nil, nil
}

// collect walks one selector's matches, keeping entries with a real
// headline and an absolute article URL.
func (s *listingStrategy) collect(doc *goquery.Document, selector string) []domain.ArticleStub {
	var stubs []domain.ArticleStub
	seen := make(map[string]struct{})

	doc.Find(selector).Each(func(_ int, node *goquery.Selection) {
		href, ok := node.Attr("href")
		if !ok {
			return
		}

		link := resolveURL(strings.TrimSpace(href), s.url)
		if !isAbsoluteHTTP(link) {
			return
		}

		title := strings.Join(strings.Fields(node.Text()), " ")
		if utf8.RuneCountInString(title) <= minTitleRunes {
			return
		}

		if _, dup := seen[link]; dup {
			return
		}
		seen[link] = struct{}{}

		stubs = append(stubs, domain.ArticleStub{Title: title, URL: link})
	})

	return stubs
}
