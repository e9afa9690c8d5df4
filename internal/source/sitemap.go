package source

import (
	"context"
	"encoding/xml"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

const defaultSitemapTimeout = 15 * time.Second

// sitemapStrategy discovers stubs from a Google News sitemap,
// recursing into sitemap indexes when the root document only nests
// further sitemaps.
type sitemapStrategy struct {
	url     string
	client  httpclient.Client
	timeout time.Duration
}

func newSitemapStrategy(cfg Config, client httpclient.Client) *sitemapStrategy {
	return &sitemapStrategy{
		url:     cfg.SitemapURL,
		client:  client,
		timeout: defaultSitemapTimeout,
	}
}

func (s *sitemapStrategy) name() string { return "sitemap" }

func (s *sitemapStrategy) discover(ctx context.Context) ([]domain.ArticleStub, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	entries, err := s.walk(ctx, s.url, nil)
	if err != nil {
		return nil, err
	}
	return stubsFromSitemap(entries), nil
}

// walk resolves one sitemap URL into news entries, following sitemap
// indexes. The visited set breaks reference cycles.
func (s *sitemapStrategy) walk(ctx context.Context, url string, visited map[string]struct{}) ([]newsSitemapURL, error) {
	if visited == nil {
		visited = make(map[string]struct{})
	}
	if _, seen := visited[url]; seen {
		return nil, nil
	}
	visited[url] = struct{}{}

	raw, err := fetchXML(ctx, s.client, url)
	if err != nil {
		return nil, err
	}

	entries, err := parseNewsSitemap(raw)
	if err != nil {
		return nil, fmt.Errorf("decode news sitemap: %w", err)
	}
	if len(entries) > 0 {
		return entries, nil
	}

	indexURLs, err := parseSitemapIndex(raw)
	if err != nil {
		return nil, fmt.Errorf("decode sitemap index: %w", err)
	}

	var all []newsSitemapURL
	for _, indexURL := range indexURLs {
		indexURL = strings.TrimSpace(indexURL)
		if indexURL == "" {
			continue
		}

		nested, err := s.walk(ctx, indexURL, visited)
		if err != nil {
			return nil, err
		}
		all = append(all, nested...)
	}
	return all, nil
}

type newsSitemap struct {
	URLs []newsSitemapURL `xml:"url"`
}

type newsSitemapURL struct {
	Loc  string     `xml:"loc"`
	News newsDetail `xml:"news"`
}

type newsDetail struct {
	PublicationDate string `xml:"publication_date"`
	Title           string `xml:"title"`
}

type sitemapIndex struct {
	Sitemaps []sitemapIndexEntry `xml:"sitemap"`
}

type sitemapIndexEntry struct {
	Loc string `xml:"loc"`
}

func parseNewsSitemap(data []byte) ([]newsSitemapURL, error) {
	var sitemap newsSitemap
	if err := xml.Unmarshal(data, &sitemap); err != nil {
		return nil, err
	}
	return sitemap.URLs, nil
}

// parseSitemapIndex parses a sitemap index file and returns the nested
// sitemap URLs.
func parseSitemapIndex(data []byte) ([]string, error) {
	var index sitemapIndex
	if err := xml.Unmarshal(data, &index); err != nil {
		return nil, err
	}

	urls := make([]string, 0, len(index.Sitemaps))
	for _, entry := range index.Sitemaps {
		if loc := strings.TrimSpace(entry.Loc); loc != "" {
			urls = append(urls, loc)
		}
	}
	return urls, nil
}

func stubsFromSitemap(entries []newsSitemapURL) []domain.ArticleStub {
	stubs := make([]domain.ArticleStub, 0, len(entries))
	for _, entry := range entries {
		loc := strings.TrimSpace(entry.Loc)
		if loc == "" {
			continue
		}

		title := strings.TrimSpace(entry.News.Title)
		if title == "" {
			title = loc
		}

		stubs = append(stubs, domain.ArticleStub{
			Title:       title,
			URL:         loc,
			PublishedAt: parsePublicationDate(entry.News.PublicationDate),
		})
	}
	return stubs
}

// parsePublicationDate parses the news publication date, tolerating
// an absent or malformed value.
func parsePublicationDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t
	}

	return time.Time{}
}

// fetchXML retrieves sitemap XML from the given URL.
func fetchXML(ctx context.Context, client httpclient.Client, url string) ([]byte, error) {
	resp, err := client.Get(ctx, url, requestHeaders())
	if err != nil {
		return nil, fmt.Errorf("fetch sitemap: %w", err)
	}

	body := resp.Body()
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("sitemap returned status %d body: %s", resp.StatusCode(), responseSnippet(body))
	}

	return body, nil
}
