package source

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

type stubResponse struct {
	status int
	body   string
}

func (r stubResponse) StatusCode() int { return r.status }
func (r stubResponse) Body() []byte    { return []byte(r.body) }

type stubClient struct {
	responses map[string]stubResponse
	errs      map[string]error
	calls     []string
}

func (c *stubClient) Get(_ context.Context, url string, _ map[string]string) (httpclient.Response, error) {
	c.calls = append(c.calls, url)
	if err, ok := c.errs[url]; ok {
		return nil, err
	}
	if resp, ok := c.responses[url]; ok {
		return resp, nil
	}
	return stubResponse{status: http.StatusNotFound, body: "not found"}, nil
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel>
<title>The Daily Ledger</title>
<item>
  <title>Monsoon session opens with stormy exchanges</title>
  <link>https://news.example.com/monsoon-session</link>
  <pubDate>Fri, 21 Aug 2026 08:30:00 +0000</pubDate>
</item>
<item><title>Item without a link is skipped</title></item>
<item>
  <title>River cleanup drive enters second week</title>
  <link>https://news.example.com/river-cleanup</link>
</item>
<item><title>a</title><link>https://news.example.com/terse</link></item>
<item><title>four</title><link>https://news.example.com/four</link></item>
<item><title>five</title><link>https://news.example.com/five</link></item>
<item><title>six</title><link>https://news.example.com/six</link></item>
</channel></rss>`

const listingHTML = `<html><body>
<nav><a href="/sports">Sports</a></nav>
<article><h2><a href="/news/flood-relief-operations-expand">Flood relief operations expand across three districts</a></h2></article>
<article><h2><a href="https://news.example.com/news/metro-line-opens">New metro line opens to packed platforms</a></h2></article>
<article><h2><a href="/news/flood-relief-operations-expand">Flood relief operations expand across three districts</a></h2></article>
<article><h2><a href="/x">Too short</a></h2></article>
<div class="post-title"><a href="/never">Lower priority selector must not win here</a></div>
</body></html>`

func TestFetchPrefersFeed(t *testing.T) {
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/feed.xml": {status: http.StatusOK, body: feedXML},
	}}
	fetcher := NewFetcher(Config{
		FeedURL:    "https://news.example.com/feed.xml",
		ListingURL: "https://news.example.com/latest",
	}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	// Seven items, one without a link, capped at the default five.
	require.Len(t, stubs, 5)
	assert.Equal(t, []string{"https://news.example.com/feed.xml"}, client.calls)

	first := stubs[0]
	assert.Equal(t, "Monsoon session opens with stormy exchanges", first.Title)
	assert.Equal(t, "https://news.example.com/monsoon-session", first.URL)
	want := time.Date(2026, time.August, 21, 8, 30, 0, 0, time.UTC)
	assert.True(t, first.PublishedAt.Equal(want), "pubDate should be parsed")

	assert.Equal(t, "https://news.example.com/river-cleanup", stubs[1].URL)
	assert.True(t, stubs[1].PublishedAt.IsZero())
}

func TestFetchMaxArticlesOverride(t *testing.T) {
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/feed.xml": {status: http.StatusOK, body: feedXML},
	}}
	fetcher := NewFetcher(Config{
		FeedURL:     "https://news.example.com/feed.xml",
		MaxArticles: 2,
	}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	assert.Len(t, stubs, 2)
}

func TestFeedUntitledItemGetsHostTitle(t *testing.T) {
	xml := `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0"><channel><title>untitled feed</title>
<item><link>https://news.example.com/untitled-piece</link></item>
</channel></rss>`
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/feed.xml": {status: http.StatusOK, body: xml},
	}}
	fetcher := NewFetcher(Config{FeedURL: "https://news.example.com/feed.xml"}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.Len(t, stubs, 1)
	assert.Equal(t, "news.example.com", stubs[0].Title)
}

func TestFetchFallsBackToListing(t *testing.T) {
	tests := map[string]struct {
		feedResp stubResponse
		feedErr  error
	}{
		"feed unreachable": {
			feedErr: errors.New("dial tcp: connection refused"),
		},
		"feed error status": {
			feedResp: stubResponse{status: http.StatusInternalServerError, body: "boom"},
		},
		"feed present but empty": {
			feedResp: stubResponse{status: http.StatusOK, body: `<rss version="2.0"><channel><title>empty</title></channel></rss>`},
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			client := &stubClient{
				responses: map[string]stubResponse{
					"https://news.example.com/latest": {status: http.StatusOK, body: listingHTML},
				},
				errs: map[string]error{},
			}
			if tc.feedErr != nil {
				client.errs["https://news.example.com/feed.xml"] = tc.feedErr
			} else {
				client.responses["https://news.example.com/feed.xml"] = tc.feedResp
			}

			fetcher := NewFetcher(Config{
				FeedURL:    "https://news.example.com/feed.xml",
				ListingURL: "https://news.example.com/latest",
			}, client, nil)

			stubs, err := fetcher.Fetch(context.Background())
			require.NoError(t, err)

			// Duplicate, short-title, and lower-priority entries drop out.
			require.Len(t, stubs, 2)
			assert.Equal(t, "Flood relief operations expand across three districts", stubs[0].Title)
			assert.Equal(t, "https://news.example.com/news/flood-relief-operations-expand", stubs[0].URL)
			assert.Equal(t, "https://news.example.com/news/metro-line-opens", stubs[1].URL)
		})
	}
}

func TestListingStubsAreWellFormed(t *testing.T) {
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/latest": {status: http.StatusOK, body: listingHTML},
	}}
	fetcher := NewFetcher(Config{ListingURL: "https://news.example.com/latest"}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)
	require.NotEmpty(t, stubs)

	for _, stub := range stubs {
		assert.Greater(t, len(stub.Title), 10)
		assert.True(t, isAbsoluteHTTP(stub.URL), "url %q must be absolute", stub.URL)
	}
}

func TestListingSelectorPriority(t *testing.T) {
	html := `<html><body>
<div class="post-title"><a href="https://news.example.com/from-post-title">Headline reached via the second selector</a></div>
</body></html>`

	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/latest": {status: http.StatusOK, body: html},
	}}
	fetcher := NewFetcher(Config{
		ListingURL:       "https://news.example.com/latest",
		ListingSelectors: []string{"article h2 a", ".post-title a"},
	}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, stubs, 1)
	assert.Equal(t, "https://news.example.com/from-post-title", stubs[0].URL)
}

func TestFetchNoArticles(t *testing.T) {
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/latest": {status: http.StatusOK, body: "<html><body><p>maintenance</p></body></html>"},
	}}
	fetcher := NewFetcher(Config{
		FeedURL:    "https://news.example.com/feed.xml",
		ListingURL: "https://news.example.com/latest",
	}, client, nil)

	_, err := fetcher.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNoArticles)
}

func TestFetchContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	fetcher := NewFetcher(Config{FeedURL: "https://news.example.com/feed.xml"}, &stubClient{}, nil)

	_, err := fetcher.Fetch(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

const sitemapIndexXML = `<?xml version="1.0" encoding="UTF-8"?>
<sitemapindex xmlns="http://www.sitemaps.org/schemas/sitemap/0.9">
  <sitemap><loc>https://news.example.com/sitemap-news-1.xml</loc></sitemap>
  <sitemap><loc>https://news.example.com/sitemap-index.xml</loc></sitemap>
</sitemapindex>`

const sitemapLeafXML = `<?xml version="1.0" encoding="UTF-8"?>
<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"
        xmlns:news="http://www.google.com/schemas/sitemap-news/0.9">
  <url>
    <loc>https://news.example.com/news/harvest-festival</loc>
    <news:news>
      <news:publication_date>2026-08-20T10:00:00Z</news:publication_date>
      <news:title>Harvest festival returns after two years</news:title>
    </news:news>
  </url>
  <url><loc>  </loc></url>
</urlset>`

func TestSitemapStrategy(t *testing.T) {
	client := &stubClient{responses: map[string]stubResponse{
		"https://news.example.com/sitemap-index.xml":  {status: http.StatusOK, body: sitemapIndexXML},
		"https://news.example.com/sitemap-news-1.xml": {status: http.StatusOK, body: sitemapLeafXML},
	}}
	fetcher := NewFetcher(Config{SitemapURL: "https://news.example.com/sitemap-index.xml"}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	// The index references itself; the visited set must stop the loop.
	require.Len(t, stubs, 1)
	assert.Equal(t, "Harvest festival returns after two years", stubs[0].Title)
	assert.Equal(t, "https://news.example.com/news/harvest-festival", stubs[0].URL)
	want := time.Date(2026, time.August, 20, 10, 0, 0, 0, time.UTC)
	assert.True(t, stubs[0].PublishedAt.Equal(want))
}

func TestSitemapBeforeListing(t *testing.T) {
	client := &stubClient{
		responses: map[string]stubResponse{
			"https://news.example.com/sitemap-news-1.xml": {status: http.StatusOK, body: sitemapLeafXML},
			"https://news.example.com/latest":             {status: http.StatusOK, body: listingHTML},
		},
		errs: map[string]error{
			"https://news.example.com/feed.xml": errors.New("timeout"),
		},
	}
	fetcher := NewFetcher(Config{
		FeedURL:    "https://news.example.com/feed.xml",
		SitemapURL: "https://news.example.com/sitemap-news-1.xml",
		ListingURL: "https://news.example.com/latest",
	}, client, nil)

	stubs, err := fetcher.Fetch(context.Background())
	require.NoError(t, err)

	require.Len(t, stubs, 1)
	assert.Equal(t, "https://news.example.com/news/harvest-festival", stubs[0].URL)
	assert.NotContains(t, client.calls, "https://news.example.com/latest")
}

func TestResolveURL(t *testing.T) {
	tests := map[string]struct {
		raw  string
		base string
		want string
	}{
		"absolute stays": {
			raw:  "https://cdn.example.com/a.html",
			base: "https://news.example.com/latest",
			want: "https://cdn.example.com/a.html",
		},
		"relative resolves": {
			raw:  "/news/item",
			base: "https://news.example.com/latest",
			want: "https://news.example.com/news/item",
		},
		"empty stays empty": {
			raw:  "",
			base: "https://news.example.com/latest",
			want: "",
		},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, resolveURL(tc.raw, tc.base))
		})
	}
}
