package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/internal/store"
)

type fakeArticles struct {
	createErr error
	listErr   error
	getErr    error

	article  *domain.Article
	articles []domain.Article
	total    int

	gotTitle   string
	gotContent string
	gotImage   *string
	gotPage    int
	gotLimit   int
	gotSlug    string
}

func (f *fakeArticles) Create(_ context.Context, title, content string, imageURL *string) (*domain.Article, error) {
	f.gotTitle = title
	f.gotContent = content
	f.gotImage = imageURL
	if f.createErr != nil {
		return nil, f.createErr
	}
	return f.article, nil
}

func (f *fakeArticles) List(_ context.Context, page, limit int) ([]domain.Article, int, error) {
	f.gotPage = page
	f.gotLimit = limit
	if f.listErr != nil {
		return nil, 0, f.listErr
	}
	return f.articles, f.total, nil
}

func (f *fakeArticles) GetBySlug(_ context.Context, slug string) (*domain.Article, error) {
	f.gotSlug = slug
	if f.getErr != nil {
		return nil, f.getErr
	}
	return f.article, nil
}

func sampleArticle() *domain.Article {
	ts := time.Unix(1700000000, 0).UTC()
	return &domain.Article{
		ID:          "8f14e45f-0000-4000-8000-000000000000",
		Title:       "Fresh Headline",
		Content:     "rewritten body",
		Slug:        "fresh-headline",
		PublishedAt: ts,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}
}

func serve(t *testing.T, articles Articles, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	s := New(Config{Addr: ":0"}, articles, nil)

	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	rec := serve(t, &fakeArticles{}, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestCreateArticle(t *testing.T) {
	fake := &fakeArticles{article: sampleArticle()}
	body := `{"title":"Fresh Headline","text":"rewritten body","image_link":"https://cdn.example.com/a.png"}`

	rec := serve(t, fake, http.MethodPost, "/api/articles", body)
	require.Equal(t, http.StatusCreated, rec.Code)

	var resp createArticleResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.Article)
	assert.Equal(t, "fresh-headline", resp.Article.Slug)

	assert.Equal(t, "Fresh Headline", fake.gotTitle)
	assert.Equal(t, "rewritten body", fake.gotContent)
	require.NotNil(t, fake.gotImage)
	assert.Equal(t, "https://cdn.example.com/a.png", *fake.gotImage)
}

func TestCreateArticleWithoutImage(t *testing.T) {
	fake := &fakeArticles{article: sampleArticle()}

	rec := serve(t, fake, http.MethodPost, "/api/articles", `{"title":"T","text":"body"}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Nil(t, fake.gotImage)
}

func TestCreateArticleRejectsBadInput(t *testing.T) {
	tests := map[string]struct {
		body    string
		wantErr string
	}{
		"missing title":  {body: `{"text":"body"}`, wantErr: "title must not be empty"},
		"blank title":    {body: `{"title":"   ","text":"body"}`, wantErr: "title must not be empty"},
		"missing text":   {body: `{"title":"T"}`, wantErr: "text must not be empty"},
		"blank text":     {body: `{"title":"T","text":"\n\t "}`, wantErr: "text must not be empty"},
		"malformed json": {body: `{"title":`, wantErr: "invalid request body"},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			rec := serve(t, &fakeArticles{}, http.MethodPost, "/api/articles", tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tc.wantErr)
		})
	}
}

func TestCreateArticleStoreFailure(t *testing.T) {
	fake := &fakeArticles{createErr: errors.New("insert article: connection refused")}

	rec := serve(t, fake, http.MethodPost, "/api/articles", `{"title":"T","text":"body"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to store article")
}

func TestListArticles(t *testing.T) {
	fake := &fakeArticles{
		articles: []domain.Article{*sampleArticle()},
		total:    45,
	}

	rec := serve(t, fake, http.MethodGet, "/api/articles", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp listArticlesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.Page)
	assert.Equal(t, 20, resp.Limit)
	assert.Equal(t, 45, resp.Total)
	assert.Equal(t, 3, resp.TotalPages)
	require.Len(t, resp.Articles, 1)
	assert.Equal(t, "fresh-headline", resp.Articles[0].Slug)

	assert.Equal(t, 1, fake.gotPage)
	assert.Equal(t, 20, fake.gotLimit)
}

func TestListArticlesPagination(t *testing.T) {
	tests := map[string]struct {
		target    string
		wantPage  int
		wantLimit int
	}{
		"explicit page and limit": {target: "/api/articles?page=3&limit=50", wantPage: 3, wantLimit: 50},
		"limit above cap":         {target: "/api/articles?limit=500", wantPage: 1, wantLimit: 100},
		"limit zero":              {target: "/api/articles?limit=0", wantPage: 1, wantLimit: 1},
		"limit negative":          {target: "/api/articles?limit=-5", wantPage: 1, wantLimit: 1},
		"limit not a number":      {target: "/api/articles?limit=many", wantPage: 1, wantLimit: 20},
		"page zero":               {target: "/api/articles?page=0", wantPage: 1, wantLimit: 20},
		"page not a number":       {target: "/api/articles?page=first", wantPage: 1, wantLimit: 20},
	}

	for name, tc := range tests {
		t.Run(name, func(t *testing.T) {
			fake := &fakeArticles{}
			rec := serve(t, fake, http.MethodGet, tc.target, "")
			require.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, tc.wantPage, fake.gotPage)
			assert.Equal(t, tc.wantLimit, fake.gotLimit)
		})
	}
}

func TestListArticlesStoreFailure(t *testing.T) {
	fake := &fakeArticles{listErr: errors.New("relation does not exist")}

	rec := serve(t, fake, http.MethodGet, "/api/articles", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to list articles")
}

func TestGetArticle(t *testing.T) {
	fake := &fakeArticles{article: sampleArticle()}

	rec := serve(t, fake, http.MethodGet, "/api/articles/fresh-headline", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "fresh-headline", fake.gotSlug)

	var art domain.Article
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &art))
	assert.Equal(t, "Fresh Headline", art.Title)
}

func TestGetArticleNotFound(t *testing.T) {
	fake := &fakeArticles{getErr: store.ErrNotFound}

	rec := serve(t, fake, http.MethodGet, "/api/articles/missing", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"article not found"}`, rec.Body.String())
}

func TestGetArticleStoreFailure(t *testing.T) {
	fake := &fakeArticles{getErr: errors.New("connection refused")}

	rec := serve(t, fake, http.MethodGet, "/api/articles/some-slug", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Contains(t, rec.Body.String(), "failed to load article")
}
