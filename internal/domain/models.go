package domain

import "time"

// Domain contains the core models shared across the pipeline and the
// content-store server.

// ArticleStub is a source article reference discovered by the feed,
// sitemap, or listing strategies. Only Title and URL are guaranteed;
// PublishedAt is set when the source provides it.
type ArticleStub struct {
	Title       string
	URL         string
	PublishedAt time.Time
}

// Story is the finished rewrite of one source article, ready to be
// published. Body is the rewritten text, ImageURL the signed link to
// the generated illustration.
type Story struct {
	Title    string
	Body     string
	ImageURL string
}

// Article is a persisted content record as served by the reader API.
// Slug is unique and immutable once written.
type Article struct {
	ID          string    `json:"id"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	ImageURL    *string   `json:"image_url"`
	Slug        string    `json:"slug"`
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}
