// Package store persists published articles in PostgreSQL and serves
// the reader queries.
package store

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/internal/slug"
)

// ErrNotFound is returned when no article matches the requested slug.
var ErrNotFound = errors.New("article not found")

// DB is the subset of pgxpool.Pool the store uses. pgxmock satisfies
// it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const createTableQuery = `
CREATE TABLE IF NOT EXISTS articles (
	id UUID PRIMARY KEY,
	title TEXT NOT NULL,
	content TEXT NOT NULL,
	image_url TEXT,
	slug TEXT NOT NULL UNIQUE,
	published_at TIMESTAMPTZ NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

const insertArticleQuery = `
INSERT INTO articles (id, title, content, image_url, slug, published_at, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

const listArticlesQuery = `
SELECT id, title, content, image_url, slug, published_at, created_at, updated_at
FROM articles
ORDER BY published_at DESC, id DESC
LIMIT $1 OFFSET $2`

const countArticlesQuery = `SELECT COUNT(*) FROM articles`

const getArticleBySlugQuery = `
SELECT id, title, content, image_url, slug, published_at, created_at, updated_at
FROM articles
WHERE slug = $1`

const uniqueViolationCode = "23505"

// Store reads and writes articles.
type Store struct {
	db  DB
	log logger.Logger
	now func() time.Time
}

// New builds a Store on top of db.
func New(db DB, log logger.Logger) *Store {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Store{db: db, log: log, now: time.Now}
}

// Ensure creates the articles table when it does not exist yet.
func (s *Store) Ensure(ctx context.Context) error {
	if _, err := s.db.Exec(ctx, createTableQuery); err != nil {
		return fmt.Errorf("ensure articles table: %w", err)
	}
	return nil
}

// Create inserts a new article. The slug is derived from the title on
// the server side; on collision a suffixed candidate is tried before
// giving up.
func (s *Store) Create(ctx context.Context, title, content string, imageURL *string) (*domain.Article, error) {
	now := s.now().UTC()
	art := &domain.Article{
		ID:          uuid.NewString(),
		Title:       strings.TrimSpace(title),
		Content:     strings.TrimSpace(content),
		ImageURL:    imageURL,
		PublishedAt: now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	var lastErr error
	for _, candidate := range s.slugCandidates(art.Title, now) {
		_, err := s.db.Exec(ctx, insertArticleQuery,
			art.ID, art.Title, art.Content, art.ImageURL, candidate,
			art.PublishedAt, art.CreatedAt, art.UpdatedAt)
		if err == nil {
			art.Slug = candidate
			s.log.InfoObj("article stored", "store_create_ok", map[string]any{
				"id":   art.ID,
				"slug": candidate,
			})
			return art, nil
		}
		if !isUniqueViolation(err) {
			return nil, fmt.Errorf("insert article: %w", err)
		}
		s.log.WarnObj("slug taken, retrying", "store_slug_collision", map[string]any{
			"slug": candidate,
		})
		lastErr = err
	}
	return nil, fmt.Errorf("insert article: slug candidates exhausted: %w", lastErr)
}

// List returns one page of articles, newest first, plus the total
// article count.
func (s *Store) List(ctx context.Context, page, limit int) ([]domain.Article, int, error) {
	if page < 1 {
		page = 1
	}
	offset := (page - 1) * limit

	var total int
	if err := s.db.QueryRow(ctx, countArticlesQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count articles: %w", err)
	}

	rows, err := s.db.Query(ctx, listArticlesQuery, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	articles := make([]domain.Article, 0, limit)
	for rows.Next() {
		var a domain.Article
		err := rows.Scan(&a.ID, &a.Title, &a.Content, &a.ImageURL, &a.Slug,
			&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate articles: %w", err)
	}
	return articles, total, nil
}

// GetBySlug returns the article with the given slug, or ErrNotFound.
func (s *Store) GetBySlug(ctx context.Context, slug string) (*domain.Article, error) {
	var a domain.Article
	err := s.db.QueryRow(ctx, getArticleBySlugQuery, slug).Scan(
		&a.ID, &a.Title, &a.Content, &a.ImageURL, &a.Slug,
		&a.PublishedAt, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get article %s: %w", slug, err)
	}
	return &a, nil
}

// slugCandidates yields the preferred slug plus two fallbacks used
// only when an earlier candidate is already taken.
func (s *Store) slugCandidates(title string, now time.Time) []string {
	base := slug.Make(title)
	return []string{
		base,
		slug.WithSuffix(base, strconv.FormatInt(now.Unix(), 10)),
		slug.WithSuffix(base, uuid.NewString()[:8]),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolationCode
}
