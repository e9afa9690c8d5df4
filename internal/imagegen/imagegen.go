// Package imagegen produces an illustration for a rewritten story and
// publishes it to object storage.
package imagegen

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/internal/slug"
	"github.com/Adda-Baaj/khobor-kolom/pkg/genai"
)

// ImageGenerator is the slice of the genai client this package needs.
type ImageGenerator interface {
	GenerateImage(ctx context.Context, model, prompt string) (*genai.ImageData, error)
}

// ObjectStore is the storage surface for uploaded illustrations.
type ObjectStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) error
	SignedURL(ctx context.Context, key string, expiry time.Duration) (string, error)
}

const (
	keyPrefix = "articles/"

	// maxPromptSummaryRunes bounds how much story text goes into the
	// image prompt.
	maxPromptSummaryRunes = 600
)

const imagePromptTemplate = `Generate a single photorealistic editorial news illustration for the story below.
No text, captions, watermarks or logos in the image.

HEADLINE: %s

STORY:
%s`

// Config tunes the generator.
type Config struct {
	// Model is the image model identifier sent to the endpoint.
	Model string

	// SignedURLTTL is the lifetime of returned image links.
	SignedURLTTL time.Duration
}

// Generator creates and stores one illustration per story. A failure
// at any step aborts the article; stories are not published without
// their image.
type Generator struct {
	gen   ImageGenerator
	store ObjectStore
	log   logger.Logger
	model string
	ttl   time.Duration
	now   func() time.Time
}

// New builds a Generator.
func New(cfg Config, gen ImageGenerator, store ObjectStore, log logger.Logger) *Generator {
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Generator{
		gen:   gen,
		store: store,
		log:   log,
		model: cfg.Model,
		ttl:   cfg.SignedURLTTL,
		now:   time.Now,
	}
}

// Illustrate generates an illustration for the story, uploads it, and
// returns a signed URL for it.
func (g *Generator) Illustrate(ctx context.Context, title, summary string) (string, error) {
	prompt := fmt.Sprintf(imagePromptTemplate, title, clampRunes(summary, maxPromptSummaryRunes))

	img, err := g.gen.GenerateImage(ctx, g.model, prompt)
	if err != nil {
		return "", fmt.Errorf("generate illustration: %w", err)
	}

	key := g.objectKey(title, img.MIME)
	if err := g.store.Upload(ctx, key, img.Bytes, img.MIME); err != nil {
		return "", fmt.Errorf("upload illustration: %w", err)
	}

	url, err := g.store.SignedURL(ctx, key, g.ttl)
	if err != nil {
		return "", fmt.Errorf("sign illustration url: %w", err)
	}

	g.log.InfoObj("illustration stored", "image_ok", map[string]any{
		"key":   key,
		"bytes": len(img.Bytes),
	})
	return url, nil
}

// objectKey builds a collision-resistant storage key from the story
// title and the upload time.
func (g *Generator) objectKey(title, mime string) string {
	return fmt.Sprintf("%s%s-%d%s", keyPrefix, slug.Make(title), g.now().Unix(), extensionFor(mime))
}

func extensionFor(mime string) string {
	switch strings.ToLower(mime) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/webp":
		return ".webp"
	default:
		return ".png"
	}
}

func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
