// Package rewrite turns extracted article text into an original story
// body and a fresh headline through the generative endpoint.
package rewrite

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
)

// TextGenerator is the slice of the genai client the rewriter needs.
type TextGenerator interface {
	GenerateText(ctx context.Context, model, prompt string) (string, error)
}

var (
	// ErrInputTooShort is returned when the extracted text is too thin
	// to rewrite. The caller skips the article.
	ErrInputTooShort = errors.New("rewrite: input below minimum length")

	// ErrRewriteTooShort flags a degenerate model response; publishing
	// a stub body is worse than skipping the article.
	ErrRewriteTooShort = errors.New("rewrite: rewritten body suspiciously short")

	// ErrEmptyTitle is returned when the model answered with nothing
	// usable as a headline.
	ErrEmptyTitle = errors.New("rewrite: empty title")
)

const (
	defaultMinInput = 100
	minBodyOutput   = 200
	maxPromptRunes  = 8000

	// maxTitleWords keeps headlines under ten words even when the
	// model ignores the instruction.
	maxTitleWords = 9
)

const bodyPromptTemplate = `You are a news desk editor. Rewrite the following article as an original news report of 400 to 500 words.
Write in your own words; do not copy sentences from the source. Keep every fact, name, number and date accurate.
Write plain paragraphs only: no headline, no headings, no lists, no markdown.

ARTICLE:
%s`

const titlePromptTemplate = `Write a fresh news headline of fewer than ten words for this story.
Respond with the headline text only: no quotes, no trailing punctuation.

ORIGINAL HEADLINE: %s`

// Config tunes the rewriter.
type Config struct {
	// Model is the text model identifier sent to the endpoint.
	Model string

	// MinInput is the minimum extracted-text length worth rewriting.
	MinInput int
}

// Rewriter produces rewritten bodies and titles. Failures are final;
// it never retries.
type Rewriter struct {
	gen      TextGenerator
	log      logger.Logger
	model    string
	minInput int
}

// New builds a Rewriter around the given generator.
func New(cfg Config, gen TextGenerator, log logger.Logger) *Rewriter {
	if log == nil {
		log = logger.NopLogger{}
	}
	minInput := cfg.MinInput
	if minInput <= 0 {
		minInput = defaultMinInput
	}
	return &Rewriter{gen: gen, log: log, model: cfg.Model, minInput: minInput}
}

// Body rewrites extracted article text into an original report.
func (r *Rewriter) Body(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if n := utf8.RuneCountInString(text); n < r.minInput {
		return "", fmt.Errorf("%w: %d of %d chars", ErrInputTooShort, n, r.minInput)
	}

	prompt := fmt.Sprintf(bodyPromptTemplate, clampRunes(text, maxPromptRunes))
	out, err := r.gen.GenerateText(ctx, r.model, prompt)
	if err != nil {
		return "", fmt.Errorf("rewrite body: %w", err)
	}

	body := cleanBody(out)
	if n := utf8.RuneCountInString(body); n < minBodyOutput {
		return "", fmt.Errorf("%w: %d chars", ErrRewriteTooShort, n)
	}

	r.log.DebugObj("body rewritten", "rewrite_body_ok", map[string]any{
		"input_chars":  utf8.RuneCountInString(text),
		"output_words": len(strings.Fields(body)),
	})
	return body, nil
}

// Title rewrites the source headline into a fresh one under ten words.
func (r *Rewriter) Title(ctx context.Context, title string) (string, error) {
	title = strings.TrimSpace(title)

	out, err := r.gen.GenerateText(ctx, r.model, fmt.Sprintf(titlePromptTemplate, title))
	if err != nil {
		return "", fmt.Errorf("rewrite title: %w", err)
	}

	cleaned := cleanTitle(out)
	if cleaned == "" {
		return "", ErrEmptyTitle
	}

	r.log.DebugObj("title rewritten", "rewrite_title_ok", map[string]any{
		"title": cleaned,
	})
	return cleaned, nil
}

// cleanBody strips markdown fences and a leading label line, both of
// which models add despite instructions.
func cleanBody(raw string) string {
	s := strings.TrimSpace(raw)

	if strings.HasPrefix(s, "```") {
		if i := strings.Index(s, "\n"); i >= 0 {
			s = s[i+1:]
		}
		s = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
	}

	if first, rest, ok := strings.Cut(s, "\n"); ok {
		label := strings.TrimSpace(first)
		if strings.HasSuffix(label, ":") && utf8.RuneCountInString(label) <= 60 {
			s = strings.TrimSpace(rest)
		}
	}
	return s
}

// cleanTitle reduces a model response to a bare single-line headline
// within the word limit.
func cleanTitle(raw string) string {
	line := strings.TrimSpace(raw)
	if i := strings.Index(line, "\n"); i >= 0 {
		line = line[:i]
	}

	line = strings.Trim(line, "\"'“”‘’ ")
	line = strings.TrimRight(line, ".")
	line = strings.Join(strings.Fields(line), " ")

	words := strings.Fields(line)
	if len(words) > maxTitleWords {
		line = strings.Join(words[:maxTitleWords], " ")
	}
	return line
}

func clampRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
