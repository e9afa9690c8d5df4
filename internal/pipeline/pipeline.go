// Package pipeline drives the fetch, rewrite, illustrate, publish
// sequence for each discovered article.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Adda-Baaj/khobor-kolom/internal/domain"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/pkg/publishers"
)

// Stage identifies the pipeline step an error came from.
type Stage string

const (
	StageFetch   Stage = "fetch"
	StageExtract Stage = "extract"
	StageRewrite Stage = "rewrite"
	StageTitle   Stage = "title"
	StageImage   Stage = "image"
	StagePublish Stage = "publish"
)

// ErrAllFailed is returned when every processed article failed.
var ErrAllFailed = errors.New("all articles failed")

// StageError wraps an error with the stage it occurred in.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string { return fmt.Sprintf("%s stage: %v", e.Stage, e.Err) }
func (e *StageError) Unwrap() error { return e.Err }

// Source discovers article stubs.
type Source interface {
	Fetch(ctx context.Context) ([]domain.ArticleStub, error)
}

// Extractor pulls readable text from an article page.
type Extractor interface {
	Extract(ctx context.Context, url string) (string, error)
}

// Rewriter produces the fresh body and headline.
type Rewriter interface {
	Body(ctx context.Context, text string) (string, error)
	Title(ctx context.Context, title string) (string, error)
}

// Illustrator creates and stores the article image, returning its link.
type Illustrator interface {
	Illustrate(ctx context.Context, title, summary string) (string, error)
}

// SeenStore remembers which URLs were already published.
type SeenStore interface {
	Seen(url string) (bool, error)
	Mark(url string) error
}

// Summary reports what one run did. Processed counts attempted
// articles only; Published plus Failed equals Processed.
type Summary struct {
	Processed int
	Published int
	Failed    int
	Skipped   int
}

// Config tunes the runner.
type Config struct {
	// SourceName labels publish events with the originating source.
	SourceName string

	// Delay is the pause between consecutive processed articles.
	Delay time.Duration
}

// Deps carries the stage implementations the Runner drives.
type Deps struct {
	Source      Source
	Extractor   Extractor
	Rewriter    Rewriter
	Illustrator Illustrator
	Publishers  []publishers.Publisher
	Seen        SeenStore
	Log         logger.Logger
}

// Runner executes the pipeline once over the configured source.
// Articles are processed strictly in source order, one at a time.
type Runner struct {
	source      Source
	extractor   Extractor
	rewriter    Rewriter
	illustrator Illustrator
	publishers  []publishers.Publisher
	seen        SeenStore
	log         logger.Logger
	sourceName  string
	delay       time.Duration
	now         func() time.Time
}

// New wires a Runner. Deps.Seen may be nil to disable dedup across runs.
func New(cfg Config, deps Deps) *Runner {
	log := deps.Log
	if log == nil {
		log = logger.NopLogger{}
	}
	return &Runner{
		source:      deps.Source,
		extractor:   deps.Extractor,
		rewriter:    deps.Rewriter,
		illustrator: deps.Illustrator,
		publishers:  deps.Publishers,
		seen:        deps.Seen,
		log:         log,
		sourceName:  cfg.SourceName,
		delay:       cfg.Delay,
		now:         time.Now,
	}
}

// Run discovers articles and pushes each through the pipeline. A
// failing article is logged and skipped; it never blocks the next one.
func (r *Runner) Run(ctx context.Context) (Summary, error) {
	stubs, err := r.source.Fetch(ctx)
	if err != nil {
		return Summary{}, &StageError{Stage: StageFetch, Err: err}
	}

	r.log.InfoObj("pipeline started", "pipeline_start", map[string]any{
		"source":   r.sourceName,
		"articles": len(stubs),
	})

	var sum Summary
	for _, stub := range stubs {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		seen, err := r.alreadyPublished(stub.URL)
		if err != nil {
			r.log.WarnObj("seen lookup failed", "pipeline_seen_error", map[string]any{
				"url":   stub.URL,
				"error": err.Error(),
			})
		}
		if seen {
			r.log.InfoObj("article already published, skipping", "pipeline_skip", map[string]any{
				"url": stub.URL,
			})
			sum.Skipped++
			continue
		}

		if sum.Processed > 0 && r.delay > 0 {
			if err := r.pause(ctx); err != nil {
				return sum, err
			}
		}
		sum.Processed++

		if err := r.processArticle(ctx, stub); err != nil {
			sum.Failed++
			fields := map[string]any{
				"url":   stub.URL,
				"error": err.Error(),
			}
			var stageErr *StageError
			if errors.As(err, &stageErr) {
				fields["stage"] = string(stageErr.Stage)
			}
			r.log.WarnObj("article failed", "pipeline_article_error", fields)
			continue
		}
		sum.Published++
	}

	r.log.InfoObj("pipeline finished", "pipeline_done", map[string]any{
		"processed": sum.Processed,
		"published": sum.Published,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
	})

	if sum.Processed > 0 && sum.Published == 0 {
		return sum, ErrAllFailed
	}
	return sum, nil
}

func (r *Runner) processArticle(ctx context.Context, stub domain.ArticleStub) error {
	text, err := r.extractor.Extract(ctx, stub.URL)
	if err != nil {
		return &StageError{Stage: StageExtract, Err: err}
	}

	body, err := r.rewriter.Body(ctx, text)
	if err != nil {
		return &StageError{Stage: StageRewrite, Err: err}
	}

	title, err := r.rewriter.Title(ctx, stub.Title)
	if err != nil {
		return &StageError{Stage: StageTitle, Err: err}
	}

	imageLink, err := r.illustrator.Illustrate(ctx, title, body)
	if err != nil {
		return &StageError{Stage: StageImage, Err: err}
	}

	story := domain.Story{Title: title, Body: body, ImageURL: imageLink}
	if err := r.publish(ctx, r.eventFor(stub, story)); err != nil {
		return &StageError{Stage: StagePublish, Err: err}
	}

	if r.seen != nil {
		if err := r.seen.Mark(stub.URL); err != nil {
			r.log.WarnObj("marking article as published failed", "pipeline_mark_error", map[string]any{
				"url":   stub.URL,
				"error": err.Error(),
			})
		}
	}

	r.log.InfoObj("article published", "pipeline_publish_ok", map[string]any{
		"url":   stub.URL,
		"title": title,
	})
	return nil
}

// eventFor maps a finished story onto the publish payload. Stubs
// without a source timestamp get the current time.
func (r *Runner) eventFor(stub domain.ArticleStub, story domain.Story) publishers.Event {
	publishedAt := stub.PublishedAt
	if publishedAt.IsZero() {
		publishedAt = r.now().UTC()
	}
	return publishers.Event{
		Source:      r.sourceName,
		Title:       story.Title,
		Text:        story.Body,
		ImageLink:   story.ImageURL,
		URL:         stub.URL,
		PublishedAt: publishedAt,
	}
}

// publish delivers the event to every sink. The first failing sink
// fails the article, so an unmarked URL is retried on the next run.
func (r *Runner) publish(ctx context.Context, evt publishers.Event) error {
	if len(r.publishers) == 0 {
		return errors.New("no publishers configured")
	}
	for _, pub := range r.publishers {
		if err := pub.Publish(ctx, evt); err != nil {
			return fmt.Errorf("publisher %s: %w", pub.ID(), err)
		}
	}
	return nil
}

func (r *Runner) pause(ctx context.Context) error {
	t := time.NewTimer(r.delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (r *Runner) alreadyPublished(url string) (bool, error) {
	if r.seen == nil {
		return false, nil
	}
	return r.seen.Seen(url)
}
