// Command kolom runs the news pipeline once: discover articles from
// the configured source, rewrite them, illustrate them, and publish
// the results to the configured sinks.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/Adda-Baaj/khobor-kolom/internal/config"
	"github.com/Adda-Baaj/khobor-kolom/internal/extract"
	"github.com/Adda-Baaj/khobor-kolom/internal/imagegen"
	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/internal/pipeline"
	"github.com/Adda-Baaj/khobor-kolom/internal/rewrite"
	"github.com/Adda-Baaj/khobor-kolom/internal/seen"
	"github.com/Adda-Baaj/khobor-kolom/internal/source"
	"github.com/Adda-Baaj/khobor-kolom/pkg/genai"
	"github.com/Adda-Baaj/khobor-kolom/pkg/objstore"
	"github.com/Adda-Baaj/khobor-kolom/pkg/publishers"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "kolom:", err)
		os.Exit(1)
	}
	if err := cfg.ValidatePipeline(); err != nil {
		fmt.Fprintln(os.Stderr, "kolom:", err)
		os.Exit(1)
	}

	log, err := logger.New(cfg.Log.Level)
	if err != nil {
		fmt.Fprintln(os.Stderr, "kolom:", err)
		os.Exit(1)
	}

	err = run(cfg, log)
	_ = log.Sync()
	if err != nil {
		os.Exit(1)
	}
}

func run(cfg *config.Config, log logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	gen, err := genai.New(genai.Config{
		APIKey:  cfg.GenAI.APIKey,
		BaseURL: cfg.GenAI.BaseURL,
		Timeout: cfg.GenAI.Timeout,
	})
	if err != nil {
		log.ErrorObj("generative client setup failed", "setup_error", map[string]any{"error": err.Error()})
		return err
	}

	bucket, err := objstore.New(ctx, objstore.Config{
		Endpoint:        cfg.Storage.Endpoint,
		Region:          cfg.Storage.Region,
		Bucket:          cfg.Storage.Bucket,
		AccessKeyID:     cfg.Storage.AccessKeyID,
		SecretAccessKey: cfg.Storage.SecretAccessKey,
		UsePathStyle:    cfg.Storage.UsePathStyle,
	})
	if err != nil {
		log.ErrorObj("object store setup failed", "setup_error", map[string]any{"error": err.Error()})
		return err
	}

	seenStore, err := seen.Open(cfg.Pipeline.SeenPath)
	if err != nil {
		log.ErrorObj("seen store open failed", "setup_error", map[string]any{
			"error": err.Error(),
			"path":  cfg.Pipeline.SeenPath,
		})
		return err
	}
	defer seenStore.Close()

	sinks, err := buildPublishers(ctx, cfg, log)
	if err != nil {
		log.ErrorObj("publisher setup failed", "setup_error", map[string]any{"error": err.Error()})
		return err
	}

	client := source.DefaultHTTPClient()

	runner := pipeline.New(pipeline.Config{
		SourceName: cfg.Source.Name,
		Delay:      cfg.Pipeline.Delay,
	}, pipeline.Deps{
		Source: source.NewFetcher(source.Config{
			Name:             cfg.Source.Name,
			FeedURL:          cfg.Source.FeedURL,
			SitemapURL:       cfg.Source.SitemapURL,
			ListingURL:       cfg.Source.ListingURL,
			ListingSelectors: cfg.Source.ListingSelectors,
			MaxArticles:      cfg.Source.MaxArticles,
			FeedTimeout:      cfg.Source.FeedTimeout,
			ListingTimeout:   cfg.Source.ListingTimeout,
		}, client, log),
		Extractor: extract.New(extract.Config{
			Timeout:       cfg.Extract.Timeout,
			MinLength:     cfg.Extract.MinLength,
			MaxParagraphs: cfg.Extract.MaxParagraphs,
			Selectors:     cfg.Extract.Selectors,
		}, client, log),
		Rewriter: rewrite.New(rewrite.Config{
			Model: cfg.GenAI.TextModel,
		}, gen, log),
		Illustrator: imagegen.New(imagegen.Config{
			Model:        cfg.GenAI.ImageModel,
			SignedURLTTL: cfg.Storage.SignedURLTTL,
		}, gen, bucket, log),
		Publishers: sinks,
		Seen:       seenStore,
		Log:        log,
	})

	sum, err := runner.Run(ctx)
	log.InfoObj("run finished", "run_summary", map[string]any{
		"processed": sum.Processed,
		"published": sum.Published,
		"failed":    sum.Failed,
		"skipped":   sum.Skipped,
	})
	if err != nil {
		log.ErrorObj("run failed", "run_error", map[string]any{"error": err.Error()})
		return err
	}
	return nil
}

// buildPublishers loads the registry file when one is configured,
// otherwise synthesizes a single HTTP sink pointed at the content
// store.
func buildPublishers(ctx context.Context, cfg *config.Config, log logger.Logger) ([]publishers.Publisher, error) {
	var cfgs []publishers.PublisherConfig
	if cfg.Publish.PublishersFile != "" {
		reg, err := publishers.LoadRegistry(cfg.Publish.PublishersFile)
		if err != nil {
			return nil, err
		}
		cfgs = reg.Enabled()
		if len(cfgs) == 0 {
			return nil, fmt.Errorf("publishers file %s has no enabled publishers", cfg.Publish.PublishersFile)
		}
	} else {
		cfgs = []publishers.PublisherConfig{{
			ID:   "content-store",
			Type: publishers.TypeHTTP,
			HTTP: &publishers.HTTPPublisherConfig{
				URL:            cfg.Publish.URL,
				Method:         "POST",
				TimeoutSeconds: 10,
			},
		}}
	}
	return publishers.BuildAll(ctx, publishers.DefaultRegistry(), cfgs, log)
}
