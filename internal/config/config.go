// Package config loads runtime configuration for the pipeline and the
// content-store server. Values come from defaults, an optional
// kolom.yaml, and KOLOM_-prefixed environment variables, in that
// order of increasing precedence.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// SourceConfig selects the news source and its retrieval strategies.
type SourceConfig struct {
	// Name labels the source in published events and logs.
	Name string

	FeedURL    string
	SitemapURL string
	ListingURL string

	// ListingSelectors overrides the built-in CSS selector strategies
	// for the listing fallback. Only settable via kolom.yaml since
	// selectors contain spaces.
	ListingSelectors []string

	MaxArticles    int
	FeedTimeout    time.Duration
	ListingTimeout time.Duration
}

// ExtractConfig tunes article body extraction.
type ExtractConfig struct {
	Timeout       time.Duration
	MinLength     int
	MaxParagraphs int
	Selectors     []string
}

// GenAIConfig points at the generative endpoint used for rewriting and
// illustration.
type GenAIConfig struct {
	APIKey     string
	BaseURL    string
	TextModel  string
	ImageModel string
	Timeout    time.Duration
}

// StorageConfig describes the S3-compatible bucket for generated
// images.
type StorageConfig struct {
	Endpoint        string
	Region          string
	Bucket          string
	AccessKeyID     string
	SecretAccessKey string
	UsePathStyle    bool
	SignedURLTTL    time.Duration
}

// PublishConfig selects the publish sinks. URL configures the default
// HTTP sink; PublishersFile points at a publisher registry file for
// multi-sink setups.
type PublishConfig struct {
	URL            string
	PublishersFile string
}

// PipelineConfig tunes the per-article run loop.
type PipelineConfig struct {
	Delay    time.Duration
	SeenPath string
}

// ServerConfig configures the content-store daemon.
type ServerConfig struct {
	Addr            string
	DatabaseURL     string
	AllowOrigins    []string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// LogConfig configures logging.
type LogConfig struct {
	Level string
}

// Config is the full runtime configuration.
type Config struct {
	Source   SourceConfig
	Extract  ExtractConfig
	GenAI    GenAIConfig
	Storage  StorageConfig
	Publish  PublishConfig
	Pipeline PipelineConfig
	Server   ServerConfig
	Log      LogConfig
}

// Load reads configuration from defaults, kolom.yaml (if present in
// the working directory), and the environment.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("KOLOM")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("kolom")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read kolom.yaml: %w", err)
		}
	}

	cfg := &Config{
		Source: SourceConfig{
			Name:             v.GetString("source.name"),
			FeedURL:          v.GetString("source.feed_url"),
			SitemapURL:       v.GetString("source.sitemap_url"),
			ListingURL:       v.GetString("source.listing_url"),
			ListingSelectors: v.GetStringSlice("source.listing_selectors"),
			MaxArticles:      v.GetInt("source.max_articles"),
			FeedTimeout:      v.GetDuration("source.feed_timeout"),
			ListingTimeout:   v.GetDuration("source.listing_timeout"),
		},
		Extract: ExtractConfig{
			Timeout:       v.GetDuration("extract.timeout"),
			MinLength:     v.GetInt("extract.min_length"),
			MaxParagraphs: v.GetInt("extract.max_paragraphs"),
			Selectors:     v.GetStringSlice("extract.selectors"),
		},
		GenAI: GenAIConfig{
			APIKey:     v.GetString("genai.api_key"),
			BaseURL:    v.GetString("genai.base_url"),
			TextModel:  v.GetString("genai.text_model"),
			ImageModel: v.GetString("genai.image_model"),
			Timeout:    v.GetDuration("genai.timeout"),
		},
		Storage: StorageConfig{
			Endpoint:        v.GetString("storage.endpoint"),
			Region:          v.GetString("storage.region"),
			Bucket:          v.GetString("storage.bucket"),
			AccessKeyID:     v.GetString("storage.access_key_id"),
			SecretAccessKey: v.GetString("storage.secret_access_key"),
			UsePathStyle:    v.GetBool("storage.use_path_style"),
			SignedURLTTL:    v.GetDuration("storage.signed_url_ttl"),
		},
		Publish: PublishConfig{
			URL:            v.GetString("publish.url"),
			PublishersFile: v.GetString("publish.publishers_file"),
		},
		Pipeline: PipelineConfig{
			Delay:    v.GetDuration("pipeline.delay"),
			SeenPath: v.GetString("pipeline.seen_path"),
		},
		Server: ServerConfig{
			Addr:            v.GetString("server.addr"),
			DatabaseURL:     v.GetString("server.database_url"),
			AllowOrigins:    v.GetStringSlice("server.allow_origins"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
		},
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("source.name", "web")
	v.SetDefault("source.max_articles", 5)
	v.SetDefault("source.feed_timeout", 10*time.Second)
	v.SetDefault("source.listing_timeout", 15*time.Second)

	v.SetDefault("extract.timeout", 12*time.Second)
	v.SetDefault("extract.min_length", 100)
	v.SetDefault("extract.max_paragraphs", 12)

	v.SetDefault("genai.base_url", "https://generativelanguage.googleapis.com/v1beta")
	v.SetDefault("genai.text_model", "gemini-2.0-flash")
	v.SetDefault("genai.image_model", "gemini-2.0-flash-preview-image-generation")
	v.SetDefault("genai.timeout", 30*time.Second)

	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.signed_url_ttl", 7*24*time.Hour)

	v.SetDefault("pipeline.delay", 5*time.Second)
	v.SetDefault("pipeline.seen_path", "kolom-seen.db")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.allow_origins", []string{"*"})
	v.SetDefault("server.read_timeout", 10*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("log.level", "info")
}

// ValidatePipeline checks the settings the pipeline binary cannot run
// without. Missing values are reported together so operators fix them
// in one pass.
func (c *Config) ValidatePipeline() error {
	var missing []string
	if c.GenAI.APIKey == "" {
		missing = append(missing, "KOLOM_GENAI_API_KEY")
	}
	if c.Storage.Endpoint == "" {
		missing = append(missing, "KOLOM_STORAGE_ENDPOINT")
	}
	if c.Storage.Bucket == "" {
		missing = append(missing, "KOLOM_STORAGE_BUCKET")
	}
	if c.Storage.AccessKeyID == "" {
		missing = append(missing, "KOLOM_STORAGE_ACCESS_KEY_ID")
	}
	if c.Storage.SecretAccessKey == "" {
		missing = append(missing, "KOLOM_STORAGE_SECRET_ACCESS_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("config: missing required settings: %s", strings.Join(missing, ", "))
	}

	if c.Source.FeedURL == "" && c.Source.SitemapURL == "" && c.Source.ListingURL == "" {
		return errors.New("config: configure at least one of KOLOM_SOURCE_FEED_URL, KOLOM_SOURCE_SITEMAP_URL, KOLOM_SOURCE_LISTING_URL")
	}
	if c.Publish.URL == "" && c.Publish.PublishersFile == "" {
		return errors.New("config: configure KOLOM_PUBLISH_URL or KOLOM_PUBLISH_PUBLISHERS_FILE")
	}
	return nil
}

// ValidateServer checks the settings the server binary cannot run
// without.
func (c *Config) ValidateServer() error {
	if c.Server.DatabaseURL == "" {
		return errors.New("config: KOLOM_SERVER_DATABASE_URL is required")
	}
	return nil
}
