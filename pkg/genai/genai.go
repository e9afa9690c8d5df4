// Package genai is a client for a Gemini-style generative REST API.
// It covers the two calls the pipeline makes: prompt-to-text and
// prompt-to-inline-image.
package genai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

var (
	// ErrMissingAPIKey is returned by New when no key is configured.
	ErrMissingAPIKey = errors.New("genai: api key is required")

	// ErrEmptyResponse is returned when the endpoint answered 200 but
	// carried no usable candidate text.
	ErrEmptyResponse = errors.New("genai: response contained no text")

	// ErrNoImage is returned when an image request yielded no inline
	// image part.
	ErrNoImage = errors.New("genai: response contained no image data")
)

const (
	defaultBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	defaultTimeout = 30 * time.Second
)

// Config configures the client. BaseURL and Timeout fall back to the
// public endpoint and 30s.
type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
}

// Client talks to one generative endpoint. It is safe for concurrent
// use.
type Client struct {
	rc      *resty.Client
	apiKey  string
	baseURL string
}

// New validates the config and builds a Client.
func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, ErrMissingAPIKey
	}

	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	rc := resty.New().
		SetTimeout(timeout).
		SetHeader("Content-Type", "application/json")

	return &Client{rc: rc, apiKey: cfg.APIKey, baseURL: baseURL}, nil
}

type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MIMEType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseModalities []string `json:"responseModalities,omitempty"`
}

type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// GenerateText sends a single-part text prompt to the model and
// returns the first non-empty candidate text.
func (c *Client) GenerateText(ctx context.Context, model, prompt string) (string, error) {
	out, err := c.generate(ctx, model, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		return "", err
	}

	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if text := strings.TrimSpace(p.Text); text != "" {
				return text, nil
			}
		}
	}
	return "", ErrEmptyResponse
}

// ImageData is a decoded inline image returned by the model.
type ImageData struct {
	MIME  string
	Bytes []byte
}

// GenerateImage asks the model for an inline image alongside its text
// answer and decodes the first image part found.
func (c *Client) GenerateImage(ctx context.Context, model, prompt string) (*ImageData, error) {
	out, err := c.generate(ctx, model, generateRequest{
		Contents:         []content{{Parts: []part{{Text: prompt}}}},
		GenerationConfig: &generationConfig{ResponseModalities: []string{"TEXT", "IMAGE"}},
	})
	if err != nil {
		return nil, err
	}

	for _, cand := range out.Candidates {
		for _, p := range cand.Content.Parts {
			if p.InlineData == nil || p.InlineData.Data == "" {
				continue
			}
			raw, err := base64.StdEncoding.DecodeString(p.InlineData.Data)
			if err != nil {
				return nil, fmt.Errorf("genai: decode inline image: %w", err)
			}
			mime := p.InlineData.MIMEType
			if mime == "" {
				mime = "image/png"
			}
			return &ImageData{MIME: mime, Bytes: raw}, nil
		}
	}
	return nil, ErrNoImage
}

func (c *Client) generate(ctx context.Context, model string, req generateRequest) (*generateResponse, error) {
	url := fmt.Sprintf("%s/models/%s:generateContent", c.baseURL, model)

	var out generateResponse
	resp, err := c.rc.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(req).
		SetResult(&out).
		Post(url)
	if err != nil {
		return nil, fmt.Errorf("genai: call %s: %w", model, c.redact(err))
	}
	if resp.StatusCode() != http.StatusOK {
		return nil, fmt.Errorf("genai: %s returned status %d body: %s", model, resp.StatusCode(), responseSnippet(resp.Body()))
	}
	return &out, nil
}

// redact strips the API key from transport errors, which embed the
// full request URL including the key query parameter.
func (c *Client) redact(err error) error {
	return errors.New(strings.ReplaceAll(err.Error(), c.apiKey, "REDACTED"))
}

func responseSnippet(body []byte) string {
	const maxLen = 512
	s := strings.TrimSpace(string(body))
	if len(s) > maxLen {
		return s[:maxLen] + "..."
	}
	if s == "" {
		return "<empty>"
	}
	return s
}
