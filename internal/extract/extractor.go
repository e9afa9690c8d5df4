// Package extract pulls readable article text out of news pages.
// Prioritized CSS selectors handle the known markups; readability is
// the last resort for everything else.
package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	nurl "net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"github.com/Adda-Baaj/khobor-kolom/internal/logger"
	"github.com/Adda-Baaj/khobor-kolom/pkg/httpclient"
)

var (
	// ErrTooShort is returned when a page yields less text than the
	// configured minimum. Callers skip the article instead of feeding
	// a fragment to the rewriter.
	ErrTooShort = errors.New("extract: content below minimum length")

	// ErrNoContent is returned when no selector matched and
	// readability found nothing either.
	ErrNoContent = errors.New("extract: no article content found")
)

const (
	maxHTMLBodyBytes = 1 << 20 // 1 MiB

	defaultTimeout       = 12 * time.Second
	defaultMinLength     = 100
	defaultMaxParagraphs = 12

	// minMatchedBlocks is the acceptance bar for a selector: fewer
	// matches than this usually means it hit a sidebar or teaser, not
	// the article body.
	minMatchedBlocks = 3

	// minBlockRunes drops stray fragments such as bylines, timestamps
	// and share buttons that slip through content selectors.
	minBlockRunes = 40
)

// defaultSelectors are tried in order; they cover the content
// containers of the common news CMS themes.
var defaultSelectors = []string{
	".entry-content p",
	".td-post-content p",
	".post-content p",
	".article-body p",
	".story-content p",
	"article p",
	"div.content p",
}

// Config tunes extraction.
type Config struct {
	Timeout       time.Duration
	MinLength     int
	MaxParagraphs int
	Selectors     []string
}

// Extractor fetches an article page and returns its body text.
type Extractor struct {
	client        httpclient.Client
	log           logger.Logger
	selectors     []string
	timeout       time.Duration
	minLength     int
	maxParagraphs int
}

// New builds an Extractor; zero config fields fall back to defaults.
func New(cfg Config, client httpclient.Client, log logger.Logger) *Extractor {
	if client == nil {
		client = httpclient.NewRestyClient(30 * time.Second)
	}
	if log == nil {
		log = logger.NopLogger{}
	}

	selectors := cfg.Selectors
	if len(selectors) == 0 {
		selectors = defaultSelectors
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	minLength := cfg.MinLength
	if minLength <= 0 {
		minLength = defaultMinLength
	}
	maxParagraphs := cfg.MaxParagraphs
	if maxParagraphs <= 0 {
		maxParagraphs = defaultMaxParagraphs
	}

	return &Extractor{
		client:        client,
		log:           log,
		selectors:     selectors,
		timeout:       timeout,
		minLength:     minLength,
		maxParagraphs: maxParagraphs,
	}
}

// Extract fetches the page at pageURL and returns its cleaned body
// text. The result is plain paragraphs joined by blank lines.
func (e *Extractor) Extract(ctx context.Context, pageURL string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	resp, err := e.client.Get(ctx, pageURL, requestHeaders())
	if err != nil {
		return "", fmt.Errorf("fetch article: %w", err)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", fmt.Errorf("article returned status %d body: %s", resp.StatusCode(), responseSnippet(resp.Body()))
	}

	body := resp.Body()
	if len(body) > maxHTMLBodyBytes {
		e.log.InfoObj("html body truncated", "extract_truncation", map[string]any{
			"url":      pageURL,
			"original": len(body),
			"kept":     maxHTMLBodyBytes,
		})
		body = body[:maxHTMLBodyBytes]
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("parse article html: %w", err)
	}

	text := e.fromSelectors(doc)
	if text == "" {
		e.log.DebugObj("no content selector matched", "extract_readability", map[string]any{
			"url": pageURL,
		})
		text = e.fromReadability(body, pageURL)
	}
	if text == "" {
		return "", ErrNoContent
	}

	if n := utf8.RuneCountInString(text); n < e.minLength {
		return "", fmt.Errorf("%w: %d of %d chars", ErrTooShort, n, e.minLength)
	}
	return text, nil
}

// fromSelectors tries each content selector in order and keeps the
// first that matches enough text blocks.
func (e *Extractor) fromSelectors(doc *goquery.Document) string {
	for _, selector := range e.selectors {
		nodes := doc.Find(selector)
		if nodes.Length() <= minMatchedBlocks {
			continue
		}
		if text := e.joinBlocks(nodes); text != "" {
			return text
		}
	}
	return ""
}

// joinBlocks filters boilerplate out of the matched blocks and joins
// up to maxParagraphs of them with blank lines.
func (e *Extractor) joinBlocks(nodes *goquery.Selection) string {
	var blocks []string
	nodes.EachWithBreak(func(_ int, node *goquery.Selection) bool {
		text := strings.Join(strings.Fields(node.Text()), " ")
		if !keepBlock(text) {
			return true
		}
		blocks = append(blocks, text)
		return len(blocks) < e.maxParagraphs
	})
	return strings.Join(blocks, "\n\n")
}

// fromReadability runs the generic readability extraction over the
// fetched HTML for markups no selector knows.
func (e *Extractor) fromReadability(body []byte, pageURL string) string {
	parsed, err := nurl.Parse(pageURL)
	if err != nil {
		return ""
	}

	article, err := readability.FromReader(bytes.NewReader(body), parsed)
	if err != nil {
		return ""
	}
	return e.paragraphs(article.TextContent)
}

// paragraphs normalizes readability output into the same blank-line
// separated shape the selector path produces.
func (e *Extractor) paragraphs(raw string) string {
	var blocks []string
	for _, line := range strings.Split(raw, "\n") {
		line = strings.Join(strings.Fields(line), " ")
		if !keepBlock(line) {
			continue
		}
		blocks = append(blocks, line)
		if len(blocks) == e.maxParagraphs {
			break
		}
	}
	return strings.Join(blocks, "\n\n")
}

// keepBlock rejects boilerplate: very short fragments and copyright
// lines.
func keepBlock(text string) bool {
	if utf8.RuneCountInString(text) < minBlockRunes {
		return false
	}

	lower := strings.ToLower(text)
	if strings.Contains(text, "©") ||
		strings.Contains(lower, "all rights reserved") ||
		strings.Contains(lower, "copyright") {
		return false
	}
	return true
}

func requestHeaders() map[string]string {
	return map[string]string{
		"User-Agent":      "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36",
		"Accept":          "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8",
		"Accept-Language": "en-US,en;q=0.9",
	}
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
