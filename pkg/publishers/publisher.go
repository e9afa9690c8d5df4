// Package publishers fans rewritten stories out to configured sinks:
// the content store over HTTP and optional cloud queues.
package publishers

import (
	"context"
	"time"
)

// Event is the payload delivered to every sink when a story is
// published.
type Event struct {
	Source      string    `json:"source"`
	Title       string    `json:"title"`
	Text        string    `json:"text"`
	ImageLink   string    `json:"image_link"`
	URL         string    `json:"url,omitempty"`
	PublishedAt time.Time `json:"published_at"`
}

// Publisher delivers publish events to one configured sink.
type Publisher interface {
	ID() string
	Type() string
	Publish(ctx context.Context, evt Event) error
}

// Logger is the minimal structured logging surface publishers depend on.
type Logger interface {
	DebugObj(msg, event string, fields map[string]any)
	InfoObj(msg, event string, fields map[string]any)
	WarnObj(msg, event string, fields map[string]any)
	ErrorObj(msg, event string, fields map[string]any)
}

type nopLogger struct{}

func (nopLogger) DebugObj(string, string, map[string]any) {}
func (nopLogger) InfoObj(string, string, map[string]any)  {}
func (nopLogger) WarnObj(string, string, map[string]any)  {}
func (nopLogger) ErrorObj(string, string, map[string]any) {}

// ensureLogger substitutes a no-op logger when none is provided.
func ensureLogger(log Logger) Logger {
	if log == nil {
		return nopLogger{}
	}
	return log
}
