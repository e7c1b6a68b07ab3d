// Package extract provides chained page extraction for agent sites.
// Firecrawl is the primary extractor (markdown, screenshot, structured
// JSON); Jina Reader is the markdown-only fallback.
package extract

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

// Request describes a single page extraction.
type Request struct {
	URL          string
	Screenshot   bool            // capture a full-page screenshot
	HTML         bool            // include processed page HTML
	Schema       json.RawMessage // optional JSON schema for structured extraction
	SchemaPrompt string          // prompt guiding the structured extraction
}

// Page holds the extracted content of a single URL.
type Page struct {
	URL         string // final URL after redirects, when known
	Title       string
	Description string
	Markdown    string
	HTML        string
	Screenshot  string // hosted screenshot URL, expires quickly
	OGImage     string
	Favicon     string
	JSON        json.RawMessage // structured extraction result, if requested
	StatusCode  int
	Source      string // "firecrawl" or "jina"
}

// Extractor fetches a single URL and returns its content.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*Page, error)
	Name() string
	Available() bool
}

// Chain tries extractors in priority order, returning the first success.
type Chain struct {
	extractors []Extractor
}

// NewChain creates a Chain. Extractors are tried in order; the first
// successful result is returned.
func NewChain(extractors ...Extractor) *Chain {
	return &Chain{extractors: extractors}
}

// Extract tries each extractor in order for a single URL.
// Returns the first successful result, or the last error if all fail.
func (c *Chain) Extract(ctx context.Context, req Request) (*Page, error) {
	var lastErr error
	for _, e := range c.extractors {
		if !e.Available() {
			continue
		}
		page, err := e.Extract(ctx, req)
		if err == nil && page != nil {
			return page, nil
		}
		if err != nil {
			zap.L().Debug("extract: extractor failed, trying next",
				zap.String("extractor", e.Name()),
				zap.String("url", req.URL),
				zap.Error(err),
			)
			lastErr = err
		}
	}
	if lastErr != nil {
		return nil, eris.Wrap(lastErr, "extract: all extractors failed")
	}
	return nil, eris.Errorf("extract: no extractor available for url: %s", req.URL)
}
