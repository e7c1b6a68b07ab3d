package extract

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/pkg/firecrawl"
)

// FirecrawlExtractor wraps a Firecrawl client as the primary Extractor.
// It is the only extractor that honors screenshot and structured JSON
// requests.
type FirecrawlExtractor struct {
	client  firecrawl.Client
	timeout int // per-scrape timeout in milliseconds, 0 for API default
}

// NewFirecrawlExtractor creates a FirecrawlExtractor from a Firecrawl client.
func NewFirecrawlExtractor(client firecrawl.Client, timeoutMillis int) *FirecrawlExtractor {
	return &FirecrawlExtractor{client: client, timeout: timeoutMillis}
}

func (f *FirecrawlExtractor) Name() string { return "firecrawl" }

// Available always returns true; rate limiting lives inside the client.
func (f *FirecrawlExtractor) Available() bool { return true }

// Extract fetches a single URL via Firecrawl's scrape API.
func (f *FirecrawlExtractor) Extract(ctx context.Context, req Request) (*Page, error) {
	formats := []firecrawl.Format{firecrawl.MarkdownFormat()}
	if req.HTML {
		formats = append(formats, firecrawl.HTMLFormat())
	}
	if req.Screenshot {
		formats = append(formats, firecrawl.ScreenshotFormat(true))
	}
	if len(req.Schema) > 0 {
		formats = append(formats, firecrawl.JSONFormat(req.Schema, req.SchemaPrompt))
	}

	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     req.URL,
		Formats: formats,
		Timeout: f.timeout,
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}
	if !usableContent(resp.Data.Markdown) {
		return nil, eris.Errorf("firecrawl: unusable content for %s", req.URL)
	}

	finalURL := resp.Data.Metadata.SourceURL
	if finalURL == "" {
		finalURL = req.URL
	}

	return &Page{
		URL:         finalURL,
		Title:       resp.Data.Metadata.Title,
		Description: resp.Data.Metadata.Description,
		Markdown:    resp.Data.Markdown,
		HTML:        resp.Data.HTML,
		Screenshot:  resp.Data.Screenshot,
		OGImage:     resp.Data.Metadata.OGImage,
		Favicon:     resp.Data.Metadata.Favicon,
		JSON:        resp.Data.JSON,
		StatusCode:  resp.Data.Metadata.StatusCode,
		Source:      "firecrawl",
	}, nil
}
