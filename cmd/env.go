package main

import (
	"context"
	"encoding/json"
	"os"
	"time"

	"github.com/aiagents-directory/directory-cli/internal/assets"
	"github.com/aiagents-directory/directory-cli/internal/extract"
	"github.com/aiagents-directory/directory-cli/internal/resilience"
	"github.com/aiagents-directory/directory-cli/internal/store"
	"github.com/aiagents-directory/directory-cli/pkg/firecrawl"
	"github.com/aiagents-directory/directory-cli/pkg/jina"
)

// initStore opens the configured backend and runs migrations so every
// command works against a current schema.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}

	var st store.Store
	var err error
	switch cfg.Store.Driver {
	case "postgres":
		st, err = store.NewPostgres(ctx, cfg.Store.DatabaseURL, nil)
	default:
		st, err = store.NewSQLite(cfg.Store.Path)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func initFirecrawl() firecrawl.Client {
	return firecrawl.NewClient(cfg.Firecrawl.Key,
		firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL),
		firecrawl.WithRateLimit(cfg.Firecrawl.RatePerSecond),
		firecrawl.WithTimeout(time.Duration(cfg.Firecrawl.TimeoutSecs)*time.Second),
	)
}

// initExtractChain builds the scrape chain: Firecrawl first, Jina as a
// degraded markdown fallback when a key is configured.
func initExtractChain(fc firecrawl.Client) *extract.Chain {
	extractors := []extract.Extractor{
		extract.NewFirecrawlExtractor(fc, cfg.Firecrawl.TimeoutSecs*1000),
	}
	if cfg.Jina.Key != "" {
		jc := jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL))
		extractors = append(extractors, extract.NewJinaExtractor(jc))
	}
	return extract.NewChain(extractors...)
}

func initAssets() (*assets.Store, error) {
	retry := resilience.FromRetryConfig(
		cfg.Retry.MaxAttempts,
		cfg.Retry.InitialBackoffMs,
		cfg.Retry.MaxBackoffMs,
		cfg.Retry.Multiplier,
		cfg.Retry.JitterFraction,
	)
	return assets.NewStore(cfg.Assets.Dir, assets.WithRetryConfig(retry))
}

// printJSON writes v to stdout, indented for humans.
func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
