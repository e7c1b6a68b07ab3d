package extract

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/resilience"
	"github.com/aiagents-directory/directory-cli/pkg/jina"
)

// JinaExtractor wraps Jina Reader as a markdown-only fallback Extractor.
// Screenshot and structured JSON requests are dropped; callers get a
// degraded page with markdown and a title.
type JinaExtractor struct {
	client  jina.Client
	breaker *resilience.CircuitBreaker
}

// NewJinaExtractor creates a JinaExtractor. A circuit breaker skips the
// upstream after 3 consecutive failures and probes again after 60s.
func NewJinaExtractor(client jina.Client) *JinaExtractor {
	return &JinaExtractor{
		client: client,
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			FailureThreshold: 3,
			ResetTimeout:     60 * time.Second,
			// Unusable pages count the same as connection errors.
			ShouldTrip: func(error) bool { return true },
			OnStateChange: func(from, to resilience.CircuitState) {
				zap.L().Warn("extract: jina circuit state changed",
					zap.String("from", from.String()),
					zap.String("to", to.String()),
				)
			},
		}),
	}
}

func (j *JinaExtractor) Name() string { return "jina" }

// Available returns false while the circuit breaker is open.
func (j *JinaExtractor) Available() bool {
	return j.breaker.State() != resilience.CircuitOpen
}

// Extract fetches a URL via Jina Reader and validates the response.
func (j *JinaExtractor) Extract(ctx context.Context, req Request) (*Page, error) {
	return resilience.ExecuteVal(ctx, j.breaker, func(ctx context.Context) (*Page, error) {
		resp, err := j.client.Read(ctx, req.URL)
		if err != nil {
			return nil, err
		}

		if resp.Code != 0 && resp.Code != 200 {
			return nil, eris.Errorf("jina: reader status %d for %s", resp.Code, req.URL)
		}
		if !usableContent(resp.Data.Content) {
			return nil, eris.Errorf("jina: unusable content for %s", req.URL)
		}

		finalURL := resp.Data.URL
		if finalURL == "" {
			finalURL = req.URL
		}
		return &Page{
			URL:      finalURL,
			Title:    resp.Data.Title,
			Markdown: resp.Data.Content,
			Source:   "jina",
		}, nil
	})
}
