// Package enrich claims discovered submissions, scrapes their sites,
// resolves aggregator listings to the underlying product, and persists
// structured enrichment data.
package enrich

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aiagents-directory/directory-cli/internal/assets"
	"github.com/aiagents-directory/directory-cli/internal/config"
	"github.com/aiagents-directory/directory-cli/internal/extract"
	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/resilience"
	"github.com/aiagents-directory/directory-cli/internal/store"
	"github.com/aiagents-directory/directory-cli/internal/urlnorm"
	"github.com/aiagents-directory/directory-cli/pkg/firecrawl"
)

// Summary tallies one enrichment run.
type Summary struct {
	Claimed   int `json:"claimed"`
	Enriched  int `json:"enriched"`
	Retried   int `json:"retried"`   // failed transiently, back in the queue
	Discarded int `json:"discarded"` // duplicates, permanent failures, exhausted retries
	Conflicts int `json:"conflicts"` // lost the claim mid-flight
}

// Worker runs the enrichment stage.
type Worker struct {
	store  store.Store
	chain  *extract.Chain
	assets *assets.Store
	cfg    config.EnrichConfig
	id     string
}

// NewWorker creates an enrichment Worker with a unique worker id.
func NewWorker(st store.Store, chain *extract.Chain, as *assets.Store, cfg config.EnrichConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	if cfg.ClaimTTLSecs <= 0 {
		cfg.ClaimTTLSecs = 300
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.AggregatorMinConf <= 0 {
		cfg.AggregatorMinConf = 0.5
	}
	return &Worker{
		store:  st,
		chain:  chain,
		assets: as,
		cfg:    cfg,
		id:     "enrich-" + uuid.New().String()[:8],
	}
}

// Run claims up to limit submissions and enriches them. Fresh
// discoveries are claimed before retry-siding entries so new material
// is never starved by a failing site.
func (w *Worker) Run(ctx context.Context, limit int) (*Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	ttl := time.Duration(w.cfg.ClaimTTLSecs) * time.Second

	claimed, err := w.store.Claim(ctx, model.StatusDiscovered, model.StatusEnriching, w.id, ttl, limit)
	if err != nil {
		return nil, eris.Wrap(err, "enrich: claim discovered")
	}
	if remaining := limit - len(claimed); remaining > 0 {
		retries, err := w.store.Claim(ctx, model.StatusEnrichmentFailed, model.StatusEnriching, w.id, ttl, remaining)
		if err != nil {
			return nil, eris.Wrap(err, "enrich: claim retries")
		}
		claimed = append(claimed, retries...)
	}

	log := zap.L().With(zap.String("worker", w.id))
	log.Info("enrich: run started", zap.Int("claimed", len(claimed)))

	summary := &Summary{Claimed: len(claimed)}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for i := range claimed {
		sub := claimed[i]
		g.Go(func() error {
			outcome := w.processOne(gCtx, &sub)
			mu.Lock()
			switch outcome {
			case outcomeEnriched:
				summary.Enriched++
			case outcomeRetried:
				summary.Retried++
			case outcomeDiscarded:
				summary.Discarded++
			case outcomeConflict:
				summary.Conflicts++
			}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	log.Info("enrich: run complete",
		zap.Int("enriched", summary.Enriched),
		zap.Int("retried", summary.Retried),
		zap.Int("discarded", summary.Discarded),
		zap.Int("conflicts", summary.Conflicts),
	)
	return summary, nil
}

type outcome int

const (
	outcomeEnriched outcome = iota
	outcomeRetried
	outcomeDiscarded
	outcomeConflict
)

func (w *Worker) processOne(ctx context.Context, sub *model.Submission) outcome {
	log := zap.L().With(
		zap.String("submission_id", sub.ID),
		zap.String("identity_key", sub.IdentityKey),
	)

	target := sub.CanonicalURL
	if sub.Aggregator {
		newKey, newURL, oc := w.resolveAggregator(ctx, sub, log)
		if oc != outcomeEnriched {
			return oc
		}
		sub.IdentityKey = newKey
		target = newURL
	}

	page, err := w.chain.Extract(ctx, extract.Request{
		URL:          target,
		Screenshot:   true,
		Schema:       pageSchema,
		SchemaPrompt: pagePrompt,
	})
	if err != nil {
		return w.fail(ctx, sub, err, log)
	}

	// Redirects can land on a different identity than the one sourced.
	finalKey, err := urlnorm.Normalize(page.URL)
	if err != nil {
		finalKey = sub.IdentityKey
	}
	if finalKey != sub.IdentityKey {
		if oc := w.rewriteIdentity(ctx, sub, finalKey, log); oc != outcomeEnriched {
			return oc
		}
	}

	data, err := parsePageExtraction(page.JSON, firstNonEmpty(page.Title, sub.Name))
	if err != nil {
		return w.fail(ctx, sub, err, log)
	}
	data.RawMarkdown = page.Markdown
	data.FinalURL = "https://" + sub.IdentityKey

	w.saveAssets(ctx, sub.ID, page, data, log)

	if err := w.store.SetEnrichment(ctx, sub.ID, data); err != nil {
		if eris.Is(err, store.ErrConflict) || eris.Is(err, store.ErrNotFound) {
			log.Warn("enrich: lost claim before writing enrichment", zap.Error(err))
			return outcomeConflict
		}
		return w.fail(ctx, sub, err, log)
	}

	log.Info("enrich: enriched",
		zap.String("name", data.Name),
		zap.String("source", page.Source),
	)
	return outcomeEnriched
}

// resolveAggregator scrapes the listing page and rewrites the
// submission's identity to the underlying product.
func (w *Worker) resolveAggregator(ctx context.Context, sub *model.Submission, log *zap.Logger) (key, canonicalURL string, oc outcome) {
	listing, err := w.chain.Extract(ctx, extract.Request{
		URL:          sub.CanonicalURL,
		HTML:         true,
		Schema:       listingSchema,
		SchemaPrompt: listingPrompt,
	})
	if err != nil {
		return "", "", w.fail(ctx, sub, err, log)
	}

	key, canonicalURL, err = resolveListing(listing, sub.IdentityKey, w.cfg.AggregatorMinConf)
	if err != nil {
		return "", "", w.fail(ctx, sub, err, log)
	}

	log.Info("enrich: aggregator resolved", zap.String("product_key", key))
	if oc := w.rewriteIdentity(ctx, sub, key, log); oc != outcomeEnriched {
		return "", "", oc
	}
	return key, canonicalURL, outcomeEnriched
}

// rewriteIdentity points the submission at a new identity key,
// discarding it when the key is already taken.
func (w *Worker) rewriteIdentity(ctx context.Context, sub *model.Submission, newKey string, log *zap.Logger) outcome {
	err := w.store.UpdateIdentity(ctx, sub.ID, newKey, "https://"+newKey)
	if err == nil {
		sub.IdentityKey = newKey
		return outcomeEnriched
	}
	if eris.Is(err, store.ErrDuplicate) {
		log.Info("enrich: resolved identity already known, discarding",
			zap.String("new_key", newKey),
		)
		if terr := w.store.Transition(ctx, sub.ID, model.StatusEnriching, model.StatusDiscarded, model.ReasonDuplicateResolved); terr != nil {
			log.Warn("enrich: discard after duplicate failed", zap.Error(terr))
			return outcomeConflict
		}
		return outcomeDiscarded
	}
	return w.fail(ctx, sub, err, log)
}

// saveAssets downloads the screenshot and logo while their provider
// URLs are still live. Asset failures never fail the enrichment.
func (w *Worker) saveAssets(ctx context.Context, id string, page *extract.Page, data *model.EnrichmentData, log *zap.Logger) {
	if w.assets == nil {
		return
	}
	if page.Screenshot != "" {
		ref, err := w.assets.Save(ctx, id, assets.KindScreenshot, page.Screenshot)
		if err != nil {
			log.Warn("enrich: screenshot save failed", zap.Error(err))
		} else {
			data.ScreenshotRef = ref
		}
	}
	if logoURL := firstNonEmpty(page.OGImage, page.Favicon); logoURL != "" {
		ref, err := w.assets.Save(ctx, id, assets.KindLogo, logoURL)
		if err != nil {
			log.Warn("enrich: logo save failed", zap.Error(err))
		} else {
			data.LogoRef = ref
		}
	}
}

// fail routes an error to the retry siding or straight to discarded.
// A shutdown mid-flight parks the submission without burning an
// attempt: it did not fail, the worker stopped.
func (w *Worker) fail(ctx context.Context, sub *model.Submission, cause error, log *zap.Logger) outcome {
	if ctx.Err() != nil || eris.Is(cause, context.Canceled) {
		release := context.WithoutCancel(ctx)
		if err := w.store.Transition(release, sub.ID, model.StatusEnriching, model.StatusEnrichmentFailed, "canceled"); err != nil {
			log.Warn("enrich: release after cancellation failed", zap.Error(err))
			return outcomeConflict
		}
		log.Info("enrich: canceled, claim released")
		return outcomeRetried
	}

	reason := truncateReason(eris.Unpack(cause).ErrRoot.Msg)
	if reason == "" {
		reason = truncateReason(cause.Error())
	}

	if permanent(cause) {
		log.Info("enrich: permanent failure, discarding", zap.Error(cause))
		if err := w.store.Transition(ctx, sub.ID, model.StatusEnriching, model.StatusDiscarded, model.ReasonPermanentFailure+": "+reason); err != nil {
			log.Warn("enrich: discard failed", zap.Error(err))
			return outcomeConflict
		}
		return outcomeDiscarded
	}

	landed, err := w.store.RecordFailure(ctx, sub.ID, store.StageEnrich, reason, w.cfg.MaxAttempts)
	if err != nil {
		log.Warn("enrich: record failure failed", zap.Error(err))
		return outcomeConflict
	}
	if landed == model.StatusDiscarded {
		log.Info("enrich: retries exhausted", zap.Error(cause))
		return outcomeDiscarded
	}
	log.Info("enrich: transient failure, will retry", zap.Error(cause))
	return outcomeRetried
}

// permanent reports whether an error can never succeed on retry. Only
// a definitive upstream 4xx qualifies; everything else gets its full
// retry budget.
func permanent(err error) bool {
	var apiErr *firecrawl.APIError
	if eris.As(err, &apiErr) {
		return !resilience.IsTransientHTTPStatus(apiErr.StatusCode)
	}
	return false
}

func truncateReason(s string) string {
	const maxLen = 200
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
