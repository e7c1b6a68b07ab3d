// Package review runs the AI review stage: claimed enriched
// submissions are judged by a classifier model, confident verdicts
// auto-apply, and everything else parks for a human.
package review

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aiagents-directory/directory-cli/internal/config"
	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/store"
	"github.com/aiagents-directory/directory-cli/pkg/anthropic"
)

const maxDirectConcurrency = 4

// Summary tallies one review run.
type Summary struct {
	Claimed     int `json:"claimed"`
	Approved    int `json:"approved"`
	Rejected    int `json:"rejected"`
	Reviewed    int `json:"reviewed"` // parked verdicts when auto-apply is off
	NeedsManual int `json:"needs_manual"`
	Escalated   int `json:"escalated"` // sent to the stronger model
	Retried     int `json:"retried"`
	Discarded   int `json:"discarded"`
	Conflicts   int `json:"conflicts"`
}

// Worker runs the review stage.
type Worker struct {
	store store.Store
	ai    anthropic.Client
	aiCfg config.AnthropicConfig
	cfg   config.ReviewConfig
	id    string
}

// NewWorker creates a review Worker with a unique worker id.
func NewWorker(st store.Store, ai anthropic.Client, aiCfg config.AnthropicConfig, cfg config.ReviewConfig) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = maxDirectConcurrency
	}
	if cfg.ClaimTTLSecs <= 0 {
		cfg.ClaimTTLSecs = 300
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = 0.7
	}
	return &Worker{
		store: st,
		ai:    ai,
		aiCfg: aiCfg,
		cfg:   cfg,
		id:    "review-" + uuid.New().String()[:8],
	}
}

// Run claims up to limit enriched submissions and reviews them. Small
// workloads go through direct messages; larger ones through the Batches
// API with a cache-warming primer request.
func (w *Worker) Run(ctx context.Context, limit int) (*Summary, error) {
	if limit <= 0 {
		limit = 50
	}
	ttl := time.Duration(w.cfg.ClaimTTLSecs) * time.Second

	claimed, err := w.store.Claim(ctx, model.StatusEnriched, model.StatusReviewing, w.id, ttl, limit)
	if err != nil {
		return nil, eris.Wrap(err, "review: claim enriched")
	}
	if remaining := limit - len(claimed); remaining > 0 {
		retries, err := w.store.Claim(ctx, model.StatusReviewFailed, model.StatusReviewing, w.id, ttl, remaining)
		if err != nil {
			return nil, eris.Wrap(err, "review: claim retries")
		}
		claimed = append(claimed, retries...)
	}

	log := zap.L().With(zap.String("worker", w.id))
	log.Info("review: run started", zap.Int("claimed", len(claimed)))

	summary := &Summary{Claimed: len(claimed)}
	if len(claimed) == 0 {
		return summary, nil
	}

	// Submissions that lost their enrichment payload cannot be judged.
	reviewable := claimed[:0]
	for i := range claimed {
		if claimed[i].Enrichment == nil {
			w.recordFailure(ctx, summary, &claimed[i], eris.New("review: submission has no enrichment data"), log)
			continue
		}
		reviewable = append(reviewable, claimed[i])
	}

	verdicts := w.judge(ctx, reviewable, summary, log)
	for i := range reviewable {
		sub := &reviewable[i]
		v := verdicts[sub.ID]
		if v.err != nil {
			w.recordFailure(ctx, summary, sub, v.err, log)
			continue
		}
		w.apply(ctx, summary, sub, v.result, log)
	}

	log.Info("review: run complete",
		zap.Int("approved", summary.Approved),
		zap.Int("rejected", summary.Rejected),
		zap.Int("needs_manual", summary.NeedsManual),
		zap.Int("escalated", summary.Escalated),
		zap.Int("retried", summary.Retried),
	)
	return summary, nil
}

type verdict struct {
	result *model.ReviewResult
	err    error
}

// judge runs the first classifier pass and escalates low-confidence
// verdicts to the stronger model.
func (w *Worker) judge(ctx context.Context, subs []model.Submission, summary *Summary, log *zap.Logger) map[string]verdict {
	threshold := w.aiCfg.SmallBatchThreshold
	if threshold <= 0 {
		threshold = 8
	}

	var verdicts map[string]verdict
	if w.aiCfg.NoBatch || len(subs) <= threshold {
		verdicts = w.judgeDirect(ctx, subs, w.aiCfg.HaikuModel)
	} else {
		verdicts = w.judgeBatch(ctx, subs, w.aiCfg.HaikuModel, log)
	}

	// Second pass: a stronger model gets a chance to lift borderline
	// verdicts over the auto-apply bar before a human is pulled in.
	for i := range subs {
		sub := &subs[i]
		v := verdicts[sub.ID]
		if v.err != nil || v.result == nil {
			continue
		}
		if v.result.Confidence >= w.cfg.ConfidenceThreshold || w.aiCfg.SonnetModel == "" {
			continue
		}
		summary.Escalated++
		escalated, err := w.reviewOne(ctx, sub, w.aiCfg.SonnetModel)
		if err != nil {
			log.Warn("review: escalation failed, keeping first verdict",
				zap.String("submission_id", sub.ID),
				zap.Error(err),
			)
			continue
		}
		if escalated.Confidence > v.result.Confidence {
			verdicts[sub.ID] = verdict{result: escalated}
		}
	}
	return verdicts
}

func (w *Worker) judgeDirect(ctx context.Context, subs []model.Submission, modelID string) map[string]verdict {
	verdicts := make(map[string]verdict, len(subs))
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(w.cfg.Concurrency)

	for i := range subs {
		sub := &subs[i]
		g.Go(func() error {
			rr, err := w.reviewOne(gCtx, sub, modelID)
			mu.Lock()
			verdicts[sub.ID] = verdict{result: rr, err: err}
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return verdicts
}

func (w *Worker) judgeBatch(ctx context.Context, subs []model.Submission, modelID string, log *zap.Logger) map[string]verdict {
	verdicts := make(map[string]verdict, len(subs))
	systemBlocks := anthropic.BuildCachedSystemBlocks(systemPrompt)

	// Warm the prompt cache so every batch item reads it back.
	if len(subs) > 0 {
		_, err := anthropic.PrimerRequest(ctx, w.ai, anthropic.MessageRequest{
			Model:     modelID,
			MaxTokens: 16,
			System:    systemBlocks,
			Messages:  []anthropic.Message{{Role: "user", Content: "ready?"}},
		})
		if err != nil {
			log.Warn("review: cache primer failed", zap.Error(err))
		}
	}

	items := make([]anthropic.BatchRequestItem, len(subs))
	for i := range subs {
		items[i] = anthropic.BatchRequestItem{
			CustomID: subs[i].ID,
			Params: anthropic.MessageRequest{
				Model:     modelID,
				MaxTokens: 512,
				System:    systemBlocks,
				Messages:  []anthropic.Message{{Role: "user", Content: buildUserPrompt(&subs[i])}},
			},
		}
	}

	failAll := func(cause error) map[string]verdict {
		for i := range subs {
			verdicts[subs[i].ID] = verdict{err: cause}
		}
		return verdicts
	}

	batch, err := w.ai.CreateBatch(ctx, anthropic.BatchRequest{Requests: items})
	if err != nil {
		return failAll(eris.Wrap(err, "review: create batch"))
	}
	batch, err = anthropic.PollBatch(ctx, w.ai, batch.ID)
	if err != nil {
		return failAll(eris.Wrap(err, "review: poll batch"))
	}
	iter, err := w.ai.GetBatchResults(ctx, batch.ID)
	if err != nil {
		return failAll(eris.Wrap(err, "review: get batch results"))
	}
	results, err := anthropic.CollectBatchResults(iter)
	if err != nil {
		return failAll(eris.Wrap(err, "review: collect batch results"))
	}

	var total anthropic.TokenUsage
	for i := range subs {
		id := subs[i].ID
		resp, ok := results[id]
		if !ok || resp == nil {
			verdicts[id] = verdict{err: eris.Errorf("review: batch item %s did not succeed", id)}
			continue
		}
		total.InputTokens += resp.Usage.InputTokens
		total.OutputTokens += resp.Usage.OutputTokens
		total.CacheCreationInputTokens += resp.Usage.CacheCreationInputTokens
		total.CacheReadInputTokens += resp.Usage.CacheReadInputTokens

		rr, perr := parseVerdict(extractText(resp), resp.Model)
		verdicts[id] = verdict{result: rr, err: perr}
	}
	total.LogCost(modelID, "review-batch")

	return verdicts
}

// reviewOne sends a single direct review request.
func (w *Worker) reviewOne(ctx context.Context, sub *model.Submission, modelID string) (*model.ReviewResult, error) {
	resp, err := w.ai.CreateMessage(ctx, anthropic.MessageRequest{
		Model:     modelID,
		MaxTokens: 512,
		System:    anthropic.BuildCachedSystemBlocks(systemPrompt),
		Messages:  []anthropic.Message{{Role: "user", Content: buildUserPrompt(sub)}},
	})
	if err != nil {
		return nil, eris.Wrap(err, "review: create message")
	}
	resp.Usage.LogCost(modelID, "review")
	return parseVerdict(extractText(resp), resp.Model)
}

// apply writes the verdict and its decided status atomically.
func (w *Worker) apply(ctx context.Context, summary *Summary, sub *model.Submission, rr *model.ReviewResult, log *zap.Logger) {
	to, reason := decide(rr, w.cfg.ConfidenceThreshold, w.cfg.AutoApply)
	if err := w.store.SetReview(ctx, sub.ID, rr, to, reason); err != nil {
		if eris.Is(err, store.ErrConflict) || eris.Is(err, store.ErrNotFound) {
			log.Warn("review: lost claim before writing verdict",
				zap.String("submission_id", sub.ID),
				zap.Error(err),
			)
			summary.Conflicts++
			return
		}
		w.recordFailure(ctx, summary, sub, err, log)
		return
	}

	switch to {
	case model.StatusApproved:
		summary.Approved++
	case model.StatusRejected:
		summary.Rejected++
	case model.StatusReviewed:
		summary.Reviewed++
	case model.StatusNeedsManual:
		summary.NeedsManual++
	}
	log.Info("review: verdict applied",
		zap.String("submission_id", sub.ID),
		zap.String("decision", string(rr.Decision)),
		zap.Float64("confidence", rr.Confidence),
		zap.String("status", string(to)),
	)
}

func (w *Worker) recordFailure(ctx context.Context, summary *Summary, sub *model.Submission, cause error, log *zap.Logger) {
	if ctx.Err() != nil || eris.Is(cause, context.Canceled) {
		// Shutdown, not a verdict failure. Park without burning an attempt.
		release := context.WithoutCancel(ctx)
		if err := w.store.Transition(release, sub.ID, model.StatusReviewing, model.StatusReviewFailed, "canceled"); err != nil {
			log.Warn("review: release after cancellation failed", zap.Error(err))
			summary.Conflicts++
			return
		}
		log.Info("review: canceled, claim released", zap.String("submission_id", sub.ID))
		summary.Retried++
		return
	}

	landed, err := w.store.RecordFailure(ctx, sub.ID, store.StageReview, truncateReason(cause.Error()), w.cfg.MaxAttempts)
	if err != nil {
		log.Warn("review: record failure failed",
			zap.String("submission_id", sub.ID),
			zap.Error(err),
		)
		summary.Conflicts++
		return
	}
	if landed == model.StatusDiscarded {
		log.Info("review: retries exhausted", zap.String("submission_id", sub.ID), zap.Error(cause))
		summary.Discarded++
		return
	}
	log.Info("review: transient failure, will retry", zap.String("submission_id", sub.ID), zap.Error(cause))
	summary.Retried++
}

// extractText concatenates the text blocks of a response.
func extractText(resp *anthropic.MessageResponse) string {
	var out string
	for _, block := range resp.Content {
		if block.Type == "text" {
			out += block.Text
		}
	}
	return out
}

func truncateReason(s string) string {
	const maxLen = 200
	if len(s) > maxLen {
		return s[:maxLen]
	}
	return s
}
