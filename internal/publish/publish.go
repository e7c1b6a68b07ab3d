// Package publish turns approved submissions into live directory
// entries and sweeps rejected ones into the discard pile. Publishing is
// idempotent: re-running after a crash re-converges without creating
// duplicate entries.
package publish

import (
	"context"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/store"
)

// Summary tallies one publish or reject sweep.
type Summary struct {
	Scanned    int `json:"scanned"`
	Published  int `json:"published"`
	Duplicates int `json:"duplicates"`
	Discarded  int `json:"discarded"`
	Conflicts  int `json:"conflicts"`
	Errors     int `json:"errors"`
}

// Publisher drives the terminal stage of the pipeline.
type Publisher struct {
	store store.Store
}

func NewPublisher(st store.Store) *Publisher {
	return &Publisher{store: st}
}

// PublishBatch publishes up to limit approved submissions. A submission
// whose identity key was taken since approval is discarded rather than
// retried: the directory entry it would have created already exists.
// With dryRun, candidates are listed and counted but nothing is written.
func (p *Publisher) PublishBatch(ctx context.Context, limit int, dryRun bool) (*Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	subs, err := p.store.ListSubmissions(ctx, store.SubmissionFilter{
		Status: model.StatusApproved,
		Limit:  limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "publish: list approved")
	}

	log := zap.L()
	summary := &Summary{Scanned: len(subs)}
	if dryRun {
		for i := range subs {
			log.Info("publish: would publish",
				zap.String("submission_id", subs[i].ID),
				zap.String("identity_key", subs[i].IdentityKey),
			)
		}
		return summary, nil
	}
	for i := range subs {
		sub := &subs[i]
		agent, err := p.store.PublishSubmission(ctx, sub.ID)
		switch {
		case err == nil:
			summary.Published++
			log.Info("publish: agent live",
				zap.String("submission_id", sub.ID),
				zap.String("identity_key", agent.IdentityKey),
				zap.String("agent_id", agent.ID),
			)
		case eris.Is(err, store.ErrDuplicate):
			if terr := p.store.Transition(ctx, sub.ID, model.StatusApproved, model.StatusDiscarded, model.ReasonDuplicateAtPublish); terr != nil {
				log.Warn("publish: discard after duplicate failed",
					zap.String("submission_id", sub.ID),
					zap.Error(terr),
				)
				summary.Conflicts++
				continue
			}
			summary.Duplicates++
			log.Info("publish: identity taken, discarded",
				zap.String("submission_id", sub.ID),
				zap.String("identity_key", sub.IdentityKey),
			)
		case eris.Is(err, store.ErrConflict), eris.Is(err, store.ErrNotFound):
			// Someone else moved it between the list and the publish.
			summary.Conflicts++
		default:
			summary.Errors++
			log.Error("publish: failed",
				zap.String("submission_id", sub.ID),
				zap.Error(err),
			)
		}
	}
	return summary, nil
}

// RejectBatch moves up to limit rejected submissions to discarded,
// carrying the verdict's reason forward.
func (p *Publisher) RejectBatch(ctx context.Context, limit int) (*Summary, error) {
	if limit <= 0 {
		limit = 100
	}
	subs, err := p.store.ListSubmissions(ctx, store.SubmissionFilter{
		Status: model.StatusRejected,
		Limit:  limit,
	})
	if err != nil {
		return nil, eris.Wrap(err, "publish: list rejected")
	}

	summary := &Summary{Scanned: len(subs)}
	for i := range subs {
		sub := &subs[i]
		reason := sub.StatusReason
		if reason == "" {
			reason = "rejected"
		}
		if err := p.store.Transition(ctx, sub.ID, model.StatusRejected, model.StatusDiscarded, reason); err != nil {
			if eris.Is(err, store.ErrConflict) || eris.Is(err, store.ErrNotFound) {
				summary.Conflicts++
				continue
			}
			return summary, eris.Wrapf(err, "publish: discard rejected %s", sub.ID)
		}
		summary.Discarded++
	}
	return summary, nil
}

// Override resolves a submission parked in needs_manual_review, or one
// holding at reviewed when auto-apply is off, with a human decision. The
// verdict's audit trail keeps the model's output; only the status moves.
func (p *Publisher) Override(ctx context.Context, id string, decision model.Decision, note string) (*model.Submission, error) {
	sub, err := p.store.GetSubmission(ctx, id)
	if err != nil {
		return nil, eris.Wrapf(err, "override: load %s", id)
	}
	if sub.Status != model.StatusNeedsManual && sub.Status != model.StatusReviewed {
		return nil, eris.Errorf("override: submission %s is %s, not %s", id, sub.Status, model.StatusNeedsManual)
	}

	var to model.Status
	switch decision {
	case model.DecisionApprove:
		to = model.StatusApproved
	case model.DecisionReject:
		to = model.StatusRejected
	default:
		return nil, eris.Errorf("override: unknown decision %q", decision)
	}

	reason := model.ReasonManualOverride
	if note != "" {
		reason = reason + ": " + note
	}
	if err := p.store.Transition(ctx, id, sub.Status, to, reason); err != nil {
		return nil, eris.Wrapf(err, "override: transition %s", id)
	}

	zap.L().Info("override applied",
		zap.String("submission_id", id),
		zap.String("decision", string(decision)),
		zap.String("status", string(to)),
	)
	return p.store.GetSubmission(ctx, id)
}
