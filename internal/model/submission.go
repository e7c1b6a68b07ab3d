// Package model defines the submission pipeline's data types and the
// lifecycle state machine every stage mutates through.
package model

import (
	"time"
)

// Status represents where a submission sits in the pipeline.
type Status string

const (
	StatusDiscovered       Status = "discovered"
	StatusEnriching        Status = "enriching"
	StatusEnriched         Status = "enriched"
	StatusEnrichmentFailed Status = "enrichment_failed"
	StatusReviewing        Status = "reviewing"
	StatusReviewed         Status = "reviewed"
	StatusReviewFailed     Status = "review_failed"
	StatusApproved         Status = "approved"
	StatusRejected         Status = "rejected"
	StatusNeedsManual      Status = "needs_manual_review"
	StatusPublished        Status = "published"
	StatusDiscarded        Status = "discarded"
)

// Reason codes recorded on siding and terminal transitions.
const (
	ReasonRetriesExhausted   = "retries-exhausted"
	ReasonDuplicateAtPublish = "duplicate-at-publish"
	ReasonDuplicateResolved  = "duplicate-of-existing"
	ReasonPermanentFailure   = "permanent-failure"
	ReasonManualOverride     = "manual-override"
)

// transitions encodes the legal edges of the pipeline state machine.
// Stages own the state they transition out of; nothing skips a stage.
var transitions = map[Status][]Status{
	StatusDiscovered:       {StatusEnriching},
	StatusEnriching:        {StatusEnriched, StatusEnrichmentFailed, StatusDiscarded},
	StatusEnrichmentFailed: {StatusEnriching, StatusDiscarded},
	StatusEnriched:         {StatusReviewing},
	StatusReviewing:        {StatusReviewed, StatusApproved, StatusRejected, StatusNeedsManual, StatusReviewFailed, StatusDiscarded},
	StatusReviewFailed:     {StatusReviewing, StatusDiscarded},
	StatusReviewed:         {StatusApproved, StatusRejected, StatusNeedsManual},
	StatusApproved:         {StatusPublished, StatusDiscarded},
	StatusNeedsManual:      {StatusApproved, StatusRejected, StatusDiscarded},
	StatusRejected:         {StatusDiscarded},
}

// CanTransition reports whether moving a submission from one status to
// another follows a legal pipeline edge.
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Terminal reports whether a status ends the submission's lifecycle.
// needs_manual_review is terminal-pending: it blocks until an explicit
// override, but is not terminal itself.
func (s Status) Terminal() bool {
	return s == StatusPublished || s == StatusDiscarded
}

// Claimable reports whether a worker may claim a submission in this
// status for the given stage entry points.
func (s Status) Claimable() bool {
	switch s {
	case StatusDiscovered, StatusEnrichmentFailed, StatusEnriched, StatusReviewFailed, StatusApproved:
		return true
	default:
		return false
	}
}

// PricingModel is the constrained pricing classification extracted
// during enrichment.
type PricingModel string

const (
	PricingUnknown    PricingModel = "UNKNOWN"
	PricingFree       PricingModel = "FREE"
	PricingFreemium   PricingModel = "FREEMIUM"
	PricingPaid       PricingModel = "PAID"
	PricingEnterprise PricingModel = "ENTERPRISE"
	PricingContact    PricingModel = "CONTACT"
)

// ValidPricingModel reports whether v is one of the known pricing values.
func ValidPricingModel(v string) bool {
	switch PricingModel(v) {
	case PricingUnknown, PricingFree, PricingFreemium, PricingPaid, PricingEnterprise, PricingContact:
		return true
	default:
		return false
	}
}

// EnrichmentData holds structured content extracted from a product site.
type EnrichmentData struct {
	Name             string       `json:"name,omitempty"`
	ShortDescription string       `json:"short_description,omitempty"`
	Description      string       `json:"description,omitempty"`
	Features         []string     `json:"features,omitempty"`
	UseCases         []string     `json:"use_cases,omitempty"`
	PricingModel     PricingModel `json:"pricing_model,omitempty"`
	LogoRef          string       `json:"logo_ref,omitempty"`
	ScreenshotRef    string       `json:"screenshot_ref,omitempty"`
	RawMarkdown      string       `json:"raw_markdown,omitempty"`
	FinalURL         string       `json:"final_url,omitempty"`
}

// Decision is the classifier's verdict on a submission.
type Decision string

const (
	DecisionApprove Decision = "approve"
	DecisionReject  Decision = "reject"
)

// ReviewResult is the validated output of the AI review stage.
type ReviewResult struct {
	Decision    Decision `json:"decision"`
	Confidence  float64  `json:"confidence"`
	Reasoning   string   `json:"reasoning"`
	Flags       []string `json:"flags,omitempty"`
	AutoApplied bool     `json:"auto_applied"`
	Model       string   `json:"model,omitempty"`
}

// Valid checks the structural contract on a classifier verdict: a known
// decision and a confidence inside [0,1]. Anything else is treated as a
// transient failure by the review engine, never coerced.
func (r *ReviewResult) Valid() bool {
	if r == nil {
		return false
	}
	if r.Decision != DecisionApprove && r.Decision != DecisionReject {
		return false
	}
	return r.Confidence >= 0 && r.Confidence <= 1
}

// Submission is the unit of work owned exclusively by the pipeline.
type Submission struct {
	ID             string          `json:"id"`
	IdentityKey    string          `json:"identity_key"`
	RawURL         string          `json:"raw_url"`
	CanonicalURL   string          `json:"canonical_url"`
	Name           string          `json:"name"`
	Description    string          `json:"description,omitempty"`
	DiscoveryQuery *string         `json:"discovery_query,omitempty"`
	Aggregator     bool            `json:"aggregator"`
	Status         Status          `json:"status"`
	StatusReason   string          `json:"status_reason,omitempty"`
	Enrichment     *EnrichmentData `json:"enrichment,omitempty"`
	Review         *ReviewResult   `json:"review,omitempty"`
	EnrichAttempts int             `json:"enrich_attempts"`
	ReviewAttempts int             `json:"review_attempts"`
	ClaimedBy      string          `json:"claimed_by,omitempty"`
	ClaimedUntil   *time.Time      `json:"claimed_until,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}
