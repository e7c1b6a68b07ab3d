// Package store persists submissions and published agents and owns all
// state-machine transitions. Both backends enforce the same contract:
// compare-and-set transitions, exclusive time-bounded claims, and a
// unique identity key across active submissions and published agents.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/internal/model"
)

// Sentinel errors shared by both backends. Callers branch on these with
// eris.Is.
var (
	// ErrNotFound is returned when no row matches the given id.
	ErrNotFound = eris.New("store: not found")

	// ErrConflict is returned when a compare-and-set transition loses:
	// the row's current status no longer matches the expected one.
	ErrConflict = eris.New("store: transition conflict")

	// ErrDuplicate is returned when an identity key already exists among
	// active submissions or published agents.
	ErrDuplicate = eris.New("store: duplicate identity key")

	// ErrIllegalTransition is returned when the requested edge is not
	// part of the lifecycle state machine.
	ErrIllegalTransition = eris.New("store: illegal transition")
)

// ActivityStats summarizes recent pipeline throughput for the status
// command and the ops server.
type ActivityStats struct {
	Since          time.Time      `json:"since"`
	Created        int            `json:"created"`
	Published      int            `json:"published"`
	DiscardReasons map[string]int `json:"discard_reasons"`
	AvgConfidence  float64        `json:"avg_confidence"` // 0 when no verdicts landed in the window
	ExpiredClaims  int            `json:"expired_claims"`
}

// SubmissionFilter specifies criteria for listing submissions.
type SubmissionFilter struct {
	Status model.Status `json:"status,omitempty"`
	Limit  int          `json:"limit,omitempty"`
	Offset int          `json:"offset,omitempty"`
}

// Store defines the persistence interface for the submission pipeline.
type Store interface {
	// CreateSubmission inserts a new submission in status discovered.
	// When the identity key already exists among active submissions or
	// published agents it inserts nothing and returns false.
	CreateSubmission(ctx context.Context, sub *model.Submission) (bool, error)

	GetSubmission(ctx context.Context, id string) (*model.Submission, error)
	GetByIdentityKey(ctx context.Context, key string) (*model.Submission, error)
	ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)
	CountByStatus(ctx context.Context) (map[model.Status]int, error)

	// Activity summarizes pipeline throughput since the given time:
	// submissions created, agents published, discard reasons, average
	// verdict confidence, and claims that expired without completing.
	Activity(ctx context.Context, since time.Time) (*ActivityStats, error)

	// Claim atomically selects up to limit submissions in status from
	// whose claim is absent or expired, moves them to status to, and
	// stamps the worker's claim. Returned submissions are owned by the
	// worker until the claim expires.
	Claim(ctx context.Context, from, to model.Status, worker string, ttl time.Duration, limit int) ([]model.Submission, error)

	// Transition performs a compare-and-set status change. It fails with
	// ErrIllegalTransition for edges outside the state machine and
	// ErrConflict when the row is no longer in the expected status.
	Transition(ctx context.Context, id string, from, to model.Status, reason string) error

	// SetEnrichment persists extraction output and transitions
	// enriching -> enriched in the same statement.
	SetEnrichment(ctx context.Context, id string, data *model.EnrichmentData) error

	// SetReview persists a validated verdict and the decided status in
	// one atomic write, so a crash never separates verdict from status.
	SetReview(ctx context.Context, id string, review *model.ReviewResult, to model.Status, reason string) error

	// RecordFailure increments the stage's attempt counter and moves the
	// submission to its siding, or to discarded once attempts reach
	// maxAttempts. It returns the status the submission landed in.
	RecordFailure(ctx context.Context, id string, stage Stage, reason string, maxAttempts int) (model.Status, error)

	// UpdateIdentity rewrites a submission's identity after aggregator
	// resolution. Returns ErrDuplicate when the new key is taken.
	UpdateIdentity(ctx context.Context, id, identityKey, canonicalURL string) error

	// IdentityActive reports whether a key exists among non-terminal
	// submissions or published agents.
	IdentityActive(ctx context.Context, key string) (bool, error)

	// PublishSubmission transactionally re-checks the identity key,
	// creates the directory entry, and marks the submission published.
	// Calling it again for an already-published submission returns the
	// existing agent. A key taken by someone else returns ErrDuplicate.
	PublishSubmission(ctx context.Context, id string) (*model.PublishedAgent, error)

	GetAgentByIdentityKey(ctx context.Context, key string) (*model.PublishedAgent, error)
	ListAgents(ctx context.Context, limit, offset int) ([]model.PublishedAgent, error)

	// ImportAgents seeds the directory from an existing export so the
	// dedup index covers entries published before this pipeline ran.
	// Entries whose identity key is already present are skipped.
	ImportAgents(ctx context.Context, agents []model.PublishedAgent) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Stage identifies which attempt counter and siding a failure belongs to.
type Stage string

const (
	StageEnrich Stage = "enrich"
	StageReview Stage = "review"
)

// Siding returns the stage's retry-siding status.
func (s Stage) Siding() model.Status {
	if s == StageReview {
		return model.StatusReviewFailed
	}
	return model.StatusEnrichmentFailed
}

// Working returns the stage's in-flight status.
func (s Stage) Working() model.Status {
	if s == StageReview {
		return model.StatusReviewing
	}
	return model.StatusEnriching
}
