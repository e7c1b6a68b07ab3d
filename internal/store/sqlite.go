package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/aiagents-directory/directory-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY,
	identity_key    TEXT NOT NULL,
	raw_url         TEXT NOT NULL,
	canonical_url   TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	discovery_query TEXT,
	aggregator      INTEGER NOT NULL DEFAULT 0,
	status          TEXT NOT NULL DEFAULT 'discovered',
	status_reason   TEXT NOT NULL DEFAULT '',
	enrichment      TEXT,
	review          TEXT,
	enrich_attempts INTEGER NOT NULL DEFAULT 0,
	review_attempts INTEGER NOT NULL DEFAULT 0,
	claimed_by      TEXT NOT NULL DEFAULT '',
	claimed_until   DATETIME,
	created_at      DATETIME NOT NULL,
	updated_at      DATETIME NOT NULL
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_identity_active
	ON submissions(identity_key)
	WHERE status NOT IN ('published', 'discarded');

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
CREATE INDEX IF NOT EXISTS idx_submissions_claimed_until ON submissions(claimed_until);

CREATE TABLE IF NOT EXISTS agents (
	id             TEXT PRIMARY KEY,
	identity_key   TEXT NOT NULL UNIQUE,
	submission_id  TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL,
	name           TEXT NOT NULL,
	short_desc     TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	features       TEXT,
	use_cases      TEXT,
	pricing_model  TEXT NOT NULL DEFAULT 'UNKNOWN',
	logo_ref       TEXT NOT NULL DEFAULT '',
	screenshot_ref TEXT NOT NULL DEFAULT '',
	published_at   DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_agents_submission_id ON agents(submission_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

const submissionCols = `id, identity_key, raw_url, canonical_url, name, description,
	discovery_query, aggregator, status, status_reason, enrichment, review,
	enrich_attempts, review_attempts, claimed_by, claimed_until, created_at, updated_at`

func (s *SQLiteStore) CreateSubmission(ctx context.Context, sub *model.Submission) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: begin")
	}
	defer tx.Rollback()

	taken, err := identityActiveTx(ctx, tx, sub.IdentityKey, "")
	if err != nil {
		return false, err
	}
	if taken {
		return false, nil
	}

	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sub.Status = model.StatusDiscovered
	sub.CreatedAt = now
	sub.UpdatedAt = now

	_, err = tx.ExecContext(ctx,
		`INSERT INTO submissions
		 (id, identity_key, raw_url, canonical_url, name, description, discovery_query, aggregator, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sub.ID, sub.IdentityKey, sub.RawURL, sub.CanonicalURL, sub.Name, sub.Description,
		sub.DiscoveryQuery, boolToInt(sub.Aggregator), string(model.StatusDiscovered), now, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "sqlite: insert submission")
	}
	return true, eris.Wrap(tx.Commit(), "sqlite: commit")
}

func (s *SQLiteStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE id = ?`, id)
	return scanSubmission(row)
}

func (s *SQLiteStore) GetByIdentityKey(ctx context.Context, key string) (*model.Submission, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions
		 WHERE identity_key = ? AND status NOT IN ('published', 'discarded')
		 LIMIT 1`, key)
	return scanSubmission(row)
}

func (s *SQLiteStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + submissionCols + ` FROM submissions WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list submissions")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "sqlite: list submissions iterate")
}

func (s *SQLiteStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: count by status")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "sqlite: count iterate")
}

func (s *SQLiteStore) Activity(ctx context.Context, since time.Time) (*ActivityStats, error) {
	stats := &ActivityStats{Since: since, DiscardReasons: make(map[string]int)}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions WHERE created_at >= ?`, since,
	).Scan(&stats.Created)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: activity created")
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM agents WHERE published_at >= ?`, since,
	).Scan(&stats.Published)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: activity published")
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT status_reason, COUNT(*) FROM submissions
		 WHERE status = ? AND updated_at >= ?
		 GROUP BY status_reason`,
		model.StatusDiscarded, since)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: activity discards")
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan discard reason")
		}
		stats.DiscardReasons[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: activity discards iterate")
	}

	var avg sql.NullFloat64
	err = s.db.QueryRowContext(ctx,
		`SELECT AVG(json_extract(review, '$.confidence')) FROM submissions
		 WHERE review IS NOT NULL AND updated_at >= ?`, since,
	).Scan(&avg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: activity confidence")
	}
	stats.AvgConfidence = avg.Float64

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM submissions
		 WHERE claimed_until IS NOT NULL AND claimed_until < ?
		   AND status IN (?, ?)`,
		time.Now().UTC(), model.StatusEnriching, model.StatusReviewing,
	).Scan(&stats.ExpiredClaims)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: activity expired claims")
	}
	return stats, nil
}

func (s *SQLiteStore) Claim(ctx context.Context, from, to model.Status, worker string, ttl time.Duration, limit int) ([]model.Submission, error) {
	if !model.CanTransition(from, to) {
		return nil, eris.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	if limit <= 0 {
		limit = 10
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin claim")
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rows, err := tx.QueryContext(ctx,
		`SELECT id FROM submissions
		 WHERE status = ? AND (claimed_until IS NULL OR claimed_until < ?)
		 ORDER BY created_at
		 LIMIT ?`,
		string(from), now, limit)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: select claimable")
	}
	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, eris.Wrap(err, "sqlite: scan claimable")
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: claimable iterate")
	}

	until := now.Add(ttl)
	var claimed []model.Submission
	for _, id := range ids {
		res, err := tx.ExecContext(ctx,
			`UPDATE submissions
			 SET status = ?, claimed_by = ?, claimed_until = ?, updated_at = ?
			 WHERE id = ? AND status = ?`,
			string(to), worker, until, now, id, string(from))
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: claim %s", id)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			continue
		}
		row := tx.QueryRowContext(ctx,
			`SELECT `+submissionCols+` FROM submissions WHERE id = ?`, id)
		sub, err := scanSubmission(row)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *sub)
	}

	return claimed, eris.Wrap(tx.Commit(), "sqlite: commit claim")
}

func (s *SQLiteStore) Transition(ctx context.Context, id string, from, to model.Status, reason string) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, status_reason = ?, claimed_by = '', claimed_until = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(to), reason, time.Now().UTC(), id, string(from))
	if err != nil {
		return eris.Wrapf(err, "sqlite: transition %s", id)
	}
	return s.checkCAS(ctx, res, id)
}

func (s *SQLiteStore) SetEnrichment(ctx context.Context, id string, data *model.EnrichmentData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal enrichment")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET enrichment = ?, status = ?, status_reason = '', claimed_by = '', claimed_until = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(dataJSON), string(model.StatusEnriched), time.Now().UTC(),
		id, string(model.StatusEnriching))
	if err != nil {
		return eris.Wrapf(err, "sqlite: set enrichment %s", id)
	}
	return s.checkCAS(ctx, res, id)
}

func (s *SQLiteStore) SetReview(ctx context.Context, id string, review *model.ReviewResult, to model.Status, reason string) error {
	if !model.CanTransition(model.StatusReviewing, to) {
		return eris.Wrapf(ErrIllegalTransition, "reviewing -> %s", to)
	}
	reviewJSON, err := json.Marshal(review)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal review")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE submissions
		 SET review = ?, status = ?, status_reason = ?, claimed_by = '', claimed_until = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(reviewJSON), string(to), reason, time.Now().UTC(),
		id, string(model.StatusReviewing))
	if err != nil {
		return eris.Wrapf(err, "sqlite: set review %s", id)
	}
	return s.checkCAS(ctx, res, id)
}

func (s *SQLiteStore) RecordFailure(ctx context.Context, id string, stage Stage, reason string, maxAttempts int) (model.Status, error) {
	attemptCol := "enrich_attempts"
	if stage == StageReview {
		attemptCol = "review_attempts"
	}
	working := stage.Working()
	siding := stage.Siding()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", eris.Wrap(err, "sqlite: begin failure")
	}
	defer tx.Rollback()

	var attempts int
	err = tx.QueryRowContext(ctx,
		`SELECT `+attemptCol+` FROM submissions WHERE id = ? AND status = ?`,
		id, string(working)).Scan(&attempts)
	if err == sql.ErrNoRows {
		return "", eris.Wrapf(ErrConflict, "submission %s not in %s", id, working)
	}
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: read attempts %s", id)
	}

	attempts++
	next := siding
	if attempts >= maxAttempts {
		next = model.StatusDiscarded
		reason = model.ReasonRetriesExhausted
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE submissions
		 SET `+attemptCol+` = ?, status = ?, status_reason = ?, claimed_by = '', claimed_until = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		attempts, string(next), reason, time.Now().UTC(), id, string(working))
	if err != nil {
		return "", eris.Wrapf(err, "sqlite: record failure %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return "", eris.Wrapf(ErrConflict, "submission %s left %s", id, working)
	}
	return next, eris.Wrap(tx.Commit(), "sqlite: commit failure")
}

func (s *SQLiteStore) UpdateIdentity(ctx context.Context, id, identityKey, canonicalURL string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin identity update")
	}
	defer tx.Rollback()

	taken, err := identityActiveTx(ctx, tx, identityKey, id)
	if err != nil {
		return err
	}
	if taken {
		return eris.Wrapf(ErrDuplicate, "key %s", identityKey)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE submissions SET identity_key = ?, canonical_url = ?, updated_at = ? WHERE id = ?`,
		identityKey, canonicalURL, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update identity %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return eris.Wrapf(ErrNotFound, "submission %s", id)
	}
	return eris.Wrap(tx.Commit(), "sqlite: commit identity update")
}

func (s *SQLiteStore) IdentityActive(ctx context.Context, key string) (bool, error) {
	return identityActiveTx(ctx, s.db, key, "")
}

func (s *SQLiteStore) PublishSubmission(ctx context.Context, id string) (*model.PublishedAgent, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: begin publish")
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+submissionCols+` FROM submissions WHERE id = ?`, id)
	sub, err := scanSubmission(row)
	if err != nil {
		return nil, err
	}

	// A second publish of the same submission returns the existing entry.
	if sub.Status == model.StatusPublished {
		agent, err := getAgentTx(ctx, tx, `submission_id = ?`, id)
		if err != nil {
			return nil, err
		}
		return agent, eris.Wrap(tx.Commit(), "sqlite: commit publish")
	}
	if sub.Status != model.StatusApproved {
		return nil, eris.Wrapf(ErrConflict, "submission %s is %s, not approved", id, sub.Status)
	}

	taken, err := identityActiveTx(ctx, tx, sub.IdentityKey, id)
	if err != nil {
		return nil, err
	}
	if taken {
		return nil, eris.Wrapf(ErrDuplicate, "key %s", sub.IdentityKey)
	}

	agent := agentFromSubmission(sub)
	featuresJSON, _ := json.Marshal(agent.Features)
	useCasesJSON, _ := json.Marshal(agent.UseCases)

	_, err = tx.ExecContext(ctx,
		`INSERT INTO agents
		 (id, identity_key, submission_id, url, name, short_desc, description, features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		agent.ID, agent.IdentityKey, agent.SubmissionID, agent.URL, agent.Name,
		agent.ShortDesc, agent.Description, string(featuresJSON), string(useCasesJSON),
		string(agent.PricingModel), agent.LogoRef, agent.ScreenshotRef, agent.PublishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert agent")
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE submissions
		 SET status = ?, status_reason = '', claimed_by = '', claimed_until = NULL, updated_at = ?
		 WHERE id = ? AND status = ?`,
		string(model.StatusPublished), time.Now().UTC(), id, string(model.StatusApproved))
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: mark published %s", id)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, eris.Wrapf(ErrConflict, "submission %s left approved", id)
	}

	return agent, eris.Wrap(tx.Commit(), "sqlite: commit publish")
}

func (s *SQLiteStore) GetAgentByIdentityKey(ctx context.Context, key string) (*model.PublishedAgent, error) {
	return getAgentTx(ctx, s.db, `identity_key = ?`, key)
}

func (s *SQLiteStore) ListAgents(ctx context.Context, limit, offset int) ([]model.PublishedAgent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, identity_key, submission_id, url, name, short_desc, description,
		        features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at
		 FROM agents ORDER BY published_at DESC LIMIT ? OFFSET ?`,
		limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list agents")
	}
	defer rows.Close()

	var agents []model.PublishedAgent
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, eris.Wrap(rows.Err(), "sqlite: list agents iterate")
}

func (s *SQLiteStore) ImportAgents(ctx context.Context, agents []model.PublishedAgent) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin import")
	}
	defer tx.Rollback()

	imported := 0
	for _, a := range agents {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.PublishedAt.IsZero() {
			a.PublishedAt = time.Now().UTC()
		}
		featuresJSON, _ := json.Marshal(a.Features)
		useCasesJSON, _ := json.Marshal(a.UseCases)

		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO agents
			 (id, identity_key, submission_id, url, name, short_desc, description, features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			a.ID, a.IdentityKey, a.SubmissionID, a.URL, a.Name,
			a.ShortDesc, a.Description, string(featuresJSON), string(useCasesJSON),
			string(a.PricingModel), a.LogoRef, a.ScreenshotRef, a.PublishedAt)
		if err != nil {
			return 0, eris.Wrapf(err, "sqlite: import agent %s", a.IdentityKey)
		}
		if n, _ := res.RowsAffected(); n > 0 {
			imported++
		}
	}
	return imported, eris.Wrap(tx.Commit(), "sqlite: commit import")
}

// helpers

func (s *SQLiteStore) checkCAS(ctx context.Context, res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n > 0 {
		return nil
	}
	var exists int
	if err := s.db.QueryRowContext(ctx,
		`SELECT 1 FROM submissions WHERE id = ?`, id).Scan(&exists); err == sql.ErrNoRows {
		return eris.Wrapf(ErrNotFound, "submission %s", id)
	}
	return eris.Wrapf(ErrConflict, "submission %s", id)
}

type execer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// identityActiveTx checks the key against active submissions and the
// published directory. excludeID skips the submission being mutated.
func identityActiveTx(ctx context.Context, tx execer, key, excludeID string) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM submissions
		 WHERE identity_key = ? AND id != ? AND status NOT IN ('published', 'discarded')
		 LIMIT 1`, key, excludeID).Scan(&one)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, eris.Wrap(err, "sqlite: check active submissions")
	}

	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM agents WHERE identity_key = ? LIMIT 1`, key).Scan(&one)
	if err == nil {
		return true, nil
	}
	if err != sql.ErrNoRows {
		return false, eris.Wrap(err, "sqlite: check agents")
	}
	return false, nil
}

func getAgentTx(ctx context.Context, tx execer, where string, arg any) (*model.PublishedAgent, error) {
	row := tx.QueryRowContext(ctx,
		`SELECT id, identity_key, submission_id, url, name, short_desc, description,
		        features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at
		 FROM agents WHERE `+where+` LIMIT 1`, arg)
	return scanAgent(row)
}

// agentFromSubmission builds the directory entry, preferring extracted
// fields over the submission's discovery-time metadata.
func agentFromSubmission(sub *model.Submission) *model.PublishedAgent {
	agent := &model.PublishedAgent{
		ID:           uuid.New().String(),
		IdentityKey:  sub.IdentityKey,
		SubmissionID: sub.ID,
		URL:          sub.CanonicalURL,
		Name:         sub.Name,
		Description:  sub.Description,
		PricingModel: model.PricingUnknown,
		PublishedAt:  time.Now().UTC(),
	}
	if e := sub.Enrichment; e != nil {
		if e.Name != "" {
			agent.Name = e.Name
		}
		if e.Description != "" {
			agent.Description = e.Description
		}
		agent.ShortDesc = e.ShortDescription
		agent.Features = e.Features
		agent.UseCases = e.UseCases
		if e.PricingModel != "" {
			agent.PricingModel = e.PricingModel
		}
		agent.LogoRef = e.LogoRef
		agent.ScreenshotRef = e.ScreenshotRef
		if e.FinalURL != "" {
			agent.URL = e.FinalURL
		}
	}
	return agent
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSubmission(row scannable) (*model.Submission, error) {
	var sub model.Submission
	var discoveryQuery sql.NullString
	var aggregator int
	var enrichJSON, reviewJSON sql.NullString
	var claimedUntil sql.NullTime

	err := row.Scan(&sub.ID, &sub.IdentityKey, &sub.RawURL, &sub.CanonicalURL,
		&sub.Name, &sub.Description, &discoveryQuery, &aggregator,
		&sub.Status, &sub.StatusReason, &enrichJSON, &reviewJSON,
		&sub.EnrichAttempts, &sub.ReviewAttempts,
		&sub.ClaimedBy, &claimedUntil, &sub.CreatedAt, &sub.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan submission")
	}

	if discoveryQuery.Valid {
		sub.DiscoveryQuery = &discoveryQuery.String
	}
	sub.Aggregator = aggregator != 0
	if claimedUntil.Valid {
		t := claimedUntil.Time
		sub.ClaimedUntil = &t
	}
	if enrichJSON.Valid && enrichJSON.String != "" {
		sub.Enrichment = &model.EnrichmentData{}
		if err := json.Unmarshal([]byte(enrichJSON.String), sub.Enrichment); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal enrichment")
		}
	}
	if reviewJSON.Valid && reviewJSON.String != "" {
		sub.Review = &model.ReviewResult{}
		if err := json.Unmarshal([]byte(reviewJSON.String), sub.Review); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal review")
		}
	}
	return &sub, nil
}

func scanAgent(row scannable) (*model.PublishedAgent, error) {
	var a model.PublishedAgent
	var featuresJSON, useCasesJSON sql.NullString

	err := row.Scan(&a.ID, &a.IdentityKey, &a.SubmissionID, &a.URL, &a.Name,
		&a.ShortDesc, &a.Description, &featuresJSON, &useCasesJSON,
		&a.PricingModel, &a.LogoRef, &a.ScreenshotRef, &a.PublishedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan agent")
	}

	if featuresJSON.Valid && featuresJSON.String != "" {
		if err := json.Unmarshal([]byte(featuresJSON.String), &a.Features); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal features")
		}
	}
	if useCasesJSON.Valid && useCasesJSON.String != "" {
		if err := json.Unmarshal([]byte(useCasesJSON.String), &a.UseCases); err != nil {
			return nil, eris.Wrap(err, "sqlite: unmarshal use cases")
		}
	}
	return &a, nil
}
