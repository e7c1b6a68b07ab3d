package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/internal/db"
	"github.com/aiagents-directory/directory-cli/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

// NewPostgresWithPool wraps an existing pool, used by tests with pgxmock.
func NewPostgresWithPool(pool db.Pool) *PostgresStore {
	return &PostgresStore{pool: pool, closeFn: pool.Close}
}

// Pool returns the underlying database pool for use by subsystems that
// need direct query access.
func (s *PostgresStore) Pool() db.Pool {
	return s.pool
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS submissions (
	id              TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	identity_key    TEXT NOT NULL,
	raw_url         TEXT NOT NULL,
	canonical_url   TEXT NOT NULL,
	name            TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT '',
	discovery_query TEXT,
	aggregator      BOOLEAN NOT NULL DEFAULT false,
	status          TEXT NOT NULL DEFAULT 'discovered',
	status_reason   TEXT NOT NULL DEFAULT '',
	enrichment      JSONB,
	review          JSONB,
	enrich_attempts INTEGER NOT NULL DEFAULT 0,
	review_attempts INTEGER NOT NULL DEFAULT 0,
	claimed_by      TEXT NOT NULL DEFAULT '',
	claimed_until   TIMESTAMPTZ,
	created_at      TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE UNIQUE INDEX IF NOT EXISTS idx_submissions_identity_active
	ON submissions(identity_key)
	WHERE status NOT IN ('published', 'discarded');

CREATE INDEX IF NOT EXISTS idx_submissions_status ON submissions(status);
CREATE INDEX IF NOT EXISTS idx_submissions_claimed_until ON submissions(claimed_until);

CREATE TABLE IF NOT EXISTS agents (
	id             TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	identity_key   TEXT NOT NULL UNIQUE,
	submission_id  TEXT NOT NULL DEFAULT '',
	url            TEXT NOT NULL,
	name           TEXT NOT NULL,
	short_desc     TEXT NOT NULL DEFAULT '',
	description    TEXT NOT NULL DEFAULT '',
	features       JSONB,
	use_cases      JSONB,
	pricing_model  TEXT NOT NULL DEFAULT 'UNKNOWN',
	logo_ref       TEXT NOT NULL DEFAULT '',
	screenshot_ref TEXT NOT NULL DEFAULT '',
	published_at   TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_agents_submission_id ON agents(submission_id);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

const pgSubmissionCols = `id, identity_key, raw_url, canonical_url, name, description,
	discovery_query, aggregator, status, status_reason, enrichment, review,
	enrich_attempts, review_attempts, claimed_by, claimed_until, created_at, updated_at`

func (s *PostgresStore) CreateSubmission(ctx context.Context, sub *model.Submission) (bool, error) {
	if sub.ID == "" {
		sub.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	sub.Status = model.StatusDiscovered
	sub.CreatedAt = now
	sub.UpdatedAt = now

	// The WHERE NOT EXISTS guard covers the published directory; the
	// partial unique index covers concurrent active submissions.
	tag, err := s.pool.Exec(ctx,
		`INSERT INTO submissions
		 (id, identity_key, raw_url, canonical_url, name, description, discovery_query, aggregator, status, created_at, updated_at)
		 SELECT $1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		 WHERE NOT EXISTS (SELECT 1 FROM agents WHERE identity_key = $2)
		 ON CONFLICT (identity_key) WHERE status NOT IN ('published', 'discarded') DO NOTHING`,
		sub.ID, sub.IdentityKey, sub.RawURL, sub.CanonicalURL, sub.Name, sub.Description,
		sub.DiscoveryQuery, sub.Aggregator, string(model.StatusDiscovered), now, now,
	)
	if err != nil {
		return false, eris.Wrap(err, "postgres: insert submission")
	}
	return tag.RowsAffected() > 0, nil
}

func (s *PostgresStore) GetSubmission(ctx context.Context, id string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgSubmissionCols+` FROM submissions WHERE id = $1`, id)
	return scanPgSubmission(row)
}

func (s *PostgresStore) GetByIdentityKey(ctx context.Context, key string) (*model.Submission, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgSubmissionCols+` FROM submissions
		 WHERE identity_key = $1 AND status NOT IN ('published', 'discarded')
		 LIMIT 1`, key)
	return scanPgSubmission(row)
}

func (s *PostgresStore) ListSubmissions(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	query := `SELECT ` + pgSubmissionCols + ` FROM submissions WHERE true`
	args := []any{}
	argIdx := 1

	if filter.Status != "" {
		query += fmt.Sprintf(` AND status = $%d`, argIdx)
		args = append(args, string(filter.Status))
		argIdx++
	}
	query += ` ORDER BY created_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += fmt.Sprintf(` LIMIT $%d`, argIdx)
	args = append(args, limit)
	argIdx++

	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, argIdx)
		args = append(args, filter.Offset)
		argIdx++
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list submissions")
	}
	defer rows.Close()

	var subs []model.Submission
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, err
		}
		subs = append(subs, *sub)
	}
	return subs, eris.Wrap(rows.Err(), "postgres: list submissions iterate")
}

func (s *PostgresStore) CountByStatus(ctx context.Context) (map[model.Status]int, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT status, COUNT(*) FROM submissions GROUP BY status`)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: count by status")
	}
	defer rows.Close()

	counts := make(map[model.Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan count")
		}
		counts[model.Status(status)] = n
	}
	return counts, eris.Wrap(rows.Err(), "postgres: count iterate")
}

func (s *PostgresStore) Activity(ctx context.Context, since time.Time) (*ActivityStats, error) {
	stats := &ActivityStats{Since: since, DiscardReasons: make(map[string]int)}

	err := s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE created_at >= $1`, since,
	).Scan(&stats.Created)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: activity created")
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM agents WHERE published_at >= $1`, since,
	).Scan(&stats.Published)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: activity published")
	}

	rows, err := s.pool.Query(ctx,
		`SELECT status_reason, COUNT(*) FROM submissions
		 WHERE status = $1 AND updated_at >= $2
		 GROUP BY status_reason`,
		model.StatusDiscarded, since)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: activity discards")
	}
	defer rows.Close()
	for rows.Next() {
		var reason string
		var n int
		if err := rows.Scan(&reason, &n); err != nil {
			return nil, eris.Wrap(err, "postgres: scan discard reason")
		}
		stats.DiscardReasons[reason] = n
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "postgres: activity discards iterate")
	}

	var avg *float64
	err = s.pool.QueryRow(ctx,
		`SELECT AVG((review->>'confidence')::float) FROM submissions
		 WHERE review IS NOT NULL AND updated_at >= $1`, since,
	).Scan(&avg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: activity confidence")
	}
	if avg != nil {
		stats.AvgConfidence = *avg
	}

	err = s.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions
		 WHERE claimed_until IS NOT NULL AND claimed_until < now()
		   AND status IN ($1, $2)`,
		model.StatusEnriching, model.StatusReviewing,
	).Scan(&stats.ExpiredClaims)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: activity expired claims")
	}
	return stats, nil
}

func (s *PostgresStore) Claim(ctx context.Context, from, to model.Status, worker string, ttl time.Duration, limit int) ([]model.Submission, error) {
	if !model.CanTransition(from, to) {
		return nil, eris.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	if limit <= 0 {
		limit = 10
	}

	now := time.Now().UTC()
	rows, err := s.pool.Query(ctx,
		`UPDATE submissions
		 SET status = $1, claimed_by = $2, claimed_until = $3, updated_at = $4
		 WHERE id IN (
			 SELECT id FROM submissions
			 WHERE status = $5 AND (claimed_until IS NULL OR claimed_until < $4)
			 ORDER BY created_at
			 LIMIT $6
			 FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+pgSubmissionCols,
		string(to), worker, now.Add(ttl), now, string(from), limit)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: claim")
	}
	defer rows.Close()

	var claimed []model.Submission
	for rows.Next() {
		sub, err := scanPgSubmission(rows)
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, *sub)
	}
	return claimed, eris.Wrap(rows.Err(), "postgres: claim iterate")
}

func (s *PostgresStore) Transition(ctx context.Context, id string, from, to model.Status, reason string) error {
	if !model.CanTransition(from, to) {
		return eris.Wrapf(ErrIllegalTransition, "%s -> %s", from, to)
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, status_reason = $2, claimed_by = '', claimed_until = NULL, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		string(to), reason, time.Now().UTC(), id, string(from))
	if err != nil {
		return eris.Wrapf(err, "postgres: transition %s", id)
	}
	if tag.RowsAffected() == 0 {
		return s.casFailure(ctx, id)
	}
	return nil
}

func (s *PostgresStore) SetEnrichment(ctx context.Context, id string, data *model.EnrichmentData) error {
	dataJSON, err := json.Marshal(data)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal enrichment")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions
		 SET enrichment = $1, status = $2, status_reason = '', claimed_by = '', claimed_until = NULL, updated_at = $3
		 WHERE id = $4 AND status = $5`,
		dataJSON, string(model.StatusEnriched), time.Now().UTC(),
		id, string(model.StatusEnriching))
	if err != nil {
		return eris.Wrapf(err, "postgres: set enrichment %s", id)
	}
	if tag.RowsAffected() == 0 {
		return s.casFailure(ctx, id)
	}
	return nil
}

func (s *PostgresStore) SetReview(ctx context.Context, id string, review *model.ReviewResult, to model.Status, reason string) error {
	if !model.CanTransition(model.StatusReviewing, to) {
		return eris.Wrapf(ErrIllegalTransition, "reviewing -> %s", to)
	}
	reviewJSON, err := json.Marshal(review)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal review")
	}
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions
		 SET review = $1, status = $2, status_reason = $3, claimed_by = '', claimed_until = NULL, updated_at = $4
		 WHERE id = $5 AND status = $6`,
		reviewJSON, string(to), reason, time.Now().UTC(),
		id, string(model.StatusReviewing))
	if err != nil {
		return eris.Wrapf(err, "postgres: set review %s", id)
	}
	if tag.RowsAffected() == 0 {
		return s.casFailure(ctx, id)
	}
	return nil
}

func (s *PostgresStore) RecordFailure(ctx context.Context, id string, stage Stage, reason string, maxAttempts int) (model.Status, error) {
	attemptCol := "enrich_attempts"
	if stage == StageReview {
		attemptCol = "review_attempts"
	}
	working := stage.Working()
	siding := stage.Siding()

	// One statement: bump the counter and pick siding or discarded
	// depending on whether the bumped counter hits the ceiling.
	row := s.pool.QueryRow(ctx,
		`UPDATE submissions
		 SET `+attemptCol+` = `+attemptCol+` + 1,
		     status = CASE WHEN `+attemptCol+` + 1 >= $1 THEN $2 ELSE $3 END,
		     status_reason = CASE WHEN `+attemptCol+` + 1 >= $1 THEN $4 ELSE $5 END,
		     claimed_by = '', claimed_until = NULL, updated_at = $6
		 WHERE id = $7 AND status = $8
		 RETURNING status`,
		maxAttempts, string(model.StatusDiscarded), string(siding),
		model.ReasonRetriesExhausted, reason, time.Now().UTC(),
		id, string(working))

	var landed string
	if err := row.Scan(&landed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", eris.Wrapf(ErrConflict, "submission %s not in %s", id, working)
		}
		return "", eris.Wrapf(err, "postgres: record failure %s", id)
	}
	return model.Status(landed), nil
}

func (s *PostgresStore) UpdateIdentity(ctx context.Context, id, identityKey, canonicalURL string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE submissions SET identity_key = $1, canonical_url = $2, updated_at = $3
		 WHERE id = $4
		   AND NOT EXISTS (SELECT 1 FROM agents WHERE identity_key = $1)
		   AND NOT EXISTS (
			 SELECT 1 FROM submissions
			 WHERE identity_key = $1 AND id != $4 AND status NOT IN ('published', 'discarded')
		   )`,
		identityKey, canonicalURL, time.Now().UTC(), id)
	if err != nil {
		return eris.Wrapf(err, "postgres: update identity %s", id)
	}
	if tag.RowsAffected() == 0 {
		taken, checkErr := s.IdentityActive(ctx, identityKey)
		if checkErr != nil {
			return checkErr
		}
		if taken {
			return eris.Wrapf(ErrDuplicate, "key %s", identityKey)
		}
		return eris.Wrapf(ErrNotFound, "submission %s", id)
	}
	return nil
}

func (s *PostgresStore) IdentityActive(ctx context.Context, key string) (bool, error) {
	var active bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM submissions WHERE identity_key = $1 AND status NOT IN ('published', 'discarded')
		 ) OR EXISTS (
			SELECT 1 FROM agents WHERE identity_key = $1
		 )`, key).Scan(&active)
	if err != nil {
		return false, eris.Wrap(err, "postgres: identity check")
	}
	return active, nil
}

func (s *PostgresStore) PublishSubmission(ctx context.Context, id string) (*model.PublishedAgent, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: begin publish")
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx,
		`SELECT `+pgSubmissionCols+` FROM submissions WHERE id = $1 FOR UPDATE`, id)
	sub, err := scanPgSubmission(row)
	if err != nil {
		return nil, err
	}

	if sub.Status == model.StatusPublished {
		agent, err := scanPgAgent(tx.QueryRow(ctx,
			pgAgentSelect+` WHERE submission_id = $1 LIMIT 1`, id))
		if err != nil {
			return nil, err
		}
		return agent, eris.Wrap(tx.Commit(ctx), "postgres: commit publish")
	}
	if sub.Status != model.StatusApproved {
		return nil, eris.Wrapf(ErrConflict, "submission %s is %s, not approved", id, sub.Status)
	}

	var taken bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS (
			SELECT 1 FROM submissions WHERE identity_key = $1 AND id != $2 AND status NOT IN ('published', 'discarded')
		 ) OR EXISTS (
			SELECT 1 FROM agents WHERE identity_key = $1
		 )`, sub.IdentityKey, id).Scan(&taken)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: publish identity check")
	}
	if taken {
		return nil, eris.Wrapf(ErrDuplicate, "key %s", sub.IdentityKey)
	}

	agent := agentFromSubmission(sub)
	featuresJSON, _ := json.Marshal(agent.Features)
	useCasesJSON, _ := json.Marshal(agent.UseCases)

	_, err = tx.Exec(ctx,
		`INSERT INTO agents
		 (id, identity_key, submission_id, url, name, short_desc, description, features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`,
		agent.ID, agent.IdentityKey, agent.SubmissionID, agent.URL, agent.Name,
		agent.ShortDesc, agent.Description, featuresJSON, useCasesJSON,
		string(agent.PricingModel), agent.LogoRef, agent.ScreenshotRef, agent.PublishedAt)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert agent")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE submissions
		 SET status = $1, status_reason = '', claimed_by = '', claimed_until = NULL, updated_at = $2
		 WHERE id = $3 AND status = $4`,
		string(model.StatusPublished), time.Now().UTC(), id, string(model.StatusApproved))
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: mark published %s", id)
	}
	if tag.RowsAffected() == 0 {
		return nil, eris.Wrapf(ErrConflict, "submission %s left approved", id)
	}

	return agent, eris.Wrap(tx.Commit(ctx), "postgres: commit publish")
}

const pgAgentSelect = `SELECT id, identity_key, submission_id, url, name, short_desc, description,
	features, use_cases, pricing_model, logo_ref, screenshot_ref, published_at FROM agents`

func (s *PostgresStore) GetAgentByIdentityKey(ctx context.Context, key string) (*model.PublishedAgent, error) {
	return scanPgAgent(s.pool.QueryRow(ctx,
		pgAgentSelect+` WHERE identity_key = $1 LIMIT 1`, key))
}

func (s *PostgresStore) ListAgents(ctx context.Context, limit, offset int) ([]model.PublishedAgent, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		pgAgentSelect+` ORDER BY published_at DESC LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list agents")
	}
	defer rows.Close()

	var agents []model.PublishedAgent
	for rows.Next() {
		a, err := scanPgAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, eris.Wrap(rows.Err(), "postgres: list agents iterate")
}

var agentImportColumns = []string{
	"id", "identity_key", "submission_id", "url", "name", "short_desc",
	"description", "features", "use_cases", "pricing_model", "logo_ref",
	"screenshot_ref", "published_at",
}

func (s *PostgresStore) ImportAgents(ctx context.Context, agents []model.PublishedAgent) (int, error) {
	rows := make([][]any, 0, len(agents))
	for _, a := range agents {
		if a.ID == "" {
			a.ID = uuid.New().String()
		}
		if a.PublishedAt.IsZero() {
			a.PublishedAt = time.Now().UTC()
		}
		featuresJSON, _ := json.Marshal(a.Features)
		useCasesJSON, _ := json.Marshal(a.UseCases)
		rows = append(rows, []any{
			a.ID, a.IdentityKey, a.SubmissionID, a.URL, a.Name, a.ShortDesc,
			a.Description, featuresJSON, useCasesJSON, string(a.PricingModel),
			a.LogoRef, a.ScreenshotRef, a.PublishedAt,
		})
	}

	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        "agents",
		Columns:      agentImportColumns,
		ConflictKeys: []string{"identity_key"},
		SkipOnly:     true,
	}, rows)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: import agents")
	}
	return int(n), nil
}

// helpers

func (s *PostgresStore) casFailure(ctx context.Context, id string) error {
	var one int
	err := s.pool.QueryRow(ctx,
		`SELECT 1 FROM submissions WHERE id = $1`, id).Scan(&one)
	if errors.Is(err, pgx.ErrNoRows) {
		return eris.Wrapf(ErrNotFound, "submission %s", id)
	}
	if err != nil {
		return eris.Wrap(err, "postgres: cas check")
	}
	return eris.Wrapf(ErrConflict, "submission %s", id)
}

func scanPgSubmission(row pgx.Row) (*model.Submission, error) {
	var sub model.Submission
	var discoveryQuery *string
	var enrichJSON, reviewJSON []byte
	var claimedUntil *time.Time

	err := row.Scan(&sub.ID, &sub.IdentityKey, &sub.RawURL, &sub.CanonicalURL,
		&sub.Name, &sub.Description, &discoveryQuery, &sub.Aggregator,
		&sub.Status, &sub.StatusReason, &enrichJSON, &reviewJSON,
		&sub.EnrichAttempts, &sub.ReviewAttempts,
		&sub.ClaimedBy, &claimedUntil, &sub.CreatedAt, &sub.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan submission")
	}

	sub.DiscoveryQuery = discoveryQuery
	sub.ClaimedUntil = claimedUntil
	if len(enrichJSON) > 0 {
		sub.Enrichment = &model.EnrichmentData{}
		if err := json.Unmarshal(enrichJSON, sub.Enrichment); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal enrichment")
		}
	}
	if len(reviewJSON) > 0 {
		sub.Review = &model.ReviewResult{}
		if err := json.Unmarshal(reviewJSON, sub.Review); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal review")
		}
	}
	return &sub, nil
}

func scanPgAgent(row pgx.Row) (*model.PublishedAgent, error) {
	var a model.PublishedAgent
	var featuresJSON, useCasesJSON []byte

	err := row.Scan(&a.ID, &a.IdentityKey, &a.SubmissionID, &a.URL, &a.Name,
		&a.ShortDesc, &a.Description, &featuresJSON, &useCasesJSON,
		&a.PricingModel, &a.LogoRef, &a.ScreenshotRef, &a.PublishedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: scan agent")
	}

	if len(featuresJSON) > 0 {
		if err := json.Unmarshal(featuresJSON, &a.Features); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal features")
		}
	}
	if len(useCasesJSON) > 0 {
		if err := json.Unmarshal(useCasesJSON, &a.UseCases); err != nil {
			return nil, eris.Wrap(err, "postgres: unmarshal use cases")
		}
	}
	return &a, nil
}
