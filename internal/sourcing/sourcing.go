// Package sourcing discovers candidate agent URLs by fanning search
// queries out to Firecrawl and funneling results through normalization,
// the filter chain, and dedup into the submission store.
package sourcing

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/aiagents-directory/directory-cli/internal/config"
	"github.com/aiagents-directory/directory-cli/internal/filter"
	"github.com/aiagents-directory/directory-cli/internal/model"
	"github.com/aiagents-directory/directory-cli/internal/store"
	"github.com/aiagents-directory/directory-cli/internal/urlnorm"
	"github.com/aiagents-directory/directory-cli/pkg/firecrawl"
)

// Summary tallies the outcome of one sourcing run.
type Summary struct {
	Set        string         `json:"set"`
	Queries    int            `json:"queries"`
	Results    int            `json:"results"`
	Created    int            `json:"created"`
	Duplicates int            `json:"duplicates"`
	Rejected   map[string]int `json:"rejected"` // filter reason -> count
	Errors     int            `json:"errors"`
}

// Runner executes sourcing runs.
type Runner struct {
	store store.Store
	fc    firecrawl.Client
	chain *filter.Chain
	cfg   config.SourcingConfig
}

// NewRunner creates a Runner.
func NewRunner(st store.Store, fc firecrawl.Client, chain *filter.Chain, cfg config.SourcingConfig) *Runner {
	if cfg.ResultsPerQuery <= 0 {
		cfg.ResultsPerQuery = 20
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 4
	}
	return &Runner{store: st, fc: fc, chain: chain, cfg: cfg}
}

// Run executes the query set scheduled for today, or the named set when
// setName is non-empty ("all" runs every set).
func (r *Runner) Run(ctx context.Context, qf *QueryFile, setName string) (*Summary, error) {
	var queries []string
	switch setName {
	case "":
		setName, queries = qf.SetFor(time.Now())
	case "all":
		queries = qf.All()
	default:
		var err error
		queries, err = qf.Set(setName)
		if err != nil {
			return nil, err
		}
	}

	log := zap.L().With(zap.String("set", setName))
	log.Info("sourcing: run started",
		zap.Int("queries", len(queries)),
		zap.Int("results_per_query", r.cfg.ResultsPerQuery),
	)

	summary := &Summary{
		Set:      setName,
		Queries:  len(queries),
		Rejected: make(map[string]int),
	}
	var mu sync.Mutex

	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(r.cfg.Concurrency)

	for _, query := range queries {
		g.Go(func() error {
			resp, err := r.fc.Search(gCtx, firecrawl.SearchRequest{
				Query:    query,
				Limit:    r.cfg.ResultsPerQuery,
				TBS:      tbsValue(r.cfg.Recency),
				Location: r.cfg.Location,
				Sources:  []string{"web"},
			})
			if err != nil {
				log.Warn("sourcing: search failed",
					zap.String("query", query),
					zap.Error(err),
				)
				mu.Lock()
				summary.Errors++
				mu.Unlock()
				return nil // one bad query never sinks the run
			}

			for _, result := range resp.Data.Web {
				outcome := r.ingest(gCtx, query, result)
				mu.Lock()
				summary.Results++
				switch outcome.kind {
				case ingestCreated:
					summary.Created++
				case ingestDuplicate:
					summary.Duplicates++
				case ingestRejected:
					summary.Rejected[outcome.reason]++
				case ingestError:
					summary.Errors++
				}
				mu.Unlock()
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return summary, eris.Wrap(err, "sourcing: run")
	}

	log.Info("sourcing: run complete",
		zap.Int("results", summary.Results),
		zap.Int("created", summary.Created),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("errors", summary.Errors),
	)
	return summary, nil
}

type ingestKind int

const (
	ingestCreated ingestKind = iota
	ingestDuplicate
	ingestRejected
	ingestError
)

type ingestOutcome struct {
	kind   ingestKind
	reason string
}

// ingest runs a single search result through normalize -> filter -> create.
func (r *Runner) ingest(ctx context.Context, query string, result firecrawl.SearchResult) ingestOutcome {
	key, err := urlnorm.Normalize(result.URL)
	if err != nil {
		return ingestOutcome{kind: ingestRejected, reason: filter.ReasonInvalidURL}
	}

	verdict := r.chain.Evaluate(key)
	if !verdict.Accept {
		zap.L().Debug("sourcing: rejected",
			zap.String("url", result.URL),
			zap.String("reason", verdict.Reason),
		)
		return ingestOutcome{kind: ingestRejected, reason: verdict.Reason}
	}

	q := query
	created, err := r.store.CreateSubmission(ctx, &model.Submission{
		ID:             uuid.New().String(),
		IdentityKey:    key,
		RawURL:         result.URL,
		CanonicalURL:   "https://" + key,
		Name:           result.Title,
		Description:    result.Description,
		DiscoveryQuery: &q,
		Aggregator:     verdict.Aggregator,
		Status:         model.StatusDiscovered,
	})
	if err != nil {
		zap.L().Warn("sourcing: create submission failed",
			zap.String("url", result.URL),
			zap.Error(err),
		)
		return ingestOutcome{kind: ingestError}
	}
	if !created {
		return ingestOutcome{kind: ingestDuplicate}
	}
	return ingestOutcome{kind: ingestCreated}
}

// tbsValue maps friendly recency names onto Google's tbs filter
// syntax. Raw qdr values and empty strings pass through.
func tbsValue(recency string) string {
	switch recency {
	case "day":
		return "qdr:d"
	case "week":
		return "qdr:w"
	case "month":
		return "qdr:m"
	case "year":
		return "qdr:y"
	default:
		return recency
	}
}
