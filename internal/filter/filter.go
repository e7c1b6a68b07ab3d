// Package filter decides which discovered URLs enter the pipeline.
// The chain runs blocklist, aggregator tagging, and path heuristics in
// that order, with the allowlist overriding both rejection stages, and
// always produces a reason code.
package filter

import (
	"strings"

	"github.com/aiagents-directory/directory-cli/internal/urlnorm"
)

// Reason codes attached to every verdict.
const (
	ReasonBlockedDomain = "blocked-domain"
	ReasonBlockedPath   = "blocked-path"
	ReasonPathTooDeep   = "path-too-deep"
	ReasonAggregator    = "aggregator"
	ReasonAllowlisted   = "allowlisted"
	ReasonAccepted      = "accepted"
	ReasonInvalidURL    = "invalid-url"
)

// Rules is the declarative rule set the chain evaluates. Domain lists
// accept exact hosts or "*.suffix" wildcards.
type Rules struct {
	Blocklist   []string `mapstructure:"blocklist"   yaml:"blocklist"`
	Aggregators []string `mapstructure:"aggregators" yaml:"aggregators"`
	Allowlist   []string `mapstructure:"allowlist"   yaml:"allowlist"`

	// Path segments that mark content pages rather than products.
	BlockedSegments []string `mapstructure:"blocked_segments" yaml:"blocked_segments"`

	// Deepest path accepted for non-aggregator hosts; 0 uses the default.
	MaxPathDepth int `mapstructure:"max_path_depth" yaml:"max_path_depth"`
}

// DefaultRules mirrors the curated production lists. Deployments extend
// them through configuration rather than replacing them.
func DefaultRules() Rules {
	return Rules{
		Blocklist: []string{
			"facebook.com", "*.facebook.com",
			"twitter.com", "x.com",
			"linkedin.com", "*.linkedin.com",
			"youtube.com", "reddit.com",
			"medium.com", "*.medium.com",
			"wikipedia.org", "*.wikipedia.org",
			"github.io",
		},
		Aggregators: []string{
			"github.com",
			"producthunt.com", "*.producthunt.com",
			"futurepedia.io",
			"theresanaiforthat.com",
			"toolify.ai",
			"aiagentsdirectory.com",
			"g2.com", "*.g2.com",
			"capterra.com",
		},
		BlockedSegments: []string{
			"blog", "docs", "news", "article", "articles",
			"careers", "jobs", "privacy", "terms", "support",
		},
		MaxPathDepth: 2,
	}
}

// Verdict is the chain's decision for one URL.
type Verdict struct {
	Accept     bool
	Aggregator bool
	Reason     string
}

// Chain evaluates candidate URLs against a rule set.
type Chain struct {
	rules Rules
}

// NewChain builds a chain. Zero-valued fields fall back to defaults so
// partial configuration never clears the curated lists.
func NewChain(rules Rules) *Chain {
	def := DefaultRules()
	if len(rules.Blocklist) == 0 {
		rules.Blocklist = def.Blocklist
	}
	if len(rules.Aggregators) == 0 {
		rules.Aggregators = def.Aggregators
	}
	if len(rules.BlockedSegments) == 0 {
		rules.BlockedSegments = def.BlockedSegments
	}
	if rules.MaxPathDepth <= 0 {
		rules.MaxPathDepth = def.MaxPathDepth
	}
	return &Chain{rules: rules}
}

// Evaluate runs the chain over a normalized identity key.
func (c *Chain) Evaluate(key string) Verdict {
	if key == "" || key == urlnorm.InvalidKey {
		return Verdict{Reason: ReasonInvalidURL}
	}
	domain := urlnorm.Domain(key)
	path := urlnorm.Path(key)

	// An allowlisted domain bypasses both domain and path rejection.
	allowed := matchDomain(c.rules.Allowlist, domain)

	if matchDomain(c.rules.Blocklist, domain) {
		if allowed {
			return Verdict{Accept: true, Reason: ReasonAllowlisted}
		}
		return Verdict{Reason: ReasonBlockedDomain}
	}

	// Aggregator listings point at other products; they enter the
	// pipeline tagged so enrichment resolves the underlying URL, and
	// path rules do not apply to them.
	if matchDomain(c.rules.Aggregators, domain) {
		return Verdict{Accept: true, Aggregator: true, Reason: ReasonAggregator}
	}

	if v, blocked := c.checkPath(path); blocked {
		if allowed {
			return Verdict{Accept: true, Reason: ReasonAllowlisted}
		}
		return v
	}

	return Verdict{Accept: true, Reason: ReasonAccepted}
}

func (c *Chain) checkPath(path string) (Verdict, bool) {
	if path == "" {
		return Verdict{}, false
	}
	segs := strings.Split(strings.Trim(path, "/"), "/")
	if len(segs) > c.rules.MaxPathDepth {
		return Verdict{Reason: ReasonPathTooDeep}, true
	}
	for _, s := range segs {
		for _, blocked := range c.rules.BlockedSegments {
			if strings.EqualFold(s, blocked) {
				return Verdict{Reason: ReasonBlockedPath}, true
			}
		}
	}
	return Verdict{}, false
}

// matchDomain checks a host against exact entries and "*.suffix"
// wildcards. A wildcard matches subdomains only, not the apex.
func matchDomain(list []string, domain string) bool {
	for _, entry := range list {
		entry = strings.ToLower(strings.TrimSpace(entry))
		if entry == "" {
			continue
		}
		if strings.HasPrefix(entry, "*.") {
			if strings.HasSuffix(domain, entry[1:]) {
				return true
			}
			continue
		}
		if domain == entry {
			return true
		}
	}
	return false
}
