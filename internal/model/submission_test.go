package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from Status
		to   Status
		want bool
	}{
		{"discovered to enriching", StatusDiscovered, StatusEnriching, true},
		{"enriching to enriched", StatusEnriching, StatusEnriched, true},
		{"enriching to failed", StatusEnriching, StatusEnrichmentFailed, true},
		{"failed re-enters enriching", StatusEnrichmentFailed, StatusEnriching, true},
		{"failed exhausts to discarded", StatusEnrichmentFailed, StatusDiscarded, true},
		{"enriched to reviewing", StatusEnriched, StatusReviewing, true},
		{"reviewing auto-applies approve", StatusReviewing, StatusApproved, true},
		{"reviewing below gate", StatusReviewing, StatusNeedsManual, true},
		{"approved to published", StatusApproved, StatusPublished, true},
		{"manual override approves", StatusNeedsManual, StatusApproved, true},
		{"rejected to discarded", StatusRejected, StatusDiscarded, true},

		{"no stage skipping", StatusDiscovered, StatusReviewing, false},
		{"no direct publish", StatusDiscovered, StatusPublished, false},
		{"enriched cannot publish", StatusEnriched, StatusPublished, false},
		{"published is terminal", StatusPublished, StatusDiscovered, false},
		{"discarded is terminal", StatusDiscarded, StatusEnriching, false},
		{"rejected cannot recover", StatusRejected, StatusApproved, false},
		{"no backwards edge", StatusReviewed, StatusEnriching, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTerminal(t *testing.T) {
	assert.True(t, StatusPublished.Terminal())
	assert.True(t, StatusDiscarded.Terminal())
	assert.False(t, StatusNeedsManual.Terminal())
	assert.False(t, StatusApproved.Terminal())
}

func TestReviewResultValid(t *testing.T) {
	tests := []struct {
		name   string
		result *ReviewResult
		want   bool
	}{
		{"valid approve", &ReviewResult{Decision: DecisionApprove, Confidence: 0.92}, true},
		{"valid reject", &ReviewResult{Decision: DecisionReject, Confidence: 0.3}, true},
		{"boundary zero", &ReviewResult{Decision: DecisionReject, Confidence: 0}, true},
		{"boundary one", &ReviewResult{Decision: DecisionApprove, Confidence: 1}, true},
		{"unknown decision", &ReviewResult{Decision: "maybe", Confidence: 0.9}, false},
		{"confidence above one", &ReviewResult{Decision: DecisionApprove, Confidence: 1.2}, false},
		{"negative confidence", &ReviewResult{Decision: DecisionReject, Confidence: -0.1}, false},
		{"nil result", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.Valid())
		})
	}
}

func TestValidPricingModel(t *testing.T) {
	for _, v := range []string{"UNKNOWN", "FREE", "FREEMIUM", "PAID", "ENTERPRISE", "CONTACT"} {
		assert.True(t, ValidPricingModel(v), v)
	}
	assert.False(t, ValidPricingModel("free"))
	assert.False(t, ValidPricingModel(""))
	assert.False(t, ValidPricingModel("TRIAL"))
}
