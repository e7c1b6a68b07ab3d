package review

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/aiagents-directory/directory-cli/internal/model"
)

const systemPrompt = `You review submissions for a public directory of AI agent products. Decide whether the submitted site belongs in the directory.

Approve when the site is a real, working AI agent product: software that autonomously performs tasks for users (coding agents, support agents, browsing agents, workflow agents and similar).

Reject when the site is any of: not an AI agent (generic SaaS, a model API, a course, a newsletter, consulting), a listicle or directory page, parked or dead, spam or SEO bait, adult or illegal content, or a thin wrapper with no real product.

Respond with exactly one JSON object:
{"decision": "approve" | "reject", "confidence": <0.0-1.0>, "reasoning": "<one or two sentences>", "flags": ["<optional concern tags such as no-pricing, unclear-product, low-content>"]}`

const userPromptTemplate = `URL: %s
Name: %s
Short description: %s
Pricing: %s
Features: %s
Use cases: %s

Description:
%s

Page content (first %d chars):
%s`

const maxPromptContent = 4000

// buildUserPrompt renders a submission's enrichment into the reviewer
// prompt.
func buildUserPrompt(sub *model.Submission) string {
	e := sub.Enrichment
	content := e.RawMarkdown
	if len(content) > maxPromptContent {
		content = content[:maxPromptContent]
	}
	return fmt.Sprintf(userPromptTemplate,
		e.FinalURL,
		e.Name,
		e.ShortDescription,
		string(e.PricingModel),
		strings.Join(e.Features, "; "),
		strings.Join(e.UseCases, "; "),
		e.Description,
		maxPromptContent,
		content,
	)
}

// cleanJSON strips markdown code fences a model sometimes wraps around
// its JSON.
func cleanJSON(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}

// parseVerdict decodes a model response into a ReviewResult. A response
// that is not valid JSON or carries an out-of-range verdict is an error;
// the caller treats it as a transient stage failure.
func parseVerdict(text, modelID string) (*model.ReviewResult, error) {
	var rr model.ReviewResult
	if err := json.Unmarshal([]byte(cleanJSON(text)), &rr); err != nil {
		return nil, eris.Wrap(err, "review: verdict is not valid JSON")
	}
	rr.Model = modelID
	if !rr.Valid() {
		return nil, eris.Errorf("review: invalid verdict decision=%q confidence=%v", rr.Decision, rr.Confidence)
	}
	return &rr, nil
}

// decide maps a verdict onto the lifecycle. With autoApply, confident
// verdicts move straight to approved/rejected and anything under the
// threshold parks for a human; without it every verdict parks at
// reviewed for a separate apply step.
func decide(rr *model.ReviewResult, threshold float64, autoApply bool) (model.Status, string) {
	rr.AutoApplied = false
	if !autoApply {
		return model.StatusReviewed, "pending-apply"
	}
	if rr.Confidence >= threshold {
		rr.AutoApplied = true
		if rr.Decision == model.DecisionApprove {
			return model.StatusApproved, "auto-approved"
		}
		return model.StatusRejected, "auto-rejected"
	}
	return model.StatusNeedsManual, "low-confidence"
}
