package model

import "time"

// PublishedAgent is a live directory entry. IdentityKey is unique across
// the directory; SubmissionID records provenance back to the pipeline.
type PublishedAgent struct {
	ID            string       `json:"id"`
	IdentityKey   string       `json:"identity_key"`
	SubmissionID  string       `json:"submission_id"`
	URL           string       `json:"url"`
	Name          string       `json:"name"`
	ShortDesc     string       `json:"short_description,omitempty"`
	Description   string       `json:"description,omitempty"`
	Features      []string     `json:"features,omitempty"`
	UseCases      []string     `json:"use_cases,omitempty"`
	PricingModel  PricingModel `json:"pricing_model,omitempty"`
	LogoRef       string       `json:"logo_ref,omitempty"`
	ScreenshotRef string       `json:"screenshot_ref,omitempty"`
	PublishedAt   time.Time    `json:"published_at"`
}
