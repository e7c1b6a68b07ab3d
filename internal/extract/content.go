package extract

import "strings"

// minContentLength is the shortest markdown body considered usable.
const minContentLength = 100

// challengeSignatures mark anti-bot interstitials masquerading as content.
var challengeSignatures = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
	"captcha",
	"recaptcha",
	"hcaptcha",
}

// challengeWindow bounds how far into the body challenge markers are
// looked for. Interstitials lead with their boilerplate; a real page
// mentioning "captcha" further down is fine.
const challengeWindow = 200

// usableContent reports whether scraped markdown carries real page content
// rather than an empty or blocked response.
func usableContent(markdown string) bool {
	content := strings.TrimSpace(markdown)
	if len(content) < minContentLength {
		return false
	}

	head := strings.ToLower(content)
	if len(head) > challengeWindow {
		head = head[:challengeWindow]
	}
	for _, sig := range challengeSignatures {
		if strings.Contains(head, sig) {
			return false
		}
	}
	return true
}
