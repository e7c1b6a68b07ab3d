package enrich

import (
	"encoding/json"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/aiagents-directory/directory-cli/internal/extract"
	"github.com/aiagents-directory/directory-cli/internal/urlnorm"
)

// visitLinkTexts are anchor texts aggregators use for the outbound
// product link, checked in order.
var visitLinkTexts = []string{
	"visit website",
	"visit site",
	"official website",
	"open site",
	"try it",
	"try now",
	"website",
}

// socialHosts never resolve to a product site.
var socialHosts = map[string]bool{
	"twitter.com":     true,
	"x.com":           true,
	"facebook.com":    true,
	"linkedin.com":    true,
	"instagram.com":   true,
	"youtube.com":     true,
	"discord.gg":      true,
	"discord.com":     true,
	"t.me":            true,
	"github.com":      true,
	"producthunt.com": true,
}

// resolveListing determines the official product URL behind an
// aggregator listing page. The structured extraction wins when its
// confidence clears minConfidence; otherwise the page's outbound links
// are scanned for a visit-website anchor. Returns the normalized
// identity key and canonical URL of the product.
func resolveListing(page *extract.Page, listingKey string, minConfidence float64) (key, canonicalURL string, err error) {
	if candidate := structuredProductURL(page.JSON, minConfidence); candidate != "" {
		if key, canonicalURL, err = productIdentity(candidate, listingKey); err == nil {
			return key, canonicalURL, nil
		}
		zap.L().Debug("enrich: structured product url rejected",
			zap.String("candidate", candidate),
			zap.Error(err),
		)
	}

	if candidate := linkHeuristicProductURL(page.HTML, listingKey); candidate != "" {
		return productIdentity(candidate, listingKey)
	}

	return "", "", eris.Errorf("enrich: could not resolve product url from listing %s", listingKey)
}

// structuredProductURL returns the extracted product URL when the
// extraction is confident enough, or "".
func structuredProductURL(raw json.RawMessage, minConfidence float64) string {
	if len(raw) == 0 {
		return ""
	}
	var le listingExtraction
	if err := json.Unmarshal(raw, &le); err != nil {
		return ""
	}
	if le.Confidence < minConfidence {
		return ""
	}
	return strings.TrimSpace(le.ProductURL)
}

// linkHeuristicProductURL scans the listing HTML for the outbound
// product link. Anchors with visit-website text win; failing that, the
// first external link that is neither social nor same-host is used.
func linkHeuristicProductURL(html, listingKey string) string {
	if html == "" {
		return ""
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return ""
	}

	listingHost := urlnorm.Domain(listingKey)

	var byText, first string
	doc.Find("a[href]").EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		href, _ := sel.Attr("href")
		href = strings.TrimSpace(href)
		if !strings.HasPrefix(href, "http://") && !strings.HasPrefix(href, "https://") {
			return true
		}

		key, err := urlnorm.Normalize(href)
		if err != nil {
			return true
		}
		host := urlnorm.Domain(key)
		if host == "" || host == listingHost || socialHosts[host] {
			return true
		}

		text := strings.ToLower(strings.TrimSpace(sel.Text()))
		for _, want := range visitLinkTexts {
			if text == want || strings.Contains(text, want) {
				byText = href
				return false // best possible match, stop scanning
			}
		}
		if first == "" {
			first = href
		}
		return true
	})

	if byText != "" {
		return byText
	}
	return first
}

// productIdentity normalizes a candidate product URL and rejects
// resolutions that circle back to the aggregator itself.
func productIdentity(rawURL, listingKey string) (key, canonicalURL string, err error) {
	key, err = urlnorm.Normalize(rawURL)
	if err != nil {
		return "", "", eris.Wrap(err, "enrich: normalize resolved product url")
	}
	if urlnorm.Domain(key) == urlnorm.Domain(listingKey) {
		return "", "", eris.Errorf("enrich: resolved url stays on aggregator host %s", urlnorm.Domain(listingKey))
	}
	return key, "https://" + key, nil
}
