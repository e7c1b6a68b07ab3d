// Package urlnorm derives stable identity keys from submitted URLs.
// Two URLs that normalize to the same key are the same agent for
// dedup purposes everywhere in the pipeline.
package urlnorm

import (
	"net/url"
	"sort"
	"strings"

	"github.com/rotisserie/eris"
)

// InvalidKey is the identity bucket for URLs that cannot be parsed.
// Submissions landing here are rejected at intake, never deduped
// against each other.
const InvalidKey = "invalid"

// Serving-platform subdomains that alias the apex domain. Stripping
// them folds www.example.com and app.example.com into one identity.
var servingPrefixes = []string{"www.", "app.", "m.", "web."}

// Tracking parameters removed before key derivation. Prefix entries
// end with '*' and match any parameter sharing the prefix.
var trackingParams = []string{
	"utm_*",
	"fbclid",
	"gclid",
	"msclkid",
	"mc_cid",
	"mc_eid",
	"ref",
	"source",
}

// Normalize derives the identity key for a raw URL. The empty scheme
// defaults to https. Malformed input returns InvalidKey alongside the
// parse error so callers can record the reason.
func Normalize(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return InvalidKey, eris.New("empty url")
	}
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}

	u, err := url.Parse(raw)
	if err != nil {
		return InvalidKey, eris.Wrap(err, "parse url")
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return InvalidKey, eris.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return InvalidKey, eris.New("url has no host")
	}
	for _, p := range servingPrefixes {
		if strings.HasPrefix(host, p) && strings.Count(host, ".") > 1 {
			host = strings.TrimPrefix(host, p)
			break
		}
	}

	// Default ports carry no identity; non-default ports do.
	port := u.Port()
	if port == "80" && scheme == "http" || port == "443" && scheme == "https" {
		port = ""
	}
	if port != "" {
		host += ":" + port
	}

	path := strings.TrimSuffix(u.EscapedPath(), "/")

	query := filterQuery(u.Query())

	key := host + path
	if query != "" {
		key += "?" + query
	}
	return key, nil
}

// filterQuery drops tracking parameters and re-encodes the rest in
// sorted order so parameter ordering never splits an identity.
func filterQuery(values url.Values) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		if isTracking(k) {
			continue
		}
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return ""
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		for _, v := range values[k] {
			if b.Len() > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

func isTracking(param string) bool {
	param = strings.ToLower(param)
	for _, t := range trackingParams {
		if strings.HasSuffix(t, "*") {
			if strings.HasPrefix(param, strings.TrimSuffix(t, "*")) {
				return true
			}
		} else if param == t {
			return true
		}
	}
	return false
}

// Domain returns the normalized host portion of an identity key,
// without port, for filter matching.
func Domain(key string) string {
	host := key
	if i := strings.IndexAny(host, "/?"); i >= 0 {
		host = host[:i]
	}
	if i := strings.IndexByte(host, ':'); i >= 0 {
		host = host[:i]
	}
	return host
}

// Path returns the path portion of an identity key, empty when the key
// is an apex.
func Path(key string) string {
	i := strings.IndexByte(key, '/')
	if i < 0 {
		return ""
	}
	p := key[i:]
	if j := strings.IndexByte(p, '?'); j >= 0 {
		p = p[:j]
	}
	return p
}
