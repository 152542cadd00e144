package crawler

import (
	"net/url"
	"strings"
)

// FilterReason tags the admission rule that decided a candidate URL.
type FilterReason string

// Admission reasons, in the order the rules are evaluated.
const (
	ReasonEligible    FilterReason = "ok"
	ReasonMalformed   FilterReason = "malformed"
	ReasonNoiseQuery  FilterReason = "noise-query"
	ReasonNonDocument FilterReason = "non-document"
	ReasonUnparseable FilterReason = "unparseable"
	ReasonOffDomain   FilterReason = "off-domain"
)

// FilterDecision is the outcome of an admission check. URL is the
// entity-decoded candidate the rules judged; it is set only when Eligible.
type FilterDecision struct {
	Eligible bool
	Reason   FilterReason
	URL      string
}

var (
	// Applied one after another; "&amp;quot;" therefore decodes to a literal
	// "&quot;" token, which Eligible rejects.
	entityDecodes = [][2]string{
		{"&quot;", `"`},
		{"&amp;", "&"},
		{"&lt;", "<"},
		{"&gt;", ">"},
	}

	noiseQueryKeys = map[string]struct{}{
		"utm_source":   {},
		"utm_medium":   {},
		"utm_campaign": {},
		"utm_term":     {},
		"utm_content":  {},
		"fbclid":       {},
		"gclid":        {},
		"yclid":        {},
		"mc_cid":       {},
		"mc_eid":       {},
	}

	nonDocumentPrefixes = []string{
		"/_next/image",
		"/_next/static",
	}

	nonDocumentExtensions = []string{
		".css", ".js", ".json", ".xml", ".txt", ".pdf",
		".jpg", ".jpeg", ".png", ".gif", ".svg", ".webp", ".ico",
		".mp4", ".mp3", ".wav", ".avi", ".mov",
		".zip", ".rar", ".tar", ".gz",
		".woff", ".woff2", ".ttf", ".eot",
		".map", ".min.js", ".min.css",
	}

	imageMarkers = []string{".jpg", ".jpeg", ".png", ".gif", ".webp", ".svg"}
)

// Filter decides whether a discovered URL may enter the frontier. It holds no
// mutable state; the zero value rejects everything with a host.
type Filter struct {
	domain string
}

// NewFilter scopes admission to exactly one hostname.
func NewFilter(domain string) Filter {
	return Filter{domain: strings.ToLower(strings.TrimSpace(domain))}
}

// Domain returns the hostname the filter admits.
func (f Filter) Domain() string {
	return f.domain
}

// Eligible runs the admission rules in order and stops at the first failure.
// candidate must already be absolute; relative links are resolved by the
// frontier.
func (f Filter) Eligible(candidate string) FilterDecision {
	decoded := decodeEntities(candidate)
	if strings.Contains(decoded, "&quot;") || strings.Contains(decoded, `"`) {
		return reject(ReasonMalformed)
	}
	if hasNoiseQuery(decoded) {
		return reject(ReasonNoiseQuery)
	}
	if looksLikeAsset(decoded) {
		return reject(ReasonNonDocument)
	}
	u, err := url.Parse(decoded)
	if err != nil || !u.IsAbs() {
		return reject(ReasonUnparseable)
	}
	if strings.ToLower(u.Hostname()) != f.domain {
		return reject(ReasonOffDomain)
	}
	return FilterDecision{Eligible: true, Reason: ReasonEligible, URL: decoded}
}

func decodeEntities(raw string) string {
	for _, pair := range entityDecodes {
		raw = strings.ReplaceAll(raw, pair[0], pair[1])
	}
	return raw
}

func reject(reason FilterReason) FilterDecision {
	return FilterDecision{Eligible: false, Reason: reason}
}

// hasNoiseQuery reports whether any query key is a tracking parameter.
// Unparseable URLs are left for the domain rule.
func hasNoiseQuery(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	for _, key := range queryKeys(u.RawQuery) {
		if _, noisy := noiseQueryKeys[key]; noisy {
			return true
		}
	}
	return false
}

// looksLikeAsset is a path heuristic, not a content-type check; the
// authoritative check happens after the fetch.
func looksLikeAsset(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	path := strings.ToLower(u.EscapedPath())
	for _, prefix := range nonDocumentPrefixes {
		if strings.HasPrefix(path, prefix) {
			return true
		}
	}
	for _, ext := range nonDocumentExtensions {
		if strings.HasSuffix(path, ext) {
			return true
		}
	}
	full := strings.ToLower(u.String())
	for _, marker := range imageMarkers {
		if strings.Contains(full, marker) {
			return true
		}
	}
	return false
}
