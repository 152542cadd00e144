package crawler

import (
	"cmp"
	"fmt"
	"net/url"
	"slices"
	"strings"
)

// NormalizeURL standardizes a URL to avoid duplicates.
// It lowercases the scheme and host, removes default ports, and sorts query parameters.
// It also removes fragments. Query pairs keep their raw text; only their order
// changes.
func NormalizeURL(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("parse url: %w", err)
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = strings.ToLower(u.Host)

	if u.Scheme == "http" && strings.HasSuffix(u.Host, ":80") {
		u.Host = strings.TrimSuffix(u.Host, ":80")
	}
	if u.Scheme == "https" && strings.HasSuffix(u.Host, ":443") {
		u.Host = strings.TrimSuffix(u.Host, ":443")
	}
	if u.Path == "" && u.Host != "" {
		u.Path = "/"
	}

	u.Fragment = ""
	u.RawFragment = ""

	if u.RawQuery != "" {
		u.RawQuery = sortQuery(u.RawQuery)
	}

	return u.String(), nil
}

// sortQuery orders the &-separated pairs of rawQuery by key. Pairs with the
// same key keep their relative order. Empty pairs are dropped.
func sortQuery(rawQuery string) string {
	pairs := queryPairs(rawQuery)
	slices.SortStableFunc(pairs, func(a, b string) int {
		return cmp.Compare(pairKey(a), pairKey(b))
	})
	return strings.Join(pairs, "&")
}

func queryPairs(rawQuery string) []string {
	var pairs []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair != "" {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// pairKey returns the raw key of a query pair: everything before the first '='.
func pairKey(pair string) string {
	key, _, _ := strings.Cut(pair, "=")
	return key
}

// queryKeys returns the decoded key of every pair in rawQuery. A ';' is part
// of the key or value it appears in. Keys that fail to unescape are returned
// raw.
func queryKeys(rawQuery string) []string {
	pairs := queryPairs(rawQuery)
	keys := make([]string, 0, len(pairs))
	for _, pair := range pairs {
		key := pairKey(pair)
		if decoded, err := url.QueryUnescape(key); err == nil {
			key = decoded
		}
		keys = append(keys, key)
	}
	return keys
}

// ResolveReference resolves a raw link found on the page at base into an
// absolute URL string. Entity tokens in the link text are left untouched so
// the admission filter can inspect them.
func ResolveReference(base, href string) (string, error) {
	href = strings.TrimSpace(href)
	if href == "" {
		return "", fmt.Errorf("empty link")
	}
	baseURL, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	ref, err := url.Parse(href)
	if err != nil {
		return "", fmt.Errorf("parse link: %w", err)
	}
	return baseURL.ResolveReference(ref).String(), nil
}
