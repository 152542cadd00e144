// Package extract turns fetched HTML documents into page metadata records.
package extract

import (
	"bytes"
	"mime"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// source reads one candidate value from a parsed document.
type source func(doc *goquery.Document) string

func text(selector string) source {
	return func(doc *goquery.Document) string {
		return doc.Find(selector).First().Text()
	}
}

func attr(selector, name string) source {
	return func(doc *goquery.Document) string {
		v, _ := doc.Find(selector).First().Attr(name)
		return v
	}
}

func content(selector string) source {
	return attr(selector, "content")
}

// Fallback chains are evaluated left to right; the first non-empty normalized
// value wins.
var (
	titleChain = []source{
		text("title"),
		content(`meta[property="og:title"]`),
		content(`meta[name="twitter:title"]`),
	}
	descriptionChain = []source{
		content(`meta[name="description"]`),
		content(`meta[property="og:description"]`),
		content(`meta[name="twitter:description"]`),
	}
	imageChain = []source{
		content(`meta[property="og:image"]`),
		content(`meta[name="twitter:image"], meta[name="twitter:image:src"]`),
	}

	ogTypeSource      = content(`meta[property="og:type"]`)
	canonicalSource   = attr(`link[rel="canonical"]`, "href")
	ogURLSource       = content(`meta[property="og:url"]`)
	twitterCardSource = content(`meta[name="twitter:card"]`)
	keywordsSource    = content(`meta[name="keywords"]`)
	robotsSource      = content(`meta[name="robots"]`)
)

// linkSelector matches the elements whose href or src is offered to the
// frontier as a discovered link.
const linkSelector = "a[href], area[href], link[href], iframe[src], frame[src]"

// Extractor implements crawler.Extractor with goquery.
type Extractor struct{}

// New returns an Extractor.
func New() *Extractor {
	return &Extractor{}
}

// Extract gates on content type, then reads metadata and links from body.
func (e *Extractor) Extract(pageURL string, body []byte, contentType string) crawler.Extraction {
	mediaType := PrimaryMediaType(contentType)
	if !IsHTML(mediaType) {
		reason := mediaType
		if reason == "" {
			reason = "unknown"
		}
		return crawler.Extraction{Skip: &crawler.SkipEntry{URL: pageURL, Reason: "non-html: " + reason}}
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		// html.Parse only fails on reader errors, which bytes.Reader never returns.
		return crawler.Extraction{Record: &crawler.MetadataRecord{URL: pageURL}}
	}

	rec := crawler.MetadataRecord{
		URL:         pageURL,
		Title:       firstNonEmpty(doc, titleChain),
		Description: firstNonEmpty(doc, descriptionChain),
		OGType:      Normalize(ogTypeSource(doc)),
		Canonical:   Normalize(canonicalSource(doc)),
		OGURL:       Normalize(ogURLSource(doc)),
		Image:       firstNonEmpty(doc, imageChain),
		TwitterCard: Normalize(twitterCardSource(doc)),
		Keywords:    Normalize(keywordsSource(doc)),
		Robots:      Normalize(robotsSource(doc)),
	}
	return crawler.Extraction{Record: &rec, Links: links(doc)}
}

func firstNonEmpty(doc *goquery.Document, chain []source) string {
	for _, src := range chain {
		if v := Normalize(src(doc)); v != "" {
			return v
		}
	}
	return ""
}

func links(doc *goquery.Document) []string {
	var out []string
	doc.Find(linkSelector).Each(func(_ int, s *goquery.Selection) {
		v, ok := s.Attr("href")
		if !ok {
			v, ok = s.Attr("src")
		}
		if ok && strings.TrimSpace(v) != "" {
			out = append(out, v)
		}
	})
	return out
}

// Normalize trims s and collapses internal whitespace runs to one space.
func Normalize(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// PrimaryMediaType returns the lower-cased media type without parameters.
func PrimaryMediaType(contentType string) string {
	contentType = strings.TrimSpace(contentType)
	if contentType == "" {
		return ""
	}
	if mediaType, _, err := mime.ParseMediaType(contentType); err == nil {
		return mediaType
	}
	head, _, _ := strings.Cut(contentType, ";")
	return strings.ToLower(strings.TrimSpace(head))
}

// IsHTML reports whether mediaType is HTML or XHTML.
func IsHTML(mediaType string) bool {
	return strings.Contains(mediaType, "text/html") || strings.Contains(mediaType, "application/xhtml+xml")
}
