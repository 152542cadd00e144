package export

import (
	"strconv"
	"strings"

	"github.com/JakeFAU/metacrawler/internal/crawler"
)

// Column headers, in output order.
var (
	ResultColumns = []string{
		"url", "title", "description", "ogType", "canonical",
		"ogUrl", "image", "twitterCard", "keywords", "robots",
	}
	SkipColumns  = []string{"url", "reason"}
	ErrorColumns = []string{"url", "code", "status"}
)

// EscapeCell quotes v for a CSV cell. Values starting with a character a
// spreadsheet would evaluate as a formula get a leading single quote.
func EscapeCell(v string) string {
	if v != "" && strings.ContainsRune("=-+@", rune(v[0])) {
		v = "'" + v
	}
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// Table renders a header row plus one escaped row per entry. Rows are joined
// with "\n" and the output has no trailing newline.
func Table(columns []string, rows [][]string) []byte {
	var b strings.Builder
	b.WriteString(strings.Join(columns, ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(EscapeCell(cell))
		}
	}
	return []byte(b.String())
}

func recordRows(records []crawler.MetadataRecord) [][]string {
	rows := make([][]string, 0, len(records))
	for _, r := range records {
		rows = append(rows, []string{
			r.URL, r.Title, r.Description, r.OGType, r.Canonical,
			r.OGURL, r.Image, r.TwitterCard, r.Keywords, r.Robots,
		})
	}
	return rows
}

func skipRows(entries []crawler.SkipEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{e.URL, e.Reason})
	}
	return rows
}

func errorRows(entries []crawler.ErrorEntry) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		status := ""
		if e.Status > 0 {
			status = strconv.Itoa(e.Status)
		}
		rows = append(rows, []string{e.URL, e.Code, status})
	}
	return rows
}
