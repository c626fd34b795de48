// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/pdiddy/litreview/pkg/types"
)

// EmptyResultsMessage is shown instead of a paper list when a valid response
// carries no papers.
const EmptyResultsMessage = "No papers matched this query. Try broader terms or a different phrasing."

// FormatSummary writes the one-line result summary: the formatted query, how
// many papers are shown out of the server-reported total, and query time.
func FormatSummary(resp *types.SearchResponse, w io.Writer) {
	q := resp.FormattedQuery
	if q == "" {
		q = resp.Query
	}
	fmt.Fprintf(w, "Query: %s\n", q)
	fmt.Fprintf(w, "Showing %d of %d results (%.1fs)\n", len(resp.Papers), resp.TotalResults, resp.QueryTime)
}

// FormatTable writes papers as a human-readable table to w, in the order
// given.
func FormatTable(papers []types.Paper, w io.Writer) {
	if len(papers) == 0 {
		fmt.Fprintln(w, EmptyResultsMessage)
		return
	}

	fmt.Fprintf(w, "%-4s  %-4s  %-60s  %-24s  %-4s  %s\n",
		"#", "ID", "Title", "Authors", "Year", "URL")
	fmt.Fprintln(w, strings.Repeat("-", 120))

	for i, p := range papers {
		year := ""
		if p.Year > 0 {
			year = fmt.Sprintf("%d", p.Year)
		}
		fmt.Fprintf(w, "%-4d  %-4d  %-60s  %-24s  %-4s  %s\n",
			i+1, p.ID, truncate(p.Title, 60), truncate(string(p.Authors), 24), year, p.URL)
	}
}

// FormatJSON writes v as indented JSON to w.
func FormatJSON(v any, w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
