// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package render

import (
	"embed"
	"fmt"
	"html/template"
	"io"

	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/internal/session"
	"github.com/pdiddy/litreview/pkg/types"
)

//go:embed templates/*.html
var templateFS embed.FS

var pageTemplate = template.Must(
	template.New("page.html").Funcs(template.FuncMap{
		"emptyMessage": func() string { return search.EmptyResultsMessage },
	}).ParseFS(templateFS, "templates/*.html"),
)

// PageData is everything the results page needs.
type PageData struct {
	// Title is the document title.
	Title string

	// Snapshot is the session state to render.
	Snapshot session.Snapshot

	// Report is the rendered report fragment.
	Report template.HTML

	// Static renders a self-contained page with no forms: paper details use
	// <details> elements and sources link straight to their URLs. Used for
	// exported reports.
	Static bool

	// RefreshSeconds, when positive in the Loading state, makes the page
	// reload itself so a request started elsewhere shows up when it finishes.
	RefreshSeconds int
}

// Card is one paper as the template sees it.
type Card struct {
	types.Paper
	Rank     int
	Expanded bool
}

// Cards returns the papers in server order with their expansion state.
func (d PageData) Cards() []Card {
	cards := make([]Card, len(d.Snapshot.Papers))
	for i, p := range d.Snapshot.Papers {
		cards[i] = Card{Paper: p, Rank: i + 1, Expanded: d.Snapshot.IsExpanded(p.ID)}
	}
	return cards
}

// State is the lifecycle state name, for template switches.
func (d PageData) State() string {
	return d.Snapshot.State.String()
}

// NewPageData renders the snapshot's report and bundles it for the page.
func NewPageData(title string, snap session.Snapshot) (PageData, error) {
	report, err := Markdown(snap.Report)
	if err != nil {
		return PageData{}, err
	}
	if title == "" {
		title = "LitReview"
		if snap.Query != "" {
			title = snap.Query + " | LitReview"
		}
	}
	return PageData{Title: title, Snapshot: snap, Report: report}, nil
}

// SnapshotFromResponse builds a Success snapshot for rendering a response
// that did not come through a live session, such as a saved report.
func SnapshotFromResponse(resp *types.SearchResponse) session.Snapshot {
	return session.Snapshot{
		State:          session.Success,
		Query:          resp.Query,
		Operation:      "search",
		FormattedQuery: resp.FormattedQuery,
		QueryTime:      resp.QueryTime,
		TotalResults:   resp.TotalResults,
		Report:         resp.FinalReport,
		Papers:         resp.Papers,
	}
}

// Page writes the full results page.
func Page(w io.Writer, data PageData) error {
	if err := pageTemplate.Execute(w, data); err != nil {
		return fmt.Errorf("rendering results page: %w", err)
	}
	return nil
}
