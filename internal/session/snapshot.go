package session

import (
	"fmt"

	"github.com/pdiddy/litreview/pkg/types"
)

// State is the request lifecycle state shown to the user.
type State int

const (
	Idle State = iota
	Loading
	Success
	Error
)

var stateNames = [...]string{"idle", "loading", "success", "error"}

func (s State) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// MarshalText encodes the state by name.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Snapshot is an immutable copy of a session's view state.
type Snapshot struct {
	State State `json:"state"`

	// Query is the last submitted search text, trimmed.
	Query string `json:"query"`

	// Operation is the kind of the last request: "search" or "filter".
	Operation string `json:"operation,omitempty"`

	FormattedQuery string        `json:"formattedQuery,omitempty"`
	QueryTime      float64       `json:"queryTime,omitempty"`
	TotalResults   int           `json:"totalResults"`
	Report         string        `json:"final_report,omitempty"`
	Papers         []types.Paper `json:"papers"`

	// Expanded holds the IDs of papers whose details are open.
	Expanded map[int]bool `json:"expanded,omitempty"`

	// Message is GenericErrorMessage in the Error state, empty otherwise.
	Message string `json:"message,omitempty"`

	// Cause is the underlying failure. It is for logs only and never shown.
	Cause error `json:"-"`
}

// IsExpanded reports whether the paper's details are open.
func (s Snapshot) IsExpanded(id int) bool {
	return s.Expanded[id]
}

// NoResults reports a successful response that carried no papers.
func (s Snapshot) NoResults() bool {
	return s.State == Success && len(s.Papers) == 0
}

// Response rebuilds the service response the snapshot is showing.
func (s Snapshot) Response() *types.SearchResponse {
	return &types.SearchResponse{
		Query:          s.Query,
		FormattedQuery: s.FormattedQuery,
		QueryTime:      s.QueryTime,
		TotalResults:   s.TotalResults,
		FinalReport:    s.Report,
		Papers:         append([]types.Paper(nil), s.Papers...),
	}
}
