// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines the data shapes exchanged with the literature-review
// service: search and filter requests, their responses, and the papers they
// carry.
//
// JSON field names follow the service contract exactly (note the mixed
// camelCase and snake_case in SearchResponse).
package types

import "encoding/json"

// SearchRequest is the body of POST /api/search.
type SearchRequest struct {
	// Query is the user's research question, already trimmed and non-empty.
	Query string `json:"query"`
}

// SearchResponse is the success body of POST /api/search.
type SearchResponse struct {
	// Query echoes the submitted query.
	Query string `json:"query" yaml:"query"`

	// FormattedQuery is the display form of the query built by the service.
	FormattedQuery string `json:"formattedQuery" yaml:"formatted_query"`

	// QueryTime is the server-side processing time in seconds.
	QueryTime float64 `json:"queryTime" yaml:"query_time"`

	// TotalResults is the server-reported result count. It is not required
	// to equal len(Papers).
	TotalResults int `json:"totalResults" yaml:"total_results"`

	// FinalReport is the markdown synthesis for the query.
	FinalReport string `json:"final_report" yaml:"final_report"`

	// Papers are the sources in the order the service ranked them.
	Papers []Paper `json:"papers" yaml:"papers"`
}

// FilterRequest is the body of POST /api/filters. The service accepts an
// open object; Query, YearFrom and YearTo are the fields it is known to read
// and Extra carries anything else verbatim.
type FilterRequest struct {
	Query    string
	YearFrom int
	YearTo   int
	Extra    map[string]any
}

// IsEmpty reports whether the request carries no fields at all.
func (f FilterRequest) IsEmpty() bool {
	return f.Query == "" && f.YearFrom == 0 && f.YearTo == 0 && len(f.Extra) == 0
}

// MarshalJSON flattens the typed fields and Extra into one JSON object.
// Typed fields win over Extra entries with the same key.
func (f FilterRequest) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(f.Extra)+3)
	for k, v := range f.Extra {
		m[k] = v
	}
	if f.Query != "" {
		m["query"] = f.Query
	}
	if f.YearFrom != 0 {
		m["yearFrom"] = f.YearFrom
	}
	if f.YearTo != 0 {
		m["yearTo"] = f.YearTo
	}
	return json.Marshal(m)
}

// FilterResponse is the success body of POST /api/filters.
type FilterResponse struct {
	Papers       []Paper `json:"papers"`
	FinalReport  string  `json:"final_report"`
	TotalResults int     `json:"totalResults"`
}

// ErrorBody is what the service returns alongside a non-2xx status.
type ErrorBody struct {
	Error string `json:"error"`
}
