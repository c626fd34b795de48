// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package search

import (
	"fmt"
	"os"
	"time"

	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/litreview/pkg/types"
)

// SavedReport is the on-disk form of one search result. The user can save a
// report and render it later, or open its sources, without calling the
// service again.
type SavedReport struct {
	Query          string        `yaml:"query"`
	FormattedQuery string        `yaml:"formatted_query,omitempty"`
	QueryTime      float64       `yaml:"query_time"`
	TotalResults   int           `yaml:"total_results"`
	Report         string        `yaml:"report"`
	Papers         []types.Paper `yaml:"papers"`
	Service        string        `yaml:"service,omitempty"`
	SavedAt        time.Time     `yaml:"saved_at"`
}

// NewSavedReport captures resp. service records which endpoint produced it.
func NewSavedReport(resp *types.SearchResponse, service string, now time.Time) SavedReport {
	return SavedReport{
		Query:          resp.Query,
		FormattedQuery: resp.FormattedQuery,
		QueryTime:      resp.QueryTime,
		TotalResults:   resp.TotalResults,
		Report:         resp.FinalReport,
		Papers:         resp.Papers,
		Service:        service,
		SavedAt:        now.UTC(),
	}
}

// Response converts the saved report back into a SearchResponse.
func (r SavedReport) Response() *types.SearchResponse {
	return &types.SearchResponse{
		Query:          r.Query,
		FormattedQuery: r.FormattedQuery,
		QueryTime:      r.QueryTime,
		TotalResults:   r.TotalResults,
		FinalReport:    r.Report,
		Papers:         r.Papers,
	}
}

// WriteSavedReport saves a report to a YAML file.
func WriteSavedReport(path string, r SavedReport) error {
	data, err := yaml.Marshal(&r)
	if err != nil {
		return fmt.Errorf("marshaling report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing report %s: %w", path, err)
	}
	return nil
}

// ReadSavedReport loads a report saved by WriteSavedReport.
func ReadSavedReport(path string) (*SavedReport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading report: %w", err)
	}
	var r SavedReport
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parsing report %s: %w", path, err)
	}
	return &r, nil
}
