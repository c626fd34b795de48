package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/pkg/types"
)

var filterCmd = &cobra.Command{
	Use:   "filter",
	Short: "Re-run a review with filters applied",
	Long: `Filter sends a filter payload to the review service and prints the
filtered report and papers. The year range and query are named flags; any
other field the service accepts can be passed with --set key=value, where
value is parsed as JSON when possible (true, 12, "text") and as a plain
string otherwise.`,
	RunE: runFilter,
}

func init() {
	filterCmd.Flags().String("query", "", "research question the filters apply to")
	filterCmd.Flags().Int("year-from", 0, "earliest publication year")
	filterCmd.Flags().Int("year-to", 0, "latest publication year")
	filterCmd.Flags().StringArray("set", nil, "extra filter field as key=value (repeatable)")
	addOutputFlags(filterCmd)

	rootCmd.AddCommand(filterCmd)
}

func runFilter(cmd *cobra.Command, args []string) error {
	query, _ := cmd.Flags().GetString("query")
	yearFrom, _ := cmd.Flags().GetInt("year-from")
	yearTo, _ := cmd.Flags().GetInt("year-to")
	sets, _ := cmd.Flags().GetStringArray("set")

	if yearFrom > 0 && yearTo > 0 && yearFrom > yearTo {
		return fmt.Errorf("--year-from %d is after --year-to %d", yearFrom, yearTo)
	}
	extra, err := parseSetFlags(sets)
	if err != nil {
		return err
	}

	req := types.FilterRequest{
		Query:    strings.TrimSpace(query),
		YearFrom: yearFrom,
		YearTo:   yearTo,
		Extra:    extra,
	}
	if req.IsEmpty() {
		return fmt.Errorf("provide at least one filter (--query, --year-from, --year-to or --set)")
	}

	sess, client, err := newSession(cmd)
	if err != nil {
		return err
	}
	if err := sess.ApplyFilters(cmd.Context(), req); err != nil {
		return failure(sess.Snapshot())
	}

	resp := sess.Snapshot().Response()
	resp.Query = req.Query
	if err := saveIfRequested(cmd, resp, client.FiltersURL()); err != nil {
		return err
	}
	return writeResult(cmd, os.Stdout, resp)
}

// parseSetFlags turns key=value pairs into filter fields.
func parseSetFlags(sets []string) (map[string]any, error) {
	if len(sets) == 0 {
		return nil, nil
	}
	out := make(map[string]any, len(sets))
	for _, s := range sets {
		key, raw, ok := strings.Cut(s, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("invalid --set %q: want key=value", s)
		}
		var v any
		if err := json.Unmarshal([]byte(raw), &v); err != nil {
			v = raw
		}
		out[key] = v
	}
	return out, nil
}
