package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/search"
)

var showCmd = &cobra.Command{
	Use:   "show <file>",
	Short: "Print a saved report",
	Long: `Show reads a report saved with search --save or filter --save and prints
it the same way search does, without calling the review service.`,
	Args: cobra.ExactArgs(1),
	RunE: runShow,
}

func init() {
	showCmd.Flags().Bool("json", false, "output the full response as JSON")
	showCmd.Flags().Bool("html", false, "output a self-contained HTML results page")
	showCmd.Flags().Bool("csl", false, "output the papers as a CSL-YAML bibliography")
	showCmd.Flags().String("title", "", "page title for --html output")

	rootCmd.AddCommand(showCmd)
}

func runShow(cmd *cobra.Command, args []string) error {
	saved, err := search.ReadSavedReport(args[0])
	if err != nil {
		return err
	}
	if !saved.SavedAt.IsZero() {
		fmt.Fprintf(os.Stderr, "Report saved %s\n", saved.SavedAt.Format("2006-01-02 15:04 MST"))
	}
	return writeResult(cmd, os.Stdout, saved.Response())
}
