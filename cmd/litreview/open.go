package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/pdiddy/litreview/internal/browser"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/pkg/types"
)

var openCmd = &cobra.Command{
	Use:   "open <file> <paper-id>",
	Short: "Open a paper from a saved report in the browser",
	Long: `Open looks up a paper by ID in a saved report and opens its source URL in
the system browser. Only http and https URLs are opened.`,
	Args: cobra.ExactArgs(2),
	RunE: runOpen,
}

func init() {
	openCmd.Flags().Bool("print", false, "print the URL instead of opening it")

	rootCmd.AddCommand(openCmd)
}

func runOpen(cmd *cobra.Command, args []string) error {
	id, err := strconv.Atoi(args[1])
	if err != nil {
		return fmt.Errorf("paper ID must be a number, got %q", args[1])
	}
	saved, err := search.ReadSavedReport(args[0])
	if err != nil {
		return err
	}
	p, ok := types.FindPaper(saved.Papers, id)
	if !ok {
		return fmt.Errorf("no paper with ID %d in %s", id, args[0])
	}
	if err := browser.Validate(p.URL); err != nil {
		return fmt.Errorf("paper %d: %w", id, err)
	}

	if printOnly, _ := cmd.Flags().GetBool("print"); printOnly {
		fmt.Fprintln(os.Stdout, p.URL)
		return nil
	}
	fmt.Fprintf(os.Stderr, "Opening %s\n", p.URL)
	return browser.New().Open(p.URL)
}
