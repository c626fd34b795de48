package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/render"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/internal/session"
	"github.com/pdiddy/litreview/pkg/types"
)

var searchCmd = &cobra.Command{
	Use:   "search <question...>",
	Short: "Generate a literature review for a research question",
	Long: `Search sends a research question to the review service and prints the
synthesized report followed by the ranked papers. The service runs a whole
review pipeline per request, so a search can take several minutes.

Use --json for the full response, --html for a self-contained results page,
and --save to keep the result for show and open.`,
	RunE: runSearch,
}

func init() {
	addOutputFlags(searchCmd)
	rootCmd.AddCommand(searchCmd)
}

// addOutputFlags registers the flags shared by commands that print a result.
func addOutputFlags(cmd *cobra.Command) {
	cmd.Flags().Bool("json", false, "output the full response as JSON")
	cmd.Flags().Bool("html", false, "output a self-contained HTML results page")
	cmd.Flags().Bool("csl", false, "output the papers as a CSL-YAML bibliography")
	cmd.Flags().String("save", "", "save the result to a YAML file")
	cmd.Flags().String("title", "", "page title for --html output")
}

func runSearch(cmd *cobra.Command, args []string) error {
	query := strings.TrimSpace(strings.Join(args, " "))
	if query == "" {
		return fmt.Errorf("provide a research question")
	}

	sess, client, err := newSession(cmd)
	if err != nil {
		return err
	}

	if err := sess.Submit(cmd.Context(), query); err != nil {
		return failure(sess.Snapshot())
	}

	resp := sess.Snapshot().Response()
	if err := saveIfRequested(cmd, resp, client.SearchURL()); err != nil {
		return err
	}
	return writeResult(cmd, os.Stdout, resp)
}

// newSession builds the service client and a session that reports progress
// on stderr.
func newSession(cmd *cobra.Command) (*session.Session, *search.Client, error) {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return nil, nil, err
	}
	client, err := search.NewClient(cfg.Backend)
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(client,
		session.WithLogger(newLogger(cmd, slog.LevelWarn)),
		session.WithOnChange(progress(os.Stderr)))
	return sess, client, nil
}

// progress prints one line when a request starts.
func progress(w io.Writer) func(session.Snapshot) {
	return func(snap session.Snapshot) {
		if snap.State != session.Loading {
			return
		}
		if snap.Operation == "filter" {
			fmt.Fprintln(w, "Applying filters...")
			return
		}
		fmt.Fprintf(w, "Generating review for %q (this can take several minutes)...\n", snap.Query)
	}
}

// failure turns an Error snapshot into the command error. Only the generic
// message reaches the user; the cause is logged by the session.
func failure(snap session.Snapshot) error {
	if snap.Message != "" {
		return errors.New(snap.Message)
	}
	return errors.New(session.GenericErrorMessage)
}

func saveIfRequested(cmd *cobra.Command, resp *types.SearchResponse, service string) error {
	path, _ := cmd.Flags().GetString("save")
	if path == "" {
		return nil
	}
	if err := search.WriteSavedReport(path, search.NewSavedReport(resp, service, time.Now())); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "Saved report to %s\n", path)
	return nil
}

// writeResult prints resp in the format the flags ask for: JSON, a CSL
// bibliography, a static HTML page, or the markdown report followed by a
// paper table.
func writeResult(cmd *cobra.Command, w io.Writer, resp *types.SearchResponse) error {
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		return search.FormatJSON(resp, w)
	}
	if asCSL, _ := cmd.Flags().GetBool("csl"); asCSL {
		return search.FormatCSL(resp.Papers, w)
	}
	if asHTML, _ := cmd.Flags().GetBool("html"); asHTML {
		title, _ := cmd.Flags().GetString("title")
		data, err := render.NewPageData(title, render.SnapshotFromResponse(resp))
		if err != nil {
			return err
		}
		data.Static = true
		return render.Page(w, data)
	}

	if report := strings.TrimSpace(resp.FinalReport); report != "" {
		fmt.Fprintln(w, report)
		fmt.Fprintln(w)
	}
	search.FormatSummary(resp, w)
	fmt.Fprintln(w)
	search.FormatTable(resp.Papers, w)
	return nil
}
