package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"golang.org/x/sync/errgroup"

	"github.com/pdiddy/litreview/internal/browser"
	"github.com/pdiddy/litreview/internal/search"
	"github.com/pdiddy/litreview/internal/session"
	"github.com/pdiddy/litreview/internal/web"
)

const shutdownTimeout = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the interactive results page",
	Long: `Serve runs the web front end: a search box, the rendered report, and one
card per paper with expandable details. Searches run in the background and
the page refreshes itself until the review is ready. Stop with Ctrl-C; the
server drains open connections and cancels any request in flight.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides serve.addr, default :8080)")
	serveCmd.Flags().Int("refresh", web.DefaultRefreshSeconds, "seconds between page reloads while a review is generating")
	serveCmd.Flags().Bool("open", false, "open the results page in the browser once listening")

	viper.BindPFlag("serve.addr", serveCmd.Flags().Lookup("addr"))

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(viper.GetViper(), loadedSecrets)
	if err != nil {
		return err
	}
	client, err := search.NewClient(cfg.Backend)
	if err != nil {
		return err
	}

	logger := newLogger(cmd, slog.LevelInfo)
	refresh, _ := cmd.Flags().GetInt("refresh")

	ctx := cmd.Context()
	sess := session.New(client, session.WithLogger(logger))
	srv := web.New(sess,
		web.WithLogger(logger),
		web.WithBaseContext(ctx),
		web.WithAllowedOrigins(cfg.Serve.AllowedOrigins),
		web.WithRefreshSeconds(refresh),
		web.WithRequestLog(true),
	)

	ln, err := net.Listen("tcp", cfg.Serve.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", cfg.Serve.Addr, err)
	}

	httpSrv := &http.Server{
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	pageURL := "http://" + displayAddr(ln.Addr())
	logger.Info("serving results page",
		slog.String("url", pageURL),
		slog.String("backend", client.SearchURL()))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := httpSrv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serving: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		sess.Cancel()

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		err := httpSrv.Shutdown(shutdownCtx)
		srv.Wait()
		return err
	})

	if openPage, _ := cmd.Flags().GetBool("open"); openPage {
		if err := browser.New().Open(pageURL + "/search"); err != nil {
			logger.Warn("could not open browser", slog.Any("error", err))
		}
	}

	return g.Wait()
}

// displayAddr turns a wildcard listen address into one a browser can use.
func displayAddr(addr net.Addr) string {
	host, port, err := net.SplitHostPort(addr.String())
	if err != nil {
		return addr.String()
	}
	if ip := net.ParseIP(host); host == "" || (ip != nil && ip.IsUnspecified()) {
		host = "localhost"
	}
	return net.JoinHostPort(host, port)
}
