// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the litreview CLI. It sends research
// questions to a literature-review service, prints or renders the report and
// ranked papers it returns, and serves the interactive results page.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/litreview/internal/secrets"
	"github.com/pdiddy/litreview/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// loadedSecrets holds API keys loaded from .secrets/ at startup.
var loadedSecrets secrets.Secrets

// rootCmd is the base command for the litreview CLI.
var rootCmd = &cobra.Command{
	Use:   "litreview",
	Short: "Generate literature reviews from a research question",
	Long: `litreview sends a research question to a literature-review service and
shows what comes back: a synthesized markdown report plus the ranked papers
it was built from.

Use search and filter from the terminal, serve for the interactive results
page, and show or open to revisit a report saved with search --save.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := secrets.LoadDotenv(".env")
		if err != nil {
			return err
		}
		for _, f := range loaded {
			fmt.Fprintf(os.Stderr, "Loaded environment from %s\n", f)
		}

		s, err := secrets.Load(".secrets/")
		if err != nil {
			return err
		}
		loadedSecrets = s
		if keys := s.Keys(); len(keys) > 0 {
			fmt.Fprintf(os.Stderr, "Loaded secrets: %v\n", keys)
		}
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./litreview.yaml or ~/.config/litreview/config.yaml)")
	rootCmd.PersistentFlags().String("base-url", "", "review service base URL (overrides backend.base_url)")
	rootCmd.PersistentFlags().Duration("timeout", 0, "request timeout, 0 disables it (default 10m)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "log request lifecycle to stderr")

	viper.BindPFlag("backend.base_url", rootCmd.PersistentFlags().Lookup("base-url"))
	viper.BindPFlag("backend.timeout", rootCmd.PersistentFlags().Lookup("timeout"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("litreview")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "litreview"))
		}
	}

	setDefaults(viper.GetViper())

	viper.SetEnvPrefix("LITREVIEW")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// setDefaults registers every config key so environment variables bind even
// when no config file mentions them.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()
	v.SetDefault("backend.base_url", d.Backend.BaseURL)
	v.SetDefault("backend.search_path", d.Backend.SearchPath)
	v.SetDefault("backend.filters_path", d.Backend.FiltersPath)
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.user_agent", d.Backend.UserAgent)
	v.SetDefault("backend.api_key", "")
	v.SetDefault("backend.max_retries", d.Backend.MaxRetries)
	v.SetDefault("backend.rate_limit", d.Backend.RateLimit)
	v.SetDefault("serve.addr", d.Serve.Addr)
	v.SetDefault("serve.allowed_origins", d.Serve.AllowedOrigins)
}

// loadConfig decodes the merged configuration. The API key falls back to
// .secrets/litreview-api-key when neither the file nor the environment sets
// it.
func loadConfig(v *viper.Viper, s secrets.Secrets) (types.Config, error) {
	cfg := types.DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}
	if cfg.Backend.APIKey == "" {
		cfg.Backend.APIKey = s.APIKey()
	}
	return cfg, nil
}

// newLogger writes text logs to stderr at level, or at debug with --verbose.
func newLogger(cmd *cobra.Command, level slog.Level) *slog.Logger {
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
