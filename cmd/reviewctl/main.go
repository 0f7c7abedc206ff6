// Command reviewctl triggers backend jobs and inspects dashboard data from
// the command line.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"review_dashboard/internal/adapters/observability"
	"review_dashboard/internal/adapters/reviewapi"
	"review_dashboard/internal/app"
	"review_dashboard/internal/shared"
)

var (
	cfg     shared.Config
	backend string
	jsonOut io.Writer = os.Stdout
)

var rootCmd = &cobra.Command{
	Use:           "reviewctl",
	Short:         "Operate the review automation backend",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cfg = shared.Load()
		if backend != "" {
			cfg.ReviewAPIURL = backend
		}
		// CLI logs go to stderr so stdout stays parseable
		log.Logger = observability.NewLogger(cfg.AppEnv, cfg.LogLevel).Output(os.Stderr)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&backend, "backend", "", "review API base URL (overrides REVIEW_API_URL)")
	rootCmd.AddCommand(scrapeCmd, generateCmd, regenerateCmd, logsCmd, snapshotCmd, historyCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func newAPI() (*reviewapi.Client, error) {
	return reviewapi.New(cfg.ReviewAPIURL, reviewapi.Options{
		Timeout: cfg.APITimeout,
		RPS:     cfg.APIRPS,
		Retries: cfg.APIRetries,
	})
}

// newActions builds actions without a dashboard; the CLI never refreshes.
func newActions() (*app.ActionService, error) {
	api, err := newAPI()
	if err != nil {
		return nil, err
	}
	return app.NewActionService(api, nil, cfg.Location()), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(jsonOut)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}
