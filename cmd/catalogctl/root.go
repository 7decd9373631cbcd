package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"anicatalog/internal/config"
	"anicatalog/internal/platform/upstream"
	"anicatalog/internal/telemetry"
)

type cliOptions struct {
	server     string
	token      string
	jsonOutput bool
	verbose    bool
	logger     *zap.Logger
}

func newRootCommand() *cobra.Command {
	opts := cliOptions{
		server: "http://localhost:7000",
		logger: zap.NewNop(),
	}

	root := &cobra.Command{
		Use:           "catalogctl",
		Short:         "Operate the anime catalog service",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			config.LoadEnvFiles()
			if opts.token == "" {
				opts.token = os.Getenv("CATALOGCTL_TOKEN")
			}
			if opts.verbose {
				logger, err := telemetry.NewLogger("debug", "console")
				if err != nil {
					return err
				}
				opts.logger = logger
			}
			return nil
		},
		PersistentPostRun: func(_ *cobra.Command, _ []string) {
			_ = opts.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&opts.server, "server", opts.server, "base URL of a running catalog service")
	root.PersistentFlags().StringVar(&opts.token, "token", "", "admin bearer token (defaults to $CATALOGCTL_TOKEN)")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "output JSON")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log to stderr")

	root.AddCommand(
		newFetchCmd(&opts),
		newWarmCmd(&opts),
		newStatusCmd(&opts),
		newRunsCmd(&opts),
		newRefreshCmd(&opts),
		newTokenCmd(&opts),
	)
	return root
}

// serviceClient talks to a running service. Operator calls are not retried.
func serviceClient() *upstream.Client {
	return upstream.NewClient(upstream.Config{
		Provider:   "anicatalog",
		UserAgent:  "catalogctl/1.0",
		RPS:        10,
		MaxRetries: 0,
		Timeout:    3 * time.Minute,
	})
}
