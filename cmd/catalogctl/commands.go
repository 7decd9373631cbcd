package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"anicatalog/internal/app"
	"anicatalog/internal/catalog"
	"anicatalog/internal/config"
	"anicatalog/internal/platform/crypto"
	"anicatalog/internal/platform/upstream"
	"anicatalog/internal/runs"
)

func buildLocal(ctx context.Context, opts *cliOptions) (*app.App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	return app.Build(ctx, cfg, opts.logger, nil)
}

func newFetchCmd(opts *cliOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "fetch <catalog-id>",
		Short: "Fetch one catalog straight from its provider, bypassing the cache",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildLocal(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()

			def, ok := a.Registry.Lookup(args[0])
			if !ok {
				return exitWith(2, fmt.Sprintf("unknown catalog %q (known: %s)", args[0], strings.Join(a.Registry.IDs(), ", ")))
			}
			if limit <= 0 {
				limit = def.Limit
			}
			items, err := def.Adapter.Fetch(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("fetch %s: %w", def.ID, err)
			}
			return printItems(cmd.OutOrStdout(), items, opts.jsonOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 0, "number of items (defaults to the catalog limit)")
	return cmd
}

func newWarmCmd(opts *cliOptions) *cobra.Command {
	var parallel int
	cmd := &cobra.Command{
		Use:   "warm [catalog-id...]",
		Short: "Refresh catalogs into the configured persistent store",
		Long:  "Refresh the named catalogs (all when none are named) and persist the snapshots, so a freshly started service serves them without waiting on providers.",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildLocal(cmd.Context(), opts)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.Service.Ready(); err != nil {
				return exitWith(3, err.Error())
			}

			ids := args
			if len(ids) == 0 {
				ids = a.Registry.IDs()
			}
			results := warm(cmd.Context(), a, ids, parallel)
			failed := 0
			for _, r := range results {
				if r.Error != "" {
					failed++
				}
			}
			if err := printWarmResults(cmd.OutOrStdout(), results, opts.jsonOutput); err != nil {
				return err
			}
			if failed > 0 {
				return exitWith(1, fmt.Sprintf("%d of %d catalogs failed to refresh", failed, len(results)))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&parallel, "parallel", 3, "catalogs refreshed at once")
	return cmd
}

type warmResult struct {
	CatalogID string        `json:"catalog_id"`
	Items     int           `json:"items"`
	Duration  time.Duration `json:"duration"`
	Error     string        `json:"error,omitempty"`
}

func warm(ctx context.Context, a *app.App, ids []string, parallel int) []warmResult {
	if parallel < 1 {
		parallel = 1
	}
	results := make([]warmResult, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(parallel)
	for i, id := range ids {
		g.Go(func() error {
			start := time.Now()
			n, err := a.Service.Refresh(gctx, id)
			r := warmResult{CatalogID: id, Items: n, Duration: time.Since(start)}
			if err != nil {
				r.Error = err.Error()
			}
			results[i] = r
			a.Logger.Debug("warmed catalog", zap.String("catalog", id), zap.Int("items", n), zap.Error(err))
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func newStatusCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the cache state of every catalog on a running service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			var resp struct {
				Data []catalog.Status `json:"data"`
			}
			if err := serviceClient().GetJSON(cmd.Context(), opts.server+"/v1/catalogs", nil, &resp); err != nil {
				return describeServiceError(err)
			}
			return printStatuses(cmd.OutOrStdout(), resp.Data, opts.jsonOutput)
		},
	}
}

func newRunsCmd(opts *cliOptions) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "runs <catalog-id>",
		Short: "List recent refresh runs of one catalog",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			u := fmt.Sprintf("%s/v1/catalogs/%s/runs?limit=%d", opts.server, url.PathEscape(args[0]), limit)
			var resp struct {
				Data []runs.Run `json:"data"`
			}
			if err := serviceClient().GetJSON(cmd.Context(), u, nil, &resp); err != nil {
				return describeServiceError(err)
			}
			return printRuns(cmd.OutOrStdout(), resp.Data, opts.jsonOutput)
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of runs")
	return cmd
}

func newRefreshCmd(opts *cliOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "refresh <catalog-id>",
		Short: "Force a refresh of one catalog on a running service",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			token, err := adminToken(opts)
			if err != nil {
				return err
			}
			header := http.Header{}
			header.Set("Authorization", "Bearer "+token)
			u := fmt.Sprintf("%s/internal/catalogs/%s/refresh", opts.server, url.PathEscape(args[0]))

			body, err := serviceClient().Do(cmd.Context(), http.MethodPost, u, header, nil)
			if err != nil {
				return describeServiceError(err)
			}
			if opts.jsonOutput {
				_, err = cmd.OutOrStdout().Write(append(body, '\n'))
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "refreshed %s\n", args[0])
			return nil
		},
	}
}

func newTokenCmd(opts *cliOptions) *cobra.Command {
	var (
		subject string
		ttl     time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin token from ADMIN_JWT_SECRET",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			token, jti, err := crypto.GenerateToken(os.Getenv("ADMIN_JWT_SECRET"), subject, crypto.RoleAdmin, ttl)
			if errors.Is(err, crypto.ErrEmptySecret) {
				return exitWith(2, "ADMIN_JWT_SECRET is not set")
			}
			if err != nil {
				return err
			}
			if opts.jsonOutput {
				return writeJSON(cmd.OutOrStdout(), map[string]any{
					"token":      token,
					"jti":        jti,
					"expires_at": time.Now().Add(ttl).UTC(),
				})
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&subject, "subject", "catalogctl", "token subject")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

// adminToken prefers an explicit token and otherwise mints a short-lived one.
func adminToken(opts *cliOptions) (string, error) {
	if opts.token != "" {
		return opts.token, nil
	}
	token, _, err := crypto.GenerateToken(os.Getenv("ADMIN_JWT_SECRET"), "catalogctl", crypto.RoleAdmin, 5*time.Minute)
	if errors.Is(err, crypto.ErrEmptySecret) {
		return "", exitWith(2, "no token: pass --token or set ADMIN_JWT_SECRET")
	}
	return token, err
}

func describeServiceError(err error) error {
	var se *upstream.StatusError
	if errors.As(err, &se) {
		return exitWith(1, fmt.Sprintf("service answered %d: %s", se.Code, strings.TrimSpace(se.Body)))
	}
	return err
}
