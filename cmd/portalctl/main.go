// Command portalctl is the operator tool for the community portal.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/communityportal/backend/internal/config"
	"github.com/communityportal/backend/internal/logging"
	"github.com/communityportal/backend/internal/repository"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "portalctl",
		Short:        "Community portal operator tool",
		SilenceUsage: true,
	}
	rootCmd.AddCommand(donateCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(eventsCmd())
	rootCmd.AddCommand(userCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// withPool loads configuration and opens the database for fn.
func withPool(ctx context.Context, fn func(pool *pgxpool.Pool) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	logging.Setup(cfg.LogLevel)

	pool, err := repository.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("connect: %w", err)
	}
	defer pool.Close()
	return fn(pool)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
