package cmd

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/chrisdamba/cleanbotsim/internal/repositories"
	"github.com/chrisdamba/cleanbotsim/internal/repositories/postgres"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "Inspect the history of stored simulation runs",
}

var runsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, closeRuns, err := runRepositoryFromConfig(cmd.Context())
		if err != nil {
			return err
		}
		defer closeRuns()

		all, err := runs.GetAll(cmd.Context())
		if err != nil {
			return fmt.Errorf("error listing runs: %w", err)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintln(w, "RUN\tSEED\tGRID\tROBOTS\tDIRTY\tSTEPS\tCLEAN%\tMOVES\tSTOP")
		for _, r := range all {
			fmt.Fprintf(w, "%s\t%d\t%dx%d\t%d\t%d\t%d\t%.2f\t%d\t%s\n",
				r.RunID, r.Seed, r.Width, r.Height, r.Robots, r.DirtyCells, r.Steps, r.CleanPercentage, r.TotalMoves, r.StopReason)
		}
		return w.Flush()
	},
}

var runsClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every stored run",
	RunE: func(cmd *cobra.Command, args []string) error {
		runs, closeRuns, err := runRepositoryFromConfig(cmd.Context())
		if err != nil {
			return err
		}
		defer closeRuns()

		count, err := runs.Count(cmd.Context())
		if err != nil {
			return fmt.Errorf("error counting runs: %w", err)
		}
		if err := runs.DeleteAll(cmd.Context()); err != nil {
			return fmt.Errorf("error clearing runs: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "deleted %d runs\n", count)
		return nil
	},
}

func init() {
	runsCmd.AddCommand(runsListCmd, runsClearCmd)
}

// openRuns connects the run history store; replaced in tests
var openRuns = openRunRepository

func runRepositoryFromConfig(ctx context.Context) (repositories.RunRepository, func(), error) {
	cfg, err := models.LoadConfig(cfgFile)
	if err != nil {
		return nil, nil, fmt.Errorf("error loading config: %w", err)
	}
	if cfg.Database.URL == "" {
		return nil, nil, &models.InvalidConfigurationError{Field: "database.url", Value: "", Reason: "required for run history"}
	}
	return openRuns(ctx, cfg.Database.URL)
}

func openRunRepository(ctx context.Context, databaseURL string) (repositories.RunRepository, func(), error) {
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to database: %w", err)
	}

	runs := postgres.NewRunRepository(pool)
	if err := runs.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("error creating runs table: %w", err)
	}
	return runs, pool.Close, nil
}
