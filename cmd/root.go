package cmd

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/chrisdamba/cleanbotsim/internal/models"
	"github.com/chrisdamba/cleanbotsim/internal/simulator"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:          "cleanbotsim",
	Short:        "Simulates cleaning robots vacuuming a grid of dirty cells",
	Long:         `cleanbotsim runs an agent-based simulation of robot vacuum cleaners wandering a grid until every dirty cell is clean or the step budget runs out, and streams per-step metrics to the console, files, Kafka or Postgres.`,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := models.LoadConfig(cfgFile)
		if err != nil {
			return fmt.Errorf("error loading config: %w", err)
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sim, err := simulator.NewSimulator(cfg)
		if err != nil {
			return fmt.Errorf("error creating simulation: %w", err)
		}

		if cfg.Database.URL != "" {
			runs, closeRuns, err := openRuns(ctx, cfg.Database.URL)
			if err != nil {
				return err
			}
			defer closeRuns()
			sim.SetRunRepository(runs)
		}

		summary, err := sim.Run(ctx)
		if errors.Is(err, context.Canceled) {
			log.Printf("Run %s interrupted after %d steps", summary.RunID, summary.Steps)
			return nil
		}
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "run %s: %s after %d steps, %.2f%% clean, %d moves\n",
			summary.RunID, summary.StopReason, summary.Steps, summary.CleanPercentage, summary.TotalMoves)
		return nil
	},
}

// flagKeys maps command line flags to configuration keys
var flagKeys = map[string]string{
	"seed":               "seed",
	"robots":             "robots",
	"dirty-cells":        "dirty_cells",
	"width":              "width",
	"height":             "height",
	"max-steps":          "max_steps",
	"torus":              "torus",
	"step-interval":      "step_interval",
	"show-progress":      "show_progress",
	"record-positions":   "record_positions",
	"output-format":      "output_format",
	"output-path":        "output_path",
	"output-folder":      "output_folder",
	"output-destination": "output_destination",
	"kafka-broker-list":  "kafka_broker_list",
	"kafka-topic-prefix": "kafka_topic_prefix",
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./cleanbotsim.yaml)")
	rootCmd.PersistentFlags().String("database-url", "", "Postgres connection URL for run history and postgres output")

	rootCmd.Flags().Int64("seed", 0, "Random seed for simulation (0 picks one from the clock)")
	rootCmd.Flags().Int("robots", 5, "Number of cleaning robots")
	rootCmd.Flags().Int("dirty-cells", 10, "Number of dirty spots")
	rootCmd.Flags().Int("width", 10, "Grid width")
	rootCmd.Flags().Int("height", 10, "Grid height")
	rootCmd.Flags().Int("max-steps", 100, "Maximum number of steps")
	rootCmd.Flags().Bool("torus", true, "Wrap grid edges")
	rootCmd.Flags().Duration("step-interval", 0, "Pause between steps")
	rootCmd.Flags().Bool("show-progress", false, "Show a progress bar")
	rootCmd.Flags().Bool("record-positions", false, "Emit every agent's position each step")
	rootCmd.Flags().String("output-format", models.OutputFormatConsole, "Output format: console, json, csv, parquet, kafka, postgres or none")
	rootCmd.Flags().String("output-path", "output", "Base directory for file outputs")
	rootCmd.Flags().String("output-folder", "cleanbotsim", "Folder under the output path or bucket")
	rootCmd.Flags().String("output-destination", models.OutputDestinationLocal, "Where parquet files go: local or s3")
	rootCmd.Flags().String("kafka-broker-list", "localhost:9092", "Kafka broker list")
	rootCmd.Flags().String("kafka-topic-prefix", "", "Prefix for Kafka topic names")

	for flag, key := range flagKeys {
		cobra.CheckErr(viper.BindPFlag(key, rootCmd.Flags().Lookup(flag)))
	}
	cobra.CheckErr(viper.BindPFlag("database.url", rootCmd.PersistentFlags().Lookup("database-url")))

	rootCmd.AddCommand(runsCmd)
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
