package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/kotoba-lab/tessa/pkg/config"
	"github.com/kotoba-lab/tessa/pkg/database"
	"github.com/kotoba-lab/tessa/pkg/dataset"
	"github.com/kotoba-lab/tessa/pkg/engine"
	"github.com/kotoba-lab/tessa/pkg/models"
	"github.com/kotoba-lab/tessa/pkg/store"
	"github.com/kotoba-lab/tessa/pkg/trace"
	"github.com/kotoba-lab/tessa/pkg/version"
)

func newRunCmd() *cobra.Command {
	var (
		configPath string
		inputPath  string
		outputPath string
		conditions string
		runID      string
		overwrite  bool
		toStore    bool
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a dataset through the pipeline conditions",
		Long: `Run reads a JSONL dataset of samples, executes every (sample, condition)
pair through the configured pipeline, and writes one RunRecord per pair
as JSONL. The output path defaults to <outputDir>/<run-id>.jsonl.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRun(cmd.Context(), runOptions{
				configPath: configPath,
				inputPath:  inputPath,
				outputPath: outputPath,
				conditions: conditions,
				runID:      runID,
				overwrite:  overwrite,
				store:      toStore,
			})
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline configuration file (required)")
	cmd.Flags().StringVarP(&inputPath, "input", "i", "", "dataset JSONL file (required)")
	cmd.Flags().StringVarP(&outputPath, "output", "o", "", "output JSONL path (default <outputDir>/<run-id>.jsonl)")
	cmd.Flags().StringVar(&conditions, "conditions", "", "comma-separated conditions to run (default all)")
	cmd.Flags().StringVar(&runID, "run-id", "", "run identifier (default a fresh UUID)")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "overwrite an existing output file")
	cmd.Flags().BoolVar(&toStore, "store", false, "also persist records to the PostgreSQL store (connection from the DB_* environment)")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

type runOptions struct {
	configPath string
	inputPath  string
	outputPath string
	conditions string
	runID      string
	overwrite  bool
	store      bool
}

func runRun(ctx context.Context, opts runOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return err
	}

	samples, err := dataset.ReadFile(opts.inputPath)
	if err != nil {
		return err
	}
	if len(samples) == 0 {
		return fmt.Errorf("dataset %s has no samples", opts.inputPath)
	}

	conditions := models.AllConditions()
	if opts.conditions != "" {
		conditions, err = models.ParseConditionList(opts.conditions)
		if err != nil {
			return err
		}
	}

	runID := opts.runID
	if runID == "" {
		runID = uuid.NewString()
	}

	var sink store.Store
	if opts.store {
		pg, client, err := openStoreSink(ctx)
		if err != nil {
			return err
		}
		defer client.Close()
		sink = pg
	}

	outputPath := opts.outputPath
	if outputPath == "" {
		outputPath = filepath.Join(cfg.RunSettings.OutputDir, runID+".jsonl")
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	output, err := openOutput(outputPath, opts.overwrite)
	if err != nil {
		return err
	}
	defer output.Close()

	shutdown, err := trace.Init(ctx, trace.Config{
		Enabled:        cfg.Langfuse.Enabled,
		BaseURL:        cfg.Langfuse.BaseURL,
		ServiceName:    version.AppName,
		ServiceVersion: version.Version,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdown(context.WithoutCancel(ctx)); err != nil {
			slog.Warn("Failed to shut down trace exporter", "error", err)
		}
	}()

	eng, err := engine.New(cfg, slog.Default())
	if err != nil {
		return err
	}

	slog.Info("Starting run",
		"run_id", runID,
		"samples", len(samples),
		"conditions", len(conditions),
		"output", outputPath)

	summary, err := eng.Run(ctx, runID, samples, conditions, output, sink)
	if err != nil {
		return err
	}

	slog.Info("Run finished",
		"run_id", runID,
		"total", summary.Total,
		"ok", summary.OK,
		"needs_review", summary.NeedsReview,
		"errors", summary.Errors)
	fmt.Printf("run %s: %d records (%d ok, %d needs_review, %d errors) -> %s\n",
		runID, summary.Total, summary.OK, summary.NeedsReview, summary.Errors, outputPath)
	return nil
}

// openStoreSink connects to the PostgreSQL store configured through the
// DB_* environment, verifies connectivity, and returns the record sink.
// The caller closes the client when the run ends.
func openStoreSink(ctx context.Context) (*store.Postgres, *database.Client, error) {
	cfg, err := database.LoadConfigFromEnv()
	if err != nil {
		return nil, nil, err
	}
	client, err := database.NewClient(ctx, cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to store database: %w", err)
	}
	health, err := database.Health(ctx, client.DB())
	if err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("store database health check failed: %w", err)
	}
	slog.Info("Store database ready",
		"host", cfg.Host,
		"database", cfg.Database,
		"status", health.Status,
		"response_time_ms", health.ResponseTime)
	return store.NewPostgres(client), client, nil
}

// openOutput creates the output file, refusing to clobber an existing one
// unless overwrite is set.
func openOutput(path string, overwrite bool) (*os.File, error) {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return nil, fmt.Errorf("output file %s already exists (use --overwrite to replace it)", path)
		}
		return nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, nil
}
