package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/kotoba-lab/tessa/pkg/config"
	"github.com/kotoba-lab/tessa/pkg/engine"
	"github.com/kotoba-lab/tessa/pkg/models"
)

func newRunOneCmd() *cobra.Command {
	var (
		configPath   string
		samplePath   string
		condition    string
		outputFormat string
	)

	cmd := &cobra.Command{
		Use:   "run-one",
		Short: "Run a single sample through one condition",
		Long: `Run-one executes one sample (a JSON object, from a file or stdin)
under a single condition and prints the result. The text format prints
the final English translation; json prints the full run record.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if outputFormat != "text" && outputFormat != "json" {
				return fmt.Errorf("unknown output format %q (expected text or json)", outputFormat)
			}
			cond, err := models.ParseCondition(condition)
			if err != nil {
				return err
			}

			sample, err := readSample(samplePath, cmd.InOrStdin())
			if err != nil {
				return err
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			eng, err := engine.New(cfg, slog.Default())
			if err != nil {
				return err
			}

			record, err := eng.RunOne(cmd.Context(), sample, cond)
			if err != nil {
				return err
			}

			switch outputFormat {
			case "json":
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(record)
			default:
				fmt.Fprintln(cmd.OutOrStdout(), record.Final.En)
				if record.Status != models.RunStatusOK {
					fmt.Fprintf(cmd.ErrOrStderr(), "status: %s\n", record.Status)
				}
				return nil
			}
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "pipeline configuration file (required)")
	cmd.Flags().StringVarP(&samplePath, "sample", "s", "-", "sample JSON file, or - for stdin")
	cmd.Flags().StringVar(&condition, "condition", string(models.ConditionA0), "condition to run")
	cmd.Flags().StringVar(&outputFormat, "output-format", "text", "output format: text or json")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

// readSample parses one sample JSON object from a file, or stdin when the
// path is "-".
func readSample(path string, stdin io.Reader) (*models.Sample, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample from stdin: %w", err)
		}
	} else {
		data, err = os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read sample file: %w", err)
		}
	}

	var sample models.Sample
	if err := json.Unmarshal(data, &sample); err != nil {
		return nil, fmt.Errorf("invalid sample: %w", err)
	}
	if sample.ID == "" {
		return nil, fmt.Errorf("sample has no id")
	}
	if sample.JA.Text == "" {
		return nil, fmt.Errorf("sample %q has no ja.text", sample.ID)
	}
	return &sample, nil
}
