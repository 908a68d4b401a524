package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kotoba-lab/tessa/pkg/version"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           version.AppName,
		Short:         "Offline evaluation harness for LLM translation pipelines",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		newRunCmd(),
		newRunOneCmd(),
		newAggregateCmd(),
		newExtractFailuresCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s (commit %s", version.AppName, version.Version, version.GitCommit)
			if version.BuildDate != "" {
				fmt.Fprintf(cmd.OutOrStdout(), ", built %s", version.BuildDate)
			}
			fmt.Fprintln(cmd.OutOrStdout(), ")")
		},
	}
}
