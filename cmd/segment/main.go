// Package main implements the segment CLI: offline reports over a
// clickstream file and synthetic sample generation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"shopping-dashboard/internal/errors"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		// fatal input errors were already reported with their hint
		if !errors.IsFatalInput(err) {
			fmt.Fprintln(os.Stderr, "Error:", err)
		}
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "segment",
		Short: "Shopping behavior analysis from the command line",
		Long: `segment runs the clickstream pipeline offline: it normalizes the events,
computes per-user metrics, clusters users into segments and prints the results.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(newReportCmd())
	rootCmd.AddCommand(newSampleCmd())
	return rootCmd
}
