package main

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"shopping-dashboard/internal/config"
	"shopping-dashboard/internal/models"
	"shopping-dashboard/internal/sample"
)

type sampleOptions struct {
	users int
	days  int
	seed  uint64
	out   string
}

func newSampleCmd() *cobra.Command {
	opts := &sampleOptions{}

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Generate a synthetic clickstream CSV",
		Long: `Generate a deterministic synthetic clickstream with the columns
user_id, event_type, timestamp and session_id.

Examples:
  # Write 100 users over 30 days to stdout
  segment sample

  # Write a larger file
  segment sample --users 1000 --days 90 --out clickstream.csv`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSample(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.IntVar(&opts.users, "users", 100, "number of users")
	flags.IntVar(&opts.days, "days", 30, "number of days before now to spread events over")
	flags.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "random seed, defaults to RANDOM_SEED")
	flags.StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")

	return cmd
}

func runSample(cmd *cobra.Command, opts *sampleOptions) error {
	if opts.users < 1 || opts.days < 1 {
		return fmt.Errorf("--users and --days must be positive")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seed := cfg.Segmentation.Seed
	if cmd.Flags().Changed("seed") {
		seed = opts.seed
	}

	events := sample.Generate(sample.Options{Users: opts.users, Days: opts.days, Seed: seed})

	if opts.out == "-" || opts.out == "" {
		return writeSample(cmd.OutOrStdout(), events)
	}

	file, err := os.Create(opts.out)
	if err != nil {
		return fmt.Errorf("create %s: %w", opts.out, err)
	}
	defer file.Close()

	if err := writeSample(file, events); err != nil {
		return err
	}

	cmd.Printf("Wrote %d events for %d users to %s\n\n%s\n", len(events), opts.users, opts.out, sample.Info)
	return file.Close()
}

func writeSample(w io.Writer, events []models.Event) error {
	buf := bufio.NewWriter(w)
	if err := sample.WriteCSV(buf, events); err != nil {
		return fmt.Errorf("write sample: %w", err)
	}
	return buf.Flush()
}
