package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"shopping-dashboard/internal/config"
	"shopping-dashboard/internal/errors"
	"shopping-dashboard/internal/observability"
	"shopping-dashboard/internal/pipeline"
	"shopping-dashboard/internal/render"
	"shopping-dashboard/internal/sample"
	"shopping-dashboard/internal/services"
)

type reportOptions struct {
	file         string
	useSample    bool
	users        int
	days         int
	seed         uint64
	rankedLabels bool
}

func newReportCmd() *cobra.Command {
	opts := &reportOptions{}

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print overview, funnel and segments for a clickstream file",
		Long: `Run the full pipeline over a CSV file (or generated sample data) and print
summary statistics, daily activity, the purchase funnel and the segment table.

The file needs the columns User_ID, Session_ID, Timestamp and Action
(user_id, session_id, timestamp and event_type are accepted as well).

Examples:
  # Report on a clickstream export
  segment report --file clickstream.csv

  # Report on 200 generated users with another seed
  segment report --sample --users 200 --seed 7

  # Order segment labels by purchases and session duration
  segment report --file clickstream.csv --ranked-labels`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.file, "file", "f", "", "clickstream CSV file")
	flags.BoolVar(&opts.useSample, "sample", false, "use generated sample data instead of a file")
	flags.IntVar(&opts.users, "users", 100, "number of users when using sample data")
	flags.IntVar(&opts.days, "days", 30, "number of days when using sample data")
	flags.Uint64Var(&opts.seed, "seed", config.DefaultSeed, "random seed for sampling and clustering")
	flags.BoolVar(&opts.rankedLabels, "ranked-labels", false, "assign segment labels by cluster rank instead of cluster index")

	return cmd
}

func runReport(cmd *cobra.Command, opts *reportOptions) error {
	if opts.file == "" && !opts.useSample {
		return fmt.Errorf("either --file or --sample is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	seed := cfg.Segmentation.Seed
	if cmd.Flags().Changed("seed") {
		seed = opts.seed
	}

	segmentOpts := pipeline.DefaultSegmentOptions()
	segmentOpts.Seed = seed
	segmentOpts.NInit = cfg.Segmentation.NInit
	segmentOpts.MaxIterations = cfg.Segmentation.MaxIterations
	if opts.rankedLabels || cfg.Segmentation.LabelStrategy == config.LabelStrategyRanked {
		segmentOpts.Labels = pipeline.LabelByRank
	}

	logger := observability.NewLogger(cfg.Logger, cmd.ErrOrStderr())
	analytics := services.NewAnalytics(
		services.WithLogger(logger),
		services.WithSegmentOptions(segmentOpts),
	)

	ctx, cancel := context.WithTimeout(cmd.Context(), cfg.Server.LoadTimeout)
	defer cancel()

	source := opts.file
	if opts.useSample {
		source = fmt.Sprintf("sample (%d users, %d days, seed %d)", opts.users, opts.days, seed)
		analytics.LoadSample(ctx, sample.Options{Users: opts.users, Days: opts.days, Seed: seed})
	} else if err := analytics.LoadFromCSV(ctx, opts.file); err != nil {
		if errors.IsFatalInput(err) {
			fmt.Fprintln(cmd.ErrOrStderr(), errors.UserMessage(err))
		}
		return err
	}

	report := render.Report{
		Source:   source,
		Overview: analytics.Overview(),
		Segments: analytics.Segments(services.Filter{}),
		Daily:    analytics.DailyActivity(services.Filter{}),
		Funnel:   analytics.Funnel(services.Filter{}),
		Stages:   analytics.Reports(),
	}

	_, err = fmt.Fprint(cmd.OutOrStdout(), report.String())
	return err
}
