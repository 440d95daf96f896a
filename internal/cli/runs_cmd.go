package cli

import (
	"fmt"
	"time"

	"github.com/alexanderramin/timeboxer/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newRunsCmd(s *session) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect archived planning runs",
	}
	cmd.AddCommand(newRunsListCmd(s), newRunsShowCmd(s))
	return cmd
}

func newRunsListCmd(s *session) *cobra.Command {
	var (
		limit  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if limit < 1 {
				return fmt.Errorf("--limit must be positive, got %d", limit)
			}
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			runs, err := rt.Runs.ListRuns(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), runs)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRunList(runs, s.now()))
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of runs to show")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print runs as JSON")
	return cmd
}

func newRunsShowCmd(s *session) *cobra.Command {
	var asJSON, raw bool

	cmd := &cobra.Command{
		Use:   "show ID",
		Short: "Show one run with its attempts",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			run, err := rt.Runs.GetRun(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("run %s: %w", args[0], err)
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), run)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRunDetail(run, raw, time.Local))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the run as JSON")
	cmd.Flags().BoolVar(&raw, "raw", false, "Include raw generator output for each attempt")
	return cmd
}
