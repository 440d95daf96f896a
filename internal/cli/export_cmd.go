package cli

import (
	"errors"
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/calendar"
	"github.com/alexanderramin/timeboxer/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newExportCmd(s *session) *cobra.Command {
	var (
		runID     string
		authorize bool
	)

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a run's schedule to Google Calendar",
		Long: `Export the validated schedule of a run as calendar events. Exporting the
same run again replaces its earlier events. Use --authorize once to store an
OAuth token next to the config.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if authorize {
				return calendar.Authorize(cmd.Context(), rt.Config.Calendar, cmd.InOrStdin(), cmd.OutOrStdout())
			}
			if runID == "" {
				return errors.New("--run is required unless --authorize is set")
			}
			if rt.Export == nil {
				return errors.New("calendar export is not configured")
			}

			exporter, err := rt.Export(cmd.Context())
			if errors.Is(err, calendar.ErrNoToken) {
				return fmt.Errorf("%w: run `timeboxer export --authorize` first", err)
			}
			if err != nil {
				return err
			}
			n, err := exporter.ExportRun(cmd.Context(), runID)
			if err != nil {
				return fmt.Errorf("exporting run %s: %w", runID, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s exported %d events for run %s\n",
				formatter.StyleGreen.Render("✔"), n, runID)
			return nil
		},
	}

	cmd.Flags().StringVar(&runID, "run", "", "Run ID to export")
	cmd.Flags().BoolVar(&authorize, "authorize", false, "Run the OAuth flow and store a calendar token")
	return cmd
}
