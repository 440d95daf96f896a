package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/cli/formatter"
	"github.com/alexanderramin/timeboxer/internal/importer"
	"github.com/alexanderramin/timeboxer/internal/scheduler"
	"github.com/spf13/cobra"
)

func newPlanCmd(s *session) *cobra.Command {
	var (
		start   string
		noCache bool
		asJSON  bool
	)

	cmd := &cobra.Command{
		Use:   "plan FILE",
		Short: "Generate and validate a schedule for a story file",
		Long: `Generate a schedule for the stories in FILE (JSON or YAML, "-" for stdin),
retrying the generator until the result passes every duration and coverage
check.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			req, err := loadRequest(cmd, args[0], rt.Config.Rules, s.now())
			if err != nil {
				return err
			}
			if start != "" {
				t, err := parseStart(start, s.now())
				if err != nil {
					return err
				}
				req.StartTime = t
			}
			req.NoCache = noCache

			progress, stop := planProgress(cmd.ErrOrStderr(), s.interactive() && !asJSON)
			resp, err := rt.Plan.Plan(cmd.Context(), req, progress)
			stop()
			if err != nil {
				if asJSON {
					return err
				}
				fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatPipelineError(err))
				return reportedError{err}
			}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), resp)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatSchedule(resp, time.Local))
			return nil
		},
	}

	cmd.Flags().StringVar(&start, "start", "", "Start time as HH:MM today or RFC 3339 (default: file startTime or now)")
	cmd.Flags().BoolVar(&noCache, "no-cache", false, "Bypass the validated-schedule cache")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the response as JSON")
	return cmd
}

// loadRequest reads, validates and converts a story file. Validation
// problems are listed on stderr.
func loadRequest(cmd *cobra.Command, path string, rules scheduler.Rules, now time.Time) (app.ScheduleRequest, error) {
	var (
		file *importer.StoryFile
		err  error
	)
	if path == "-" {
		data, rerr := io.ReadAll(cmd.InOrStdin())
		if rerr != nil {
			return app.ScheduleRequest{}, fmt.Errorf("reading stdin: %w", rerr)
		}
		// YAML is a superset of JSON.
		file, err = importer.Parse(data, importer.FormatYAML)
	} else {
		file, err = importer.LoadStoryFile(path)
	}
	if err != nil {
		return app.ScheduleRequest{}, err
	}

	if errs := importer.ValidateStoryFile(file, rules); len(errs) > 0 {
		w := cmd.ErrOrStderr()
		fmt.Fprintln(w, formatter.StyleRed.Render(fmt.Sprintf("%d problem(s) in %s:", len(errs), path)))
		for _, e := range errs {
			fmt.Fprintf(w, "  - %s\n", e)
		}
		return app.ScheduleRequest{}, reportedError{fmt.Errorf("%s is not a valid story file", path)}
	}
	return importer.Convert(file, rules, now)
}

// parseStart accepts "HH:MM" on the day of now, or a full RFC 3339 time.
func parseStart(v string, now time.Time) (time.Time, error) {
	if t, err := time.ParseInLocation("15:04", v, now.Location()); err == nil {
		y, m, d := now.Date()
		return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), nil
	}
	t, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, fmt.Errorf("--start must be HH:MM or RFC 3339, got %q", v)
	}
	return t, nil
}

// planProgress renders attempt events. On a terminal they drive a spinner;
// otherwise only failed attempts are written, one per line.
func planProgress(w io.Writer, interactive bool) (app.ProgressFunc, func()) {
	if !interactive {
		return func(ev app.AttemptEvent) {
			if ev.Phase == app.PhaseFailed {
				fmt.Fprintln(w, formatter.Dim(formatter.AttemptLine(ev)))
			}
		}, func() {}
	}

	sp := formatter.NewSpinner(w, "planning")
	sp.Start()
	return func(ev app.AttemptEvent) {
		sp.SetMessage(formatter.AttemptLine(ev))
	}, sp.Stop
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
