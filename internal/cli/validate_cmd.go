package cli

import (
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/cli/formatter"
	"github.com/alexanderramin/timeboxer/internal/service"
	"github.com/spf13/cobra"
)

func newValidateCmd(s *session) *cobra.Command {
	return &cobra.Command{
		Use:   "validate FILE",
		Short: "Check a story file without calling the generator",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			rules := rt.Config.Rules
			req, err := loadRequest(cmd, args[0], rules, s.now())
			if err != nil {
				return err
			}
			err = service.ValidateRequest(rules, req)
			if err == nil {
				err = service.CheckDuration(rules, req.Stories)
			}
			if err != nil {
				fmt.Fprint(cmd.ErrOrStderr(), formatter.FormatPipelineError(err))
				return reportedError{err}
			}

			tasks, total := 0, 0
			var split []string
			for _, st := range req.Stories {
				tasks += len(st.Tasks)
				total += st.EstimatedDuration
				for _, t := range st.Tasks {
					if t.Duration > rules.PreemptiveSplitThreshold() {
						split = append(split, fmt.Sprintf("%s (%s)", t.Title, formatter.FormatMinutes(t.Duration)))
					}
				}
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s %d stories, %d tasks, %s requested\n",
				formatter.StyleGreen.Render("✔"), len(req.Stories), tasks, formatter.FormatMinutes(total))
			if len(split) > 0 {
				fmt.Fprintf(out, "%s\n", formatter.Dim(fmt.Sprintf("will be split before generation (over %d min):", rules.PreemptiveSplitThreshold())))
				for _, t := range split {
					fmt.Fprintf(out, "  - %s\n", t)
				}
			}
			return nil
		},
	}
}
