package cli

import (
	"fmt"

	"github.com/alexanderramin/timeboxer/internal/cli/formatter"
	"github.com/spf13/cobra"
)

func newRulesCmd(s *session) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "Show the duration rules schedules are checked against",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if asJSON {
				return writeJSON(cmd.OutOrStdout(), rt.Config.Rules)
			}
			fmt.Fprint(cmd.OutOrStdout(), formatter.FormatRules(rt.Config.Rules))
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print the rules as JSON")
	return cmd
}
