package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/alexanderramin/timeboxer/internal/httpapi"
	"github.com/spf13/cobra"
)

func newServeCmd(s *session) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the planning API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := s.runtime()
			if err != nil {
				return err
			}
			if addr == "" {
				addr = rt.Config.Server.Addr
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			srv := httpapi.NewServer(httpapi.RouterConfig{
				ScheduleHandler: httpapi.NewScheduleHandler(rt.Plan, rt.Config.Rules),
				RunHandler:      httpapi.NewRunHandler(rt.Runs),
				AllowOrigins:    rt.Config.Server.AllowOrigins,
				Log:             rt.Log,
			})
			return srv.Run(ctx, addr, rt.Config.Server.ShutdownGrace)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from config, :8080)")
	return cmd
}
