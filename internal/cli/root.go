// Package cli implements the timeboxer command line.
package cli

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/config"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"github.com/spf13/cobra"
)

// Runtime is the wired application a command runs against.
type Runtime struct {
	Config config.Config
	Plan   app.PlanScheduleUseCase
	Runs   app.RunQueryUseCase
	Log    *logger.Logger

	// Export builds the calendar exporter on first use; it needs OAuth
	// credentials that most commands never touch.
	Export func(ctx context.Context) (app.CalendarExportUseCase, error)

	Close func() error
}

// App holds what the commands need from the process: how to build the
// runtime and what the terminal looks like.
type App struct {
	Load          func(configPath string) (*Runtime, error)
	IsInteractive func() bool
	Now           func() time.Time
	In            io.Reader
	Out           io.Writer
	Err           io.Writer
}

// reportedError marks an error whose details were already written to the
// terminal.
type reportedError struct{ err error }

func (e reportedError) Error() string { return e.err.Error() }
func (e reportedError) Unwrap() error { return e.err }

// IsReported reports whether err was already rendered by a command.
func IsReported(err error) bool {
	var re reportedError
	return errors.As(err, &re)
}

type session struct {
	app        *App
	configPath string

	once sync.Once
	rt   *Runtime
	err  error
}

func (s *session) runtime() (*Runtime, error) {
	s.once.Do(func() {
		s.rt, s.err = s.app.Load(s.configPath)
	})
	return s.rt, s.err
}

func (s *session) close() error {
	if s.rt == nil || s.rt.Close == nil {
		return nil
	}
	return s.rt.Close()
}

func (s *session) now() time.Time {
	if s.app.Now != nil {
		return s.app.Now()
	}
	return time.Now()
}

func (s *session) interactive() bool {
	return s.app.IsInteractive != nil && s.app.IsInteractive()
}

func newRootCmd(a *App) (*cobra.Command, *session) {
	s := &session{app: a}
	root := &cobra.Command{
		Use:           "timeboxer",
		Short:         "Turn stories into a validated, break-aware day plan",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&s.configPath, "config", "", "Path to config.yaml (default $TIMEBOXER_CONFIG or ~/.timeboxer/config.yaml)")
	if a.In != nil {
		root.SetIn(a.In)
	}
	if a.Out != nil {
		root.SetOut(a.Out)
	}
	if a.Err != nil {
		root.SetErr(a.Err)
	}

	root.AddCommand(
		newPlanCmd(s),
		newValidateCmd(s),
		newServeCmd(s),
		newRunsCmd(s),
		newExportCmd(s),
		newRulesCmd(s),
	)
	return root, s
}

// NewRootCmd creates the top-level "timeboxer" command.
func NewRootCmd(a *App) *cobra.Command {
	root, _ := newRootCmd(a)
	return root
}

// Execute runs the command line and releases the runtime afterwards.
func Execute(ctx context.Context, a *App, args []string) error {
	root, s := newRootCmd(a)
	root.SetArgs(args)
	err := root.ExecuteContext(ctx)
	if cerr := s.close(); cerr != nil && err == nil {
		err = cerr
	}
	return err
}
