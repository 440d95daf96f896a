package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/alexanderramin/timeboxer/internal/app"
	"github.com/alexanderramin/timeboxer/internal/cache"
	"github.com/alexanderramin/timeboxer/internal/calendar"
	"github.com/alexanderramin/timeboxer/internal/cli"
	"github.com/alexanderramin/timeboxer/internal/config"
	"github.com/alexanderramin/timeboxer/internal/db"
	"github.com/alexanderramin/timeboxer/internal/intelligence"
	"github.com/alexanderramin/timeboxer/internal/llm"
	"github.com/alexanderramin/timeboxer/internal/logger"
	"github.com/alexanderramin/timeboxer/internal/observability"
	"github.com/alexanderramin/timeboxer/internal/repository"
	"github.com/alexanderramin/timeboxer/internal/service"
	"github.com/mattn/go-isatty"
)

func main() {
	a := &cli.App{
		Load: wire,
		IsInteractive: func() bool {
			return isatty.IsTerminal(os.Stderr.Fd()) || isatty.IsCygwinTerminal(os.Stderr.Fd())
		},
	}
	if err := cli.Execute(context.Background(), a, os.Args[1:]); err != nil {
		if !cli.IsReported(err) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

// wire builds the runtime from configuration. Everything opened here is
// released by Runtime.Close.
func wire(configPath string) (*cli.Runtime, error) {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.New(cfg.Log.Mode, cfg.Log.Level)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}

	var closers []func() error
	closeAll := func() error {
		var errs []error
		for i := len(closers) - 1; i >= 0; i-- {
			errs = append(errs, closers[i]())
		}
		log.Sync()
		return errors.Join(errs...)
	}
	fail := func(err error) (*cli.Runtime, error) {
		_ = closeAll()
		return nil, err
	}

	shutdownTracing, err := observability.Init(ctx, cfg.Tracing, log)
	if err != nil {
		return fail(fmt.Errorf("initialising tracing: %w", err))
	}
	closers = append(closers, func() error {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return shutdownTracing(sctx)
	})

	database, err := db.OpenDB(cfg.DBPath)
	if err != nil {
		return fail(fmt.Errorf("opening database: %w", err))
	}
	closers = append(closers, database.Close)

	runRepo := repository.NewSQLiteScheduleRunRepo(database)
	uow := db.NewSQLiteUnitOfWork(database)

	var observer llm.Observer = llm.NoopObserver{}
	if cfg.LLM.LogCalls {
		observer = llm.NewLogObserver(log)
	}
	client, err := llm.New(cfg.LLM, observer)
	if err != nil {
		return fail(fmt.Errorf("configuring generator: %w", err))
	}

	orch := service.NewOrchestrator(
		intelligence.NewScheduleGenerator(client),
		service.NewPipeline(cfg.Rules),
		cfg.Retry,
		service.WithOrchestratorLogger(log),
	)

	opts := []service.ScheduleServiceOption{
		service.WithProvider(string(cfg.LLM.Provider)),
		service.WithServiceLogger(log),
		service.WithObserver(service.NewLogUseCaseObserver(log)),
	}
	if cfg.Redis.Addr != "" {
		rc, err := cache.NewRedis(ctx, cfg.Redis, log)
		if err != nil {
			// Planning works without the cache.
			log.Warn("redis unavailable, caching disabled", "addr", cfg.Redis.Addr, "error", err)
		} else {
			closers = append(closers, rc.Close)
			opts = append(opts, service.WithCache(rc), service.WithProgressPublisher(rc))
		}
	}

	runs := service.NewRunService(runRepo)
	return &cli.Runtime{
		Config: cfg,
		Plan:   service.NewScheduleService(orch, runRepo, uow, opts...),
		Runs:   runs,
		Log:    log,
		Export: func(ctx context.Context) (app.CalendarExportUseCase, error) {
			exporter, err := calendar.NewExporter(ctx, cfg.Calendar, log)
			if err != nil {
				return nil, err
			}
			return service.NewCalendarExportService(runs, exporter), nil
		},
		Close: closeAll,
	}, nil
}
