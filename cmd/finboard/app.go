package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"finboard/internal/aggregate"
	"finboard/internal/amqp"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/store"
)

// app is the wired object graph shared by the commands.
type app struct {
	cfg     *config.Config
	logger  *applog.Logger
	loc     *time.Location
	store   store.Store
	engine  *aggregate.Engine
	ledger  *services.LedgerService
	reports *services.ReportService
	events  *amqp.Client
}

type appOptions struct {
	// withEvents connects AMQP so mutations are announced.
	withEvents bool
	// withSheets creates the Google Sheets publisher.
	withSheets bool
}

func newApp(ctx context.Context, g *Globals, opts appOptions) (*app, error) {
	cli.LoadEnvFile(g.EnvFile)
	cfg, err := cli.LoadConfig()
	if err != nil {
		return nil, err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentApp)

	loc, err := cfg.Location()
	if err != nil {
		return nil, fmt.Errorf("load report timezone: %w", err)
	}

	st, err := cli.OpenStore(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger, loc: loc, store: st}

	if opts.withEvents {
		events, err := cli.ConnectAMQP(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.events = events
	}

	reportOpts := services.ReportOptions{
		Location:  loc,
		CacheSize: cfg.ReportCacheSize,
		CacheTTL:  cfg.ReportCacheTTL,
	}
	if opts.withSheets {
		pub, err := cli.SheetsPublisher(ctx, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		if pub != nil {
			reportOpts.Publisher = pub
		}
	}

	a.engine = aggregate.NewEngine(st)
	// A nil *amqp.Client must not become a non-nil interface.
	var events services.EventPublisher
	if a.events != nil {
		events = a.events
	}
	a.ledger = services.NewLedgerService(st, a.engine, events)
	a.reports = services.NewReportService(a.engine, reportOpts)
	return a, nil
}

// startEngine runs the engine in the background for one-shot commands and
// waits for the first snapshot.
func (a *app) startEngine(ctx context.Context) (stop func(), err error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = a.engine.Run(ctx)
	}()
	stop = func() {
		cancel()
		<-done
	}

	wctx, wcancel := context.WithTimeout(ctx, 10*time.Second)
	defer wcancel()
	if err := a.engine.Await(wctx, a.store.Seq()); err != nil {
		stop()
		return nil, fmt.Errorf("load transactions: %w", err)
	}
	return stop, nil
}

func (a *app) Close() {
	var errs []error
	if a.events != nil {
		errs = append(errs, a.events.Close())
	}
	if a.store != nil {
		errs = append(errs, a.store.Close())
	}
	if err := errors.Join(errs...); err != nil {
		slog.Error("Failed to close resources", "error", err)
	}
}

// warnEphemeral tells CLI users that writes to the memory backend are lost.
func (a *app) warnEphemeral() {
	if a.cfg.DataBackend == config.BackendMemory {
		a.logger.Warn("Memory backend in use: changes are not persisted after this command exits")
	}
}
