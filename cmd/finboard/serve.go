package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"

	"finboard/internal/cache"
	"finboard/internal/cli"
	apphttp "finboard/internal/http"
	applog "finboard/internal/log"
)

type serveCmd struct {
	ShutdownTimeout time.Duration `name:"shutdown-timeout" default:"30s" help:"Grace period for in-flight requests."`
}

func (c *serveCmd) Run(g *Globals) error {
	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	a, err := newApp(ctx, g, appOptions{withEvents: true, withSheets: true})
	if err != nil {
		return err
	}
	defer a.Close()

	srv := apphttp.NewServer(":"+a.cfg.Port, apphttp.Deps{
		Ledger:          a.ledger,
		Engine:          a.engine,
		Reports:         a.reports,
		Logger:          a.logger,
		Location:        a.loc,
		WritesPerMinute: a.cfg.WritesPerMinute,
	})

	var cleaners []cache.Cleaner
	if rc := a.reports.Cache(); rc != nil {
		cleaners = append(cleaners, rc)
	}
	if l := srv.Limiter(); l != nil {
		cleaners = append(cleaners, l)
	}
	janitor := cache.NewJanitor(cleaners...)

	g2, gctx := errgroup.WithContext(ctx)
	g2.Go(func() error {
		return a.engine.Run(gctx)
	})
	g2.Go(func() error {
		return janitor.Run(gctx, time.Minute)
	})
	g2.Go(func() error {
		a.logger.InfoContext(gctx, "Starting HTTP server", "addr", srv.Addr, "backend", a.cfg.DataBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g2.Go(func() error {
		<-gctx.Done()
		a.logger.InfoContext(gctx, "Shutting down HTTP server", applog.FieldOperation, applog.OpShutdown)
		shutdownCtx, cancel := context.WithTimeout(context.Background(), c.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := g2.Wait(); err != nil {
		return err
	}
	a.logger.Info("Server stopped")
	return nil
}
