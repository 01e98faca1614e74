package main

import (
	"context"
	"errors"

	"github.com/alecthomas/kong"
	"golang.org/x/sync/errgroup"

	"finboard/internal/aggregate"
	"finboard/internal/cli"
	"finboard/internal/config"
	applog "finboard/internal/log"
	"finboard/internal/services"
	"finboard/internal/worker"
)

type workerCmd struct {
	EnvFile string `name:"env-file" default:".env" help:"Environment file loaded before reading configuration."`
}

func main() {
	var cmd workerCmd
	ctx := kong.Parse(&cmd,
		kong.Name("finboard-worker"),
		kong.Description("Keeps the Google Sheets report in step with the ledger."),
	)
	ctx.FatalIfErrorf(cmd.Run())
}

func (c *workerCmd) Run() error {
	cli.LoadEnvFile(c.EnvFile)
	cfg, err := cli.LoadConfig()
	if err != nil {
		return err
	}
	logger := cli.SetupLogger(cfg, applog.ComponentWorker)
	logger.Info("Starting finboard-worker")

	if cfg.DataBackend == config.BackendMemory {
		return errors.New("the worker needs a shared backend: set DATA_BACKEND to sqlite or mongo")
	}

	ctx, stop := cli.SignalContext(context.Background())
	defer stop()

	st, err := cli.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	publisher, err := cli.SheetsPublisher(ctx, cfg)
	if err != nil {
		return err
	}
	if publisher == nil {
		return errors.New("the worker needs GOOGLE_SPREADSHEET_ID")
	}

	client, err := cli.ConnectAMQP(ctx, cfg)
	if err != nil {
		return err
	}
	if client == nil {
		logger.Warn("AMQP disabled, relying on periodic sync only", "interval", cfg.SyncInterval)
	} else {
		defer client.Close()
	}

	loc, err := cfg.Location()
	if err != nil {
		return err
	}
	engine := aggregate.NewEngine(st)
	reports := services.NewReportService(engine, services.ReportOptions{Location: loc, Publisher: publisher})
	w := worker.NewSheetsWorker(engine, reports)

	logger.InfoContext(ctx, "Performing startup sync")
	if err := w.Sync(ctx); err != nil {
		logger.ErrorContext(ctx, "Startup sync failed", "error", err)
	}

	g, gctx := errgroup.WithContext(ctx)
	if client != nil {
		g.Go(func() error {
			err := client.ConsumeTransactionEvents(gctx, w.HandleTransactionEvent)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		})
	}
	g.Go(func() error {
		return w.RunPeriodic(gctx, cfg.SyncInterval)
	})

	err = g.Wait()
	logger.Info("Worker stopped")
	return err
}
