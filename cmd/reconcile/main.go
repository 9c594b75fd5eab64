package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"stockledger/config"
	"stockledger/internal/bootstrap"
	"stockledger/internal/pkg/logger"
	"stockledger/internal/service/reconciler"
)

func main() {
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "reconcile",
		Usage: "apply restock ledger entries that never reached product stock",
		Commands: []*cli.Command{
			{
				Name:   "run",
				Usage:  "run a single reconciliation pass and print the report",
				Action: runOnce,
			},
			{
				Name:  "watch",
				Usage: "reconcile periodically until interrupted",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "interval",
						Value: time.Minute,
						Usage: "time between passes",
					},
				},
				Action: watch,
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setup(ctx context.Context) (*reconciler.Reconciler, *bootstrap.Stores, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, nil, err
	}
	if cfg.StoreDriver != config.StoreDriverPostgres {
		return nil, nil, fmt.Errorf("reconcile requires STORE_DRIVER=%s", config.StoreDriverPostgres)
	}

	appLog := logger.NewLogger(cfg.LogLevel)
	stores, err := bootstrap.OpenStores(ctx, cfg, appLog)
	if err != nil {
		return nil, nil, err
	}
	return reconciler.New(stores.Products, stores.Ledger, appLog), stores, nil
}

func runOnce(c *cli.Context) error {
	rec, stores, err := setup(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer stores.Close()

	report, err := rec.RunOnce(c.Context)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}

	enc := json.NewEncoder(c.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}

func watch(c *cli.Context) error {
	interval := c.Duration("interval")
	if interval <= 0 {
		return cli.Exit("interval must be positive", 1)
	}

	ctx, stop := signal.NotifyContext(c.Context, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	rec, stores, err := setup(ctx)
	if err != nil {
		return cli.Exit(err.Error(), 1)
	}
	defer stores.Close()

	rec.Run(ctx, interval)
	return nil
}
