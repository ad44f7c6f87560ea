package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/vibast-solutions/ms-go-holestpay/config"
)

var (
	workerMode bool
)

var locksCmd = &cobra.Command{
	Use:   "locks",
	Short: "Run order lock related commands",
}

var locksSweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Remove stale order lock rows left behind by crashed workers",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"locks_sweep",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.LockSweepInterval },
			func(app *application, ctx context.Context) error {
				_, err := app.locks.RunLockSweepBatch(ctx)
				return err
			},
		)
	},
}

var shippingCmd = &cobra.Command{
	Use:   "shipping",
	Short: "Run shipping method related commands",
}

var shippingSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Rebuild local shipping methods from the stored POS configuration",
	Run: func(_ *cobra.Command, _ []string) {
		runCommand(
			"shipping_sync",
			func(cfg *config.Config) time.Duration { return cfg.Jobs.ShippingSyncInterval },
			func(app *application, ctx context.Context) error {
				count, err := app.shipping.SyncFromStoredConfig(ctx)
				if err != nil {
					return err
				}
				logrus.WithField("job", "shipping_sync").WithField("methods", count).Info("shipping methods synced")
				return nil
			},
		)
	},
}

func init() {
	rootCmd.AddCommand(locksCmd)
	rootCmd.AddCommand(shippingCmd)
	locksCmd.AddCommand(locksSweepCmd)
	shippingCmd.AddCommand(shippingSyncCmd)

	rootCmd.PersistentFlags().BoolVar(&workerMode, "worker", false, "Run continuously using configured interval")
}

func runCommand(
	name string,
	intervalResolver func(cfg *config.Config) time.Duration,
	fn func(app *application, ctx context.Context) error,
) {
	app, cleanup := mustCreateApplication()
	defer cleanup()

	if workerMode {
		runWorker(name, intervalResolver(app.cfg), app, fn)
		return
	}

	ctx := context.Background()
	runJob(name, func() error { return fn(app, ctx) })
}

func runWorker(
	name string,
	interval time.Duration,
	app *application,
	fn func(app *application, ctx context.Context) error,
) {
	if interval <= 0 {
		logrus.WithField("job", name).Fatal("invalid worker interval")
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	runJob(name, func() error { return fn(app, ctx) })

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	for {
		select {
		case <-quit:
			logrus.WithField("job", name).Info("Worker shutdown requested")
			return
		case <-ticker.C:
			runJob(name, func() error { return fn(app, ctx) })
		}
	}
}

func runJob(name string, fn func() error) {
	start := time.Now()
	err := fn()
	latency := time.Since(start)
	if err != nil {
		logrus.WithError(err).WithField("job", name).WithField("latency", latency.String()).Error("job_failed")
		return
	}
	logrus.WithField("job", name).WithField("latency", latency.String()).Info("job_completed")
}
