package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/BearBump/ShipBridge/config"
	"github.com/BearBump/ShipBridge/internal/telemetry"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := newRootCmd(defaultWorkerFactories()).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newRootCmd(f workerFactories) *cobra.Command {
	var cfgPath string

	root := &cobra.Command{
		Use:          "ship-worker",
		Short:        "Shiprocket delivery status reconciler",
		Version:      version,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&cfgPath, "config", os.Getenv("configPath"), "path to the YAML config (env configPath)")

	load := func() (*config.Config, error) {
		if cfgPath == "" {
			return nil, fmt.Errorf("config path is required (--config or configPath env)")
		}
		return config.LoadConfig(cfgPath)
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Reconcile on an interval and serve the ops endpoints",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(cfg.ShipBridge.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			err = RunShipWorker(cmd.Context(), cfg, f, workerHTTPOpts{
				httpAddr:    cfg.ShipBridge.WorkerHTTPAddr,
				swaggerPath: os.Getenv("workerSwaggerPath"),
			}, logger)
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		},
	}

	onceCmd := &cobra.Command{
		Use:   "once",
		Short: "Run a single reconcile batch and print its summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := load()
			if err != nil {
				return err
			}
			logger, err := telemetry.NewLogger(cfg.ShipBridge.LogLevel)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			res, err := RunOnce(cmd.Context(), cfg, f, logger)
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(res)
		},
	}

	root.AddCommand(runCmd, onceCmd)
	return root
}
