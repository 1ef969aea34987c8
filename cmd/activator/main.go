package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"radio-activator/config"
	"radio-activator/internal/cli"
	"radio-activator/internal/client"
	"radio-activator/internal/history"
	"radio-activator/internal/ledger"
	"radio-activator/internal/store"
	"radio-activator/internal/workflow"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	var configPath string
	var debug bool

	cmd := &cobra.Command{
		Use:          "activator",
		Short:        "Automates the dealer radio-activation workflow",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return run(cfg, debug)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML configuration file")
	cmd.Flags().BoolVar(&debug, "debug", false, "log raw vendor responses")
	return cmd
}

// loadConfig reads the YAML configuration, falling back to the embedded
// defaults when no file is given.
func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		path = os.Getenv("ACTIVATOR_CONFIG")
	}
	if path == "" {
		return config.Default(), nil
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration from %s: %w", path, err)
	}
	return cfg, nil
}

// newLogger builds a logger writing to the process log file and stderr.
func newLogger(cfg *config.Config, debug bool) (*zap.Logger, error) {
	zcfg := zap.NewProductionConfig()
	if debug {
		zcfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	zcfg.OutputPaths = []string{cfg.Files.ProcessLog, "stderr"}
	zcfg.ErrorOutputPaths = []string{cfg.Files.ProcessLog, "stderr"}
	return zcfg.Build()
}

func run(cfg *config.Config, debug bool) error {
	logger, err := newLogger(cfg, debug)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	defer logger.Sync()
	logger.Info("new run started")

	configStore := store.Open(cfg.Files.ConfigStore, logger)
	activationLedger := ledger.Open(cfg.Files.ActivationLog, logger)
	deviceID, err := configStore.DeviceID()
	if err != nil {
		// Identity still works for this run; only the persist failed.
		logger.Warn("device identifier not persisted", zap.Error(err))
	}

	archive, err := history.Open(cfg.History.DSN, logger)
	if err != nil {
		// The archive is telemetry only; the run can proceed without it.
		logger.Warn("attempt archive unavailable", zap.Error(err))
	}

	sessionClient := client.New(&cfg.Vendor, deviceID, logger)

	var recorder workflow.AttemptRecorder
	if archive != nil {
		recorder = archive
	}
	engine := workflow.New(cfg, sessionClient, activationLedger, recorder, deviceID, logger)

	prompter := cli.NewPrompter(os.Stdin, os.Stdout, configStore, activationLedger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return cli.RunLoop(ctx, engine, prompter, activationLedger, logger)
}
