package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"gazetrain/internal/config"
	"gazetrain/internal/trainer"
)

func main() {
	var (
		cfgPath   string
		verbose   bool
		overrides config.Overrides
	)

	cmd := &cobra.Command{
		Use:           "gazetrain",
		Short:         "Train a gaze-estimation network on an eye-image dataset",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(_ *cobra.Command, _ []string) error {
			logger, err := newLogger(verbose)
			if err != nil {
				return err
			}
			defer logger.Sync()

			cfg := config.Default()
			if cfgPath != "" {
				cfg, err = config.Load(cfgPath)
				if err != nil {
					logger.Fatal("failed to load config", zap.String("path", cfgPath), zap.Error(err))
				}
			}
			cfg.ApplyOverrides(overrides)
			if err := cfg.Validate(); err != nil {
				logger.Fatal("invalid config", zap.Error(err))
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if _, err := trainer.Run(ctx, afero.NewOsFs(), cfg, logger); err != nil {
				logger.Fatal("training failed", zap.Error(err))
			}
			return nil
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&cfgPath, "config", "", "Path to YAML config (defaults are built in)")
	flags.BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")
	flags.StringVar(&overrides.DatasetDir, "dataset-dir", "", "Override dataset directory")
	flags.StringVar(&overrides.SaveDir, "save-dir", "", "Override checkpoint directory")
	flags.StringVar(&overrides.Device, "device", "", "Compute device (auto, cpu)")
	flags.StringVar(&overrides.Variant, "variant", "", "Model variant (v2, v3)")
	flags.IntVar(&overrides.Epochs, "epochs", 0, "Number of epochs")
	flags.IntVar(&overrides.BatchSize, "batch-size", 0, "Batch size")
	flags.Float64Var(&overrides.LearningRate, "lr", 0, "AdamW learning rate")
	flags.Float64Var(&overrides.WeightDecay, "weight-decay", 0, "AdamW weight decay")
	flags.IntVar(&overrides.NumWorkers, "num-workers", 0, "Number of data loader workers")
	flags.Int64Var(&overrides.Seed, "seed", 0, "Split and shuffle seed")
	flags.IntVar(&overrides.LogEvery, "log-every", 0, "Log progress every N steps")
	flags.StringVar(&overrides.Resume, "resume", "", "Checkpoint to load weights from")
	flags.IntVar(&overrides.StartEpoch, "start-epoch", 0, "Epoch number of the first epoch of this run")

	if err := cmd.Execute(); err != nil {
		os.Stderr.WriteString(err.Error() + "\n")
		os.Exit(1)
	}
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "console"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	return cfg.Build()
}
