package trainer

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"gazetrain/internal/checkpoint"
	"gazetrain/internal/config"
	"gazetrain/internal/dataset"
	"gazetrain/internal/device"
	"gazetrain/internal/metrics"
	"gazetrain/internal/model"
	"gazetrain/internal/optim"
)

// Run builds the dataset, model and optimizer described by cfg and trains.
func Run(ctx context.Context, fs afero.Fs, cfg *config.Config, logger *zap.Logger) (*metrics.History, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	dev, err := device.Select(cfg.Device)
	if err != nil {
		return nil, err
	}
	logger.Info("selected device", zap.Stringer("device", dev), zap.Bool("avx2", dev.AVX2))

	opts := dataset.Options{
		UseLeftEye:  cfg.UseLeftEye,
		UseRightEye: cfg.UseRightEye,
		Pose:        cfg.Pose,
		Width:       cfg.ImageWidth,
		Height:      cfg.ImageHeight,
	}
	transform := dataset.Compose{
		dataset.ColorJitter{Brightness: cfg.Brightness, Contrast: cfg.Contrast},
	}
	ds, err := dataset.Open(fs, cfg.DatasetDir, transform, opts)
	if err != nil {
		return nil, errors.Wrapf(err, "open dataset %s", cfg.DatasetDir)
	}

	parts, err := dataset.RandomSplit(ds, dataset.SplitLengths(ds.Len(), cfg.TrainSplit), cfg.Seed)
	if err != nil {
		return nil, err
	}
	trainSet, testSet := parts[0], parts[1]
	logger.Info("split dataset", zap.Int("train_set", trainSet.Len()), zap.Int("test_set", testSet.Len()))
	if trainSet.Len() == 0 || testSet.Len() == 0 {
		return nil, errors.Errorf("trainer: dataset of %d samples leaves an empty split", ds.Len())
	}

	net, err := model.New(model.Variant(cfg.Variant), model.Options{
		Device:     dev,
		InChannels: cfg.InChannels,
		Height:     cfg.ImageHeight,
		Width:      cfg.ImageWidth,
		PoseDims:   opts.PoseDims(),
		Outputs:    dataset.LabelDims,
		Seed:       cfg.Seed,
	})
	if err != nil {
		return nil, err
	}

	store, err := checkpoint.NewStore(fs, cfg.SaveDir, logger)
	if err != nil {
		return nil, err
	}

	if cfg.Resume != "" {
		state, err := store.Load(cfg.Resume)
		if err != nil {
			return nil, errors.Wrap(err, "resume")
		}
		if err := net.LoadState(state); err != nil {
			return nil, errors.Wrapf(err, "resume from %s", cfg.Resume)
		}
		logger.Info("resumed weights", zap.String("path", cfg.Resume), zap.Int("start_epoch", cfg.StartEpoch))
	}

	opt, err := optim.NewAdamW(net.Parameters(), optim.Options{
		LR:          cfg.LearningRate,
		WeightDecay: cfg.WeightDecay,
	})
	if err != nil {
		return nil, err
	}

	return Train(ctx, Job{
		Model:     net,
		Optimizer: opt,
		Train: &dataset.Loader{
			Dataset:    trainSet,
			BatchSize:  cfg.BatchSize,
			Shuffle:    true,
			NumWorkers: cfg.NumWorkers,
			Seed:       cfg.Seed,
		},
		Val: &dataset.Loader{
			Dataset:    testSet,
			BatchSize:  cfg.BatchSize,
			Shuffle:    true,
			NumWorkers: cfg.NumWorkers,
			Seed:       cfg.Seed + 1,
		},
		Store:      store,
		Epochs:     cfg.Epochs,
		StartEpoch: cfg.StartEpoch,
		LogEvery:   cfg.LogEvery,
		Logger:     logger,
	})
}
