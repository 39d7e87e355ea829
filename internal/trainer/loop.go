package trainer

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"gazetrain/internal/checkpoint"
	"gazetrain/internal/dataset"
	"gazetrain/internal/metrics"
	"gazetrain/internal/model"
)

// Optimizer updates model parameters from their accumulated gradients.
type Optimizer interface {
	ZeroGrad()
	Step()
}

// Job is everything the epoch loop needs.
type Job struct {
	Model      model.Model
	Optimizer  Optimizer
	Train      *dataset.Loader
	Val        *dataset.Loader
	Store      *checkpoint.Store
	Epochs     int
	StartEpoch int
	LogEvery   int
	Logger     *zap.Logger
}

// Train runs Epochs passes over the training set, validating and saving a
// checkpoint after each one, then saves the loss history.
func Train(ctx context.Context, job Job) (*metrics.History, error) {
	if job.Epochs <= 0 {
		return nil, errors.New("trainer: epochs must be > 0")
	}
	if job.Model == nil || job.Optimizer == nil || job.Train == nil || job.Val == nil || job.Store == nil {
		return nil, errors.New("trainer: incomplete job")
	}
	if job.LogEvery <= 0 {
		job.LogEvery = 50
	}
	logger := job.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	history := &metrics.History{}
	logger.Info("start training...",
		zap.Int("epochs", job.Epochs),
		zap.Int("start_epoch", job.StartEpoch),
		zap.Int("train_batches", job.Train.NumBatches()),
		zap.Int("test_batches", job.Val.NumBatches()),
	)

	for e := 0; e < job.Epochs; e++ {
		epoch := job.StartEpoch + e

		trainLosses, err := trainEpoch(ctx, job, epoch, logger)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d train", epoch)
		}
		valLosses, err := validate(ctx, job, epoch)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d test", epoch)
		}

		trainLoss, err := metrics.Mean(trainLosses)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d train loss", epoch)
		}
		valLoss, err := metrics.Mean(valLosses)
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d test loss", epoch)
		}
		logger.Info("finished epoch",
			zap.Int("epoch", epoch),
			zap.Float64("train_loss", trainLoss),
			zap.Float64("test_loss", valLoss),
			zap.Float64("diff_loss", trainLoss-valLoss),
		)

		if err := history.Append(epoch, trainLoss, valLoss); err != nil {
			return history, err
		}
		path, err := job.Store.SaveEpoch(epoch, valLoss, trainLoss, job.Model.State())
		if err != nil {
			return history, errors.Wrapf(err, "epoch %d save", epoch)
		}
		logger.Info("saved checkpoint", zap.String("path", path))
	}

	logger.Info("finished")

	path, err := job.Store.SaveHistory(history)
	if err != nil {
		return history, errors.Wrap(err, "save loss history")
	}
	logger.Info("saved loss history", zap.String("path", path))

	plotPath, err := job.Store.PlotHistory(history)
	if err != nil {
		return history, errors.Wrap(err, "plot loss history")
	}
	logger.Info("saved loss plot", zap.String("path", plotPath))
	return history, nil
}

func trainEpoch(ctx context.Context, job Job, epoch int, logger *zap.Logger) ([]float64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, errCh, err := job.Train.Epoch(ctx, epoch)
	if err != nil {
		return nil, err
	}

	var meter metrics.Meter
	losses := make([]float64, 0, job.Train.NumBatches())
	step := 0
	startData := time.Now()
	for batch := range batches {
		dataTime := time.Since(startData)

		startCompute := time.Now()
		job.Optimizer.ZeroGrad()
		out, tape := job.Model.Forward(batch.Inputs)
		loss, grad := model.MSELoss(out, batch.Labels)
		job.Model.Backward(tape, grad)
		job.Optimizer.Step()
		computeTime := time.Since(startCompute)

		losses = append(losses, loss)
		meter.Record(batch.Size(), dataTime, computeTime, loss)
		step++
		if step%job.LogEvery == 0 {
			snap := meter.Snapshot()
			logger.Info("progress",
				zap.Int("epoch", epoch),
				zap.Int("step", step),
				zap.Float64("samples_per_sec", snap.SamplesPerSec),
				zap.Float64("data_ms", snap.AvgDataMS),
				zap.Float64("compute_ms", snap.AvgComputeMS),
				zap.Float64("loss", snap.WindowLoss),
			)
		}
		startData = time.Now()
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return losses, nil
}

// validate computes the loss of every validation batch without updating
// parameters.
func validate(ctx context.Context, job Job, epoch int) ([]float64, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batches, errCh, err := job.Val.Epoch(ctx, epoch)
	if err != nil {
		return nil, err
	}
	losses := make([]float64, 0, job.Val.NumBatches())
	for batch := range batches {
		loss, _ := model.MSELoss(job.Model.Predict(batch.Inputs), batch.Labels)
		losses = append(losses, loss)
	}
	if err := <-errCh; err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return losses, nil
}
