package trainer

import (
	"context"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"gazetrain/internal/checkpoint"
	"gazetrain/internal/dataset"
	"gazetrain/internal/model"
	"gazetrain/internal/optim"
)

// linearDataset has four features per sample and a linear gaze target.
type linearDataset struct{ n int }

func (d linearDataset) Len() int { return d.n }

func (d linearDataset) Get(i int, _ *rand.Rand) (dataset.Sample, error) {
	r := rand.New(rand.NewSource(int64(i)))
	f := []float64{r.Float64(), r.Float64(), r.Float64(), r.Float64()}
	return dataset.Sample{
		Features: f,
		Label:    []float64{0.5*f[0] - 0.3*f[1], 0.2*f[2] + 0.1},
	}, nil
}

func newJob(t *testing.T, fs afero.Fs, epochs int) Job {
	t.Helper()
	net, err := model.New(model.V2, model.Options{InChannels: 1, Height: 2, Width: 2, Seed: 3})
	require.NoError(t, err)
	opt, err := optim.NewAdamW(net.Parameters(), optim.Options{LR: 0.01})
	require.NoError(t, err)
	store, err := checkpoint.NewStore(fs, "/garage", zaptest.NewLogger(t))
	require.NoError(t, err)

	parts, err := dataset.RandomSplit(linearDataset{n: 80}, dataset.SplitLengths(80, 0.9), 42)
	require.NoError(t, err)
	return Job{
		Model:      net,
		Optimizer:  opt,
		Train:      &dataset.Loader{Dataset: parts[0], BatchSize: 8, Shuffle: true, NumWorkers: 2, Seed: 42},
		Val:        &dataset.Loader{Dataset: parts[1], BatchSize: 8, Shuffle: true, NumWorkers: 2, Seed: 43},
		Store:      store,
		Epochs:     epochs,
		StartEpoch: 126,
		LogEvery:   3,
		Logger:     zaptest.NewLogger(t),
	}
}

func TestTrainWritesCheckpointPerEpoch(t *testing.T) {
	fs := afero.NewMemMapFs()
	job := newJob(t, fs, 4)

	history, err := Train(context.Background(), job)
	require.NoError(t, err)
	require.Equal(t, 4, history.Len())

	entries := history.Entries()
	for i, e := range entries {
		assert.Equal(t, 126+i, e.Epoch)
		assert.GreaterOrEqual(t, e.Train, 0.0)
		assert.GreaterOrEqual(t, e.Val, 0.0)

		path := filepath.Join("/garage", checkpoint.EpochFileName(e.Epoch, e.Val, e.Train))
		state, err := job.Store.Load(path)
		require.NoError(t, err, path)
		assert.Len(t, state, 4)
	}
	assert.Less(t, entries[3].Train, entries[0].Train)

	saved, err := job.Store.LoadHistory(126)
	require.NoError(t, err)
	assert.Equal(t, entries, saved.Entries())

	exists, err := afero.Exists(fs, filepath.Join("/garage", checkpoint.PlotFile))
	require.NoError(t, err)
	assert.True(t, exists)
}

func TestTrainIsReproducible(t *testing.T) {
	a, err := Train(context.Background(), newJob(t, afero.NewMemMapFs(), 2))
	require.NoError(t, err)
	b, err := Train(context.Background(), newJob(t, afero.NewMemMapFs(), 2))
	require.NoError(t, err)
	assert.Equal(t, a.Entries(), b.Entries())
}

func TestTrainStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Train(ctx, newJob(t, afero.NewMemMapFs(), 2))
	assert.Error(t, err)
}

func TestTrainRejectsIncompleteJob(t *testing.T) {
	_, err := Train(context.Background(), Job{Epochs: 1})
	assert.Error(t, err)
	_, err = Train(context.Background(), Job{})
	assert.Error(t, err)
}
