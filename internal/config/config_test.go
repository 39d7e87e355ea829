package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, 25, cfg.Epochs)
	assert.Equal(t, 64, cfg.BatchSize)
	assert.Equal(t, 0.0001, cfg.LearningRate)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 0.9, cfg.TrainSplit)
}

func TestLoadLayersOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	body := "epochs: 3\nvariant: v2\nsave_dir: /tmp/ckpt\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.Epochs)
	assert.Equal(t, "v2", cfg.Variant)
	assert.Equal(t, "/tmp/ckpt", cfg.SaveDir)
	assert.Equal(t, 64, cfg.BatchSize)
}

func TestLoadRejectsUnknownKey(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.yaml")
	require.NoError(t, os.WriteFile(path, []byte("epochz: 3\n"), 0o644))

	_, err := Load(path)
	require.Error(t, err)
}

func TestApplyOverrides(t *testing.T) {
	cfg := Default()
	cfg.ApplyOverrides(Overrides{Epochs: 7, LearningRate: 0.01, Resume: "w.ckpt", StartEpoch: 126})
	assert.Equal(t, 7, cfg.Epochs)
	assert.Equal(t, 0.01, cfg.LearningRate)
	assert.Equal(t, "w.ckpt", cfg.Resume)
	assert.Equal(t, 126, cfg.StartEpoch)
	assert.Equal(t, 64, cfg.BatchSize)
}

func TestValidateChannelMismatch(t *testing.T) {
	cfg := Default()
	cfg.UseRightEye = false
	require.Error(t, cfg.Validate())

	cfg.InChannels = 1
	require.NoError(t, cfg.Validate())
}

func TestValidateRanges(t *testing.T) {
	for name, mutate := range map[string]func(*Config){
		"split":   func(c *Config) { c.TrainSplit = 1 },
		"epochs":  func(c *Config) { c.Epochs = 0 },
		"variant": func(c *Config) { c.Variant = "v9" },
		"decay":   func(c *Config) { c.WeightDecay = -1 },
		"workers": func(c *Config) { c.NumWorkers = 0 },
	} {
		t.Run(name, func(t *testing.T) {
			cfg := Default()
			mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
