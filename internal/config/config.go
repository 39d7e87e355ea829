package config

import (
	"os"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v2"
)

// Config captures the runtime knobs for a training run.
type Config struct {
	DatasetDir   string  `yaml:"dataset_dir"`
	SaveDir      string  `yaml:"save_dir"`
	Device       string  `yaml:"device"`
	Variant      string  `yaml:"variant"`
	InChannels   int     `yaml:"in_channels"`
	UseLeftEye   bool    `yaml:"use_left_eye"`
	UseRightEye  bool    `yaml:"use_right_eye"`
	Pose         bool    `yaml:"pose"`
	ImageWidth   int     `yaml:"image_width"`
	ImageHeight  int     `yaml:"image_height"`
	Brightness   float64 `yaml:"brightness"`
	Contrast     float64 `yaml:"contrast"`
	Epochs       int     `yaml:"epochs"`
	BatchSize    int     `yaml:"batch_size"`
	LearningRate float64 `yaml:"learning_rate"`
	WeightDecay  float64 `yaml:"weight_decay"`
	TrainSplit   float64 `yaml:"train_split"`
	NumWorkers   int     `yaml:"num_workers"`
	Seed         int64   `yaml:"seed"`
	LogEvery     int     `yaml:"log_every"`
	Resume       string  `yaml:"resume"`
	StartEpoch   int     `yaml:"start_epoch"`
}

// Overrides captures CLI supplied values. Zero values leave the config untouched.
type Overrides struct {
	DatasetDir   string
	SaveDir      string
	Device       string
	Variant      string
	Epochs       int
	BatchSize    int
	LearningRate float64
	WeightDecay  float64
	NumWorkers   int
	Seed         int64
	LogEvery     int
	Resume       string
	StartEpoch   int
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		DatasetDir:   "./eye_dataset/",
		SaveDir:      "./garage/V3/",
		Device:       "auto",
		Variant:      "v3",
		InChannels:   2,
		UseLeftEye:   true,
		UseRightEye:  true,
		Pose:         true,
		ImageWidth:   60,
		ImageHeight:  36,
		Brightness:   0.3,
		Contrast:     0.3,
		Epochs:       25,
		BatchSize:    64,
		LearningRate: 0.0001,
		WeightDecay:  0.0,
		TrainSplit:   0.9,
		NumWorkers:   2,
		Seed:         42,
		LogEvery:     50,
	}
}

// Load reads a Config from YAML layered over Default and validates it.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "open config")
	}

	cfg, err := parse(raw)
	if err != nil {
		return nil, errors.Wrap(err, "parse config")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parse(raw []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.UnmarshalStrict(raw, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyOverrides updates c using any non-zero override.
func (c *Config) ApplyOverrides(o Overrides) {
	if o.DatasetDir != "" {
		c.DatasetDir = o.DatasetDir
	}
	if o.SaveDir != "" {
		c.SaveDir = o.SaveDir
	}
	if o.Device != "" {
		c.Device = o.Device
	}
	if o.Variant != "" {
		c.Variant = o.Variant
	}
	if o.Epochs > 0 {
		c.Epochs = o.Epochs
	}
	if o.BatchSize > 0 {
		c.BatchSize = o.BatchSize
	}
	if o.LearningRate > 0 {
		c.LearningRate = o.LearningRate
	}
	if o.WeightDecay > 0 {
		c.WeightDecay = o.WeightDecay
	}
	if o.NumWorkers > 0 {
		c.NumWorkers = o.NumWorkers
	}
	if o.Seed != 0 {
		c.Seed = o.Seed
	}
	if o.LogEvery > 0 {
		c.LogEvery = o.LogEvery
	}
	if o.Resume != "" {
		c.Resume = o.Resume
	}
	if o.StartEpoch > 0 {
		c.StartEpoch = o.StartEpoch
	}
}

// EnabledEyes counts the eye crops stacked as input channels.
func (c *Config) EnabledEyes() int {
	n := 0
	if c.UseLeftEye {
		n++
	}
	if c.UseRightEye {
		n++
	}
	return n
}

// Validate verifies the config is runnable.
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.DatasetDir == "" {
		return errors.New("dataset_dir must be set")
	}
	if c.SaveDir == "" {
		return errors.New("save_dir must be set")
	}
	switch c.Variant {
	case "v2", "v3":
	default:
		return errors.Errorf("variant must be v2 or v3 (got %q)", c.Variant)
	}
	if c.EnabledEyes() == 0 {
		return errors.New("at least one of use_left_eye and use_right_eye must be set")
	}
	if c.InChannels != c.EnabledEyes() {
		return errors.Errorf("in_channels=%d does not match %d enabled eyes", c.InChannels, c.EnabledEyes())
	}
	if c.ImageWidth <= 0 || c.ImageHeight <= 0 {
		return errors.Errorf("image size must be > 0 (got %dx%d)", c.ImageWidth, c.ImageHeight)
	}
	if c.Brightness < 0 || c.Contrast < 0 {
		return errors.New("brightness and contrast jitter must be >= 0")
	}
	if c.Epochs <= 0 {
		return errors.Errorf("epochs must be > 0 (got %d)", c.Epochs)
	}
	if c.BatchSize <= 0 {
		return errors.Errorf("batch_size must be > 0 (got %d)", c.BatchSize)
	}
	if c.LearningRate <= 0 {
		return errors.Errorf("learning_rate must be > 0 (got %g)", c.LearningRate)
	}
	if c.WeightDecay < 0 {
		return errors.Errorf("weight_decay must be >= 0 (got %g)", c.WeightDecay)
	}
	if c.TrainSplit <= 0 || c.TrainSplit >= 1 {
		return errors.Errorf("train_split must be in (0, 1) (got %g)", c.TrainSplit)
	}
	if c.NumWorkers <= 0 {
		return errors.Errorf("num_workers must be > 0 (got %d)", c.NumWorkers)
	}
	if c.StartEpoch < 0 {
		return errors.Errorf("start_epoch must be >= 0 (got %d)", c.StartEpoch)
	}
	if c.LogEvery <= 0 {
		c.LogEvery = 50
	}
	return nil
}
