package dataset

import (
	"math/rand"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Sample is one (input, label) pair. Features holds the eye planes
// followed by the head pose when enabled; Label is the gaze direction.
type Sample struct {
	Features []float64
	Label    []float64
}

// Dataset is an indexable collection of samples.
type Dataset interface {
	Len() int
	Get(i int, rng *rand.Rand) (Sample, error)
}

// Options selects which features an EyeDataset produces.
type Options struct {
	UseLeftEye  bool
	UseRightEye bool
	Pose        bool
	Width       int
	Height      int
}

// Channels is the number of eye planes per sample.
func (o Options) Channels() int {
	n := 0
	if o.UseLeftEye {
		n++
	}
	if o.UseRightEye {
		n++
	}
	return n
}

// PoseDims is the number of head pose values appended to the features.
func (o Options) PoseDims() int {
	if o.Pose {
		return 2
	}
	return 0
}

// LabelDims is the width of every label.
const LabelDims = 2

// annotation is one row of labels.csv.
type annotation struct {
	Left      string  `csv:"left"`
	Right     string  `csv:"right"`
	GazePitch float64 `csv:"gaze_pitch"`
	GazeYaw   float64 `csv:"gaze_yaw"`
	HeadPitch float64 `csv:"head_pitch"`
	HeadYaw   float64 `csv:"head_yaw"`
}

type record struct {
	dir string
	annotation
}

// EyeDataset reads eye crops and gaze labels from a directory tree.
type EyeDataset struct {
	fs        afero.Fs
	transform Transform
	opts      Options
	records   []record
}

var _ Dataset = (*EyeDataset)(nil)

// Open indexes every annotation file beneath root. Images are decoded
// lazily by Get.
func Open(fs afero.Fs, root string, transform Transform, opts Options) (*EyeDataset, error) {
	if opts.Channels() == 0 {
		return nil, errors.New("dataset: no eye selected")
	}
	if opts.Width <= 0 || opts.Height <= 0 {
		return nil, errors.Errorf("dataset: image size must be > 0 (got %dx%d)", opts.Width, opts.Height)
	}
	files, err := Discover(fs, root)
	if err != nil {
		return nil, err
	}
	ds := &EyeDataset{fs: fs, transform: transform, opts: opts}
	for _, path := range files {
		rows, err := readAnnotations(fs, path)
		if err != nil {
			return nil, err
		}
		dir := filepath.Dir(path)
		for i, row := range rows {
			if opts.UseLeftEye && row.Left == "" {
				return nil, errors.Errorf("%s row %d: missing left eye image", path, i+1)
			}
			if opts.UseRightEye && row.Right == "" {
				return nil, errors.Errorf("%s row %d: missing right eye image", path, i+1)
			}
			ds.records = append(ds.records, record{dir: dir, annotation: *row})
		}
	}
	if len(ds.records) == 0 {
		return nil, errors.Errorf("dataset: no samples under %s", root)
	}
	return ds, nil
}

func readAnnotations(fs afero.Fs, path string) ([]*annotation, error) {
	f, err := fs.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open annotations")
	}
	defer f.Close()

	var rows []*annotation
	if err := gocsv.Unmarshal(f, &rows); err != nil {
		return nil, errors.Wrapf(err, "parse %s", path)
	}
	return rows, nil
}

func (d *EyeDataset) Len() int { return len(d.records) }

// Options reports the feature selection.
func (d *EyeDataset) Options() Options { return d.opts }

// Get loads sample i, applying the transform with rng.
func (d *EyeDataset) Get(i int, rng *rand.Rand) (Sample, error) {
	if i < 0 || i >= len(d.records) {
		return Sample{}, errors.Errorf("dataset: index %d out of range [0, %d)", i, len(d.records))
	}
	rec := d.records[i]

	img := NewImage(d.opts.Channels(), d.opts.Height, d.opts.Width)
	ch := 0
	for _, eye := range []struct {
		use  bool
		path string
	}{
		{d.opts.UseLeftEye, rec.Left},
		{d.opts.UseRightEye, rec.Right},
	} {
		if !eye.use {
			continue
		}
		if err := loadPlane(d.fs, filepath.Join(rec.dir, eye.path), d.opts.Width, d.opts.Height, img.Plane(ch)); err != nil {
			return Sample{}, err
		}
		ch++
	}
	if d.transform != nil {
		d.transform.Apply(img, rng)
	}

	features := img.Pix
	if d.opts.Pose {
		features = append(features, rec.HeadPitch, rec.HeadYaw)
	}
	return Sample{
		Features: features,
		Label:    []float64{rec.GazePitch, rec.GazeYaw},
	}, nil
}
