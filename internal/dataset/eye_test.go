package dataset

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"math/rand"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const annotations = `left,right,gaze_pitch,gaze_yaw,head_pitch,head_yaw
left_0.png,right_0.png,0.1,-0.2,0.05,0.3
left_1.png,right_1.png,-0.3,0.4,0.0,-0.1
`

func writeGray(t *testing.T, fs afero.Fs, path string, level uint8) {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 8, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 8; x++ {
			img.SetGray(x, y, color.Gray{Y: level})
		}
	}
	buf := &bytes.Buffer{}
	require.NoError(t, png.Encode(buf, img))
	mustWrite(t, fs, path, buf.String())
}

func fixture(t *testing.T) afero.Fs {
	fs := afero.NewMemMapFs()
	dir := "/data/p00"
	mustWrite(t, fs, filepath.Join(dir, AnnotationFile), annotations)
	writeGray(t, fs, filepath.Join(dir, "left_0.png"), 255)
	writeGray(t, fs, filepath.Join(dir, "right_0.png"), 0)
	writeGray(t, fs, filepath.Join(dir, "left_1.png"), 51)
	writeGray(t, fs, filepath.Join(dir, "right_1.png"), 102)
	return fs
}

func TestEyeDatasetGet(t *testing.T) {
	opts := Options{UseLeftEye: true, UseRightEye: true, Pose: true, Width: 4, Height: 2}
	ds, err := Open(fixture(t), "/data", nil, opts)
	require.NoError(t, err)
	require.Equal(t, 2, ds.Len())

	s, err := ds.Get(0, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	require.Len(t, s.Features, 2*4*2+2)
	assert.Equal(t, 1.0, s.Features[0])
	assert.Equal(t, 0.0, s.Features[8])
	assert.Equal(t, []float64{0.05, 0.3}, s.Features[16:])
	assert.Equal(t, []float64{0.1, -0.2}, s.Label)

	s, err = ds.Get(1, rand.New(rand.NewSource(1)))
	require.NoError(t, err)
	assert.InDelta(t, 0.2, s.Features[0], 1e-12)
	assert.InDelta(t, 0.4, s.Features[8], 1e-12)
}

func TestEyeDatasetSingleEyeWithoutPose(t *testing.T) {
	opts := Options{UseRightEye: true, Width: 4, Height: 2}
	ds, err := Open(fixture(t), "/data", nil, opts)
	require.NoError(t, err)

	s, err := ds.Get(1, nil)
	require.NoError(t, err)
	require.Len(t, s.Features, 8)
	assert.InDelta(t, 0.4, s.Features[0], 1e-12)
}

func TestEyeDatasetOutOfRange(t *testing.T) {
	ds, err := Open(fixture(t), "/data", nil, Options{UseLeftEye: true, Width: 2, Height: 2})
	require.NoError(t, err)
	_, err = ds.Get(2, nil)
	assert.Error(t, err)
}

func TestEyeDatasetMissingImage(t *testing.T) {
	fs := afero.NewMemMapFs()
	mustWrite(t, fs, "/data/"+AnnotationFile, annotations)
	ds, err := Open(fs, "/data", nil, Options{UseLeftEye: true, Width: 2, Height: 2})
	require.NoError(t, err)
	_, err = ds.Get(0, nil)
	assert.Error(t, err)
}

func TestOpenEmptyDataset(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, fs.MkdirAll("/data", 0o755))
	_, err := Open(fs, "/data", nil, Options{UseLeftEye: true, Width: 2, Height: 2})
	assert.Error(t, err)

	_, err = Open(fs, "/data", nil, Options{Width: 2, Height: 2})
	assert.Error(t, err)
}
