package dataset

import (
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"math"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Image is a stack of grayscale planes with values in [0, 1], laid out
// channel-major.
type Image struct {
	Channels int
	Height   int
	Width    int
	Pix      []float64
}

// NewImage allocates a zeroed image.
func NewImage(channels, height, width int) *Image {
	return &Image{
		Channels: channels,
		Height:   height,
		Width:    width,
		Pix:      make([]float64, channels*height*width),
	}
}

// Plane returns the pixels of channel c.
func (m *Image) Plane(c int) []float64 {
	n := m.Height * m.Width
	return m.Pix[c*n : (c+1)*n]
}

// loadPlane decodes path and resamples its luminance into dst, a
// width x height plane, by nearest neighbour.
func loadPlane(fs afero.Fs, path string, width, height int, dst []float64) error {
	f, err := fs.Open(path)
	if err != nil {
		return errors.Wrap(err, "open eye image")
	}
	defer f.Close()

	img, _, err := image.Decode(f)
	if err != nil {
		return errors.Wrapf(err, "decode %s", path)
	}
	bounds := img.Bounds()
	w, h := bounds.Dx(), bounds.Dy()
	if w == 0 || h == 0 {
		return errors.Errorf("empty image %s", path)
	}
	stepX := float64(w) / float64(width)
	stepY := float64(h) / float64(height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			px := bounds.Min.X + int(math.Min(float64(w-1), float64(x)*stepX))
			py := bounds.Min.Y + int(math.Min(float64(h-1), float64(y)*stepY))
			g := color.GrayModel.Convert(img.At(px, py)).(color.Gray)
			dst[y*width+x] = float64(g.Y) / 255
		}
	}
	return nil
}
