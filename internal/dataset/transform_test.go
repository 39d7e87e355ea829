package dataset

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestColorJitterStaysInRange(t *testing.T) {
	img := NewImage(2, 3, 3)
	for i := range img.Pix {
		img.Pix[i] = float64(i) / float64(len(img.Pix)-1)
	}
	jitter := Compose{ColorJitter{Brightness: 0.3, Contrast: 0.3}}
	rng := rand.New(rand.NewSource(5))
	for round := 0; round < 20; round++ {
		jitter.Apply(img, rng)
		for _, v := range img.Pix {
			assert.True(t, v >= 0 && v <= 1, "pixel %f out of range", v)
		}
	}
}

func TestColorJitterDeterministicPerSeed(t *testing.T) {
	a := NewImage(1, 2, 2)
	b := NewImage(1, 2, 2)
	copy(a.Pix, []float64{0.1, 0.4, 0.6, 0.9})
	copy(b.Pix, a.Pix)

	j := ColorJitter{Brightness: 0.3, Contrast: 0.3}
	j.Apply(a, rand.New(rand.NewSource(11)))
	j.Apply(b, rand.New(rand.NewSource(11)))
	assert.Equal(t, a.Pix, b.Pix)
}

func TestJitterFactorBounds(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for i := 0; i < 100; i++ {
		f := jitterFactor(0.3, rng)
		assert.True(t, f >= 0.7 && f <= 1.3, "factor %f", f)
	}
	for i := 0; i < 100; i++ {
		assert.GreaterOrEqual(t, jitterFactor(1.5, rng), 0.0)
	}
}

func TestAdjustContrastZeroFlattensToMean(t *testing.T) {
	img := NewImage(1, 1, 4)
	copy(img.Pix, []float64{0, 0.2, 0.4, 0.6})
	adjustContrast(img, 0)
	for _, v := range img.Pix {
		assert.InDelta(t, 0.3, v, 1e-12)
	}
}
