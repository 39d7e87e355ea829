package dataset

import (
	"math"
	"math/rand"
)

// Transform mutates an image in place. rng supplies any randomness so that
// augmentation is reproducible per sample.
type Transform interface {
	Apply(img *Image, rng *rand.Rand)
}

// Compose applies transforms in order.
type Compose []Transform

func (c Compose) Apply(img *Image, rng *rand.Rand) {
	for _, t := range c {
		t.Apply(img, rng)
	}
}

// ColorJitter randomly scales brightness and contrast. Each factor is drawn
// uniformly from [max(0, 1-x), 1+x]; a zero x disables that adjustment. The
// two adjustments run in random order.
type ColorJitter struct {
	Brightness float64
	Contrast   float64
}

func (j ColorJitter) Apply(img *Image, rng *rand.Rand) {
	ops := []func(){
		func() {
			if j.Brightness > 0 {
				adjustBrightness(img, jitterFactor(j.Brightness, rng))
			}
		},
		func() {
			if j.Contrast > 0 {
				adjustContrast(img, jitterFactor(j.Contrast, rng))
			}
		},
	}
	for _, i := range rng.Perm(len(ops)) {
		ops[i]()
	}
}

func jitterFactor(x float64, rng *rand.Rand) float64 {
	lo := math.Max(0, 1-x)
	hi := 1 + x
	return lo + rng.Float64()*(hi-lo)
}

func adjustBrightness(img *Image, factor float64) {
	for i, v := range img.Pix {
		img.Pix[i] = clamp01(v * factor)
	}
}

// adjustContrast blends every pixel toward the mean intensity of the image.
func adjustContrast(img *Image, factor float64) {
	if len(img.Pix) == 0 {
		return
	}
	mean := 0.0
	for _, v := range img.Pix {
		mean += v
	}
	mean /= float64(len(img.Pix))
	for i, v := range img.Pix {
		img.Pix[i] = clamp01(factor*v + (1-factor)*mean)
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
