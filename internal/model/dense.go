package model

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// dense is a fully connected layer y = xW + b, optionally followed by ReLU.
type dense struct {
	weight *Parameter
	bias   *Parameter
	relu   bool
}

// newDense initialises weights and bias uniformly in ±1/sqrt(in).
func newDense(name string, in, out int, relu bool, rng *rand.Rand) *dense {
	bound := 1 / math.Sqrt(float64(in))
	w := make([]float64, in*out)
	for i := range w {
		w[i] = (rng.Float64()*2 - 1) * bound
	}
	b := make([]float64, out)
	for i := range b {
		b[i] = (rng.Float64()*2 - 1) * bound
	}
	return &dense{
		weight: newParameter(name+".weight", in, out, w),
		bias:   newParameter(name+".bias", 1, out, b),
		relu:   relu,
	}
}

func (l *dense) forward(x mat.Matrix) *mat.Dense {
	rows, _ := x.Dims()
	_, out := l.weight.Value.Dims()
	y := mat.NewDense(rows, out, nil)
	y.Mul(x, l.weight.Value)
	bias := l.bias.Value.RawRowView(0)
	y.Apply(func(_, j int, v float64) float64 {
		v += bias[j]
		if l.relu && v < 0 {
			return 0
		}
		return v
	}, y)
	return y
}

// backward accumulates gradients for a layer that received input x and
// produced y, and returns dLoss/dx.
func (l *dense) backward(x mat.Matrix, y, grad *mat.Dense) *mat.Dense {
	delta := grad
	if l.relu {
		delta = mat.DenseCopyOf(grad)
		delta.Apply(func(i, j int, v float64) float64 {
			if y.At(i, j) <= 0 {
				return 0
			}
			return v
		}, delta)
	}

	var dw mat.Dense
	dw.Mul(x.T(), delta)
	l.weight.Grad.Add(l.weight.Grad, &dw)

	rows, cols := delta.Dims()
	db := l.bias.Grad.RawRowView(0)
	for i := 0; i < rows; i++ {
		row := delta.RawRowView(i)
		for j := 0; j < cols; j++ {
			db[j] += row[j]
		}
	}

	var dx mat.Dense
	dx.Mul(delta, l.weight.Value.T())
	return &dx
}
