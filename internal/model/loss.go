package model

import (
	"gonum.org/v1/gonum/mat"
)

// MSELoss returns the mean squared error over every element of out and
// target, together with its gradient with respect to out.
func MSELoss(out, target mat.Matrix) (float64, *mat.Dense) {
	rows, cols := out.Dims()
	n := float64(rows * cols)

	var diff mat.Dense
	diff.Sub(out, target)

	loss := 0.0
	for i := 0; i < rows; i++ {
		for _, v := range diff.RawRowView(i) {
			loss += v * v
		}
	}

	diff.Scale(2/n, &diff)
	return loss / n, &diff
}
