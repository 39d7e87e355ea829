package model

import (
	"gonum.org/v1/gonum/mat"
)

// Parameter is a trainable tensor with its accumulated gradient.
type Parameter struct {
	Name  string
	Value *mat.Dense
	Grad  *mat.Dense
}

func newParameter(name string, rows, cols int, data []float64) *Parameter {
	return &Parameter{
		Name:  name,
		Value: mat.NewDense(rows, cols, data),
		Grad:  mat.NewDense(rows, cols, nil),
	}
}

// Model defines the training functionality required by the trainer.
type Model interface {
	// Forward computes outputs for a batch and records what Backward needs.
	Forward(x mat.Matrix) (*mat.Dense, *Tape)
	// Backward accumulates parameter gradients given dLoss/dOutput.
	Backward(tape *Tape, grad *mat.Dense)
	// Predict computes outputs without recording a tape.
	Predict(x mat.Matrix) *mat.Dense
	Parameters() []*Parameter
	ZeroGrad()
	State() map[string]*mat.Dense
	LoadState(state map[string]*mat.Dense) error
}
