// Package optim implements parameter update rules for model.Parameter sets.
package optim

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"gazetrain/internal/model"
)

// Options configures AdamW. Zero betas and eps take the usual defaults.
type Options struct {
	LR          float64
	WeightDecay float64
	Beta1       float64
	Beta2       float64
	Eps         float64
}

// AdamW is Adam with decoupled weight decay.
type AdamW struct {
	opts   Options
	params []*model.Parameter
	m      []*mat.Dense
	v      []*mat.Dense
	step   int
}

// NewAdamW creates an optimizer over params.
func NewAdamW(params []*model.Parameter, opts Options) (*AdamW, error) {
	if opts.LR <= 0 {
		return nil, errors.Errorf("adamw: learning rate must be > 0 (got %g)", opts.LR)
	}
	if opts.WeightDecay < 0 {
		return nil, errors.Errorf("adamw: weight decay must be >= 0 (got %g)", opts.WeightDecay)
	}
	if opts.Beta1 == 0 {
		opts.Beta1 = 0.9
	}
	if opts.Beta2 == 0 {
		opts.Beta2 = 0.999
	}
	if opts.Eps == 0 {
		opts.Eps = 1e-8
	}
	o := &AdamW{opts: opts, params: params}
	for _, p := range params {
		r, c := p.Value.Dims()
		o.m = append(o.m, mat.NewDense(r, c, nil))
		o.v = append(o.v, mat.NewDense(r, c, nil))
	}
	return o, nil
}

// ZeroGrad clears the gradient of every managed parameter.
func (o *AdamW) ZeroGrad() {
	for _, p := range o.params {
		p.Grad.Zero()
	}
}

// Steps reports how many updates have been applied.
func (o *AdamW) Steps() int { return o.step }

// Step applies one update from the accumulated gradients.
func (o *AdamW) Step() {
	o.step++
	b1, b2 := o.opts.Beta1, o.opts.Beta2
	corr1 := 1 - math.Pow(b1, float64(o.step))
	corr2 := 1 - math.Pow(b2, float64(o.step))
	decay := 1 - o.opts.LR*o.opts.WeightDecay

	for k, p := range o.params {
		rows, _ := p.Value.Dims()
		for i := 0; i < rows; i++ {
			val := p.Value.RawRowView(i)
			grad := p.Grad.RawRowView(i)
			m := o.m[k].RawRowView(i)
			v := o.v[k].RawRowView(i)
			for j, g := range grad {
				val[j] *= decay
				m[j] = b1*m[j] + (1-b1)*g
				v[j] = b2*v[j] + (1-b2)*g*g
				mHat := m[j] / corr1
				vHat := v[j] / corr2
				val[j] -= o.opts.LR * mHat / (math.Sqrt(vHat) + o.opts.Eps)
			}
		}
	}
}
