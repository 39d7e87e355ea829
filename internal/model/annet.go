package model

import (
	"math/rand"
	"sort"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"gazetrain/internal/device"
)

// Variant selects a network architecture.
type Variant string

const (
	// V2 is a single hidden layer regressor on full resolution planes.
	V2 Variant = "v2"
	// V3 pools the eye planes 2x2 and uses two hidden layers.
	V3 Variant = "v3"
)

// Options describes the input layout and construction parameters.
type Options struct {
	Device     device.Device
	InChannels int
	Height     int
	Width      int
	PoseDims   int
	Outputs    int
	Seed       int64
}

// Tape holds the activations recorded by Forward.
type Tape struct {
	inputs  []mat.Matrix
	outputs []*mat.Dense
}

// ANNet is a gaze regressor built from dense layers.
type ANNet struct {
	variant Variant
	device  device.Device
	opts    Options
	pool    bool
	layers  []*dense
}

var _ Model = (*ANNet)(nil)

// New constructs the requested variant.
func New(variant Variant, opts Options) (*ANNet, error) {
	if opts.InChannels <= 0 {
		return nil, errors.Errorf("model: in_channels must be > 0 (got %d)", opts.InChannels)
	}
	if opts.Height <= 0 || opts.Width <= 0 {
		return nil, errors.Errorf("model: image size must be > 0 (got %dx%d)", opts.Width, opts.Height)
	}
	if opts.PoseDims < 0 {
		return nil, errors.New("model: pose dims must be >= 0")
	}
	if opts.Outputs <= 0 {
		opts.Outputs = 2
	}
	rng := rand.New(rand.NewSource(opts.Seed))

	net := &ANNet{variant: variant, device: opts.Device, opts: opts}
	switch variant {
	case V2:
		in := opts.InChannels*opts.Height*opts.Width + opts.PoseDims
		net.layers = []*dense{
			newDense("fc1", in, 128, true, rng),
			newDense("head", 128, opts.Outputs, false, rng),
		}
	case V3:
		if opts.Height < 2 || opts.Width < 2 {
			return nil, errors.Errorf("model: v3 needs at least 2x2 images (got %dx%d)", opts.Width, opts.Height)
		}
		net.pool = true
		in := opts.InChannels*(opts.Height/2)*(opts.Width/2) + opts.PoseDims
		net.layers = []*dense{
			newDense("fc1", in, 256, true, rng),
			newDense("fc2", 256, 64, true, rng),
			newDense("head", 64, opts.Outputs, false, rng),
		}
	default:
		return nil, errors.Errorf("model: unknown variant %q", variant)
	}
	return net, nil
}

// Variant reports the architecture.
func (n *ANNet) Variant() Variant { return n.variant }

// Device reports the compute device the network was placed on.
func (n *ANNet) Device() device.Device { return n.device }

// InputSize is the feature width Forward expects.
func (n *ANNet) InputSize() int {
	return n.opts.InChannels*n.opts.Height*n.opts.Width + n.opts.PoseDims
}

func (n *ANNet) Forward(x mat.Matrix) (*mat.Dense, *Tape) {
	tape := &Tape{}
	var h mat.Matrix = n.prepare(x)
	for _, l := range n.layers {
		y := l.forward(h)
		tape.inputs = append(tape.inputs, h)
		tape.outputs = append(tape.outputs, y)
		h = y
	}
	return tape.outputs[len(tape.outputs)-1], tape
}

func (n *ANNet) Backward(tape *Tape, grad *mat.Dense) {
	for i := len(n.layers) - 1; i >= 0; i-- {
		grad = n.layers[i].backward(tape.inputs[i], tape.outputs[i], grad)
	}
}

func (n *ANNet) Predict(x mat.Matrix) *mat.Dense {
	var h mat.Matrix = n.prepare(x)
	var y *mat.Dense
	for _, l := range n.layers {
		y = l.forward(h)
		h = y
	}
	return y
}

func (n *ANNet) Parameters() []*Parameter {
	params := make([]*Parameter, 0, 2*len(n.layers))
	for _, l := range n.layers {
		params = append(params, l.weight, l.bias)
	}
	return params
}

func (n *ANNet) ZeroGrad() {
	for _, p := range n.Parameters() {
		p.Grad.Zero()
	}
}

// State returns copies of every parameter keyed by name.
func (n *ANNet) State() map[string]*mat.Dense {
	state := make(map[string]*mat.Dense)
	for _, p := range n.Parameters() {
		state[p.Name] = mat.DenseCopyOf(p.Value)
	}
	return state
}

// LoadState copies matching tensors into the network. Missing or
// mis-shaped entries are an error.
func (n *ANNet) LoadState(state map[string]*mat.Dense) error {
	params := n.Parameters()
	for _, p := range params {
		src, ok := state[p.Name]
		if !ok {
			return errors.Errorf("model: state is missing %s", p.Name)
		}
		r, c := p.Value.Dims()
		sr, sc := src.Dims()
		if r != sr || c != sc {
			return errors.Errorf("model: %s has shape %dx%d, state has %dx%d", p.Name, r, c, sr, sc)
		}
	}
	if len(state) != len(params) {
		return errors.Errorf("model: state has %d tensors, %s expects %d: %v", len(state), n.variant, len(params), stateNames(state))
	}
	for _, p := range params {
		p.Value.Copy(state[p.Name])
	}
	return nil
}

func stateNames(state map[string]*mat.Dense) []string {
	names := make([]string, 0, len(state))
	for name := range state {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// prepare applies the fixed 2x2 average pool for V3. Pose columns after the
// eye planes pass through untouched.
func (n *ANNet) prepare(x mat.Matrix) mat.Matrix {
	if !n.pool {
		return x
	}
	c, h, w := n.opts.InChannels, n.opts.Height, n.opts.Width
	ph, pw := h/2, w/2
	rows, _ := x.Dims()
	out := mat.NewDense(rows, c*ph*pw+n.opts.PoseDims, nil)
	for r := 0; r < rows; r++ {
		dst := out.RawRowView(r)
		for ch := 0; ch < c; ch++ {
			base := ch * h * w
			for y := 0; y < ph; y++ {
				for xx := 0; xx < pw; xx++ {
					i := base + 2*y*w + 2*xx
					sum := x.At(r, i) + x.At(r, i+1) + x.At(r, i+w) + x.At(r, i+w+1)
					dst[ch*ph*pw+y*pw+xx] = sum / 4
				}
			}
		}
		for p := 0; p < n.opts.PoseDims; p++ {
			dst[c*ph*pw+p] = x.At(r, c*h*w+p)
		}
	}
	return out
}
