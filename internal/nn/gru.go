package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// GRUCell is a gated recurrent unit cell.
//
// One step with input x and state h:
//
//	r = σ([x; h] · Wr + br)        reset gate
//	u = σ([x; h] · Wu + bu)        update gate
//	c = tanh([x; r⊙h] · Wc + bc)   candidate state
//	h' = u⊙h + (1-u)⊙c
//
// Gate biases start at 1.0 so both gates begin mostly open and early
// training does not immediately forget the state.
type GRUCell[B tensor.Backend] struct {
	inputSize int
	size      int
	reset     *Linear[B]
	update    *Linear[B]
	candidate *Linear[B]
	backend   B
}

// NewGRUCell creates a GRU cell mapping inputSize features to a hidden state
// of the given size.
func NewGRUCell[B tensor.Backend](inputSize, size int, backend B) *GRUCell[B] {
	return &GRUCell[B]{
		inputSize: inputSize,
		size:      size,
		reset:     NewLinearBias(inputSize+size, size, 1.0, backend),
		update:    NewLinearBias(inputSize+size, size, 1.0, backend),
		candidate: NewLinear(inputSize+size, size, backend),
		backend:   backend,
	}
}

// Step advances the cell one timestep. For a GRU the emitted output and the
// next state are the same tensor.
func (g *GRUCell[B]) Step(x, h *tensor.Tensor[float32, B]) (out, state *tensor.Tensor[float32, B]) {
	xh := tensor.Cat([]*tensor.Tensor[float32, B]{x, h}, 1)

	r := g.reset.Forward(xh).Sigmoid()
	u := g.update.Forward(xh).Sigmoid()

	c := g.candidate.Forward(tensor.Cat([]*tensor.Tensor[float32, B]{x, r.Mul(h)}, 1)).Tanh()

	// h' = u⊙h + (1-u)⊙c
	newH := u.Mul(h).Add(u.MulScalar(-1).AddScalar(1).Mul(c))
	return newH, newH
}

// StateSize returns the hidden state width.
func (g *GRUCell[B]) StateSize() int {
	return g.size
}

// InputSize returns the expected input width.
func (g *GRUCell[B]) InputSize() int {
	return g.inputSize
}

// Parameters returns the gate and candidate parameters.
func (g *GRUCell[B]) Parameters() []*Parameter[B] {
	params := g.reset.Parameters()
	params = append(params, g.update.Parameters()...)
	params = append(params, g.candidate.Parameters()...)
	return params
}
