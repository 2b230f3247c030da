package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// AttnCell is a GRU cell extended with content-based attention over a fixed
// encoder output.
//
// Bind precomputes phi = tanh(W1·hs + b1) for the whole encoder output hs
// (time, batch, size) once per sequence. Each step then:
//
//	g, _    = GRU(x, h)
//	gamma   = tanh(W2·g + b2)                       (batch, size)
//	scores  = Σ_feature phi ⊙ gamma                 (time, batch, 1)
//	weights = softmax over time, 1e-6 normalizer    (time, batch, 1)
//	context = Σ_time weights ⊙ hs                   (batch, size)
//	out     = relu(W3·[context; g] + b3)            (batch, size)
//
// The cell emits out as both its output and its next state, so the attention
// summary feeds the following timestep.
type AttnCell[B tensor.Backend] struct {
	inner   *GRUCell[B]
	project *Linear[B] // W1: encoder features -> attention space
	score   *Linear[B] // W2: decoder state -> attention space
	combine *Linear[B] // W3: [context; state] -> output
	backend B

	hs    *tensor.Tensor[float32, B] // bound encoder output (time, batch, size)
	phiHS *tensor.Tensor[float32, B]

	lastWeights *tensor.Tensor[float32, B]
}

// NewAttnCell creates an attention cell of the given hidden size. Bind must
// be called before the first Step.
func NewAttnCell[B tensor.Backend](size int, backend B) *AttnCell[B] {
	return &AttnCell[B]{
		inner:   NewGRUCell(size, size, backend),
		project: NewLinearBias(size, size, 1.0, backend),
		score:   NewLinearBias(size, size, 1.0, backend),
		combine: NewLinearBias(2*size, size, 1.0, backend),
		backend: backend,
	}
}

// Bind fixes the encoder output the cell attends over and precomputes the
// projected keys. Call once per sequence, before stepping.
func (a *AttnCell[B]) Bind(encoderOutput *tensor.Tensor[float32, B]) {
	shape := encoderOutput.Shape()
	time, batch, size := shape[0], shape[1], shape[2]

	hs2d := encoderOutput.Reshape(time*batch, size)
	phi2d := a.project.Forward(hs2d).Tanh()

	a.hs = encoderOutput
	a.phiHS = phi2d.Reshape(time, batch, size)
	a.lastWeights = nil
}

// Step advances the cell one timestep.
func (a *AttnCell[B]) Step(x, h *tensor.Tensor[float32, B]) (out, state *tensor.Tensor[float32, B]) {
	if a.hs == nil {
		panic("AttnCell.Step: no encoder output bound (call Bind first)")
	}

	gruOut, _ := a.inner.Step(x, h)

	gamma := a.score.Forward(gruOut).Tanh() // (batch, size)

	// phi (time, batch, size) ⊙ gamma broadcast over time, reduced over
	// features to one score per encoder position.
	scores := a.phiHS.Mul(gamma.Reshape(1, gamma.Shape()[0], gamma.Shape()[1])).SumDim(2, true)
	weights := scores.Softmax(0, 1e-6)
	a.lastWeights = weights

	context := a.hs.Mul(weights).SumDim(0, false) // (batch, size)

	combined := tensor.Cat([]*tensor.Tensor[float32, B]{context, gruOut}, 1)
	result := a.combine.Forward(combined).ReLU()
	return result, result
}

// StateSize returns the hidden state width.
func (a *AttnCell[B]) StateSize() int {
	return a.inner.StateSize()
}

// AttentionWeights returns the weights of the most recent step,
// (time, batch, 1), for inspection of what the decoder looked at.
func (a *AttnCell[B]) AttentionWeights() *tensor.Tensor[float32, B] {
	return a.lastWeights
}

// Parameters returns the GRU and attention parameters.
func (a *AttnCell[B]) Parameters() []*Parameter[B] {
	params := a.inner.Parameters()
	params = append(params, a.project.Parameters()...)
	params = append(params, a.score.Parameters()...)
	params = append(params, a.combine.Parameters()...)
	return params
}
