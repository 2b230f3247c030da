package nn

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// PyramidEncoder stacks bidirectional GRU layers, halving the time dimension
// between layers so the attention span of the decoder shrinks geometrically.
//
// Each layer runs two GRU passes over its input and sums them; the second
// pass has its outputs reversed per example, so position t of the sum sees
// both a forward and a backward summary. Between layers, adjacent timestep
// pairs are merged by an affine map with tanh, and the mask is merged by OR,
// keeping a merged position valid if either half was.
//
// With L layers the output sits at time/2^(L-1) resolution; inputs must be
// padded so the time dimension survives the halvings.
type PyramidEncoder[B tensor.Backend] struct {
	size      int
	numLayers int
	fw        []*GRUCell[B]
	bw        []*GRUCell[B]
	downscale []*Linear[B] // between layers: 2*size -> size
	dropout   *Dropout[B]
	backend   B
}

// NewPyramidEncoder creates an encoder of numLayers bidirectional GRU layers
// with the given hidden size.
func NewPyramidEncoder[B tensor.Backend](size, numLayers int, dropoutRate float32, backend B) *PyramidEncoder[B] {
	if numLayers < 1 {
		panic("PyramidEncoder: need at least one layer")
	}

	e := &PyramidEncoder[B]{
		size:      size,
		numLayers: numLayers,
		dropout:   NewDropout(dropoutRate, backend),
		backend:   backend,
	}
	for i := 0; i < numLayers; i++ {
		e.fw = append(e.fw, NewGRUCell(size, size, backend))
		e.bw = append(e.bw, NewGRUCell(size, size, backend))
	}
	for i := 0; i < numLayers-1; i++ {
		e.downscale = append(e.downscale, NewLinearBias(2*size, size, 1.0, backend))
	}
	return e
}

// Forward encodes a time-major embedded source (time, batch, size) under the
// given (time, batch) validity mask. Returns the encoder output and the mask
// at the output's time resolution.
func (e *PyramidEncoder[B]) Forward(inp *tensor.Tensor[float32, B], mask *tensor.Tensor[int32, B]) (*tensor.Tensor[float32, B], *tensor.Tensor[int32, B]) {
	shape := inp.Shape()
	if len(shape) != 3 || shape[2] != e.size {
		panic(fmt.Sprintf("PyramidEncoder.Forward: expected (time, batch, %d) input, got %v", e.size, shape))
	}
	if shape[0]%(1<<(e.numLayers-1)) != 0 {
		panic(fmt.Sprintf("PyramidEncoder.Forward: time %d not divisible by %d", shape[0], 1<<(e.numLayers-1)))
	}

	var out *tensor.Tensor[float32, B]
	for i := 0; i < e.numLayers; i++ {
		lengths := Lengths(mask)
		out = e.bidirectional(i, e.dropout.Forward(inp), lengths)
		if i < e.numLayers-1 {
			inp = e.halveTime(i, out)
			mask = DownscaleMask(mask, e.backend)
		}
	}
	return out, mask
}

// SetTraining toggles dropout.
func (e *PyramidEncoder[B]) SetTraining(training bool) {
	e.dropout.SetTraining(training)
}

func (e *PyramidEncoder[B]) bidirectional(layer int, inp *tensor.Tensor[float32, B], lengths []int) *tensor.Tensor[float32, B] {
	fwOut, _ := DynamicRNN[B](e.fw[layer], inp, lengths, e.backend)
	bwOut, _ := DynamicRNN[B](e.bw[layer], inp, lengths, e.backend)
	bwOut = bwOut.ReverseSequence(lengths)
	return fwOut.Add(bwOut)
}

// halveTime merges adjacent timestep pairs of (time, batch, size) into a
// (time/2, batch, size) output via an affine map and tanh. Pairing is done
// in batch-major layout so the two halves of a pair belong to the same
// example.
func (e *PyramidEncoder[B]) halveTime(layer int, out *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := out.Shape()
	time, batch := shape[0], shape[1]

	pairs := out.Transpose(1, 0, 2).Reshape(batch*time/2, 2*e.size)
	merged := e.downscale[layer].Forward(pairs)
	return merged.Reshape(batch, time/2, e.size).Transpose(1, 0, 2).Tanh()
}

// Parameters returns all encoder parameters.
func (e *PyramidEncoder[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, c := range e.fw {
		params = append(params, c.Parameters()...)
	}
	for _, c := range e.bw {
		params = append(params, c.Parameters()...)
	}
	for _, l := range e.downscale {
		params = append(params, l.Parameters()...)
	}
	return params
}
