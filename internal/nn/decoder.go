package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// AttnDecoder runs the embedded target sequence through plain GRU layers and
// finishes with an attention cell over the encoder output.
//
// With L total layers there are L-1 plain GRU layers; the last layer is the
// attention cell. Every layer is length-masked by the target mask.
type AttnDecoder[B tensor.Backend] struct {
	size      int
	numLayers int
	layers    []*GRUCell[B] // numLayers-1 plain layers
	attn      *AttnCell[B]
	dropout   *Dropout[B]
	backend   B
}

// NewAttnDecoder creates a decoder of numLayers layers with the given hidden
// size.
func NewAttnDecoder[B tensor.Backend](size, numLayers int, dropoutRate float32, backend B) *AttnDecoder[B] {
	d := &AttnDecoder[B]{
		size:      size,
		numLayers: numLayers,
		attn:      NewAttnCell(size, backend),
		dropout:   NewDropout(dropoutRate, backend),
		backend:   backend,
	}
	for i := 0; i < numLayers-1; i++ {
		d.layers = append(d.layers, NewGRUCell(size, size, backend))
	}
	return d
}

// Forward decodes the embedded target (time, batch, size) against the bound
// encoder output. mask is the (time, batch) target validity mask.
func (d *AttnDecoder[B]) Forward(inp *tensor.Tensor[float32, B], mask *tensor.Tensor[int32, B], encoderOutput *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	lengths := Lengths(mask)

	for _, layer := range d.layers {
		out, _ := DynamicRNN[B](layer, d.dropout.Forward(inp), lengths, d.backend)
		inp = out
	}

	d.attn.Bind(encoderOutput)
	out, _ := DynamicRNN[B](d.attn, d.dropout.Forward(inp), lengths, d.backend)
	return out
}

// SetTraining toggles dropout.
func (d *AttnDecoder[B]) SetTraining(training bool) {
	d.dropout.SetTraining(training)
}

// AttentionWeights exposes the attention cell's most recent weights.
func (d *AttnDecoder[B]) AttentionWeights() *tensor.Tensor[float32, B] {
	return d.attn.AttentionWeights()
}

// Parameters returns all decoder parameters.
func (d *AttnDecoder[B]) Parameters() []*Parameter[B] {
	var params []*Parameter[B]
	for _, l := range d.layers {
		params = append(params, l.Parameters()...)
	}
	params = append(params, d.attn.Parameters()...)
	return params
}
