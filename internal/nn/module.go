// Package nn implements the neural network building blocks of the sequence
// model: parameters, dense and embedding layers, GRU cells, the attention
// cell, a length-masked recurrence driver, the pyramidal encoder, the
// attention decoder and the masked sequence loss.
//
// Design follows PyTorch's nn.Module shape, adapted for Go generics: layers
// are structs parameterized over the backend, Forward methods take and
// return tensors, Parameters exposes the trainable state.
package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Module is the base interface for network components with a single-tensor
// forward pass.
type Module[B tensor.Backend] interface {
	// Forward computes the output of the module given an input tensor.
	Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B]

	// Parameters returns all trainable parameters of this module, including
	// nested ones. Modules without state return an empty slice.
	Parameters() []*Parameter[B]
}

// Cell is a recurrent cell advanced one timestep at a time by DynamicRNN.
//
// Step consumes the input x (batch, in) and previous hidden state h
// (batch, size) and returns the emitted output and the next state. For a
// plain GRU both are the same tensor; the attention cell emits its combined
// attention output as both.
type Cell[B tensor.Backend] interface {
	Step(x, h *tensor.Tensor[float32, B]) (out, state *tensor.Tensor[float32, B])

	// StateSize returns the hidden state width.
	StateSize() int

	Parameters() []*Parameter[B]
}
