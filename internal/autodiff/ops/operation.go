// Package ops defines the differentiable operations recorded on the gradient
// tape during the forward pass.
//
// Each operation keeps references to its input and output tensors and knows
// how to turn the gradient of its output into gradients of its inputs. The
// tape walks the recorded operations in reverse and accumulates gradients
// when the same tensor feeds several operations, which happens constantly in
// a recurrence (the hidden state feeds every gate of every later timestep).
package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// Operation represents a differentiable operation in the computation graph.
type Operation interface {
	// Backward computes gradients for the inputs given the output gradient.
	// The returned slice corresponds position-wise to Inputs(). A nil entry
	// means no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Inputs returns the differentiable input tensors of this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the tensor this operation produced.
	Output() *tensor.RawTensor
}
