package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Parameter is a trainable tensor with an associated gradient slot.
//
// The gradient is nil until a backward pass assigns it and the optimizer
// consumes it. Names are hierarchical ("encoder.layer0.fw.reset.weight") so
// checkpoints can address every parameter.
type Parameter[B tensor.Backend] struct {
	name   string
	tensor *tensor.Tensor[float32, B]
	grad   *tensor.Tensor[float32, B]
}

// NewParameter creates a trainable parameter from an initialized tensor.
func NewParameter[B tensor.Backend](name string, t *tensor.Tensor[float32, B]) *Parameter[B] {
	return &Parameter[B]{name: name, tensor: t}
}

// Name returns the parameter name.
func (p *Parameter[B]) Name() string {
	return p.name
}

// SetName overrides the parameter name. Containers use it to prefix nested
// parameters with their position in the module tree.
func (p *Parameter[B]) SetName(name string) {
	p.name = name
}

// Tensor returns the parameter tensor.
func (p *Parameter[B]) Tensor() *tensor.Tensor[float32, B] {
	return p.tensor
}

// Grad returns the gradient tensor, or nil before the first backward pass.
func (p *Parameter[B]) Grad() *tensor.Tensor[float32, B] {
	return p.grad
}

// SetGrad assigns the gradient tensor.
func (p *Parameter[B]) SetGrad(grad *tensor.Tensor[float32, B]) {
	p.grad = grad
}

// ZeroGrad clears the gradient before the next iteration.
func (p *Parameter[B]) ZeroGrad() {
	p.grad = nil
}
