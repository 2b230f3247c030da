package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// ReshapeOp records a shape change that preserves element order.
// Backward reshapes the gradient back to the original input shape.
type ReshapeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
}

// NewReshapeOp creates a new ReshapeOp.
func NewReshapeOp(x, output *tensor.RawTensor) *ReshapeOp {
	return &ReshapeOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Inputs returns the input tensors [x].
func (op *ReshapeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reshaped output.
func (op *ReshapeOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward reshapes the gradient to the input shape.
func (op *ReshapeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := backend.Reshape(outputGrad, op.inputs[0].Shape())
	return []*tensor.RawTensor{grad}
}
