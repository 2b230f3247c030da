package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// ReverseSequenceOp records a per-example time reversal.
//
// The reversal is an involution restricted to each column's valid prefix, so
// backward applies the same reversal to the output gradient.
type ReverseSequenceOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor
	lengths []int
}

// NewReverseSequenceOp creates a new ReverseSequenceOp.
func NewReverseSequenceOp(x, output *tensor.RawTensor, lengths []int) *ReverseSequenceOp {
	return &ReverseSequenceOp{inputs: []*tensor.RawTensor{x}, output: output, lengths: lengths}
}

// Inputs returns the input tensors [x].
func (op *ReverseSequenceOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the reversed output.
func (op *ReverseSequenceOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward reverses the gradient with the same per-example lengths.
func (op *ReverseSequenceOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grad := backend.ReverseSequence(outputGrad, op.lengths)
	return []*tensor.RawTensor{grad}
}
