package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// TransposeOp records an axis permutation.
// Backward applies the inverse permutation to the gradient.
type TransposeOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	axes   []int
}

// NewTransposeOp creates a new TransposeOp.
func NewTransposeOp(x, output *tensor.RawTensor, axes []int) *TransposeOp {
	return &TransposeOp{inputs: []*tensor.RawTensor{x}, output: output, axes: axes}
}

// Inputs returns the input tensors [x].
func (op *TransposeOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the permuted output.
func (op *TransposeOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward permutes the gradient with the inverse of the recorded axes.
func (op *TransposeOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	inverse := make([]int, len(op.axes))
	for i, a := range op.axes {
		inverse[a] = i
	}
	grad := backend.Transpose(outputGrad, inverse...)
	return []*tensor.RawTensor{grad}
}
