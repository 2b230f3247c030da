package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// SumDimOp records a sum reduction along a dimension: output = sum(x, dim).
//
// Each input element contributes exactly once to the reduced output, so the
// backward pass broadcasts the output gradient back to the input shape.
type SumDimOp struct {
	inputs  []*tensor.RawTensor // [x]
	output  *tensor.RawTensor
	dim     int
	keepDim bool
}

// NewSumDimOp creates a new SumDimOp.
func NewSumDimOp(x, output *tensor.RawTensor, dim int, keepDim bool) *SumDimOp {
	return &SumDimOp{
		inputs:  []*tensor.RawTensor{x},
		output:  output,
		dim:     dim,
		keepDim: keepDim,
	}
}

// Backward broadcasts the output gradient back over the reduced dimension.
func (op *SumDimOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := outputGrad

	// Restore the reduced dimension as size 1 so broadcasting lines up.
	if !op.keepDim {
		unsqueezed := x.Shape().Clone()
		unsqueezed[op.dim] = 1
		grad = backend.Reshape(grad, unsqueezed)
	}

	// Adding to zeros expands the size-1 dimension to the input shape.
	gradX := backend.Add(zerosLike(x), grad)

	return []*tensor.RawTensor{gradX}
}

// Inputs returns the input tensors [x].
func (op *SumDimOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the output tensor sum(x, dim).
func (op *SumDimOp) Output() *tensor.RawTensor {
	return op.output
}
