package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// CatOp records a concatenation along a dimension.
//
// Backward splits the output gradient at the original input boundaries, so
// each input receives the slice it contributed.
type CatOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
	dim    int
	sizes  []int // size of each input along dim
}

// NewCatOp creates a new cat operation. sizes holds each input's extent
// along the concatenation dimension, in input order.
func NewCatOp(inputs []*tensor.RawTensor, output *tensor.RawTensor, dim int, sizes []int) *CatOp {
	return &CatOp{inputs: inputs, output: output, dim: dim, sizes: sizes}
}

// Inputs returns the input tensors.
func (op *CatOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the concatenated output.
func (op *CatOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward slices the output gradient back into per-input gradients.
func (op *CatOp) Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor {
	grads := make([]*tensor.RawTensor, len(op.inputs))
	offset := 0
	for i, size := range op.sizes {
		grads[i] = backend.Narrow(outputGrad, op.dim, offset, size)
		offset += size
	}
	return grads
}
