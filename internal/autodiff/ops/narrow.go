package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// NarrowOp records a contiguous slice along a dimension.
//
// Backward scatters the output gradient into a zero tensor of the input
// shape at the sliced offset. Elements outside the slice get zero gradient.
type NarrowOp struct {
	inputs []*tensor.RawTensor // [x]
	output *tensor.RawTensor
	dim    int
	start  int
	length int
}

// NewNarrowOp creates a new NarrowOp.
func NewNarrowOp(x, output *tensor.RawTensor, dim, start, length int) *NarrowOp {
	return &NarrowOp{
		inputs: []*tensor.RawTensor{x},
		output: output,
		dim:    dim,
		start:  start,
		length: length,
	}
}

// Inputs returns the input tensors [x].
func (op *NarrowOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the sliced output.
func (op *NarrowOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward embeds the slice gradient into the full input shape.
func (op *NarrowOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	x := op.inputs[0]
	grad := zerosLike(x)

	shape := x.Shape()
	outer, _, inner := groupLayout(shape, op.dim)
	srcStride := op.length * inner
	dstStride := shape[op.dim] * inner

	g := outputGrad.AsFloat32()
	out := grad.AsFloat32()
	for o := 0; o < outer; o++ {
		src := g[o*srcStride : (o+1)*srcStride]
		dst := out[o*dstStride+op.start*inner:]
		copy(dst[:srcStride], src)
	}

	return []*tensor.RawTensor{grad}
}
