package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// EmbeddingOp records a table lookup: output[i] = weight[indices[i]].
//
// Only the weight table is differentiable. Backward scatter-adds each
// output row's gradient into the row of the table it was read from, so
// tokens that appear multiple times accumulate their gradients.
type EmbeddingOp struct {
	inputs  []*tensor.RawTensor // [weight]
	indices *tensor.RawTensor   // int32, not differentiable
	output  *tensor.RawTensor
}

// NewEmbeddingOp creates a new EmbeddingOp.
func NewEmbeddingOp(weight, indices, output *tensor.RawTensor) *EmbeddingOp {
	return &EmbeddingOp{
		inputs:  []*tensor.RawTensor{weight},
		indices: indices,
		output:  output,
	}
}

// Inputs returns the input tensors [weight].
func (op *EmbeddingOp) Inputs() []*tensor.RawTensor {
	return op.inputs
}

// Output returns the gathered rows.
func (op *EmbeddingOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward scatter-adds gradients into the weight table.
func (op *EmbeddingOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	weight := op.inputs[0]
	grad := zerosLike(weight)

	dim := weight.Shape()[1]
	idx := op.indices.AsInt32()
	g := outputGrad.AsFloat32()
	out := grad.AsFloat32()

	for i, row := range idx {
		dst := out[int(row)*dim : (int(row)+1)*dim]
		src := g[i*dim : (i+1)*dim]
		for j := range dst {
			dst[j] += src[j]
		}
	}

	return []*tensor.RawTensor{grad}
}
