package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// SoftmaxOp records a softmax along an arbitrary dimension.
//
// Forward (per group along dim):
//
//	softmax(x)_i = exp(x_i - max(x)) / (eps + Σ_j exp(x_j - max(x)))
//
// The eps term keeps the normalizer nonzero when all inputs along the
// dimension are hugely negative, as happens with fully masked attention
// scores.
//
// Backward uses the standard softmax Jacobian, which stays exact in the
// presence of eps because the normalizer is a constant with respect to
// each output once the forward values are cached:
//
//	∂L/∂x_j = y_j * (∂L/∂y_j - Σ_i ∂L/∂y_i * y_i)
type SoftmaxOp struct {
	input  *tensor.RawTensor
	output *tensor.RawTensor // cached softmax values for backward
	dim    int
}

// NewSoftmaxOp creates a new softmax operation along dim.
func NewSoftmaxOp(input, output *tensor.RawTensor, dim int) *SoftmaxOp {
	return &SoftmaxOp{input: input, output: output, dim: dim}
}

// Inputs returns the input tensors.
func (op *SoftmaxOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.input}
}

// Output returns the output tensor.
func (op *SoftmaxOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to the input.
func (op *SoftmaxOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	outer, n, inner := groupLayout(op.input.Shape(), op.dim)

	inputGrad := zerosLike(op.input)
	y := op.output.AsFloat32()
	g := outputGrad.AsFloat32()
	out := inputGrad.AsFloat32()

	for o := 0; o < outer; o++ {
		for in := 0; in < inner; in++ {
			base := o*n*inner + in

			// dot = Σ_i g_i * y_i over the softmax dimension
			dot := float32(0)
			for j := 0; j < n; j++ {
				idx := base + j*inner
				dot += g[idx] * y[idx]
			}

			for j := 0; j < n; j++ {
				idx := base + j*inner
				out[idx] = y[idx] * (g[idx] - dot)
			}
		}
	}

	return []*tensor.RawTensor{inputGrad}
}
