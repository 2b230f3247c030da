package ops

import "github.com/nlc-ml/nlc/internal/tensor"

// TanhOp records output = tanh(x).
// d tanh(x)/dx = 1 - tanh(x)², computed from the cached output.
type TanhOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewTanhOp creates a new TanhOp.
func NewTanhOp(x, output *tensor.RawTensor) *TanhOp {
	return &TanhOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes the input gradient for tanh.
func (op *TanhOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.inputs[0])
	y, g, out := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for i := range out {
		out[i] = g[i] * (1 - y[i]*y[i])
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *TanhOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns tanh(x).
func (op *TanhOp) Output() *tensor.RawTensor { return op.output }

// SigmoidOp records output = σ(x).
// dσ(x)/dx = σ(x)(1 - σ(x)), computed from the cached output.
type SigmoidOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewSigmoidOp creates a new SigmoidOp.
func NewSigmoidOp(x, output *tensor.RawTensor) *SigmoidOp {
	return &SigmoidOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes the input gradient for sigmoid.
func (op *SigmoidOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.inputs[0])
	y, g, out := op.output.AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for i := range out {
		out[i] = g[i] * y[i] * (1 - y[i])
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *SigmoidOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns σ(x).
func (op *SigmoidOp) Output() *tensor.RawTensor { return op.output }

// ReLUOp records output = max(0, x).
// The gradient passes through where the input was positive.
type ReLUOp struct {
	inputs []*tensor.RawTensor
	output *tensor.RawTensor
}

// NewReLUOp creates a new ReLUOp.
func NewReLUOp(x, output *tensor.RawTensor) *ReLUOp {
	return &ReLUOp{inputs: []*tensor.RawTensor{x}, output: output}
}

// Backward computes the input gradient for ReLU.
func (op *ReLUOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	grad := zerosLike(op.inputs[0])
	x, g, out := op.inputs[0].AsFloat32(), outputGrad.AsFloat32(), grad.AsFloat32()
	for i := range out {
		if x[i] > 0 {
			out[i] = g[i]
		}
	}
	return []*tensor.RawTensor{grad}
}

// Inputs returns [x].
func (op *ReLUOp) Inputs() []*tensor.RawTensor { return op.inputs }

// Output returns max(0, x).
func (op *ReLUOp) Output() *tensor.RawTensor { return op.output }
