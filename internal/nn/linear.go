package nn

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Linear implements a fully connected layer: y = x @ W.T + b.
//
// W has shape [out_features, in_features] and is Xavier initialized; the
// bias starts at a configurable constant, zero by default.
type Linear[B tensor.Backend] struct {
	inFeatures  int
	outFeatures int
	weight      *Parameter[B] // [out_features, in_features]
	bias        *Parameter[B] // [out_features]
	backend     B
}

// NewLinear creates a Linear layer with a zero-initialized bias.
func NewLinear[B tensor.Backend](inFeatures, outFeatures int, backend B) *Linear[B] {
	return NewLinearBias(inFeatures, outFeatures, 0, backend)
}

// NewLinearBias creates a Linear layer whose bias starts at biasInit.
// Recurrent gates use biasInit = 1 so they begin mostly open.
func NewLinearBias[B tensor.Backend](inFeatures, outFeatures int, biasInit float32, backend B) *Linear[B] {
	weight := NewParameter("weight", Xavier(inFeatures, outFeatures, tensor.Shape{outFeatures, inFeatures}, backend))
	bias := NewParameter("bias", Full(tensor.Shape{outFeatures}, biasInit, backend))

	return &Linear[B]{
		inFeatures:  inFeatures,
		outFeatures: outFeatures,
		weight:      weight,
		bias:        bias,
		backend:     backend,
	}
}

// Forward computes y = x @ W.T + b for input [batch, in_features].
func (l *Linear[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	shape := input.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Linear.Forward: expected 2D input [batch, features], got shape %v", shape))
	}
	if shape[1] != l.inFeatures {
		panic(fmt.Sprintf("Linear.Forward: expected %d input features, got %d", l.inFeatures, shape[1]))
	}

	wT := l.weight.Tensor().Transpose(1, 0) // [in_features, out_features]
	output := input.MatMul(wT)

	b := l.bias.Tensor().Reshape(1, l.outFeatures)
	return output.Add(b)
}

// Parameters returns [weight, bias].
func (l *Linear[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{l.weight, l.bias}
}

// Weight returns the weight parameter.
func (l *Linear[B]) Weight() *Parameter[B] {
	return l.weight
}

// Bias returns the bias parameter.
func (l *Linear[B]) Bias() *Parameter[B] {
	return l.bias
}

// InFeatures returns the input width.
func (l *Linear[B]) InFeatures() int {
	return l.inFeatures
}

// OutFeatures returns the output width.
func (l *Linear[B]) OutFeatures() int {
	return l.outFeatures
}
