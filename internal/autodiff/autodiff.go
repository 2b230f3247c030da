// Package autodiff implements reverse-mode automatic differentiation using
// the decorator pattern.
//
// Backend wraps any tensor.Backend implementation and records every
// operation of the forward pass on a GradientTape. Walking the tape in
// reverse applies the chain rule and accumulates gradients for every tensor
// that contributed to the loss, including parameters reused across all
// timesteps of a recurrence.
//
// Usage:
//
//	backend := autodiff.New(cpu.New())
//	backend.Tape().StartRecording()
//	// ... forward pass through the model ...
//	grads := autodiff.Backward(loss, backend)
//	// grads[param.Raw()] holds dLoss/dParam
package autodiff

import (
	"github.com/nlc-ml/nlc/internal/autodiff/ops"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Backend wraps a tensor.Backend and records operations for differentiation.
//
// The wrapped backend performs the actual computation; this decorator only
// observes results and remembers how they were produced.
type Backend[B tensor.Backend] struct {
	inner B
	tape  *GradientTape
}

// New creates an autodiff decorator around the given backend.
func New[B tensor.Backend](backend B) *Backend[B] {
	return &Backend[B]{
		inner: backend,
		tape:  NewGradientTape(),
	}
}

// Tape returns the gradient tape for recording control and inspection.
func (b *Backend[B]) Tape() *GradientTape {
	return b.tape
}

// Inner returns the wrapped backend.
func (b *Backend[B]) Inner() B {
	return b.inner
}

// Name returns the backend name.
func (b *Backend[B]) Name() string {
	return "Autodiff(" + b.inner.Name() + ")"
}

// Device returns the compute device of the wrapped backend.
func (b *Backend[B]) Device() tensor.Device {
	return b.inner.Device()
}

// Add performs element-wise addition and records the operation.
func (b *Backend[B]) Add(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Add(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddOp(x, y, result))
	}
	return result
}

// Sub performs element-wise subtraction and records the operation.
func (b *Backend[B]) Sub(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sub(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSubOp(x, y, result))
	}
	return result
}

// Mul performs element-wise multiplication and records the operation.
func (b *Backend[B]) Mul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Mul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulOp(x, y, result))
	}
	return result
}

// Div performs element-wise division and records the operation.
func (b *Backend[B]) Div(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Div(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewDivOp(x, y, result))
	}
	return result
}

// MatMul performs matrix multiplication and records the operation.
func (b *Backend[B]) MatMul(x, y *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.MatMul(x, y)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMatMulOp(x, y, result))
	}
	return result
}

// AddScalar adds a scalar and records the operation.
func (b *Backend[B]) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	result := b.inner.AddScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewAddScalarOp(x, result))
	}
	return result
}

// MulScalar multiplies by a scalar and records the operation.
func (b *Backend[B]) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	result := b.inner.MulScalar(x, s)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMulScalarOp(x, result, s))
	}
	return result
}

// Reshape changes the shape and records the operation.
func (b *Backend[B]) Reshape(x *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	result := b.inner.Reshape(x, newShape)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReshapeOp(x, result))
	}
	return result
}

// Transpose permutes axes and records the operation.
func (b *Backend[B]) Transpose(x *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	result := b.inner.Transpose(x, axes...)
	if b.tape.IsRecording() {
		recorded := make([]int, len(axes))
		copy(recorded, axes)
		b.tape.Record(ops.NewTransposeOp(x, result, recorded))
	}
	return result
}

// Tanh applies tanh and records the operation.
func (b *Backend[B]) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Tanh(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewTanhOp(x, result))
	}
	return result
}

// Sigmoid applies the logistic function and records the operation.
func (b *Backend[B]) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Sigmoid(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSigmoidOp(x, result))
	}
	return result
}

// ReLU applies max(0, x) and records the operation.
func (b *Backend[B]) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.ReLU(x)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewReLUOp(x, result))
	}
	return result
}

// Softmax normalizes along dim and records the operation.
func (b *Backend[B]) Softmax(x *tensor.RawTensor, dim int, eps float32) *tensor.RawTensor {
	result := b.inner.Softmax(x, dim, eps)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSoftmaxOp(x, result, dim))
	}
	return result
}

// SumDim sums along a dimension and records the operation.
func (b *Backend[B]) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	result := b.inner.SumDim(x, dim, keepDim)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewSumDimOp(x, result, dim, keepDim))
	}
	return result
}

// Cat concatenates tensors and records the operation.
func (b *Backend[B]) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	result := b.inner.Cat(tensors, dim)
	if b.tape.IsRecording() {
		sizes := make([]int, len(tensors))
		for i, t := range tensors {
			sizes[i] = t.Shape()[dim]
		}
		b.tape.Record(ops.NewCatOp(tensors, result, dim, sizes))
	}
	return result
}

// Narrow slices along a dimension and records the operation.
func (b *Backend[B]) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	result := b.inner.Narrow(x, dim, start, length)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewNarrowOp(x, result, dim, start, length))
	}
	return result
}

// Embedding looks up table rows and records the operation.
func (b *Backend[B]) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	result := b.inner.Embedding(weight, indices)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewEmbeddingOp(weight, indices, result))
	}
	return result
}

// ReverseSequence reverses per-example prefixes and records the operation.
func (b *Backend[B]) ReverseSequence(x *tensor.RawTensor, lengths []int) *tensor.RawTensor {
	result := b.inner.ReverseSequence(x, lengths)
	if b.tape.IsRecording() {
		recorded := make([]int, len(lengths))
		copy(recorded, lengths)
		b.tape.Record(ops.NewReverseSequenceOp(x, result, recorded))
	}
	return result
}

// MaskedCrossEntropy computes masked sequence cross-entropy loss and records
// the fused operation. Fusing softmax with the loss keeps the backward pass
// numerically stable and avoids materializing the log-probabilities.
//
// logits is (positions, classes), labels and mask are (positions,). The
// scalar result is the masked token loss sum divided by normalizer.
func (b *Backend[B]) MaskedCrossEntropy(logits, labels, mask *tensor.RawTensor, normalizer float32) *tensor.RawTensor {
	result := tensor.MustNewRaw(tensor.Shape{}, tensor.Float32, b.Device())
	result.AsFloat32()[0] = ops.MaskedCrossEntropyForward(logits, labels, mask, normalizer)
	if b.tape.IsRecording() {
		b.tape.Record(ops.NewMaskedCrossEntropyOp(logits, labels, mask, result, normalizer))
	}
	return result
}
