package tensor

// Backend defines the interface a compute backend must implement to run the
// model graph. The op set is the one sequence models need: element-wise
// arithmetic with broadcasting, 2D matrix multiplication, shape movement,
// activations, reductions, embedding lookup, and the two sequence primitives
// (time-step narrowing and per-example reversal).
//
// Implementations:
//   - cpu.Backend: pure Go reference implementation
//   - autodiff.Backend: decorator that records every op on a gradient tape
type Backend interface {
	// Element-wise binary operations with NumPy-style broadcasting.
	Add(a, b *RawTensor) *RawTensor
	Sub(a, b *RawTensor) *RawTensor
	Mul(a, b *RawTensor) *RawTensor
	Div(a, b *RawTensor) *RawTensor

	// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
	MatMul(a, b *RawTensor) *RawTensor

	// Element-wise operations with a scalar.
	AddScalar(x *RawTensor, s float32) *RawTensor
	MulScalar(x *RawTensor, s float32) *RawTensor

	// Shape operations.
	Reshape(t *RawTensor, newShape Shape) *RawTensor
	Transpose(t *RawTensor, axes ...int) *RawTensor

	// Activations.
	Tanh(x *RawTensor) *RawTensor
	Sigmoid(x *RawTensor) *RawTensor
	ReLU(x *RawTensor) *RawTensor

	// Softmax normalizes along dim with max-subtraction for stability and an
	// epsilon added to the normalizer so an all -inf row cannot divide by
	// zero. Pass eps = 0 for an exact softmax.
	Softmax(x *RawTensor, dim int, eps float32) *RawTensor

	// SumDim sums along a dimension.
	SumDim(x *RawTensor, dim int, keepDim bool) *RawTensor

	// Cat concatenates tensors along a dimension.
	Cat(tensors []*RawTensor, dim int) *RawTensor

	// Narrow slices length elements starting at start along dim.
	Narrow(x *RawTensor, dim, start, length int) *RawTensor

	// Embedding looks up rows of weight [vocab, size] by int32 indices of any
	// shape, producing [indices..., size].
	Embedding(weight, indices *RawTensor) *RawTensor

	// ReverseSequence reverses x [time, batch, ...] along the time axis
	// independently per batch column, touching only the first lengths[b]
	// positions of column b; positions past the valid length are copied
	// through unchanged.
	ReverseSequence(x *RawTensor, lengths []int) *RawTensor

	// Metadata.
	Name() string
	Device() Device
}
