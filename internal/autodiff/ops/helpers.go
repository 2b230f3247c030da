package ops

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// reduceBroadcast reduces a gradient tensor to match the target shape,
// undoing any broadcasting applied in the forward pass.
//
// Forward: a[time, batch, 1] * b[time, batch, size] -> c[time, batch, size];
// the gradient of a is grad_c summed along the broadcast feature axis.
func reduceBroadcast(grad *tensor.RawTensor, targetShape tensor.Shape, backend tensor.Backend) *tensor.RawTensor {
	if grad.Shape().Equal(targetShape) {
		return grad
	}

	result := grad

	// Leading dimensions absent from the target are summed away.
	for len(result.Shape()) > len(targetShape) {
		result = backend.SumDim(result, 0, false)
	}

	// Dimensions the target holds at size 1 are summed with keepDim.
	shape := result.Shape()
	for d := 0; d < len(targetShape); d++ {
		if targetShape[d] == 1 && shape[d] > 1 {
			result = backend.SumDim(result, d, true)
			shape = result.Shape()
		}
	}

	if !result.Shape().Equal(targetShape) {
		result = backend.Reshape(result, targetShape)
	}
	return result
}

// zerosLike allocates a zero tensor with the shape and dtype of t.
func zerosLike(t *tensor.RawTensor) *tensor.RawTensor {
	return tensor.MustNewRaw(t.Shape(), t.DType(), t.Device())
}

// groupLayout decomposes a shape around dim into (outer, n, inner) so that
// group elements along dim sit at base + k*inner for k in [0, n).
func groupLayout(shape tensor.Shape, dim int) (outer, n, inner int) {
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("invalid dimension %d for shape %v", dim, shape))
	}

	outer, inner = 1, 1
	for d := 0; d < dim; d++ {
		outer *= shape[d]
	}
	for d := dim + 1; d < len(shape); d++ {
		inner *= shape[d]
	}
	return outer, shape[dim], inner
}
