package autodiff

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// BackwardCapable is satisfied by backends that carry a gradient tape.
// Backend implements it; code that only sees tensor.Backend can assert to
// this interface to reach the tape.
type BackwardCapable interface {
	tensor.Backend
	GetTape() *GradientTape
}

// GetTape returns the gradient tape.
func (b *Backend[B]) GetTape() *GradientTape {
	return b.tape
}

// Backward computes gradients of t with respect to everything on the tape.
//
// The seed gradient is a tensor of ones shaped like t; for the usual scalar
// loss that is the single value 1. Returns a map from RawTensor to its
// gradient; look up parameters by their Raw() pointer.
func Backward[T tensor.DType, B BackwardCapable](t *tensor.Tensor[T, B], backend B) map[*tensor.RawTensor]*tensor.RawTensor {
	tape := backend.GetTape()
	if tape.NumOps() == 0 {
		panic("backward: no operations recorded (did you forget Tape().StartRecording()?)")
	}

	if t.DType() != tensor.Float32 {
		panic(fmt.Sprintf("backward: unsupported dtype %s", t.DType()))
	}

	seed := tensor.MustNewRaw(t.Shape(), t.DType(), backend.Device())
	data := seed.AsFloat32()
	for i := range data {
		data[i] = 1.0
	}

	return tape.Backward(t.Raw(), seed, backend)
}
