package nn

import (
	"math/rand"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Dropout randomly zeroes elements with probability rate during training and
// scales the survivors by 1/(1-rate), so activations keep their expected
// magnitude and evaluation needs no rescaling.
//
// The mask is generated on the host as a constant tensor and applied with an
// ordinary multiply, so the gradient tape sees a plain Mul and routes
// gradients only through the surviving elements.
type Dropout[B tensor.Backend] struct {
	rate     float32
	training bool
	backend  B
}

// NewDropout creates a dropout layer. rate is the probability of zeroing an
// element; rate 0 makes the layer a no-op.
func NewDropout[B tensor.Backend](rate float32, backend B) *Dropout[B] {
	if rate < 0 || rate >= 1 {
		panic("dropout rate must be in [0, 1)")
	}
	return &Dropout[B]{rate: rate, backend: backend}
}

// SetTraining toggles mask generation. Evaluation passes the input through.
func (d *Dropout[B]) SetTraining(training bool) {
	d.training = training
}

// Forward applies the dropout mask, or returns the input unchanged when the
// layer is inactive.
func (d *Dropout[B]) Forward(input *tensor.Tensor[float32, B]) *tensor.Tensor[float32, B] {
	if !d.training || d.rate == 0 {
		return input
	}

	keep := 1 - d.rate
	scale := 1 / keep

	mask := tensor.MustNewRaw(input.Shape(), tensor.Float32, d.backend.Device())
	data := mask.AsFloat32()
	for i := range data {
		//nolint:gosec // math/rand is fine for dropout masks
		if rand.Float32() < keep {
			data[i] = scale
		}
	}

	return input.Mul(tensor.New[float32, B](mask, d.backend))
}

// Parameters returns an empty slice; dropout has no trainable state.
func (d *Dropout[B]) Parameters() []*Parameter[B] {
	return nil
}
