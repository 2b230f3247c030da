package optim

import (
	"math"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// GlobalNorm returns the L2 norm of all tensors taken together:
// sqrt(Σ_t Σ_i t_i²). Nil entries are skipped.
func GlobalNorm(tensors []*tensor.RawTensor) float32 {
	sum := float64(0)
	for _, t := range tensors {
		if t == nil {
			continue
		}
		for _, v := range t.AsFloat32() {
			sum += float64(v) * float64(v)
		}
	}
	return float32(math.Sqrt(sum))
}

// ClipByGlobalNorm scales all tensors in place so their global norm does not
// exceed maxNorm. Tensors are untouched when the norm is already within the
// bound. Returns the global norm after clipping, which is what training
// reports as the gradient norm.
func ClipByGlobalNorm(tensors []*tensor.RawTensor, maxNorm float32) float32 {
	norm := GlobalNorm(tensors)
	if norm <= maxNorm || norm == 0 {
		return norm
	}

	scale := maxNorm / norm
	for _, t := range tensors {
		if t == nil {
			continue
		}
		data := t.AsFloat32()
		for i := range data {
			data[i] *= scale
		}
	}
	return maxNorm
}
