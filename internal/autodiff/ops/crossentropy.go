package ops

import (
	"math"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// MaskedCrossEntropyOp represents masked sequence cross-entropy loss.
//
// Forward:
//
//	Loss = Σ_n (-log_softmax(logits[n])[labels[n]] * mask[n]) / normalizer
//
// Where n runs over all flattened (time, batch) positions, mask zeroes the
// padded positions, and normalizer is the batch size, so the loss is the
// average per-sequence total rather than the average per token.
//
// log_softmax uses the log-sum-exp trick for numerical stability:
//
//	log_softmax(z)_i = z_i - (max(z) + log(Σ_j exp(z_j - max(z))))
//
// Backward:
//
//	∂L/∂logits[n,i] = (softmax(logits[n])[i] - y_one_hot[n,i]) * mask[n] / normalizer
//
// Masked positions get exactly zero gradient.
type MaskedCrossEntropyOp struct {
	logits     *tensor.RawTensor // [positions, num_classes]
	labels     *tensor.RawTensor // [positions], int32 class indices
	mask       *tensor.RawTensor // [positions], float32 1/0 weights
	output     *tensor.RawTensor // scalar loss
	normalizer float32
}

// NewMaskedCrossEntropyOp creates a new masked cross-entropy operation.
func NewMaskedCrossEntropyOp(logits, labels, mask, output *tensor.RawTensor, normalizer float32) *MaskedCrossEntropyOp {
	return &MaskedCrossEntropyOp{
		logits:     logits,
		labels:     labels,
		mask:       mask,
		output:     output,
		normalizer: normalizer,
	}
}

// Inputs returns the differentiable inputs [logits]. Labels and mask carry
// no gradient.
func (op *MaskedCrossEntropyOp) Inputs() []*tensor.RawTensor {
	return []*tensor.RawTensor{op.logits}
}

// Output returns the scalar loss tensor.
func (op *MaskedCrossEntropyOp) Output() *tensor.RawTensor {
	return op.output
}

// Backward computes the gradient with respect to logits.
func (op *MaskedCrossEntropyOp) Backward(outputGrad *tensor.RawTensor, _ tensor.Backend) []*tensor.RawTensor {
	shape := op.logits.Shape()
	positions := shape[0]
	numClasses := shape[1]

	grad := zerosLike(op.logits)

	logits := op.logits.AsFloat32()
	labels := op.labels.AsInt32()
	mask := op.mask.AsFloat32()
	out := grad.AsFloat32()

	scale := outputGrad.AsFloat32()[0] / op.normalizer

	for n := 0; n < positions; n++ {
		w := mask[n]
		if w == 0 {
			continue
		}
		row := logits[n*numClasses : (n+1)*numClasses]
		dst := out[n*numClasses : (n+1)*numClasses]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		sumExp := float32(0)
		for i, v := range row {
			dst[i] = float32(math.Exp(float64(v - maxVal)))
			sumExp += dst[i]
		}

		factor := w * scale
		for i := range dst {
			dst[i] = dst[i] / sumExp * factor
		}
		dst[labels[n]] -= factor
	}

	return []*tensor.RawTensor{grad}
}

// MaskedCrossEntropyForward computes the forward loss value. It is shared by
// the autodiff backend, which records the op, and by evaluation paths that
// only need the number.
func MaskedCrossEntropyForward(logits, labels, mask *tensor.RawTensor, normalizer float32) float32 {
	shape := logits.Shape()
	positions := shape[0]
	numClasses := shape[1]

	logitsData := logits.AsFloat32()
	labelsData := labels.AsInt32()
	maskData := mask.AsFloat32()

	total := float64(0)
	for n := 0; n < positions; n++ {
		w := maskData[n]
		if w == 0 {
			continue
		}
		row := logitsData[n*numClasses : (n+1)*numClasses]

		maxVal := row[0]
		for _, v := range row[1:] {
			if v > maxVal {
				maxVal = v
			}
		}
		sumExp := float64(0)
		for _, v := range row {
			sumExp += math.Exp(float64(v - maxVal))
		}
		logSumExp := float64(maxVal) + math.Log(sumExp)

		total += float64(w) * (logSumExp - float64(row[labelsData[n]]))
	}

	return float32(total) / normalizer
}
