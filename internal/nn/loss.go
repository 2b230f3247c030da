package nn

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/autodiff/ops"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// SequenceLoss projects decoder outputs to vocabulary logits and computes
// masked cross-entropy against the shifted target sequence.
//
// The decoder consumed target tokens t_0..t_{T-1} (t_0 being the start
// token), so position i must predict t_{i+1}: labels and mask are the target
// tensors shifted up one step with a zero row appended. Masked positions
// contribute nothing to the loss or its gradient. The summed token loss is
// divided by the batch size, making the loss an average per-sequence total
// rather than a per-token mean.
type SequenceLoss[B tensor.Backend] struct {
	size      int
	vocabSize int
	project   *Linear[B] // size -> vocab logits
	backend   B
}

// NewSequenceLoss creates the loss head for the given hidden size and
// vocabulary.
func NewSequenceLoss[B tensor.Backend](size, vocabSize int, backend B) *SequenceLoss[B] {
	return &SequenceLoss[B]{
		size:      size,
		vocabSize: vocabSize,
		project:   NewLinearBias(size, vocabSize, 1.0, backend),
		backend:   backend,
	}
}

// Forward computes the loss and the per-position token distributions.
//
// decoderOutput is (time, batch, size); targets and mask are the (time,
// batch) tensors the decoder consumed. Returns the scalar loss and the
// softmax outputs (time, batch, vocab).
func (s *SequenceLoss[B]) Forward(
	decoderOutput *tensor.Tensor[float32, B],
	targets *tensor.Tensor[int32, B],
	mask *tensor.Tensor[int32, B],
) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	shape := decoderOutput.Shape()
	if len(shape) != 3 || shape[2] != s.size {
		panic(fmt.Sprintf("SequenceLoss.Forward: expected (time, batch, %d), got %v", s.size, shape))
	}
	time, batch := shape[0], shape[1]

	logits2d := s.project.Forward(decoderOutput.Reshape(time*batch, s.size))
	outputs := logits2d.Softmax(1, 0).Reshape(time, batch, s.vocabSize)

	labels, weights := shiftTargets(targets, mask, s.backend)

	loss := s.maskedCrossEntropy(logits2d, labels, weights, float32(batch))
	return loss, outputs
}

// maskedCrossEntropy prefers the fused backend op, which records on the
// gradient tape; plain backends fall back to a host computation.
func (s *SequenceLoss[B]) maskedCrossEntropy(logits2d *tensor.Tensor[float32, B], labels, weights *tensor.RawTensor, normalizer float32) *tensor.Tensor[float32, B] {
	type maskedCrossEntropyBackend interface {
		MaskedCrossEntropy(logits, labels, mask *tensor.RawTensor, normalizer float32) *tensor.RawTensor
	}

	if adBackend, ok := any(s.backend).(maskedCrossEntropyBackend); ok {
		raw := adBackend.MaskedCrossEntropy(logits2d.Raw(), labels, weights, normalizer)
		return tensor.New[float32, B](raw, s.backend)
	}

	raw := tensor.MustNewRaw(tensor.Shape{}, tensor.Float32, s.backend.Device())
	raw.AsFloat32()[0] = ops.MaskedCrossEntropyForward(logits2d.Raw(), labels, weights, normalizer)
	return tensor.New[float32, B](raw, s.backend)
}

// shiftTargets drops the first timestep of the targets and mask, appends a
// zero row, and flattens both to (time*batch,). The appended row is always
// masked out, so its label value never matters.
func shiftTargets[B tensor.Backend](targets, mask *tensor.Tensor[int32, B], backend B) (labels, weights *tensor.RawTensor) {
	shape := targets.Shape()
	time, batch := shape[0], shape[1]

	srcTok := targets.Data()
	srcMask := mask.Data()

	labels = tensor.MustNewRaw(tensor.Shape{time * batch}, tensor.Int32, backend.Device())
	weights = tensor.MustNewRaw(tensor.Shape{time * batch}, tensor.Float32, backend.Device())

	lab := labels.AsInt32()
	w := weights.AsFloat32()
	for t := 0; t < time-1; t++ {
		for b := 0; b < batch; b++ {
			lab[t*batch+b] = srcTok[(t+1)*batch+b]
			w[t*batch+b] = float32(srcMask[(t+1)*batch+b])
		}
	}
	return labels, weights
}

// Parameters returns the projection parameters.
func (s *SequenceLoss[B]) Parameters() []*Parameter[B] {
	return s.project.Parameters()
}
