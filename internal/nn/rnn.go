package nn

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// DynamicRNN drives a Cell over a time-major input sequence.
//
// inputs is (time, batch, features). lengths, when non-nil, holds the valid
// length of each batch column: at step t a column with t >= lengths[b] emits
// a zero output and carries its previous state through unchanged, matching
// the usual dynamic unrolling contract. A nil lengths runs every column for
// the full time.
//
// Masking is expressed with constant (batch, 1) tensors and ordinary
// arithmetic, out = out_c⊙m and h = h_c⊙m + h⊙(1-m), so the recorded graph
// stays differentiable and fully masked steps contribute no gradient.
//
// Returns the stacked outputs (time, batch, state) and the final state
// (batch, state).
func DynamicRNN[B tensor.Backend](cell Cell[B], inputs *tensor.Tensor[float32, B], lengths []int, backend B) (*tensor.Tensor[float32, B], *tensor.Tensor[float32, B]) {
	shape := inputs.Shape()
	if len(shape) != 3 {
		panic(fmt.Sprintf("DynamicRNN: expected 3D input (time, batch, features), got %v", shape))
	}
	time, batch, features := shape[0], shape[1], shape[2]
	size := cell.StateSize()

	if lengths != nil && len(lengths) != batch {
		panic(fmt.Sprintf("DynamicRNN: %d lengths for batch of %d", len(lengths), batch))
	}

	h := Zeros(tensor.Shape{batch, size}, backend)
	outputs := make([]*tensor.Tensor[float32, B], 0, time)

	for t := 0; t < time; t++ {
		x := inputs.Narrow(0, t, 1).Reshape(batch, features)
		outC, hC := cell.Step(x, h)

		if lengths != nil {
			m := stepMask(t, lengths, backend)
			keep := m.MulScalar(-1).AddScalar(1)
			outC = outC.Mul(m)
			hC = hC.Mul(m).Add(h.Mul(keep))
		}

		h = hC
		outputs = append(outputs, outC.Reshape(1, batch, size))
	}

	return tensor.Cat(outputs, 0), h
}

// stepMask builds the constant (batch, 1) activity mask for step t.
func stepMask[B tensor.Backend](t int, lengths []int, backend B) *tensor.Tensor[float32, B] {
	raw := tensor.MustNewRaw(tensor.Shape{len(lengths), 1}, tensor.Float32, backend.Device())
	data := raw.AsFloat32()
	for b, l := range lengths {
		if t < l {
			data[b] = 1
		}
	}
	return tensor.New[float32, B](raw, backend)
}
