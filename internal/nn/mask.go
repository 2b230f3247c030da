package nn

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Masks are time-major (time, batch) int32 tensors holding 1 for real tokens
// and 0 for padding. Valid tokens form a prefix of each column, so a column
// sum recovers the sequence length.

// Lengths returns the per-column valid length of a (time, batch) mask.
func Lengths[B tensor.Backend](mask *tensor.Tensor[int32, B]) []int {
	shape := mask.Shape()
	if len(shape) != 2 {
		panic(fmt.Sprintf("Lengths: expected 2D mask (time, batch), got %v", shape))
	}
	time, batch := shape[0], shape[1]

	data := mask.Data()
	lengths := make([]int, batch)
	for t := 0; t < time; t++ {
		for b := 0; b < batch; b++ {
			lengths[b] += int(data[t*batch+b])
		}
	}
	return lengths
}

// DownscaleMask halves the time dimension of a (time, batch) mask by OR-ing
// adjacent timestep pairs: the merged position is valid if either source
// position was. Time must be even.
func DownscaleMask[B tensor.Backend](mask *tensor.Tensor[int32, B], backend B) *tensor.Tensor[int32, B] {
	shape := mask.Shape()
	time, batch := shape[0], shape[1]
	if time%2 != 0 {
		panic(fmt.Sprintf("DownscaleMask: odd time dimension %d", time))
	}

	src := mask.Data()
	out := tensor.MustNewRaw(tensor.Shape{time / 2, batch}, tensor.Int32, backend.Device())
	dst := out.AsInt32()
	for t := 0; t < time/2; t++ {
		for b := 0; b < batch; b++ {
			if src[2*t*batch+b] != 0 || src[(2*t+1)*batch+b] != 0 {
				dst[t*batch+b] = 1
			}
		}
	}
	return tensor.New[int32, B](out, backend)
}
