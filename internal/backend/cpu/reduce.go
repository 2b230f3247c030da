package cpu

import (
	"fmt"
	"math"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// dimSlices decomposes a shape around dim into (outer, n, inner) such that the
// elements of one reduction group along dim sit at
// base + k*inner for k in [0, n), with base = o*n*inner + i for each
// (o, i) in outer x inner.
func dimSlices(shape tensor.Shape, dim int) (outer, n, inner int) {
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

// reducedShape drops or keeps (as size 1) the reduced dimension.
func reducedShape(shape tensor.Shape, dim int, keepDim bool) tensor.Shape {
	if dim < 0 {
		dim += len(shape)
	}
	out := make(tensor.Shape, 0, len(shape))
	for d, size := range shape {
		switch {
		case d != dim:
			out = append(out, size)
		case keepDim:
			out = append(out, 1)
		}
	}
	if len(out) == 0 {
		out = tensor.Shape{1}
	}
	return out
}

// SumDim sums along a dimension.
func (c *Backend) SumDim(x *tensor.RawTensor, dim int, keepDim bool) *tensor.RawTensor {
	shape := x.Shape()
	outer, n, inner := dimSlices(shape, dim)

	result := tensor.MustNewRaw(reducedShape(shape, dim, keepDim), tensor.Float32, c.device)
	src, dst := x.AsFloat32(), result.AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i
			sum := float32(0)
			for k := 0; k < n; k++ {
				sum += src[base+k*inner]
			}
			dst[o*inner+i] = sum
		}
	}
	return result
}

// Softmax normalizes along dim. The per-group maximum is subtracted before
// exponentiation and eps is added to the normalizer, matching
// exp(x - max) / (eps + sum(exp(x - max))).
func (c *Backend) Softmax(x *tensor.RawTensor, dim int, eps float32) *tensor.RawTensor {
	shape := x.Shape()
	outer, n, inner := dimSlices(shape, dim)

	result := tensor.MustNewRaw(shape, tensor.Float32, c.device)
	src, dst := x.AsFloat32(), result.AsFloat32()

	for o := 0; o < outer; o++ {
		for i := 0; i < inner; i++ {
			base := o*n*inner + i

			maxVal := src[base]
			for k := 1; k < n; k++ {
				if v := src[base+k*inner]; v > maxVal {
					maxVal = v
				}
			}

			sum := eps
			for k := 0; k < n; k++ {
				idx := base + k*inner
				e := float32(math.Exp(float64(src[idx] - maxVal)))
				dst[idx] = e
				sum += e
			}

			for k := 0; k < n; k++ {
				dst[base+k*inner] /= sum
			}
		}
	}
	return result
}
