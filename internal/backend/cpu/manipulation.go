package cpu

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Cat concatenates tensors along a dimension. All tensors must share a shape
// except along dim.
func (c *Backend) Cat(tensors []*tensor.RawTensor, dim int) *tensor.RawTensor {
	if len(tensors) == 0 {
		panic("cat: at least one tensor required")
	}

	first := tensors[0].Shape()
	ndim := len(first)
	if dim < 0 {
		dim += ndim
	}
	if dim < 0 || dim >= ndim {
		panic(fmt.Sprintf("cat: invalid dimension %d for shape %v", dim, first))
	}

	outShape := first.Clone()
	outShape[dim] = 0
	for _, t := range tensors {
		shape := t.Shape()
		if len(shape) != ndim {
			panic(fmt.Sprintf("cat: rank mismatch: %v vs %v", first, shape))
		}
		for d := 0; d < ndim; d++ {
			if d != dim && shape[d] != first[d] {
				panic(fmt.Sprintf("cat: shape mismatch along dim %d: %v vs %v", d, first, shape))
			}
		}
		outShape[dim] += shape[dim]
	}

	result := tensor.MustNewRaw(outShape, tensor.Float32, c.device)
	dst := result.AsFloat32()

	outer, _, inner := dimSlices(outShape, dim)
	outStride := outShape[dim] * inner

	offset := 0
	for _, t := range tensors {
		src := t.AsFloat32()
		n := t.Shape()[dim]
		chunk := n * inner
		for o := 0; o < outer; o++ {
			copy(dst[o*outStride+offset*inner:o*outStride+offset*inner+chunk], src[o*chunk:(o+1)*chunk])
		}
		offset += n
	}
	return result
}

// Narrow slices length elements starting at start along dim.
func (c *Backend) Narrow(x *tensor.RawTensor, dim, start, length int) *tensor.RawTensor {
	shape := x.Shape()
	if dim < 0 {
		dim += len(shape)
	}
	if dim < 0 || dim >= len(shape) {
		panic(fmt.Sprintf("narrow: invalid dimension %d for shape %v", dim, shape))
	}
	if start < 0 || length <= 0 || start+length > shape[dim] {
		panic(fmt.Sprintf("narrow: range [%d, %d) out of bounds for dimension of size %d", start, start+length, shape[dim]))
	}

	outShape := shape.Clone()
	outShape[dim] = length
	result := tensor.MustNewRaw(outShape, tensor.Float32, c.device)

	src, dst := x.AsFloat32(), result.AsFloat32()
	outer, n, inner := dimSlices(shape, dim)
	for o := 0; o < outer; o++ {
		from := o*n*inner + start*inner
		copy(dst[o*length*inner:(o+1)*length*inner], src[from:from+length*inner])
	}
	return result
}

// ReverseSequence reverses x [time, batch, ...] along the time axis per batch
// column. Only the first lengths[b] positions of column b participate in the
// reversal; later positions are copied through unchanged.
func (c *Backend) ReverseSequence(x *tensor.RawTensor, lengths []int) *tensor.RawTensor {
	shape := x.Shape()
	if len(shape) < 2 {
		panic(fmt.Sprintf("reverse sequence: expected at least 2D [time, batch, ...], got %v", shape))
	}
	timeSteps, batch := shape[0], shape[1]
	if len(lengths) != batch {
		panic(fmt.Sprintf("reverse sequence: %d lengths for batch of %d", len(lengths), batch))
	}

	features := 1
	for _, d := range shape[2:] {
		features *= d
	}

	result := tensor.MustNewRaw(shape, tensor.Float32, c.device)
	src, dst := x.AsFloat32(), result.AsFloat32()

	rowStride := batch * features
	for b, length := range lengths {
		if length < 0 || length > timeSteps {
			panic(fmt.Sprintf("reverse sequence: length %d out of range [0, %d] for column %d", length, timeSteps, b))
		}
		for t := 0; t < timeSteps; t++ {
			srcT := t
			if t < length {
				srcT = length - 1 - t
			}
			from := srcT*rowStride + b*features
			to := t*rowStride + b*features
			copy(dst[to:to+features], src[from:from+features])
		}
	}
	return result
}

// Embedding looks up rows of weight [vocab, size] by int32 indices, producing
// [indices..., size].
func (c *Backend) Embedding(weight, indices *tensor.RawTensor) *tensor.RawTensor {
	wShape := weight.Shape()
	if len(wShape) != 2 {
		panic(fmt.Sprintf("embedding: weight must be 2D [vocab, size], got %v", wShape))
	}
	vocab, size := wShape[0], wShape[1]

	outShape := append(indices.Shape().Clone(), size)
	result := tensor.MustNewRaw(outShape, tensor.Float32, c.device)

	wData, dst := weight.AsFloat32(), result.AsFloat32()
	idx := indices.AsInt32()
	for i, id := range idx {
		if id < 0 || int(id) >= vocab {
			panic(fmt.Sprintf("embedding: index %d out of bounds for vocabulary of %d", id, vocab))
		}
		copy(dst[i*size:(i+1)*size], wData[int(id)*size:(int(id)+1)*size])
	}
	return result
}
