// Package cpu implements the pure-Go CPU backend for the model graph.
package cpu

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Backend implements tensor.Backend on the CPU.
//
// Every operation allocates a fresh result tensor; inputs are never mutated.
// That property is what allows the autodiff decorator to keep references to
// forward-pass tensors and reuse them during the backward walk.
type Backend struct {
	device tensor.Device
}

// New creates a new CPU backend.
func New() *Backend {
	return &Backend{device: tensor.CPU}
}

// Name returns the backend name.
func (c *Backend) Name() string {
	return "CPU"
}

// Device returns the compute device.
func (c *Backend) Device() tensor.Device {
	return c.device
}

// Add performs element-wise addition with broadcasting.
func (c *Backend) Add(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub performs element-wise subtraction with broadcasting.
func (c *Backend) Sub(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul performs element-wise multiplication with broadcasting.
func (c *Backend) Mul(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Div performs element-wise division with broadcasting.
func (c *Backend) Div(a, b *tensor.RawTensor) *tensor.RawTensor {
	return c.binary("div", a, b, func(x, y float32) float32 { return x / y })
}

// binary applies op element-wise over broadcast inputs.
func (c *Backend) binary(name string, a, b *tensor.RawTensor, op func(x, y float32) float32) *tensor.RawTensor {
	outShape, needsBroadcast, err := tensor.BroadcastShapes(a.Shape(), b.Shape())
	if err != nil {
		panic(fmt.Sprintf("%s: %v", name, err))
	}

	result := tensor.MustNewRaw(outShape, tensor.Float32, c.device)
	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()

	if !needsBroadcast {
		for i := range out {
			out[i] = op(aData[i], bData[i])
		}
		return result
	}

	aIdx := newBroadcastIndexer(a.Shape(), outShape)
	bIdx := newBroadcastIndexer(b.Shape(), outShape)
	for i := range out {
		out[i] = op(aData[aIdx.at(i)], bData[bIdx.at(i)])
	}
	return result
}

// AddScalar adds s to every element.
func (c *Backend) AddScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return c.unary(x, func(v float32) float32 { return v + s })
}

// MulScalar multiplies every element by s.
func (c *Backend) MulScalar(x *tensor.RawTensor, s float32) *tensor.RawTensor {
	return c.unary(x, func(v float32) float32 { return v * s })
}

func (c *Backend) unary(x *tensor.RawTensor, op func(v float32) float32) *tensor.RawTensor {
	result := tensor.MustNewRaw(x.Shape(), tensor.Float32, c.device)
	xData, out := x.AsFloat32(), result.AsFloat32()
	for i := range out {
		out[i] = op(xData[i])
	}
	return result
}

// Reshape returns a tensor with the same data under a new shape.
func (c *Backend) Reshape(t *tensor.RawTensor, newShape tensor.Shape) *tensor.RawTensor {
	if err := newShape.Validate(); err != nil {
		panic(fmt.Sprintf("reshape: invalid shape: %v", err))
	}
	if t.NumElements() != newShape.NumElements() {
		panic(fmt.Sprintf("reshape: incompatible shapes: %v -> %v", t.Shape(), newShape))
	}

	result := tensor.MustNewRaw(newShape, t.DType(), c.device)
	copy(result.Data(), t.Data())
	return result
}

// Transpose permutes the tensor's dimensions. With no axes, all dimensions
// are reversed.
func (c *Backend) Transpose(t *tensor.RawTensor, axes ...int) *tensor.RawTensor {
	shape := t.Shape()
	ndim := len(shape)

	if len(axes) == 0 {
		axes = make([]int, ndim)
		for i := range axes {
			axes[i] = ndim - 1 - i
		}
	}
	if len(axes) != ndim {
		panic(fmt.Sprintf("transpose: axes length %d != ndim %d", len(axes), ndim))
	}

	seen := make([]bool, ndim)
	newShape := make(tensor.Shape, ndim)
	for i, ax := range axes {
		if ax < 0 || ax >= ndim || seen[ax] {
			panic(fmt.Sprintf("transpose: invalid axes %v for %dD tensor", axes, ndim))
		}
		seen[ax] = true
		newShape[i] = shape[ax]
	}

	result := tensor.MustNewRaw(newShape, tensor.Float32, c.device)
	src, dst := t.AsFloat32(), result.AsFloat32()

	srcStrides := shape.ComputeStrides()
	dstStrides := newShape.ComputeStrides()
	for i := range dst {
		srcIdx := 0
		rem := i
		for d := 0; d < ndim; d++ {
			coord := rem / dstStrides[d]
			rem %= dstStrides[d]
			srcIdx += coord * srcStrides[axes[d]]
		}
		dst[i] = src[srcIdx]
	}
	return result
}

// broadcastIndexer maps flat output indices back to flat source indices for a
// source shape broadcast up to an output shape.
type broadcastIndexer struct {
	outStrides []int
	srcStrides []int // 0 for broadcast dimensions
}

func newBroadcastIndexer(srcShape, outShape tensor.Shape) *broadcastIndexer {
	outStrides := outShape.ComputeStrides()
	realStrides := srcShape.ComputeStrides()
	srcStrides := make([]int, len(outShape))

	offset := len(outShape) - len(srcShape)
	for d := range outShape {
		srcDim := d - offset
		if srcDim >= 0 && srcShape[srcDim] != 1 {
			srcStrides[d] = realStrides[srcDim]
		}
	}
	return &broadcastIndexer{outStrides: outStrides, srcStrides: srcStrides}
}

func (bi *broadcastIndexer) at(flat int) int {
	srcIdx := 0
	for d := range bi.outStrides {
		coord := flat / bi.outStrides[d]
		flat %= bi.outStrides[d]
		srcIdx += coord * bi.srcStrides[d]
	}
	return srcIdx
}
