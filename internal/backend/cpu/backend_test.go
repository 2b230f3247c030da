package cpu

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/tensor"
)

func rawFromSlice(t *testing.T, data []float32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Float32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsFloat32(), data)
	return raw
}

func TestBackend_AddBroadcast(t *testing.T) {
	backend := New()

	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromSlice(t, []float32{10, 20, 30}, tensor.Shape{3})

	out := backend.Add(a, b)
	assert.Equal(t, tensor.Shape{2, 3}, out.Shape())
	assert.Equal(t, []float32{11, 22, 33, 14, 25, 36}, out.AsFloat32())
}

func TestBackend_MulBroadcastKeepDim(t *testing.T) {
	backend := New()

	// (2, 2, 2) * (2, 2, 1): the attention-weighting pattern.
	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, tensor.Shape{2, 2, 2})
	w := rawFromSlice(t, []float32{2, 3, 4, 5}, tensor.Shape{2, 2, 1})

	out := backend.Mul(x, w)
	assert.Equal(t, []float32{2, 4, 9, 12, 20, 24, 35, 40}, out.AsFloat32())
}

func TestBackend_MatMul(t *testing.T) {
	backend := New()

	a := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})
	b := rawFromSlice(t, []float32{7, 8, 9, 10, 11, 12}, tensor.Shape{3, 2})

	out := backend.MatMul(a, b)
	assert.Equal(t, tensor.Shape{2, 2}, out.Shape())
	assert.Equal(t, []float32{58, 64, 139, 154}, out.AsFloat32())
}

func TestBackend_Transpose3D(t *testing.T) {
	backend := New()

	// (time=2, batch=1, size=3) -> (batch, time, size)
	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 1, 3})
	out := backend.Transpose(x, 1, 0, 2)

	assert.Equal(t, tensor.Shape{1, 2, 3}, out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6}, out.AsFloat32())

	// Round trip via the inverse permutation.
	back := backend.Transpose(out, 1, 0, 2)
	assert.Equal(t, x.AsFloat32(), back.AsFloat32())
}

func TestBackend_SumDim(t *testing.T) {
	backend := New()

	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3})

	sum0 := backend.SumDim(x, 0, false)
	assert.Equal(t, tensor.Shape{3}, sum0.Shape())
	assert.Equal(t, []float32{5, 7, 9}, sum0.AsFloat32())

	sum1 := backend.SumDim(x, 1, true)
	assert.Equal(t, tensor.Shape{2, 1}, sum1.Shape())
	assert.Equal(t, []float32{6, 15}, sum1.AsFloat32())
}

func TestBackend_SoftmaxSumsToOne(t *testing.T) {
	backend := New()

	// Softmax over the time axis of (time=3, batch=2, 1) scores, as the
	// attention cell computes it.
	x := rawFromSlice(t, []float32{1, -2, 0.5, 3, -1, 0}, tensor.Shape{3, 2, 1})
	out := backend.Softmax(x, 0, 1e-6)

	data := out.AsFloat32()
	for b := 0; b < 2; b++ {
		sum := data[b] + data[2+b] + data[4+b]
		assert.InDelta(t, 1.0, sum, 1e-5, "batch column %d", b)
	}
}

func TestBackend_SoftmaxLargeLogitsStable(t *testing.T) {
	backend := New()

	x := rawFromSlice(t, []float32{1000, 1001, 999}, tensor.Shape{1, 3})
	out := backend.Softmax(x, 1, 0)

	for _, v := range out.AsFloat32() {
		require.False(t, math.IsNaN(float64(v)))
		require.False(t, math.IsInf(float64(v), 0))
	}
	assert.InDelta(t, 1.0, out.AsFloat32()[0]+out.AsFloat32()[1]+out.AsFloat32()[2], 1e-5)
}

func TestBackend_CatFeatureDim(t *testing.T) {
	backend := New()

	a := rawFromSlice(t, []float32{1, 2, 5, 6}, tensor.Shape{2, 2})
	b := rawFromSlice(t, []float32{3, 4, 7, 8}, tensor.Shape{2, 2})

	out := backend.Cat([]*tensor.RawTensor{a, b}, 1)
	assert.Equal(t, tensor.Shape{2, 4}, out.Shape())
	assert.Equal(t, []float32{1, 2, 3, 4, 5, 6, 7, 8}, out.AsFloat32())
}

func TestBackend_Narrow(t *testing.T) {
	backend := New()

	x := rawFromSlice(t, []float32{1, 2, 3, 4, 5, 6}, tensor.Shape{3, 2})
	out := backend.Narrow(x, 0, 1, 1)

	assert.Equal(t, tensor.Shape{1, 2}, out.Shape())
	assert.Equal(t, []float32{3, 4}, out.AsFloat32())
}

func TestBackend_ReverseSequence(t *testing.T) {
	backend := New()

	// time=4, batch=2, size=1. Column 0 has valid length 2, column 1 length 4.
	x := rawFromSlice(t, []float32{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	}, tensor.Shape{4, 2, 1})

	out := backend.ReverseSequence(x, []int{2, 4})
	assert.Equal(t, []float32{
		2, 40,
		1, 30,
		3, 20,
		4, 10,
	}, out.AsFloat32())
}

func TestBackend_Embedding(t *testing.T) {
	backend := New()

	weight := rawFromSlice(t, []float32{
		0, 0,
		1, 1,
		2, 2,
	}, tensor.Shape{3, 2})

	idxRaw, err := tensor.NewRaw(tensor.Shape{2, 2}, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(idxRaw.AsInt32(), []int32{2, 0, 1, 2})

	out := backend.Embedding(weight, idxRaw)
	assert.Equal(t, tensor.Shape{2, 2, 2}, out.Shape())
	assert.Equal(t, []float32{2, 2, 0, 0, 1, 1, 2, 2}, out.AsFloat32())
}
