package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/tensor"
)

func TestShapeNumElements(t *testing.T) {
	tests := []struct {
		name  string
		shape tensor.Shape
		want  int
	}{
		{name: "scalar", shape: tensor.Shape{}, want: 1},
		{name: "vector", shape: tensor.Shape{5}, want: 5},
		{name: "time-major batch", shape: tensor.Shape{8, 32}, want: 256},
		{name: "hidden sequence", shape: tensor.Shape{8, 32, 128}, want: 32768},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.shape.NumElements())
		})
	}
}

func TestShapeComputeStrides(t *testing.T) {
	assert.Equal(t, []int{12, 4, 1}, tensor.Shape{2, 3, 4}.ComputeStrides())
	assert.Equal(t, []int{1}, tensor.Shape{7}.ComputeStrides())
	assert.Empty(t, tensor.Shape{}.ComputeStrides())
}

func TestBroadcastShapes(t *testing.T) {
	tests := []struct {
		name      string
		a, b      tensor.Shape
		want      tensor.Shape
		broadcast bool
		wantErr   bool
	}{
		{name: "equal", a: tensor.Shape{2, 3}, b: tensor.Shape{2, 3}, want: tensor.Shape{2, 3}, broadcast: false},
		{name: "bias row", a: tensor.Shape{4, 3}, b: tensor.Shape{1, 3}, want: tensor.Shape{4, 3}, broadcast: true},
		{name: "mask column", a: tensor.Shape{4, 3}, b: tensor.Shape{4, 1}, want: tensor.Shape{4, 3}, broadcast: true},
		{name: "missing leading dim", a: tensor.Shape{2, 3}, b: tensor.Shape{3}, want: tensor.Shape{2, 3}, broadcast: true},
		{name: "attention weights", a: tensor.Shape{5, 2, 8}, b: tensor.Shape{5, 2, 1}, want: tensor.Shape{5, 2, 8}, broadcast: true},
		{name: "incompatible", a: tensor.Shape{2, 3}, b: tensor.Shape{2, 4}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, broadcast, err := tensor.BroadcastShapes(tt.a, tt.b)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.broadcast, broadcast)
		})
	}
}

func TestFromSliceAndAccessors(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3, 4, 5, 6}, tensor.Shape{2, 3}, backend)
	require.NoError(t, err)

	assert.Equal(t, tensor.Shape{2, 3}, x.Shape())
	assert.Equal(t, float32(6), x.At(1, 2))

	x.Set(9, 0, 1)
	assert.Equal(t, float32(9), x.At(0, 1))

	_, err = tensor.FromSlice([]float32{1, 2}, tensor.Shape{3}, backend)
	assert.Error(t, err)
}

func TestCloneIsIndependent(t *testing.T) {
	backend := cpu.New()

	x, err := tensor.FromSlice([]float32{1, 2, 3}, tensor.Shape{3}, backend)
	require.NoError(t, err)

	y := x.Clone()
	y.Set(7, 0)

	assert.Equal(t, float32(1), x.At(0))
	assert.Equal(t, float32(7), y.At(0))
}

func TestRawTensorDTypeGuards(t *testing.T) {
	raw := tensor.MustNewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)

	assert.NotPanics(t, func() { raw.AsInt32() })
	assert.Panics(t, func() { raw.AsFloat32() })
}

func TestScalarItem(t *testing.T) {
	backend := cpu.New()

	s := tensor.Scalar[float32](3.5, backend)
	assert.Equal(t, tensor.Shape{1}, s.Shape())
	assert.Equal(t, float32(3.5), s.Item())
}
