package optim_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/nn"
	"github.com/nlc-ml/nlc/internal/optim"
	"github.com/nlc-ml/nlc/internal/tensor"
)

func paramWithGrad(t *testing.T, values, grad []float32) (*nn.Parameter[*cpu.Backend], map[*tensor.RawTensor]*tensor.RawTensor) {
	t.Helper()
	backend := cpu.New()

	pt, err := tensor.FromSlice(values, tensor.Shape{len(values)}, backend)
	require.NoError(t, err)
	param := nn.NewParameter("p", pt)

	g := tensor.MustNewRaw(tensor.Shape{len(grad)}, tensor.Float32, tensor.CPU)
	copy(g.AsFloat32(), grad)

	return param, map[*tensor.RawTensor]*tensor.RawTensor{pt.Raw(): g}
}

func TestSGDStep(t *testing.T) {
	backend := cpu.New()
	param, grads := paramWithGrad(t, []float32{1, 2}, []float32{0.5, -0.5})

	opt := optim.NewSGD([]*nn.Parameter[*cpu.Backend]{param}, optim.SGDConfig{LR: 0.1}, backend)
	opt.Step(grads)

	data := param.Tensor().Data()
	assert.InDelta(t, 0.95, data[0], 1e-6)
	assert.InDelta(t, 2.05, data[1], 1e-6)
}

func TestAdamFirstStepMovesByLR(t *testing.T) {
	backend := cpu.New()
	param, grads := paramWithGrad(t, []float32{1}, []float32{0.3})

	opt := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{param}, optim.AdamConfig{LR: 0.01}, backend)
	opt.Step(grads)

	// After bias correction the first Adam step is ≈ lr in the gradient
	// direction regardless of gradient magnitude.
	assert.InDelta(t, 1-0.01, param.Tensor().Data()[0], 1e-4)
	assert.Equal(t, 1, opt.Timestep())
}

func TestAdamSkipsParamsWithoutGrad(t *testing.T) {
	backend := cpu.New()
	param, _ := paramWithGrad(t, []float32{1}, []float32{0})

	opt := optim.NewAdam([]*nn.Parameter[*cpu.Backend]{param}, optim.AdamConfig{}, backend)
	opt.Step(map[*tensor.RawTensor]*tensor.RawTensor{})

	assert.Equal(t, float32(1), param.Tensor().Data()[0])
}

func TestSetLR(t *testing.T) {
	backend := cpu.New()
	opt := optim.NewAdam[*cpu.Backend](nil, optim.AdamConfig{LR: 0.5}, backend)

	assert.Equal(t, float32(0.5), opt.GetLR())
	opt.SetLR(0.25)
	assert.Equal(t, float32(0.25), opt.GetLR())
}

func TestGlobalNorm(t *testing.T) {
	a := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), []float32{3, 0})
	b := tensor.MustNewRaw(tensor.Shape{1}, tensor.Float32, tensor.CPU)
	copy(b.AsFloat32(), []float32{4})

	norm := optim.GlobalNorm([]*tensor.RawTensor{a, nil, b})
	assert.InDelta(t, 5.0, norm, 1e-6)
}

func TestClipByGlobalNormScales(t *testing.T) {
	a := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), []float32{3, 4})

	norm := optim.ClipByGlobalNorm([]*tensor.RawTensor{a}, 1.0)
	assert.InDelta(t, 1.0, norm, 1e-6)

	data := a.AsFloat32()
	clipped := math.Sqrt(float64(data[0]*data[0] + data[1]*data[1]))
	assert.InDelta(t, 1.0, clipped, 1e-5)
}

func TestClipByGlobalNormLeavesSmallGradients(t *testing.T) {
	a := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	copy(a.AsFloat32(), []float32{0.3, 0.4})

	norm := optim.ClipByGlobalNorm([]*tensor.RawTensor{a}, 1.0)
	assert.InDelta(t, 0.5, norm, 1e-6)
	assert.Equal(t, []float32{0.3, 0.4}, a.AsFloat32())
}
