package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/autodiff"
	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/tensor"
)

func TestBackendName(t *testing.T) {
	backend := autodiff.New(cpu.New())
	assert.Equal(t, "Autodiff(CPU)", backend.Name())
	assert.Equal(t, tensor.CPU, backend.Device())
}

func TestTapeRecordingControl(t *testing.T) {
	backend := autodiff.New(cpu.New())
	tape := backend.Tape()

	assert.False(t, tape.IsRecording())

	tape.StartRecording()
	assert.True(t, tape.IsRecording())

	a, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	b, err := tensor.FromSlice([]float32{3, 4}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	a.Add(b)
	assert.Equal(t, 1, tape.NumOps())

	tape.StopRecording()
	a.Add(b)
	assert.Equal(t, 1, tape.NumOps())

	tape.Clear()
	assert.Equal(t, 0, tape.NumOps())
}

func TestBackwardSquare(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// y = x², dy/dx = 2x
	x, err := tensor.FromSlice([]float32{2, 3}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	y := x.Mul(x)

	grads := autodiff.Backward(y, backend)
	grad, ok := grads[x.Raw()]
	require.True(t, ok)
	assert.Equal(t, []float32{4, 6}, grad.AsFloat32())
}

func TestBackwardChain(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// z = tanh(x · w), a tiny dense layer.
	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{1, 2}, backend)
	require.NoError(t, err)
	w, err := tensor.FromSlice([]float32{0.5, -0.5}, tensor.Shape{2, 1}, backend)
	require.NoError(t, err)
	z := x.MatMul(w).Tanh()

	grads := autodiff.Backward(z, backend)

	// x·w = -0.5, tanh' = 1 - tanh², dz/dw = tanh' * x
	y := z.Item()
	dtanh := 1 - y*y
	wGrad := grads[w.Raw()].AsFloat32()
	assert.InDelta(t, dtanh*1, wGrad[0], 1e-6)
	assert.InDelta(t, dtanh*2, wGrad[1], 1e-6)

	xGrad := grads[x.Raw()].AsFloat32()
	assert.InDelta(t, dtanh*0.5, xGrad[0], 1e-6)
	assert.InDelta(t, dtanh*-0.5, xGrad[1], 1e-6)
}

func TestBackwardAccumulatesSharedTensor(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// x feeds two branches: y = x*x + x*x. dy/dx = 4x.
	x, err := tensor.FromSlice([]float32{3}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	y := x.Mul(x).Add(x.Mul(x))

	grads := autodiff.Backward(y, backend)
	assert.InDelta(t, 12.0, grads[x.Raw()].AsFloat32()[0], 1e-6)
}

func TestBackwardSeedsAtGivenOutput(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice([]float32{1, 2}, tensor.Shape{2}, backend)
	require.NoError(t, err)
	loss := x.Mul(x)

	// Operations recorded after the loss, like decoding probabilities for
	// inspection, must not contribute gradient.
	x.AddScalar(100).Tanh()

	grads := autodiff.Backward(loss, backend)
	assert.Equal(t, []float32{2, 4}, grads[x.Raw()].AsFloat32())
}

func TestBackwardThroughRecurrence(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	// h_{t+1} = h_t * w over three steps: h_3 = h_0 * w³, dh_3/dw = 3w²h_0.
	h, err := tensor.FromSlice([]float32{1}, tensor.Shape{1}, backend)
	require.NoError(t, err)
	w, err := tensor.FromSlice([]float32{2}, tensor.Shape{1}, backend)
	require.NoError(t, err)

	out := h
	for i := 0; i < 3; i++ {
		out = out.Mul(w)
	}

	grads := autodiff.Backward(out, backend)
	assert.InDelta(t, 12.0, grads[w.Raw()].AsFloat32()[0], 1e-6)
	assert.InDelta(t, 8.0, grads[h.Raw()].AsFloat32()[0], 1e-6)
}

func TestMaskedCrossEntropyRecordsOnTape(t *testing.T) {
	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	logits, err := tensor.FromSlice([]float32{1, 0, 0, 2}, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	labels := tensor.MustNewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
	copy(labels.AsInt32(), []int32{0, 1})
	mask := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
	copy(mask.AsFloat32(), []float32{1, 1})

	lossRaw := backend.MaskedCrossEntropy(logits.Raw(), labels, mask, 2)
	loss := tensor.New[float32](lossRaw, backend)

	grads := autodiff.Backward(loss, backend)
	grad, ok := grads[logits.Raw()]
	require.True(t, ok)
	assert.Equal(t, tensor.Shape{2, 2}, grad.Shape())

	// Correct-class gradients are negative, wrong-class positive.
	g := grad.AsFloat32()
	assert.Negative(t, g[0])
	assert.Positive(t, g[1])
	assert.Positive(t, g[2])
	assert.Negative(t, g[3])
}
