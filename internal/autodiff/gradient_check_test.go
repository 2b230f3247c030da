package autodiff_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/autodiff"
	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// numericalGradient perturbs each element of the parameter in turn and
// measures the change in the scalar produced by f using central differences.
func numericalGradient(t *testing.T, param []float32, f func(p []float32) float32) []float32 {
	t.Helper()
	const h = 1e-2
	grad := make([]float32, len(param))
	for i := range param {
		plus := append([]float32(nil), param...)
		minus := append([]float32(nil), param...)
		plus[i] += h
		minus[i] -= h
		grad[i] = (f(plus) - f(minus)) / (2 * h)
	}
	return grad
}

// TestGradientCheckGateCircuit runs a GRU-like gate through both the tape
// and central differences: out = Σ σ(x·w) ⊙ tanh(x·u).
func TestGradientCheckGateCircuit(t *testing.T) {
	xData := []float32{0.5, -0.2, 0.1, 0.8}
	wData := []float32{0.3, -0.4, 0.2, 0.1}
	uData := []float32{-0.1, 0.5, 0.4, -0.3}

	forward := func(w []float32) float32 {
		backend := cpu.New()
		x, err := tensor.FromSlice(xData, tensor.Shape{2, 2}, backend)
		require.NoError(t, err)
		wT, err := tensor.FromSlice(w, tensor.Shape{2, 2}, backend)
		require.NoError(t, err)
		u, err := tensor.FromSlice(uData, tensor.Shape{2, 2}, backend)
		require.NoError(t, err)

		gate := x.MatMul(wT).Sigmoid()
		cand := x.MatMul(u).Tanh()
		out := gate.Mul(cand).SumDim(1, false).SumDim(0, false)
		return out.Item()
	}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	x, err := tensor.FromSlice(xData, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	w, err := tensor.FromSlice(wData, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)
	u, err := tensor.FromSlice(uData, tensor.Shape{2, 2}, backend)
	require.NoError(t, err)

	gate := x.MatMul(w).Sigmoid()
	cand := x.MatMul(u).Tanh()
	out := gate.Mul(cand).SumDim(1, false).SumDim(0, false)

	grads := autodiff.Backward(out, backend)
	analytic := grads[w.Raw()].AsFloat32()
	numeric := numericalGradient(t, wData, forward)

	for i := range numeric {
		assert.InDelta(t, numeric[i], analytic[i], 1e-3, "w[%d]", i)
	}
}

// TestGradientCheckAttentionScores differentiates through the softmax scoring
// pattern used by attention: weights = softmax over time of Σ features.
func TestGradientCheckAttentionScores(t *testing.T) {
	hsData := []float32{0.2, -0.1, 0.7, 0.4, -0.5, 0.3} // (time=3, batch=1, size=2)

	forward := func(hs []float32) float32 {
		backend := cpu.New()
		hsT, err := tensor.FromSlice(hs, tensor.Shape{3, 1, 2}, backend)
		require.NoError(t, err)

		scores := hsT.Tanh().SumDim(2, true)      // (3, 1, 1)
		weights := scores.Softmax(0, 1e-6)        // over time
		context := weights.Mul(hsT).SumDim(0, false) // (1, 2)
		return context.SumDim(1, false).Item()
	}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	hs, err := tensor.FromSlice(hsData, tensor.Shape{3, 1, 2}, backend)
	require.NoError(t, err)

	scores := hs.Tanh().SumDim(2, true)
	weights := scores.Softmax(0, 1e-6)
	context := weights.Mul(hs).SumDim(0, false)
	out := context.SumDim(1, false)

	grads := autodiff.Backward(out, backend)
	analytic := grads[hs.Raw()].AsFloat32()
	numeric := numericalGradient(t, hsData, forward)

	for i := range numeric {
		assert.InDelta(t, numeric[i], analytic[i], 1e-3, "hs[%d]", i)
	}
}

// TestGradientCheckEmbeddingLookup differentiates the loss with respect to
// the embedding table through lookup, projection and cross-entropy.
func TestGradientCheckEmbeddingLookup(t *testing.T) {
	tableData := []float32{0.1, 0.2, -0.3, 0.4, 0.5, -0.6}

	labels := func() *tensor.RawTensor {
		raw := tensor.MustNewRaw(tensor.Shape{2}, tensor.Int32, tensor.CPU)
		copy(raw.AsInt32(), []int32{1, 0})
		return raw
	}
	mask := func() *tensor.RawTensor {
		raw := tensor.MustNewRaw(tensor.Shape{2}, tensor.Float32, tensor.CPU)
		copy(raw.AsFloat32(), []float32{1, 1})
		return raw
	}
	indices := func(b tensor.Backend) *tensor.RawTensor {
		raw := tensor.MustNewRaw(tensor.Shape{2}, tensor.Int32, b.Device())
		copy(raw.AsInt32(), []int32{2, 0})
		return raw
	}

	forward := func(table []float32) float32 {
		backend := autodiff.New(cpu.New())
		tbl, err := tensor.FromSlice(table, tensor.Shape{3, 2}, backend)
		require.NoError(t, err)
		emb := backend.Embedding(tbl.Raw(), indices(backend))
		loss := backend.MaskedCrossEntropy(emb, labels(), mask(), 2)
		return loss.AsFloat32()[0]
	}

	backend := autodiff.New(cpu.New())
	backend.Tape().StartRecording()

	tbl, err := tensor.FromSlice(tableData, tensor.Shape{3, 2}, backend)
	require.NoError(t, err)
	emb := backend.Embedding(tbl.Raw(), indices(backend))
	lossRaw := backend.MaskedCrossEntropy(emb, labels(), mask(), 2)
	loss := tensor.New[float32](lossRaw, backend)

	grads := autodiff.Backward(loss, backend)
	analytic := grads[tbl.Raw()].AsFloat32()
	numeric := numericalGradient(t, tableData, forward)

	for i := range numeric {
		assert.InDelta(t, numeric[i], analytic[i], 1e-3, "table[%d]", i)
	}
}
