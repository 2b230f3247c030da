package model_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/model"
	"github.com/nlc-ml/nlc/internal/tensor"
)

func testConfig() model.Config {
	return model.Config{
		VocabSize:       5,
		Size:            4,
		NumLayers:       2,
		MaxGradientNorm: 1.0,
		BatchSize:       2,
		LearningRate:    0.1,
		LRDecayFactor:   0.5,
		Dropout:         0,
	}
}

func rawTokens(t *testing.T, data []int32, shape tensor.Shape) *tensor.RawTensor {
	t.Helper()
	raw, err := tensor.NewRaw(shape, tensor.Int32, tensor.CPU)
	require.NoError(t, err)
	copy(raw.AsInt32(), data)
	return raw
}

// testBatch builds a (4, 2) source and (3, 2) target batch. Column 0 is
// shorter than column 1 on both sides.
func testBatch(t *testing.T) (src, srcMask, tgt, tgtMask *tensor.RawTensor) {
	t.Helper()
	src = rawTokens(t, []int32{
		4, 3,
		3, 4,
		0, 3,
		0, 4,
	}, tensor.Shape{4, 2})
	srcMask = rawTokens(t, []int32{
		1, 1,
		1, 1,
		0, 1,
		0, 1,
	}, tensor.Shape{4, 2})
	// Targets start with the SOS token 1.
	tgt = rawTokens(t, []int32{
		1, 1,
		4, 3,
		0, 4,
	}, tensor.Shape{3, 2})
	tgtMask = rawTokens(t, []int32{
		1, 1,
		1, 1,
		0, 1,
	}, tensor.Shape{3, 2})
	return src, srcMask, tgt, tgtMask
}

func TestNewValidatesConfig(t *testing.T) {
	cfg := testConfig()
	cfg.VocabSize = 0
	_, err := model.New(cfg, cpu.New())
	assert.Error(t, err)
}

func TestPredictShapes(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	outputs := m.Predict(src, srcMask, tgt, tgtMask)

	assert.Equal(t, tensor.Shape{3, 2, 5}, outputs.Shape())

	// Each position is a distribution over the vocabulary.
	for tStep := 0; tStep < 3; tStep++ {
		for b := 0; b < 2; b++ {
			sum := float32(0)
			for v := 0; v < 5; v++ {
				p := outputs.At(tStep, b, v)
				assert.GreaterOrEqual(t, p, float32(0))
				sum += p
			}
			assert.InDelta(t, 1.0, sum, 1e-4)
		}
	}
}

func TestTrainStep(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	gradNorm, loss, paramNorm, err := m.Train(src, srcMask, tgt, tgtMask)
	require.NoError(t, err)

	assert.Greater(t, loss, float32(0))
	assert.Greater(t, paramNorm, float32(0))
	assert.LessOrEqual(t, gradNorm, float32(1.0)+1e-5)
	assert.Equal(t, 1, m.GlobalStep())

	_, _, _, err = m.Train(src, srcMask, tgt, tgtMask)
	require.NoError(t, err)
	assert.Equal(t, 2, m.GlobalStep())
}

func TestTrainReducesLossOnFixedBatch(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	before, _ := m.Test(src, srcMask, tgt, tgtMask)
	for i := 0; i < 30; i++ {
		_, _, _, err := m.Train(src, srcMask, tgt, tgtMask)
		require.NoError(t, err)
	}
	after, _ := m.Test(src, srcMask, tgt, tgtMask)

	assert.Less(t, after, before)
}

func TestForwardOnlyRejectsTrain(t *testing.T) {
	cfg := testConfig()
	cfg.ForwardOnly = true
	m, err := model.New(cfg, cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	_, _, _, err = m.Train(src, srcMask, tgt, tgtMask)
	assert.Error(t, err)

	// Evaluation still works and yields distributions.
	loss, outputs := m.Test(src, srcMask, tgt, tgtMask)
	assert.Greater(t, loss, float32(0))
	assert.Equal(t, tensor.Shape{3, 2, cfg.VocabSize}, outputs.Shape())
}

func TestDecayLearningRate(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	assert.InDelta(t, 0.1, m.LearningRate(), 1e-6)
	m.DecayLearningRate()
	assert.InDelta(t, 0.05, m.LearningRate(), 1e-6)
	m.DecayLearningRate()
	assert.InDelta(t, 0.025, m.LearningRate(), 1e-6)
}

func TestLossIgnoresMaskedTargetPositions(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	loss1, _ := m.Test(src, srcMask, tgt, tgtMask)

	// Change the padded target token in column 0; the mask hides it.
	altered := rawTokens(t, []int32{
		1, 1,
		4, 3,
		2, 4,
	}, tensor.Shape{3, 2})
	loss2, _ := m.Test(src, srcMask, altered, tgtMask)

	assert.Equal(t, loss1, loss2)
}

// swapColumns exchanges the two batch columns of a (time, 2) tensor.
func swapColumns(t *testing.T, raw *tensor.RawTensor) *tensor.RawTensor {
	t.Helper()
	out := raw.Clone()
	data := out.AsInt32()
	time := raw.Shape()[0]
	for step := 0; step < time; step++ {
		data[step*2], data[step*2+1] = data[step*2+1], data[step*2]
	}
	return out
}

func TestLossInvariantToBatchPermutation(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	loss1, _ := m.Test(src, srcMask, tgt, tgtMask)
	loss2, _ := m.Test(
		swapColumns(t, src), swapColumns(t, srcMask),
		swapColumns(t, tgt), swapColumns(t, tgtMask))

	assert.InDelta(t, loss1, loss2, 1e-4)
}

func TestSingleLayerEndToEnd(t *testing.T) {
	cfg := testConfig()
	cfg.NumLayers = 1
	m, err := model.New(cfg, cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	outputs := m.Predict(src, srcMask, tgt, tgtMask)

	// One layer means no downscale, so attention runs over all four
	// source positions; output length follows the target.
	assert.Equal(t, tensor.Shape{3, 2, 5}, outputs.Shape())
	for b := 0; b < 2; b++ {
		sum := float32(0)
		for v := 0; v < 5; v++ {
			sum += outputs.At(0, b, v)
		}
		assert.InDelta(t, 1.0, sum, 1e-4)
	}
}

func TestCheckpointRoundTrip(t *testing.T) {
	cfg := testConfig()
	m1, err := model.New(cfg, cpu.New())
	require.NoError(t, err)

	src, srcMask, tgt, tgtMask := testBatch(t)
	_, _, _, err = m1.Train(src, srcMask, tgt, tgtMask)
	require.NoError(t, err)
	m1.DecayLearningRate()

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, err)
	require.NoError(t, m1.Save(path))

	m2, err := model.New(cfg, cpu.New())
	require.NoError(t, err)
	require.NoError(t, m2.Load(path))

	assert.Equal(t, m1.GlobalStep(), m2.GlobalStep())
	assert.Equal(t, m1.LearningRate(), m2.LearningRate())

	loss1, _ := m1.Test(src, srcMask, tgt, tgtMask)
	loss2, _ := m2.Test(src, srcMask, tgt, tgtMask)
	assert.Equal(t, loss1, loss2)
}

func TestLoadRejectsMismatchedShape(t *testing.T) {
	cfg := testConfig()
	m1, err := model.New(cfg, cpu.New())
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "model.ckpt")
	require.NoError(t, m1.Save(path))

	bigger := cfg
	bigger.Size = 6
	m2, err := model.New(bigger, cpu.New())
	require.NoError(t, err)
	assert.Error(t, m2.Load(path))
}

func TestNumParams(t *testing.T) {
	m, err := model.New(testConfig(), cpu.New())
	require.NoError(t, err)

	total := 0
	for _, p := range m.Parameters() {
		total += p.Tensor().NumElements()
	}
	assert.Equal(t, total, m.NumParams())
	assert.Positive(t, m.NumParams())
}
