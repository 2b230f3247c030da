package nlc_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/nlc"
)

// End-to-end smoke test: tokenize a tiny corpus, batch it and run a few
// training steps on the CPU backend.
func TestTrainOnTinyCorpus(t *testing.T) {
	corpus := "teh cat\tthe cat\nteh dog\tthe dog\n"

	tok := nlc.NewCharTokenizer(corpus, 0)
	pairs, err := nlc.ReadPairs(strings.NewReader(corpus), tok)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	const numLayers = 2
	batches, err := nlc.Batches(pairs, 2, numLayers)
	require.NoError(t, err)
	require.Len(t, batches, 1)

	m, err := nlc.NewCPU(nlc.Config{
		VocabSize:       tok.VocabSize(),
		Size:            8,
		NumLayers:       numLayers,
		MaxGradientNorm: 5.0,
		BatchSize:       2,
		LearningRate:    0.01,
		LRDecayFactor:   0.5,
		Dropout:         0,
	})
	require.NoError(t, err)

	b := batches[0]
	var first, last float32
	for i := 0; i < 5; i++ {
		_, loss, _, err := m.Train(b.Source, b.SourceMask, b.Target, b.TargetMask)
		require.NoError(t, err)
		if i == 0 {
			first = loss
		}
		last = loss
	}

	assert.Less(t, last, first, "loss should fall on a fixed batch")
	assert.Equal(t, 5, m.GlobalStep())
}
