package data_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nlc-ml/nlc/internal/data"
	"github.com/nlc-ml/nlc/internal/tensor"
	"github.com/nlc-ml/nlc/internal/tokenizer"
)

func TestReadPairs(t *testing.T) {
	tok := tokenizer.NewCharFromText("abcdef", 0)

	input := "ab\tcd\nno tab line\nef\tab\n\t\n"
	pairs, err := data.ReadPairs(strings.NewReader(input), tok)
	require.NoError(t, err)
	require.Len(t, pairs, 2)

	assert.Len(t, pairs[0].Source, 2)
	assert.Len(t, pairs[0].Target, 2)
}

func TestNewBatchShapesAndMasks(t *testing.T) {
	pairs := []data.Pair{
		{Source: []int32{4, 5, 6}, Target: []int32{7}},
		{Source: []int32{4}, Target: []int32{8, 9}},
	}

	b, err := data.NewBatch(pairs, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, b.Size)

	// Source time 3 rounds up to the next multiple of 2^2.
	assert.Equal(t, tensor.Shape{4, 2}, b.Source.Shape())
	assert.Equal(t, tensor.Shape{4, 2}, b.SourceMask.Shape())

	// Longest target is 2 tokens plus SOS and EOS.
	assert.Equal(t, tensor.Shape{4, 2}, b.Target.Shape())

	src := b.Source.AsInt32()
	srcMask := b.SourceMask.AsInt32()
	// Time-major layout: element (t, j) lives at t*batch+j.
	assert.Equal(t, int32(4), src[0*2+0])
	assert.Equal(t, int32(6), src[2*2+0])
	assert.Equal(t, int32(4), src[0*2+1])
	assert.Equal(t, int32(0), src[1*2+1])

	assert.Equal(t, int32(1), srcMask[2*2+0])
	assert.Equal(t, int32(0), srcMask[3*2+0])
	assert.Equal(t, int32(1), srcMask[0*2+1])
	assert.Equal(t, int32(0), srcMask[1*2+1])
}

func TestNewBatchFramesTarget(t *testing.T) {
	pairs := []data.Pair{{Source: []int32{4, 5}, Target: []int32{6, 7}}}

	b, err := data.NewBatch(pairs, 1)
	require.NoError(t, err)

	tgt := b.Target.AsInt32()
	tgtMask := b.TargetMask.AsInt32()

	assert.Equal(t, []int32{tokenizer.SosToken, 6, 7, tokenizer.EosToken}, tgt)
	assert.Equal(t, []int32{1, 1, 1, 1}, tgtMask)
}

func TestNewBatchRejectsEmpty(t *testing.T) {
	_, err := data.NewBatch(nil, 2)
	assert.Error(t, err)
}

func TestBatchesSortsByLengthAndSplits(t *testing.T) {
	pairs := []data.Pair{
		{Source: []int32{4, 5, 6, 7, 8}, Target: []int32{4}},
		{Source: []int32{4}, Target: []int32{4}},
		{Source: []int32{4, 5}, Target: []int32{4}},
	}

	batches, err := data.Batches(pairs, 2, 1)
	require.NoError(t, err)
	require.Len(t, batches, 2)

	assert.Equal(t, 2, batches[0].Size)
	assert.Equal(t, 1, batches[1].Size)

	// The short pairs land in the first batch, so its time axis stays
	// small; the five-token source rounds up to six.
	assert.Equal(t, 2, batches[0].Source.Shape()[0])
	assert.Equal(t, 6, batches[1].Source.Shape()[0])
}
