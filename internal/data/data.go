// Package data turns tokenized sentence pairs into the time-major
// padded batches the translation model consumes.
//
// A batch holds four int32 tensors of shape (time, batch): source
// tokens, source mask, target tokens and target mask. Masks are 1 on
// real positions and 0 on padding. Source sequences are padded to a
// multiple of 2^numLayers so the pyramidal encoder can halve the time
// axis at every layer. Targets are framed with the start and end
// markers before padding.
package data

import (
	"bufio"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/nlc-ml/nlc/internal/tensor"
	"github.com/nlc-ml/nlc/internal/tokenizer"
)

// Pair is one tokenized training example.
type Pair struct {
	Source []int32
	Target []int32
}

// Batch is a model-ready group of examples, time-major.
type Batch struct {
	Source     *tensor.RawTensor
	SourceMask *tensor.RawTensor
	Target     *tensor.RawTensor
	TargetMask *tensor.RawTensor

	// Size is the number of examples in the batch.
	Size int
}

// ReadPairs reads tab-separated source/target lines and tokenizes both
// sides. Lines without a tab and lines where either side tokenizes to
// nothing are skipped.
func ReadPairs(r io.Reader, tok tokenizer.Tokenizer) ([]Pair, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var pairs []Pair
	for scanner.Scan() {
		source, target, ok := strings.Cut(scanner.Text(), "\t")
		if !ok {
			continue
		}

		srcTokens, err := tok.Encode(source)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize source %q: %w", source, err)
		}
		tgtTokens, err := tok.Encode(target)
		if err != nil {
			return nil, fmt.Errorf("failed to tokenize target %q: %w", target, err)
		}
		if len(srcTokens) == 0 || len(tgtTokens) == 0 {
			continue
		}

		pairs = append(pairs, Pair{Source: srcTokens, Target: tgtTokens})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read pairs: %w", err)
	}

	return pairs, nil
}

// NewBatch packs pairs into time-major tensors.
//
// The source time axis is padded up to a multiple of 2^numLayers. The
// target side becomes SOS, tokens, EOS, then padding. All examples
// share the batch time axes, sized by the longest sequence on each
// side.
func NewBatch(pairs []Pair, numLayers int) (*Batch, error) {
	if len(pairs) == 0 {
		return nil, fmt.Errorf("batch needs at least one pair")
	}
	if numLayers < 1 {
		return nil, fmt.Errorf("numLayers must be >= 1, got %d", numLayers)
	}

	srcTime := 0
	tgtTime := 0
	for _, p := range pairs {
		if len(p.Source) > srcTime {
			srcTime = len(p.Source)
		}
		// SOS and EOS framing adds two positions.
		if len(p.Target)+2 > tgtTime {
			tgtTime = len(p.Target) + 2
		}
	}
	srcTime = roundUp(srcTime, 1<<numLayers)

	batch := len(pairs)
	b := &Batch{
		Source:     tensor.MustNewRaw(tensor.Shape{srcTime, batch}, tensor.Int32, tensor.CPU),
		SourceMask: tensor.MustNewRaw(tensor.Shape{srcTime, batch}, tensor.Int32, tensor.CPU),
		Target:     tensor.MustNewRaw(tensor.Shape{tgtTime, batch}, tensor.Int32, tensor.CPU),
		TargetMask: tensor.MustNewRaw(tensor.Shape{tgtTime, batch}, tensor.Int32, tensor.CPU),
		Size:       batch,
	}

	src := b.Source.AsInt32()
	srcMask := b.SourceMask.AsInt32()
	tgt := b.Target.AsInt32()
	tgtMask := b.TargetMask.AsInt32()

	for j, p := range pairs {
		for t, tok := range p.Source {
			src[t*batch+j] = tok
			srcMask[t*batch+j] = 1
		}

		framed := make([]int32, 0, len(p.Target)+2)
		framed = append(framed, tokenizer.SosToken)
		framed = append(framed, p.Target...)
		framed = append(framed, tokenizer.EosToken)
		for t, tok := range framed {
			tgt[t*batch+j] = tok
			tgtMask[t*batch+j] = 1
		}
	}

	return b, nil
}

// Batches sorts pairs by source length and cuts them into batches of at
// most batchSize examples. Sorting keeps sequence lengths within a
// batch close, which limits wasted padding.
func Batches(pairs []Pair, batchSize, numLayers int) ([]*Batch, error) {
	if batchSize < 1 {
		return nil, fmt.Errorf("batchSize must be >= 1, got %d", batchSize)
	}

	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len(sorted[i].Source) < len(sorted[j].Source)
	})

	var batches []*Batch
	for start := 0; start < len(sorted); start += batchSize {
		end := start + batchSize
		if end > len(sorted) {
			end = len(sorted)
		}
		b, err := NewBatch(sorted[start:end], numLayers)
		if err != nil {
			return nil, err
		}
		batches = append(batches, b)
	}

	return batches, nil
}

func roundUp(n, multiple int) int {
	if rem := n % multiple; rem != 0 {
		return n + multiple - rem
	}
	return n
}
