// Package nlc is the public API for the neural language correction
// model: a pyramidal bidirectional GRU encoder with an attention
// decoder, trained with masked cross-entropy.
//
// Example:
//
//	tok := nlc.NewCharTokenizer(trainingText, 0)
//
//	m, err := nlc.NewCPU(nlc.Config{
//	    VocabSize: tok.VocabSize(),
//	    Size:      128,
//	    NumLayers: 3,
//	    ...
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	gradNorm, loss, paramNorm, err := m.Train(
//	    batch.Source, batch.SourceMask, batch.Target, batch.TargetMask)
package nlc

import (
	"io"

	"github.com/nlc-ml/nlc/internal/backend/cpu"
	"github.com/nlc-ml/nlc/internal/data"
	"github.com/nlc-ml/nlc/internal/model"
	"github.com/nlc-ml/nlc/internal/tensor"
	"github.com/nlc-ml/nlc/internal/tokenizer"
)

// Config holds the model hyperparameters.
type Config = model.Config

// Model is the full encoder-decoder model with its optimizer.
type Model[B tensor.Backend] = model.Model[B]

// New builds a model on the given backend.
func New[B tensor.Backend](cfg Config, backend B) (*Model[B], error) {
	return model.New(cfg, backend)
}

// NewCPU builds a model on the pure-Go CPU backend.
func NewCPU(cfg Config) (*Model[*cpu.Backend], error) {
	return model.New(cfg, cpu.New())
}

// Tokenizer converts between text and token IDs.
type Tokenizer = tokenizer.Tokenizer

// Reserved token IDs.
const (
	PadToken = tokenizer.PadToken
	SosToken = tokenizer.SosToken
	EosToken = tokenizer.EosToken
	UnkToken = tokenizer.UnkToken
)

// NewCharTokenizer builds a character-level tokenizer from training
// text. maxVocab caps the vocabulary size; 0 means unlimited.
func NewCharTokenizer(text string, maxVocab int) *tokenizer.Char {
	return tokenizer.NewCharFromText(text, maxVocab)
}

// LoadCharTokenizer restores a character tokenizer from a vocabulary
// file written by Char.WriteVocab.
func LoadCharTokenizer(r io.Reader) (*tokenizer.Char, error) {
	return tokenizer.NewCharFromVocab(r)
}

// NewSubwordTokenizer creates a tiktoken-backed subword tokenizer
// ("cl100k_base", "p50k_base", "r50k_base").
func NewSubwordTokenizer(encodingName string) (*tokenizer.Subword, error) {
	return tokenizer.NewSubword(encodingName)
}

// Batch is a model-ready group of examples in time-major layout.
type Batch = data.Batch

// Pair is one tokenized source/target example.
type Pair = data.Pair

// ReadPairs reads tab-separated source/target lines and tokenizes them.
func ReadPairs(r io.Reader, tok Tokenizer) ([]Pair, error) {
	return data.ReadPairs(r, tok)
}

// NewBatch packs pairs into time-major tensors, padding the source time
// axis to a multiple of 2^numLayers.
func NewBatch(pairs []Pair, numLayers int) (*Batch, error) {
	return data.NewBatch(pairs, numLayers)
}

// Batches sorts pairs by source length and cuts them into batches.
func Batches(pairs []Pair, batchSize, numLayers int) ([]*Batch, error) {
	return data.Batches(pairs, batchSize, numLayers)
}
