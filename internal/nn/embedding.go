package nn

import (
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Embedding maps int32 token IDs to dense learnable vectors.
//
// The weight matrix is [vocab, dim], initialized from N(0, 1). Lookup of a
// time-major token batch (time, batch) yields (time, batch, dim); gradients
// scatter-add back into the rows that were read.
type Embedding[B tensor.Backend] struct {
	weight   *Parameter[B]
	numEmbed int
	embedDim int
	backend  B
}

// NewEmbedding creates an embedding table of numEmbed vectors of embedDim.
func NewEmbedding[B tensor.Backend](numEmbed, embedDim int, backend B) *Embedding[B] {
	weight := NewParameter("weight", Randn(tensor.Shape{numEmbed, embedDim}, backend))
	return &Embedding[B]{
		weight:   weight,
		numEmbed: numEmbed,
		embedDim: embedDim,
		backend:  backend,
	}
}

// Lookup gathers embedding rows for the given indices. The result has the
// indices' shape with the embedding dimension appended.
func (e *Embedding[B]) Lookup(indices *tensor.Tensor[int32, B]) *tensor.Tensor[float32, B] {
	return e.weight.Tensor().Embedding(indices)
}

// Parameters returns [weight].
func (e *Embedding[B]) Parameters() []*Parameter[B] {
	return []*Parameter[B]{e.weight}
}

// Weight returns the embedding table parameter.
func (e *Embedding[B]) Weight() *Parameter[B] {
	return e.weight
}
