// Package model assembles the full sequence-to-sequence corrector: shared
// embedding tables, the pyramidal encoder, the attention decoder, the masked
// sequence loss, and the training machinery around them (Adam or SGD with
// global-norm clipping, learning rate decay, checkpointing).
package model

import "fmt"

// Config fixes the model hyperparameters at construction.
type Config struct {
	// VocabSize is the number of token IDs the embeddings and output
	// projection cover.
	VocabSize int

	// Size is the hidden state width used throughout the network.
	Size int

	// NumLayers is the depth of both the encoder pyramid and the decoder
	// stack.
	NumLayers int

	// MaxGradientNorm bounds the global gradient norm each training step.
	MaxGradientNorm float32

	// BatchSize is the fixed number of sequences per batch; the loss divides
	// by it.
	BatchSize int

	// LearningRate is the initial learning rate.
	LearningRate float32

	// LRDecayFactor multiplies the learning rate on each DecayLearningRate
	// call.
	LRDecayFactor float32

	// Dropout is the probability of zeroing an activation during training.
	Dropout float32

	// ForwardOnly skips optimizer construction for inference-only use;
	// Train returns an error.
	ForwardOnly bool

	// Optimizer selects the update rule, "adam" (default) or "sgd".
	Optimizer string
}

// Validate checks the configuration for values the model cannot run with.
func (c *Config) Validate() error {
	if c.VocabSize <= 0 {
		return fmt.Errorf("vocab size must be positive, got %d", c.VocabSize)
	}
	if c.Size <= 0 {
		return fmt.Errorf("hidden size must be positive, got %d", c.Size)
	}
	if c.NumLayers < 1 {
		return fmt.Errorf("need at least one layer, got %d", c.NumLayers)
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("batch size must be positive, got %d", c.BatchSize)
	}
	if c.Dropout < 0 || c.Dropout >= 1 {
		return fmt.Errorf("dropout must be in [0, 1), got %g", c.Dropout)
	}
	switch c.Optimizer {
	case "", "adam", "sgd":
	default:
		return fmt.Errorf("unknown optimizer %q", c.Optimizer)
	}
	return nil
}
