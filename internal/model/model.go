package model

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/autodiff"
	"github.com/nlc-ml/nlc/internal/nn"
	"github.com/nlc-ml/nlc/internal/optim"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Model is the sequence-to-sequence corrector.
//
// The forward pass takes time-major int32 token and mask tensors for both
// sides, embeds them with separate source and target tables, encodes the
// source through the pyramid, decodes the target against the encoder output
// with attention, and scores the result with the masked sequence loss.
//
// All computation runs through an autodiff decorator over the supplied
// backend; Train records the forward pass on the tape, walks it backward,
// clips the gradients by global norm and applies the optimizer.
type Model[B tensor.Backend] struct {
	config  Config
	backend *autodiff.Backend[B]

	srcEmbed *nn.Embedding[*autodiff.Backend[B]]
	tgtEmbed *nn.Embedding[*autodiff.Backend[B]]
	encoder  *nn.PyramidEncoder[*autodiff.Backend[B]]
	decoder  *nn.AttnDecoder[*autodiff.Backend[B]]
	loss     *nn.SequenceLoss[*autodiff.Backend[B]]

	params       []*nn.Parameter[*autodiff.Backend[B]]
	optimizer    optim.Optimizer
	learningRate float32
	globalStep   int
}

// New builds a model from the configuration on top of the given compute
// backend.
func New[B tensor.Backend](config Config, inner B) (*Model[B], error) {
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	backend := autodiff.New(inner)

	m := &Model[B]{
		config:       config,
		backend:      backend,
		srcEmbed:     nn.NewEmbedding(config.VocabSize, config.Size, backend),
		tgtEmbed:     nn.NewEmbedding(config.VocabSize, config.Size, backend),
		encoder:      nn.NewPyramidEncoder(config.Size, config.NumLayers, config.Dropout, backend),
		decoder:      nn.NewAttnDecoder(config.Size, config.NumLayers, config.Dropout, backend),
		learningRate: config.LearningRate,
	}
	m.loss = nn.NewSequenceLoss(config.Size, config.VocabSize, backend)

	m.registerParams()

	if !config.ForwardOnly {
		switch config.Optimizer {
		case "sgd":
			m.optimizer = optim.NewSGD(m.params, optim.SGDConfig{LR: config.LearningRate}, backend)
		default:
			m.optimizer = optim.NewAdam(m.params, optim.AdamConfig{LR: config.LearningRate}, backend)
		}
	}

	return m, nil
}

// registerParams collects every parameter under a unique hierarchical name.
func (m *Model[B]) registerParams() {
	add := func(prefix string, params []*nn.Parameter[*autodiff.Backend[B]]) {
		for i, p := range params {
			p.SetName(fmt.Sprintf("%s.%d.%s", prefix, i, p.Name()))
			m.params = append(m.params, p)
		}
	}
	add("src_embed", m.srcEmbed.Parameters())
	add("tgt_embed", m.tgtEmbed.Parameters())
	add("encoder", m.encoder.Parameters())
	add("decoder", m.decoder.Parameters())
	add("loss", m.loss.Parameters())
}

// forward runs the full graph and returns the scalar loss and the
// per-position output distributions (time, batch, vocab).
func (m *Model[B]) forward(srcTokens, srcMask, tgtTokens, tgtMask *tensor.RawTensor) (*tensor.Tensor[float32, *autodiff.Backend[B]], *tensor.Tensor[float32, *autodiff.Backend[B]]) {
	src := tensor.New[int32](srcTokens, m.backend)
	sMask := tensor.New[int32](srcMask, m.backend)
	tgt := tensor.New[int32](tgtTokens, m.backend)
	tMask := tensor.New[int32](tgtMask, m.backend)

	encoderOutput, _ := m.encoder.Forward(m.srcEmbed.Lookup(src), sMask)
	decoderOutput := m.decoder.Forward(m.tgtEmbed.Lookup(tgt), tMask, encoderOutput)
	return m.loss.Forward(decoderOutput, tgt, tMask)
}

// Train runs one training step on a batch and returns the clipped gradient
// norm, the loss and the parameter norm.
func (m *Model[B]) Train(srcTokens, srcMask, tgtTokens, tgtMask *tensor.RawTensor) (gradNorm, loss, paramNorm float32, err error) {
	if m.config.ForwardOnly {
		return 0, 0, 0, fmt.Errorf("model built forward-only")
	}

	m.setTraining(true)
	tape := m.backend.Tape()
	tape.Clear()
	tape.StartRecording()

	lossT, _ := m.forward(srcTokens, srcMask, tgtTokens, tgtMask)
	grads := autodiff.Backward(lossT, m.backend)

	tape.StopRecording()
	tape.Clear()

	gradList := make([]*tensor.RawTensor, len(m.params))
	for i, p := range m.params {
		gradList[i] = grads[p.Tensor().Raw()]
	}
	gradNorm = optim.ClipByGlobalNorm(gradList, m.config.MaxGradientNorm)

	m.optimizer.Step(grads)
	m.optimizer.ZeroGrad()
	m.globalStep++

	return gradNorm, lossT.Item(), m.paramNorm(), nil
}

// Test runs the forward pass on a batch without recording gradients or
// applying dropout, returning the loss and the per-position output
// distributions (time, batch, vocab). Parameters are not mutated.
func (m *Model[B]) Test(srcTokens, srcMask, tgtTokens, tgtMask *tensor.RawTensor) (float32, *tensor.Tensor[float32, *autodiff.Backend[B]]) {
	m.setTraining(false)
	m.backend.Tape().StopRecording()
	m.backend.Tape().Clear()

	lossT, outputs := m.forward(srcTokens, srcMask, tgtTokens, tgtMask)
	return lossT.Item(), outputs
}

// Predict returns the per-position token distributions (time, batch, vocab)
// for a batch, without training side effects.
func (m *Model[B]) Predict(srcTokens, srcMask, tgtTokens, tgtMask *tensor.RawTensor) *tensor.Tensor[float32, *autodiff.Backend[B]] {
	m.setTraining(false)
	m.backend.Tape().StopRecording()
	m.backend.Tape().Clear()

	_, outputs := m.forward(srcTokens, srcMask, tgtTokens, tgtMask)
	return outputs
}

func (m *Model[B]) setTraining(training bool) {
	m.encoder.SetTraining(training)
	m.decoder.SetTraining(training)
}

func (m *Model[B]) paramNorm() float32 {
	raws := make([]*tensor.RawTensor, len(m.params))
	for i, p := range m.params {
		raws[i] = p.Tensor().Raw()
	}
	return optim.GlobalNorm(raws)
}

// DecayLearningRate multiplies the learning rate by the configured decay
// factor. The driver calls this when validation loss plateaus.
func (m *Model[B]) DecayLearningRate() {
	m.learningRate *= m.config.LRDecayFactor
	if m.optimizer != nil {
		m.optimizer.SetLR(m.learningRate)
	}
}

// LearningRate returns the current learning rate.
func (m *Model[B]) LearningRate() float32 {
	return m.learningRate
}

// GlobalStep returns the number of training steps applied.
func (m *Model[B]) GlobalStep() int {
	return m.globalStep
}

// Parameters returns all trainable parameters.
func (m *Model[B]) Parameters() []*nn.Parameter[*autodiff.Backend[B]] {
	return m.params
}

// NumParams returns the total number of trainable scalars.
func (m *Model[B]) NumParams() int {
	n := 0
	for _, p := range m.params {
		n += p.Tensor().NumElements()
	}
	return n
}

// Config returns the model configuration.
func (m *Model[B]) Config() Config {
	return m.config
}

// Backend returns the autodiff backend; batches must be built for its
// device.
func (m *Model[B]) Backend() *autodiff.Backend[B] {
	return m.backend
}
