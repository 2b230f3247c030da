package optim

import (
	"github.com/nlc-ml/nlc/internal/nn"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// SGD implements stochastic gradient descent with optional momentum.
//
//	buf = momentum·buf + g
//	param -= lr·buf
//
// With momentum 0 the buffer is skipped and the update is param -= lr·g.
type SGD[B tensor.Backend] struct {
	params   []*nn.Parameter[B]
	lr       float32
	momentum float32
	buf      map[*nn.Parameter[B]][]float32
	backend  B
}

// SGDConfig holds SGD hyperparameters. A zero LR defaults to 0.01.
type SGDConfig struct {
	LR       float32
	Momentum float32
}

// NewSGD creates an SGD optimizer over the given parameters.
func NewSGD[B tensor.Backend](params []*nn.Parameter[B], config SGDConfig, backend B) *SGD[B] {
	if config.LR == 0 {
		config.LR = 0.01
	}

	return &SGD[B]{
		params:   params,
		lr:       config.LR,
		momentum: config.Momentum,
		buf:      make(map[*nn.Parameter[B]][]float32),
		backend:  backend,
	}
}

// Step applies one SGD update.
func (s *SGD[B]) Step(grads map[*tensor.RawTensor]*tensor.RawTensor) {
	for _, param := range s.params {
		grad := getGradient(param, grads)
		if grad == nil {
			continue
		}

		paramData := param.Tensor().Data()
		gradData := grad.AsFloat32()

		if s.momentum == 0 {
			for i := range paramData {
				paramData[i] -= s.lr * gradData[i]
			}
			continue
		}

		buf, ok := s.buf[param]
		if !ok {
			buf = make([]float32, len(paramData))
			s.buf[param] = buf
		}
		for i := range paramData {
			buf[i] = s.momentum*buf[i] + gradData[i]
			paramData[i] -= s.lr * buf[i]
		}
	}
}

// ZeroGrad clears gradients for all parameters.
func (s *SGD[B]) ZeroGrad() {
	for _, param := range s.params {
		param.ZeroGrad()
	}
}

// GetLR returns the current learning rate.
func (s *SGD[B]) GetLR() float32 {
	return s.lr
}

// SetLR replaces the learning rate.
func (s *SGD[B]) SetLR(lr float32) {
	s.lr = lr
}
