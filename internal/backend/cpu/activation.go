package cpu

import (
	"math"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// Tanh applies the hyperbolic tangent element-wise.
func (c *Backend) Tanh(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary(x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

// Sigmoid applies the logistic sigmoid: 1 / (1 + exp(-x)).
func (c *Backend) Sigmoid(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary(x, func(v float32) float32 {
		return float32(1.0 / (1.0 + math.Exp(float64(-v))))
	})
}

// ReLU applies max(0, x) element-wise.
func (c *Backend) ReLU(x *tensor.RawTensor) *tensor.RawTensor {
	return c.unary(x, func(v float32) float32 {
		if v > 0 {
			return v
		}
		return 0
	})
}
