// Package optim implements the optimization side of training: the Adam and
// SGD parameter update rules and global-norm gradient clipping.
//
// Optimizers consume the gradient map produced by the autodiff backward
// pass and update parameters in place:
//
//	grads := autodiff.Backward(loss, backend)
//	optim.ClipByGlobalNorm(gradientList, maxNorm)
//	optimizer.Step(grads)
//	optimizer.ZeroGrad()
package optim

import (
	"github.com/nlc-ml/nlc/internal/nn"
	"github.com/nlc-ml/nlc/internal/tensor"
)

// Optimizer is the base interface for parameter update rules.
type Optimizer interface {
	// Step applies one update to every parameter that has a gradient in the
	// map. Parameters absent from the map are skipped.
	Step(grads map[*tensor.RawTensor]*tensor.RawTensor)

	// ZeroGrad clears all parameter gradients before the next iteration.
	ZeroGrad()

	// GetLR returns the current learning rate.
	GetLR() float32

	// SetLR replaces the learning rate; used by external decay schedules.
	SetLR(lr float32)
}

// getGradient retrieves the gradient for a parameter, or nil when the
// parameter did not participate in the forward pass.
func getGradient[B tensor.Backend](param *nn.Parameter[B], grads map[*tensor.RawTensor]*tensor.RawTensor) *tensor.RawTensor {
	if param == nil {
		return nil
	}
	return grads[param.Tensor().Raw()]
}
