package cpu

import (
	"fmt"

	"github.com/nlc-ml/nlc/internal/tensor"
)

// MatMul performs 2D matrix multiplication: (M, K) @ (K, N) -> (M, N).
func (c *Backend) MatMul(a, b *tensor.RawTensor) *tensor.RawTensor {
	aShape, bShape := a.Shape(), b.Shape()
	if len(aShape) != 2 || len(bShape) != 2 {
		panic(fmt.Sprintf("matmul: expected 2D tensors, got %v @ %v", aShape, bShape))
	}
	if aShape[1] != bShape[0] {
		panic(fmt.Sprintf("matmul: inner dimensions do not match: %v @ %v", aShape, bShape))
	}

	m, k, n := aShape[0], aShape[1], bShape[1]
	result := tensor.MustNewRaw(tensor.Shape{m, n}, tensor.Float32, c.device)

	aData, bData, out := a.AsFloat32(), b.AsFloat32(), result.AsFloat32()

	// ikj loop order keeps the inner loop walking both b and out rows
	// contiguously.
	for i := 0; i < m; i++ {
		outRow := out[i*n : (i+1)*n]
		for kk := 0; kk < k; kk++ {
			aik := aData[i*k+kk]
			if aik == 0 {
				continue
			}
			bRow := bData[kk*n : (kk+1)*n]
			for j := range outRow {
				outRow[j] += aik * bRow[j]
			}
		}
	}
	return result
}
