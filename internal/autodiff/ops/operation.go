// Package ops defines the differentiable-operation interface and the
// derivative rules for every primitive the tape can record.
//
// Each operation declares its recorded inputs and output plus two
// hand-written sensitivity functions:
//   - Backward: reverse mode, output cotangent -> input cotangents
//   - Pushforward: forward mode, input tangents -> output tangent
//
// The pair is the dual interface the differentiable linear-solve rule
// plugs into: packages outside this one (notably the solve dispatcher)
// implement Operation to register custom derivative rules that bypass
// the recorded primitives entirely.
package ops

import "github.com/resolvent-ml/resolvent/internal/tensor"

// Operation is a differentiable operation recorded on the gradient
// tape during the forward pass.
type Operation interface {
	// Backward computes input cotangents given the output cotangent.
	// The returned slice is aligned with Inputs(); a nil entry means
	// no gradient flows to that input.
	Backward(outputGrad *tensor.RawTensor, backend tensor.Backend) []*tensor.RawTensor

	// Pushforward computes the output tangent given input tangents.
	// The tangents slice is aligned with Inputs(); nil entries stand
	// for zero tangents.
	Pushforward(tangents []*tensor.RawTensor, backend tensor.Backend) *tensor.RawTensor

	// Inputs returns the input tensors recorded for this operation.
	Inputs() []*tensor.RawTensor

	// Output returns the output tensor produced by this operation.
	Output() *tensor.RawTensor
}
