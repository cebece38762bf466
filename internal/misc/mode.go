package misc

import (
	"math"

	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// JacobianMode selects which sweep materializes a Jacobian cheaper.
type JacobianMode uint8

const (
	// ModeForward builds the Jacobian column by column with forward
	// tangent sweeps; one sweep per input element.
	ModeForward JacobianMode = iota
	// ModeReverse builds it row by row with backward sweeps; one sweep
	// per output element.
	ModeReverse
)

// String names the mode.
func (m JacobianMode) String() string {
	if m == ModeForward {
		return "forward"
	}
	return "reverse"
}

// PickJacobianMode chooses forward mode for small inputs, or whenever
// the input is not much larger than the output. The thresholds favor
// forward mode because a forward sweep is cheaper per pass here.
func PickJacobianMode(inSize, outSize int) JacobianMode {
	if inSize < 100 || float64(inSize) <= 1.5*float64(outSize) {
		return ModeForward
	}
	return ModeReverse
}

// ResolveRcond normalizes a singular-value cutoff for an n-by-m
// operator. NaN means unset and resolves to eps*max(n, m); a negative
// cutoff resolves to eps. Anything else passes through.
func ResolveRcond(rcond float64, n, m int, dtype tensor.DataType) float64 {
	eps := tensor.Eps(dtype)
	if math.IsNaN(rcond) {
		k := n
		if m > k {
			k = m
		}
		return eps * float64(k)
	}
	if rcond < 0 {
		return eps
	}
	return rcond
}
