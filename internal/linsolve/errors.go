package linsolve

import (
	"github.com/pkg/errors"

	"github.com/resolvent-ml/resolvent/internal/solver"
)

// Sentinel errors. Structural problems are always returned as errors;
// numerical failures become errors only when throwing is enabled
// (the default), and then wrap one of the result sentinels.
var (
	// ErrStructureMismatch reports a right-hand side whose tree
	// structure or shapes do not match the operator's output space.
	ErrStructureMismatch = errors.New("rhs structure does not match operator output structure")

	// ErrSingular reports a direct solver hitting a singular matrix.
	ErrSingular = errors.New("operator is singular")

	// ErrNonConvergence reports an iterative solver running out of
	// steps.
	ErrNonConvergence = errors.New("solver did not converge")

	// ErrBreakdown reports an iterative solver producing non-finite
	// internal state.
	ErrBreakdown = errors.New("solver broke down")
)

// resultErr maps a numerical failure to its sentinel.
func resultErr(r solver.Result) error {
	switch r {
	case solver.Singular:
		return ErrSingular
	case solver.NonConvergence:
		return ErrNonConvergence
	case solver.Breakdown:
		return ErrBreakdown
	default:
		return nil
	}
}
