package operator

import (
	"fmt"
	"reflect"

	"github.com/gomlx/exceptions"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/resolvent-ml/resolvent/internal/autodiff"
	"github.com/resolvent-ml/resolvent/internal/misc"
	"github.com/resolvent-ml/resolvent/internal/pytree"
	"github.com/resolvent-ml/resolvent/internal/tensor"
)

// LinearFunc applies a linear map to a tensor tree. Implementations
// must route all tensor arithmetic through the given backend and must
// be linear in the input; linearity is trusted, never verified.
type LinearFunc func(tensor.Backend, *pytree.Value) *pytree.Value

// outStructureCache memoizes probed output structures keyed by the
// function identity and the input structure signature.
var outStructureCache = misc.NewCache[string, *pytree.Structure](misc.DefaultCacheSize)

// SetOutStructureCache replaces the probe cache, mainly so tests can
// observe or bound it.
func SetOutStructureCache(c *misc.Cache[string, *pytree.Structure]) {
	outStructureCache = c
}

// FunctionLinearOperator wraps an opaque linear function. The output
// structure is discovered by applying the function once to a tree of
// zeros; transpose application runs a reverse sweep over a recording
// of the function.
type FunctionLinearOperator struct {
	fn           LinearFunc
	inStructure  *pytree.Structure
	outStructure *pytree.Structure
	tags         Tag
}

// NewFunction creates an operator from a linear function and the
// structure of the inputs it accepts. The backend is used once to
// probe the output structure; probes bypass any recording so the tape
// sees none of it.
func NewFunction(backend tensor.Backend, fn LinearFunc, inStructure *pytree.Structure, tags Tag) (*FunctionLinearOperator, error) {
	key := fmt.Sprintf("%x|%s", reflect.ValueOf(fn).Pointer(), pytree.Signature(inStructure))
	out, ok := outStructureCache.Get(key)
	if !ok {
		probe := plainBackend(backend)
		var result *pytree.Value
		if ex := exceptions.Try(func() {
			result = fn(probe, pytree.ZerosOf(inStructure))
		}); ex != nil {
			return nil, errors.Errorf("operator: probing function output structure: %v", ex)
		}
		out = pytree.StructureOf(result)
		outStructureCache.Put(key, out)
		klog.V(2).Infof("function operator: probed output structure %s for input %s",
			pytree.Signature(out), pytree.Signature(inStructure))
	}
	return &FunctionLinearOperator{
		fn:           fn,
		inStructure:  inStructure,
		outStructure: out,
		tags:         tags,
	}, nil
}

// plainBackend unwraps recording decorators so probes and sweeps run
// on the bare compute backend.
func plainBackend(backend tensor.Backend) tensor.Backend {
	for {
		r, ok := backend.(autodiff.Recorder)
		if !ok {
			return backend
		}
		backend = r.InnerBackend()
	}
}

// Mv applies the function.
func (f *FunctionLinearOperator) Mv(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(f.inStructure, vector, "input"); err != nil {
		return nil, err
	}
	var out *pytree.Value
	if ex := exceptions.Try(func() { out = f.fn(backend, vector) }); ex != nil {
		return nil, errors.Errorf("operator: applying function operator: %v", ex)
	}
	return out, nil
}

// mvT computes the vector-transpose product by recording one
// application of the function on zeros and sweeping the tape backwards
// seeded with the cotangent. The function is linear, so the sweep at
// zero equals the sweep anywhere.
func (f *FunctionLinearOperator) mvT(backend tensor.Backend, vector *pytree.Value) (*pytree.Value, error) {
	if err := checkVector(f.outStructure, vector, "input"); err != nil {
		return nil, err
	}
	inner := plainBackend(backend)
	ad := autodiff.New(inner)
	ad.Tape().StartRecording()

	x := pytree.ZerosOf(f.inStructure)
	var y *pytree.Value
	if ex := exceptions.Try(func() { y = f.fn(ad, x) }); ex != nil {
		return nil, errors.Errorf("operator: applying function operator: %v", ex)
	}
	yvec := pytree.Ravel(ad, y)
	ad.Tape().StopRecording()

	seed := pytree.Ravel(inner, vector)
	if seed.DType() != yvec.DType() {
		seed = inner.Cast(seed, yvec.DType())
	}
	grads := ad.Tape().Backward(yvec, seed, ad)

	inSpecs := f.inStructure.Leaves()
	xLeaves := x.Leaves()
	outLeaves := make([]*tensor.RawTensor, len(xLeaves))
	for i, leaf := range xLeaves {
		g, ok := grads[leaf]
		if !ok {
			g = tensor.RawZeros(inSpecs[i].Shape, inSpecs[i].DType)
		} else if g.DType() != inSpecs[i].DType {
			g = inner.Cast(g, inSpecs[i].DType)
		}
		outLeaves[i] = g
	}
	return pytree.Unflatten(f.inStructure.Def(), outLeaves)
}

// Transpose returns a lazy transpose view.
func (f *FunctionLinearOperator) Transpose() LinearOperator {
	return &transposedOperator{inner: f}
}

// AsDense materializes the function as a matrix, assembling whichever
// side is cheaper per the Jacobian-mode heuristic: column by column
// (one application per input element) or row by row (one transpose
// application per output element). All column-mode steps go through
// the given backend, so under a recording backend the dense matrix
// stays connected to whatever the closure captured; row mode sweeps
// off the tape and is therefore only used when nothing is recording.
func (f *FunctionLinearOperator) AsDense(backend tensor.Backend) (*tensor.RawTensor, error) {
	inN := pytree.NumElements(f.inStructure)
	outN := pytree.NumElements(f.outStructure)
	dt := tensor.PromoteTypes(
		pytree.PromotedDType(f.inStructure),
		pytree.PromotedDType(f.outStructure),
	)

	if inN == 0 {
		return tensor.RawZeros(tensor.Shape{outN, 0}, dt), nil
	}

	mode := misc.PickJacobianMode(inN, outN)
	if rec, ok := backend.(autodiff.Recorder); ok && rec.Tape().IsRecording() {
		mode = misc.ModeForward
	}
	if mode == misc.ModeReverse {
		return f.asDenseRows(backend, inN, outN, dt)
	}

	cols := make([]*tensor.RawTensor, inN)
	for j := 0; j < inN; j++ {
		basis, err := pytree.Unravel(backend, tensor.BasisVector(inN, j, pytree.PromotedDType(f.inStructure)), f.inStructure)
		if err != nil {
			return nil, err
		}
		col, err := f.Mv(backend, basis)
		if err != nil {
			return nil, err
		}
		cvec := pytree.Ravel(backend, col)
		if cvec.DType() != dt {
			cvec = backend.Cast(cvec, dt)
		}
		cols[j] = backend.Reshape(cvec, tensor.Shape{outN, 1})
	}
	if len(cols) == 1 {
		return cols[0], nil
	}
	return backend.Cat(cols, 1), nil
}

// asDenseRows materializes the function row by row: row i is the
// transpose applied to the i-th basis vector of the output space.
func (f *FunctionLinearOperator) asDenseRows(backend tensor.Backend, inN, outN int, dt tensor.DataType) (*tensor.RawTensor, error) {
	if outN == 0 {
		return tensor.RawZeros(tensor.Shape{0, inN}, dt), nil
	}
	rows := make([]*tensor.RawTensor, outN)
	for i := 0; i < outN; i++ {
		basis, err := pytree.Unravel(backend, tensor.BasisVector(outN, i, pytree.PromotedDType(f.outStructure)), f.outStructure)
		if err != nil {
			return nil, err
		}
		row, err := f.mvT(backend, basis)
		if err != nil {
			return nil, err
		}
		rvec := pytree.Ravel(backend, row)
		if rvec.DType() != dt {
			rvec = backend.Cast(rvec, dt)
		}
		rows[i] = backend.Reshape(rvec, tensor.Shape{1, inN})
	}
	if len(rows) == 1 {
		return rows[0], nil
	}
	return backend.Cat(rows, 0), nil
}

// InStructure is the input structure given at construction.
func (f *FunctionLinearOperator) InStructure() *pytree.Structure { return f.inStructure }

// OutStructure is the probed output structure.
func (f *FunctionLinearOperator) OutStructure() *pytree.Structure { return f.outStructure }

// Tags returns the structural tags given at construction.
func (f *FunctionLinearOperator) Tags() Tag { return f.tags }
