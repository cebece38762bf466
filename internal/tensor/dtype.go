// Package tensor provides the dense array substrate for the resolvent
// linear-solve library: shapes, runtime dtypes, raw buffers and the
// Backend interface that computation (and autodiff) plugs into.
package tensor

import (
	"sync/atomic"

	"github.com/x448/float16"
)

// DType is a constraint for supported element types.
// Float16 is the IEEE binary16 type from github.com/x448/float16.
type DType interface {
	~float32 | ~float64 | ~int32 | ~int64 | ~uint8 | ~bool | float16.Float16
}

// DataType represents runtime type information for tensors.
type DataType int

// Supported data types for tensors.
const (
	Float16 DataType = iota
	Float32
	Float64
	Int32
	Int64
	Uint8
	Bool
)

// Size returns the byte size of one element of the data type.
func (dt DataType) Size() int {
	switch dt {
	case Float16:
		return 2
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Uint8, Bool:
		return 1
	default:
		panic("unknown data type")
	}
}

// String returns a human-readable name for the data type.
func (dt DataType) String() string {
	switch dt {
	case Float16:
		return "float16"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	case Uint8:
		return "uint8"
	case Bool:
		return "bool"
	default:
		return "unknown"
	}
}

// IsFloat reports whether the data type is a floating-point type.
func (dt DataType) IsFloat() bool {
	return dt == Float16 || dt == Float32 || dt == Float64
}

// promotionRank orders dtypes for mixed-dtype arithmetic. A binary
// operation on two dtypes produces the higher-ranked one.
func (dt DataType) promotionRank() int {
	switch dt {
	case Bool:
		return 0
	case Uint8:
		return 1
	case Int32:
		return 2
	case Int64:
		return 3
	case Float16:
		return 4
	case Float32:
		return 5
	case Float64:
		return 6
	default:
		panic("unknown data type")
	}
}

// PromoteTypes returns the result dtype of combining a and b, following
// the usual widening rules (float64 > float32 > float16 > int64 > int32
// > uint8 > bool).
func PromoteTypes(a, b DataType) DataType {
	if a.promotionRank() >= b.promotionRank() {
		return a
	}
	return b
}

// Eps returns the machine epsilon of a floating dtype.
func Eps(dt DataType) float64 {
	switch dt {
	case Float16:
		return 0x1p-10
	case Float32:
		return 0x1p-23
	case Float64:
		return 0x1p-52
	default:
		panic("Eps: " + dt.String() + " is not a floating dtype")
	}
}

// doublePrecision selects the process-wide default floating dtype.
// Enabled by default: Go's native float literal is float64.
var doublePrecision atomic.Bool

func init() { doublePrecision.Store(true) }

// SetDoublePrecision switches the process-wide default floating dtype
// between Float64 (enabled) and Float32 (disabled).
func SetDoublePrecision(enabled bool) { doublePrecision.Store(enabled) }

// DefaultFloat returns the default floating dtype that non-float inputs
// are promoted to before solving.
func DefaultFloat() DataType {
	if doublePrecision.Load() {
		return Float64
	}
	return Float32
}

// inferDataType infers the runtime DataType from a generic type T.
func inferDataType[T DType](dummy T) DataType {
	switch any(dummy).(type) {
	case float16.Float16:
		return Float16
	case float32:
		return Float32
	case float64:
		return Float64
	case int32:
		return Int32
	case int64:
		return Int64
	case uint8:
		return Uint8
	case bool:
		return Bool
	default:
		panic("unsupported type")
	}
}
