package tensor

import "fmt"

// DType identifies a tensor element type. Values are stable and mirror the
// scalar types the engine programs operate on; they are safe to expose
// across an FFI boundary.
type DType int32

const (
	Float32 DType = 0
	Float64 DType = 1
	Int64   DType = 2
	Int32   DType = 3
	Int16   DType = 4
	Int8    DType = 5
	UInt8   DType = 6
	Bool    DType = 7
)

// Size returns the element size in bytes, or 0 for an unknown dtype.
func (d DType) Size() int64 {
	switch d {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	case Int16:
		return 2
	case Int8, UInt8, Bool:
		return 1
	}
	return 0
}

// Valid reports whether d is a known dtype.
func (d DType) Valid() bool {
	return d >= Float32 && d <= Bool
}

func (d DType) String() string {
	switch d {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int64:
		return "int64"
	case Int32:
		return "int32"
	case Int16:
		return "int16"
	case Int8:
		return "int8"
	case UInt8:
		return "uint8"
	case Bool:
		return "bool"
	}
	return fmt.Sprintf("dtype(%d)", int32(d))
}
