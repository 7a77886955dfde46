package tensor

import (
	"bytes"
	"math"
	"slices"

	"github.com/tensorbridge/tensorbridge/status"
)

// Tensor is a dense, contiguous value with exclusive ownership of its shape
// and byte buffer. Construction copies caller data; no aliasing survives it.
//
// The zero value and the nil pointer are both safe to query and report a
// rank-0, empty tensor.
type Tensor struct {
	dtype DType
	shape []int64
	data  []byte
}

// New validates and constructs a tensor, copying data into owned storage.
//
// It fails with InvalidArgument when the dtype is unknown, the rank is zero,
// any dimension is not positive, or len(data) does not equal
// product(shape) * dtype element size.
func New(data []byte, shape []int64, dtype DType) (*Tensor, error) {
	if !dtype.Valid() {
		return nil, status.InvalidArgumentf("tensor_create", "unknown dtype %d", int32(dtype))
	}
	if len(shape) == 0 {
		return nil, status.InvalidArgumentf("tensor_create", "rank must be at least 1")
	}
	// The running product is checked against the byte budget so it cannot
	// wrap around int64 and defeat the size check below.
	maxElems := math.MaxInt64 / dtype.Size()
	elems := int64(1)
	for _, dim := range shape {
		if dim <= 0 {
			return nil, status.InvalidArgumentf("tensor_create", "shape dimensions must be positive, got %d", dim)
		}
		if dim > maxElems/elems {
			return nil, status.InvalidArgumentf("tensor_create",
				"shape element count overflows: %v", shape)
		}
		elems *= dim
	}
	want := elems * dtype.Size()
	if int64(len(data)) != want {
		return nil, status.InvalidArgumentf("tensor_create",
			"data size mismatch: expected %d bytes, got %d", want, len(data))
	}

	return &Tensor{
		dtype: dtype,
		shape: slices.Clone(shape),
		data:  bytes.Clone(data),
	}, nil
}

// DType returns the element type, or Float32 for a nil tensor.
func (t *Tensor) DType() DType {
	if t == nil {
		return Float32
	}
	return t.dtype
}

// Rank returns the number of dimensions, 0 for a nil tensor.
func (t *Tensor) Rank() int32 {
	if t == nil {
		return 0
	}
	return int32(len(t.shape))
}

// Shape returns a view of the dimension sizes. The slice belongs to the
// tensor and must not be mutated; it is valid while the tensor is reachable.
func (t *Tensor) Shape() []int64 {
	if t == nil {
		return nil
	}
	return t.shape
}

// NumBytes returns the length of the data buffer in bytes.
func (t *Tensor) NumBytes() int64 {
	if t == nil {
		return 0
	}
	return int64(len(t.data))
}

// NumElements returns the total element count.
func (t *Tensor) NumElements() int64 {
	if t == nil {
		return 0
	}
	n := int64(1)
	for _, dim := range t.shape {
		n *= dim
	}
	return n
}

// Data returns a view of the raw bytes. The slice belongs to the tensor and
// must not be mutated; it is valid while the tensor is reachable.
func (t *Tensor) Data() []byte {
	if t == nil {
		return nil
	}
	return t.data
}

// Clone returns a deep copy.
func (t *Tensor) Clone() *Tensor {
	if t == nil {
		return nil
	}
	return &Tensor{
		dtype: t.dtype,
		shape: slices.Clone(t.shape),
		data:  bytes.Clone(t.data),
	}
}

// Equal reports whether two tensors have identical dtype, shape, and bytes.
func (t *Tensor) Equal(o *Tensor) bool {
	if t == nil || o == nil {
		return t == o
	}
	return t.dtype == o.dtype &&
		slices.Equal(t.shape, o.shape) &&
		bytes.Equal(t.data, o.data)
}
