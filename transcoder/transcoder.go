package transcoder

import (
	"encoding/binary"

	"github.com/tensorbridge/tensorbridge/status"
	"github.com/tensorbridge/tensorbridge/tensor"
)

// Wire format, little-endian throughout:
//
//	magic   u32  "TBR1"
//	count   u32
//	per tensor:
//	  dtype   u32
//	  rank    u32
//	  dims    rank * i64
//	  dataLen u64
//	  data    dataLen bytes
var magic = [4]byte{'T', 'B', 'R', '1'}

// Decode limits. Program output is untrusted; a malformed blob must fail
// cleanly instead of provoking huge allocations.
const (
	MaxTensors  = 256
	MaxRank     = 16
	MaxDataSize = 1 << 31
)

// EncodedSize returns the exact blob size for a tensor list.
func EncodedSize(tensors []*tensor.Tensor) int {
	n := 8
	for _, t := range tensors {
		n += 4 + 4 + 8*int(t.Rank()) + 8 + int(t.NumBytes())
	}
	return n
}

// Encode serializes a tensor list into a fresh blob. Input bytes are copied,
// so callers may release their tensors as soon as Encode returns.
//
// Nil tensor elements are rejected with InvalidArgument.
func Encode(tensors []*tensor.Tensor) ([]byte, error) {
	for i, t := range tensors {
		if t == nil {
			return nil, status.InvalidArgumentf("encode", "input tensor %d is nil", i)
		}
	}
	if len(tensors) > MaxTensors {
		return nil, status.InvalidArgumentf("encode", "too many tensors: %d > %d", len(tensors), MaxTensors)
	}

	out := make([]byte, 0, EncodedSize(tensors))
	out = append(out, magic[:]...)
	out = binary.LittleEndian.AppendUint32(out, uint32(len(tensors)))

	for _, t := range tensors {
		out = binary.LittleEndian.AppendUint32(out, uint32(t.DType()))
		out = binary.LittleEndian.AppendUint32(out, uint32(t.Rank()))
		for _, dim := range t.Shape() {
			out = binary.LittleEndian.AppendUint64(out, uint64(dim))
		}
		out = binary.LittleEndian.AppendUint64(out, uint64(t.NumBytes()))
		out = append(out, t.Data()...)
	}
	return out, nil
}

// reader walks a blob with bounds checking.
type reader struct {
	buf []byte
	off int
}

func (r *reader) remaining() int { return len(r.buf) - r.off }

func (r *reader) u32() (uint32, bool) {
	if r.remaining() < 4 {
		return 0, false
	}
	v := binary.LittleEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v, true
}

func (r *reader) u64() (uint64, bool) {
	if r.remaining() < 8 {
		return 0, false
	}
	v := binary.LittleEndian.Uint64(r.buf[r.off:])
	r.off += 8
	return v, true
}

func (r *reader) bytes(n int) ([]byte, bool) {
	if n < 0 || r.remaining() < n {
		return nil, false
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, true
}

// Decode parses a blob into freshly owned tensors. Every tensor copies its
// bytes out of the blob, so the backing memory (typically engine linear
// memory) may be reused immediately after Decode returns.
//
// Unknown dtype tags fail with Unsupported rather than being coerced; a
// truncated or inconsistent blob fails with InferenceFailed.
func Decode(blob []byte) ([]*tensor.Tensor, error) {
	r := &reader{buf: blob}

	m, ok := r.bytes(4)
	if !ok || [4]byte(m) != magic {
		return nil, status.Errorf(status.InferenceFailed, "decode", "bad tensor blob magic")
	}
	count, ok := r.u32()
	if !ok {
		return nil, truncated("count")
	}
	if count > MaxTensors {
		return nil, status.Errorf(status.InferenceFailed, "decode", "tensor count %d exceeds limit %d", count, MaxTensors)
	}

	out := make([]*tensor.Tensor, 0, count)
	for i := uint32(0); i < count; i++ {
		dt, ok := r.u32()
		if !ok {
			return nil, truncated("dtype")
		}
		dtype := tensor.DType(dt)
		if !dtype.Valid() {
			return nil, status.Unsupportedf("decode", "tensor %d has unsupported dtype tag %d", i, dt)
		}

		rank, ok := r.u32()
		if !ok {
			return nil, truncated("rank")
		}
		if rank == 0 || rank > MaxRank {
			return nil, status.Errorf(status.InferenceFailed, "decode", "tensor %d has invalid rank %d", i, rank)
		}

		// Bound the running product by the data budget so it cannot wrap
		// around int64 and pass the size consistency check.
		maxElems := int64(MaxDataSize) / dtype.Size()
		shape := make([]int64, rank)
		elems := int64(1)
		for d := range shape {
			raw, ok := r.u64()
			if !ok {
				return nil, truncated("shape")
			}
			dim := int64(raw)
			if dim <= 0 || dim > MaxDataSize {
				return nil, status.Errorf(status.InferenceFailed, "decode", "tensor %d has invalid dimension %d", i, dim)
			}
			if dim > maxElems/elems {
				return nil, status.Errorf(status.InferenceFailed, "decode", "tensor %d element count exceeds limit", i)
			}
			shape[d] = dim
			elems *= dim
		}

		dataLen, ok := r.u64()
		if !ok {
			return nil, truncated("data length")
		}
		if dataLen > MaxDataSize {
			return nil, status.Errorf(status.InferenceFailed, "decode", "tensor %d data length %d exceeds limit", i, dataLen)
		}
		if int64(dataLen) != elems*dtype.Size() {
			return nil, status.Errorf(status.InferenceFailed, "decode",
				"tensor %d size mismatch: %d elements of %s need %d bytes, blob declares %d",
				i, elems, dtype, elems*dtype.Size(), dataLen)
		}

		data, ok := r.bytes(int(dataLen))
		if !ok {
			return nil, truncated("data")
		}

		t, err := tensor.New(data, shape, dtype)
		if err != nil {
			return nil, status.Inference("decode", err)
		}
		out = append(out, t)
	}

	return out, nil
}

func truncated(what string) error {
	return status.Errorf(status.InferenceFailed, "decode", "truncated tensor blob reading %s", what)
}
