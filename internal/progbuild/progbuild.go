// Package progbuild emits tiny inference programs in the engine's binary
// format for use in tests. The programs implement the ABI from the root
// package: exported memory, a bump allocator, a forward entry point, and
// optional arity metadata.
package progbuild

import (
	"encoding/binary"
	"math"
)

// buf assembles a program binary. Integers are LEB128-encoded.
type buf struct {
	b []byte
}

func (w *buf) byte(v byte)  { w.b = append(w.b, v) }
func (w *buf) raw(v []byte) { w.b = append(w.b, v...) }

func (w *buf) name(s string) {
	w.u32(uint32(len(s)))
	w.raw([]byte(s))
}

func (w *buf) u32(v uint32) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		w.byte(c)
		if v == 0 {
			return
		}
	}
}

func (w *buf) i32(v int32) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			w.byte(c)
			return
		}
		w.byte(c | 0x80)
	}
}

func (w *buf) i64(v int64) {
	for {
		c := byte(v & 0x7F)
		v >>= 7
		if (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0) {
			w.byte(c)
			return
		}
		w.byte(c | 0x80)
	}
}

func (w *buf) section(id byte, content *buf) {
	w.byte(id)
	w.u32(uint32(len(content.b)))
	w.raw(content.b)
}

// Value types and opcodes used by the fixtures.
const (
	tI32 = 0x7F
	tI64 = 0x7E

	opUnreachable = 0x00
	opEnd         = 0x0B
	opLocalGet    = 0x20
	opLocalSet    = 0x21
	opGlobalGet   = 0x23
	opGlobalSet   = 0x24
	opI32Const    = 0x41
	opI64Const    = 0x42
	opI32Add      = 0x6A
	opI32And      = 0x71
	opI64Or       = 0x84
	opI64Shl      = 0x86
	opI64ExtendU  = 0xAD
)

type funcBody struct {
	localsI32 uint32
	code      []byte
}

type program struct {
	// Parallel slices: typeOf[i] is the type index of function i.
	typeOf  []uint32
	bodies  []funcBody
	exports map[string]uint32 // function exports
}

// Three fixed function signatures cover every fixture:
// type 0: alloc   (i32) -> i32
// type 1: forward (i32, i32) -> i64
// type 2: arity   () -> i32
func (p *program) encode() []byte {
	out := &buf{}
	out.raw([]byte{0x00, 0x61, 0x73, 0x6D, 0x01, 0x00, 0x00, 0x00}) // magic + version

	types := &buf{}
	types.u32(3)
	types.raw([]byte{0x60, 1, tI32, 1, tI32})
	types.raw([]byte{0x60, 2, tI32, tI32, 1, tI64})
	types.raw([]byte{0x60, 0, 1, tI32})
	out.section(1, types)

	funcs := &buf{}
	funcs.u32(uint32(len(p.typeOf)))
	for _, t := range p.typeOf {
		funcs.u32(t)
	}
	out.section(3, funcs)

	// One memory, 16 pages (1 MiB), no max.
	mem := &buf{}
	mem.u32(1)
	mem.byte(0x00)
	mem.u32(16)
	out.section(5, mem)

	// One mutable i32 global: the bump-allocator heap pointer, starting
	// past a small reserved region.
	globals := &buf{}
	globals.u32(1)
	globals.byte(tI32)
	globals.byte(0x01)
	globals.byte(opI32Const)
	globals.i32(64)
	globals.byte(opEnd)
	out.section(6, globals)

	exports := &buf{}
	exports.u32(uint32(len(p.exports)) + 1)
	exports.name("memory")
	exports.byte(0x02) // memory kind
	exports.u32(0)
	// Deterministic export order keeps binaries reproducible.
	for _, name := range []string{"alloc", "forward", "input_count", "output_count"} {
		idx, exists := p.exports[name]
		if !exists {
			continue
		}
		exports.name(name)
		exports.byte(0x00) // func kind
		exports.u32(idx)
	}
	out.section(7, exports)

	code := &buf{}
	code.u32(uint32(len(p.bodies)))
	for _, body := range p.bodies {
		fb := &buf{}
		if body.localsI32 > 0 {
			fb.u32(1)
			fb.u32(body.localsI32)
			fb.byte(tI32)
		} else {
			fb.u32(0)
		}
		fb.raw(body.code)
		code.u32(uint32(len(fb.b)))
		code.raw(fb.b)
	}
	out.section(10, code)

	return out.b
}

// allocBody implements: result = heap; heap = (heap + size + 7) &^ 7.
func allocBody() funcBody {
	w := &buf{}
	w.byte(opGlobalGet)
	w.u32(0)
	w.byte(opLocalSet)
	w.u32(1)
	w.byte(opGlobalGet)
	w.u32(0)
	w.byte(opLocalGet)
	w.u32(0)
	w.byte(opI32Add)
	w.byte(opI32Const)
	w.i32(7)
	w.byte(opI32Add)
	w.byte(opI32Const)
	w.i32(-8)
	w.byte(opI32And)
	w.byte(opGlobalSet)
	w.u32(0)
	w.byte(opLocalGet)
	w.u32(1)
	w.byte(opEnd)
	return funcBody{localsI32: 1, code: w.b}
}

// identityForward returns the input region unchanged: (ptr << 32) | len.
func identityForward() funcBody {
	w := &buf{}
	w.byte(opLocalGet)
	w.u32(0)
	w.byte(opI64ExtendU)
	w.byte(opI64Const)
	w.i64(32)
	w.byte(opI64Shl)
	w.byte(opLocalGet)
	w.u32(1)
	w.byte(opI64ExtendU)
	w.byte(opI64Or)
	w.byte(opEnd)
	return funcBody{code: w.b}
}

// constForward returns a fixed packed result regardless of input.
func constForward(packed int64) funcBody {
	w := &buf{}
	w.byte(opI64Const)
	w.i64(packed)
	w.byte(opEnd)
	return funcBody{code: w.b}
}

func trapForward() funcBody {
	return funcBody{code: []byte{opUnreachable, opEnd}}
}

func arityBody(n int32) funcBody {
	w := &buf{}
	w.byte(opI32Const)
	w.i32(n)
	w.byte(opEnd)
	return funcBody{code: w.b}
}

// Identity builds a program whose forward pass returns its input blob
// unchanged and which reports the given arity via metadata exports.
func Identity(inputs, outputs int32) []byte {
	p := &program{
		typeOf: []uint32{0, 1, 2, 2},
		bodies: []funcBody{allocBody(), identityForward(), arityBody(inputs), arityBody(outputs)},
		exports: map[string]uint32{
			"alloc":        0,
			"forward":      1,
			"input_count":  2,
			"output_count": 3,
		},
	}
	return p.encode()
}

// IdentityNoMetadata builds an identity program without arity exports, for
// exercising the 1/1 metadata fallback.
func IdentityNoMetadata() []byte {
	p := &program{
		typeOf:  []uint32{0, 1},
		bodies:  []funcBody{allocBody(), identityForward()},
		exports: map[string]uint32{"alloc": 0, "forward": 1},
	}
	return p.encode()
}

// GarbageOutput builds a program whose forward pass points at four zero
// bytes, which is not a valid tensor blob.
func GarbageOutput() []byte {
	p := &program{
		typeOf:  []uint32{0, 1, 2, 2},
		bodies:  []funcBody{allocBody(), constForward(4), arityBody(1), arityBody(1)},
		exports: map[string]uint32{"alloc": 0, "forward": 1, "input_count": 2, "output_count": 3},
	}
	return p.encode()
}

// Trapping builds a program whose forward pass traps unconditionally.
func Trapping() []byte {
	p := &program{
		typeOf:  []uint32{0, 1},
		bodies:  []funcBody{allocBody(), trapForward()},
		exports: map[string]uint32{"alloc": 0, "forward": 1},
	}
	return p.encode()
}

// NoForward builds a valid program that lacks a forward entry point, for
// exercising entry-point resolution failure.
func NoForward() []byte {
	p := &program{
		typeOf:  []uint32{0},
		bodies:  []funcBody{allocBody()},
		exports: map[string]uint32{"alloc": 0},
	}
	return p.encode()
}

// Float32Blob is a test convenience for building raw float32 payloads.
func Float32Blob(vals ...float32) []byte {
	out := make([]byte, 0, len(vals)*4)
	for _, v := range vals {
		out = binary.LittleEndian.AppendUint32(out, math.Float32bits(v))
	}
	return out
}
