package tensorbridge

// Program ABI: the contract between this library and a loadable program.
//
// A program is a wasm module exporting linear memory, a scratch allocator,
// and a forward entry point. Forward consumes a tensor-list blob written at
// [ptr, ptr+len) and returns the location of its result blob packed into a
// single i64. Metadata exports are optional; loaders fall back to an arity
// of 1/1 when they are absent.
const (
	// ExportMemory is the program's linear memory export.
	ExportMemory = "memory"

	// ExportAlloc reserves size bytes of scratch space: alloc(size: i32) -> i32.
	ExportAlloc = "alloc"

	// ExportForward runs inference: forward(ptr: i32, len: i32) -> i64.
	// The result packs the output blob location, see PackResult.
	ExportForward = "forward"

	// ExportInputCount and ExportOutputCount report model arity: () -> i32.
	ExportInputCount  = "input_count"
	ExportOutputCount = "output_count"
)

// PackResult packs an output blob location into the i64 returned by forward.
func PackResult(ptr, length uint32) uint64 {
	return uint64(ptr)<<32 | uint64(length)
}

// UnpackResult splits a forward return value into blob pointer and length.
func UnpackResult(v uint64) (ptr, length uint32) {
	return uint32(v >> 32), uint32(v)
}
