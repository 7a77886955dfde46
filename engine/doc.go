// Package engine wraps the embedded inference runtime (wazero) behind the
// program ABI declared in the root package: compile a program, instantiate
// it, resolve its memory, allocator, and forward exports, and shuttle tensor
// blobs across the linear-memory boundary.
//
// Nothing above this package touches the runtime directly.
package engine
