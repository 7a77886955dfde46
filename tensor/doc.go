// Package tensor defines the caller-facing tensor value: a dtype, a shape,
// and an exclusively owned contiguous byte buffer.
//
// Tensors are plain values with no device placement or stride tricks; the
// transcoder package converts them to and from the engine's wire format.
package tensor
