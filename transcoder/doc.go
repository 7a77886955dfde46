// Package transcoder implements the tensor-list wire format exchanged with
// engine programs: a flat little-endian blob carrying dtype, shape, and raw
// bytes per tensor.
//
// Encode copies caller bytes into the blob and Decode copies program bytes
// out of it, so neither side ever holds a reference into the other's memory
// after the call returns.
package transcoder
