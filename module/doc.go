// Package module implements the model lifecycle: load a program from bytes
// or a file, query its arity, run forward passes, and release it.
//
// Load and entry-point resolution happen together; a Module either comes
// back fully loaded or not at all. Failed loads destroy the half-built
// handle rather than leaving it around for retries.
package module
