// Package shim flattens the library into a handle-based boundary suitable
// for embedding behind a C-linkage layer.
//
// Every tensor and module is referenced by an opaque uint64 handle owned by
// a Shim. Handles are never reused, so a stale handle is detected rather
// than silently aliased to a newer resource. Fallible operations return
// *status.Status values with stable integer codes; accessors called with
// invalid handles return safe zero values, and free operations are no-ops
// on zero or unknown handles.
//
// A recovered panic in any boundary function surfaces as an Internal
// status instead of unwinding into the embedder.
package shim
