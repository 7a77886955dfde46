// Package status defines the stable outcome codes and the boundary error
// type shared by every fallible operation in the library.
//
// Codes have fixed integer values suitable for exposure across an FFI
// boundary. Status implements error, so internal packages return it through
// ordinary error plumbing and the shim layer surfaces it unchanged.
package status
