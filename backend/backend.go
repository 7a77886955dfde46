package backend

import "fmt"

// ID identifies an acceleration backend. Values are stable and safe to
// expose across an FFI boundary.
type ID int32

const (
	XNNPACK ID = 0
	CoreML  ID = 1
	MPS     ID = 2
	Vulkan  ID = 3
	QNN     ID = 4
)

// ids in enumeration order, used for deterministic listing.
var ids = [...]ID{XNNPACK, CoreML, MPS, Vulkan, QNN}

func (id ID) String() string {
	switch id {
	case XNNPACK:
		return "xnnpack"
	case CoreML:
		return "coreml"
	case MPS:
		return "mps"
	case Vulkan:
		return "vulkan"
	case QNN:
		return "qnn"
	}
	return fmt.Sprintf("backend(%d)", int32(id))
}

// Registry is a static capability table describing which backends a build
// carries. The package-level registry is populated at init time by
// build-tag-gated files; tests construct their own.
type Registry struct {
	available [len(ids)]bool
}

// Register marks a backend as compiled in. Unknown IDs are ignored.
func (r *Registry) Register(id ID) {
	if id >= 0 && int(id) < len(ids) {
		r.available[id] = true
	}
}

// Available reports whether the backend is compiled into this build.
func (r *Registry) Available(id ID) bool {
	if id < 0 || int(id) >= len(ids) {
		return false
	}
	return r.available[id]
}

// List fills dst with the compiled-in backends in enumeration order,
// bounded by len(dst), and returns how many it wrote. A nil or empty dst
// returns 0.
func (r *Registry) List(dst []ID) int {
	if len(dst) == 0 {
		return 0
	}
	n := 0
	for _, id := range ids {
		if !r.available[id] {
			continue
		}
		if n == len(dst) {
			break
		}
		dst[n] = id
		n++
	}
	return n
}

// Count returns the number of compiled-in backends.
func (r *Registry) Count() int {
	n := 0
	for _, ok := range r.available {
		if ok {
			n++
		}
	}
	return n
}

var registry Registry

// Available reports whether the backend is compiled into this build.
func Available(id ID) bool {
	return registry.Available(id)
}

// List fills dst with the compiled-in backends, bounded by len(dst).
func List(dst []ID) int {
	return registry.List(dst)
}
