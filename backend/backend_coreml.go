//go:build darwin

package backend

func init() {
	registry.Register(CoreML)
}
