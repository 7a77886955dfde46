//go:build darwin && arm64

package backend

func init() {
	registry.Register(MPS)
}
