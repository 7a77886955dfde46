//go:build tensorbridge_vulkan

package backend

func init() {
	registry.Register(Vulkan)
}
