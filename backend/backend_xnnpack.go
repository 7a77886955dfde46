package backend

// The portable CPU backend ships in every build.
func init() {
	registry.Register(XNNPACK)
}
