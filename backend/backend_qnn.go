//go:build tensorbridge_qnn

package backend

func init() {
	registry.Register(QNN)
}
