//go:build !unix

package module

import "os"

// mapFile reads the whole program file on platforms without mmap support.
func mapFile(path string) ([]byte, func() error, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, nil, err
	}
	return data, nil, nil
}
