package player

import "os"

// defaultOpenFile is Options.OpenFile's default, reading from the host
// filesystem. The real device routes file access through its
// disk-image-backed byte source instead; that backend satisfies the
// same func(path string) ([]byte, error) shape, so swapping it in is
// a matter of setting Options.OpenFile rather than changing this
// package.
func defaultOpenFile(path string) ([]byte, error) {
	return os.ReadFile(path)
}
