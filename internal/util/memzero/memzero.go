// Package memzero wipes secrets that were read into byte slices, such as a
// password typed at the terminal.
package memzero

import "runtime"

// Zero overwrites b with zeros.
//
//go:noinline
func Zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
	runtime.KeepAlive(&b)
}

// String copies b into a string and wipes b.
func String(b []byte) string {
	s := string(b)
	Zero(b)
	return s
}
