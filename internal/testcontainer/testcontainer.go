// Package testcontainer builds in-memory containers for tests, the same way
// the teacher's testing package builds in-memory disk images for its own
// driver tests: a byte slice wrapped in an io.ReadWriteSeeker via
// github.com/xaionaro-go/bytesextra, never touching the host filesystem.
package testcontainer

import (
	"testing"

	"github.com/xaionaro-go/bytesextra"

	"containerfs/volume"
)

// New builds a freshly initialized container image in memory and wraps it as
// a *volume.Volume. Callers get both the Volume and the backing slice so
// tests can inspect raw bytes (e.g. S1's root.Free low-byte assertion)
// alongside calling Volume methods.
func New(t *testing.T) (*volume.Volume, []byte) {
	t.Helper()
	buf := volume.BuildImage()
	stream := bytesextra.NewReadWriteSeeker(buf)
	return volume.Wrap(stream), buf
}
