package freelist_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	cerrors "containerfs/errors"
	"containerfs/freelist"
	"containerfs/record"
	"containerfs/sectorio"
)

const totalSectors = 8

func newDevice(t *testing.T) *sectorio.Device {
	t.Helper()
	buf := make([]byte, totalSectors*sectorio.SectorSize)
	return sectorio.New(bytesextra.NewReadWriteSeeker(buf), totalSectors)
}

// initLinkedFreeList writes a root directory and links sectors 1..n-1 as a
// free list in index order, mirroring what Init does for the whole
// container.
func initLinkedFreeList(t *testing.T, dev *sectorio.Device, n uint32) {
	t.Helper()
	root := record.EmptyDirectory(0)
	root.Free = 1
	require.NoError(t, dev.WriteSector(0, record.EncodeDirectory(root)))

	for i := uint32(1); i < n; i++ {
		next := i + 1
		if next >= n {
			next = 0
		}
		d := record.FreeDirectory()
		d.Frwd = next
		require.NoError(t, dev.WriteSector(i, record.EncodeDirectory(d)))
	}
}

func TestAllocate_ReturnsHeadAndAdvances(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, totalSectors)
	m := freelist.New(dev)

	got, err := m.Allocate()
	require.NoError(t, err)
	assert.EqualValues(t, 1, got)

	buf, err := dev.ReadSector(0)
	require.NoError(t, err)
	assert.EqualValues(t, 2, record.DecodeDirectory(buf).Free)
}

func TestAllocate_ExhaustsFreeList(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, 2)
	m := freelist.New(dev)

	_, err := m.Allocate()
	require.NoError(t, err)

	_, err = m.Allocate()
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrNoSpace)
}

func TestPeekHead_DoesNotMutate(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, totalSectors)
	m := freelist.New(dev)

	head, newHead, err := m.PeekHead()
	require.NoError(t, err)
	assert.EqualValues(t, 1, head)
	assert.EqualValues(t, 2, newHead)

	buf, err := dev.ReadSector(0)
	require.NoError(t, err)
	assert.EqualValues(t, 1, record.DecodeDirectory(buf).Free, "root.Free must be unchanged until CommitHead")
}

func TestAppendFree_ToEmptyList(t *testing.T) {
	dev := newDevice(t)
	root := record.EmptyDirectory(0)
	require.NoError(t, dev.WriteSector(0, record.EncodeDirectory(root)))
	m := freelist.New(dev)

	require.NoError(t, m.AppendFree(5))

	buf, err := dev.ReadSector(0)
	require.NoError(t, err)
	assert.EqualValues(t, 5, record.DecodeDirectory(buf).Free)

	appended, err := dev.ReadSector(5)
	require.NoError(t, err)
	dir := record.DecodeDirectory(appended)
	assert.EqualValues(t, 0, dir.Frwd)
	assert.Equal(t, record.FreeListSentinel, dir.Free)
}

func TestAppendFree_ToNonEmptyList(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, 4) // free list: 1 -> 2 -> 3 -> 0
	m := freelist.New(dev)

	require.NoError(t, m.AppendFree(6))

	buf, err := dev.ReadSector(3)
	require.NoError(t, err)
	assert.EqualValues(t, 6, record.DecodeDirectory(buf).Frwd, "old tail now points at the appended sector")

	appended, err := dev.ReadSector(6)
	require.NoError(t, err)
	assert.EqualValues(t, 0, record.DecodeDirectory(appended).Frwd)
}

func TestVerify_AllSectorsAccountedFor(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, totalSectors)

	err := freelist.Verify(dev, totalSectors, func(mark func(uint32)) cerrors.VolumeError {
		// Root has no other reachable sectors in this fixture.
		return nil
	})
	require.NoError(t, err)
}

func TestVerify_DetectsDoubleLinkedSector(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, totalSectors)

	err := freelist.Verify(dev, totalSectors, func(mark func(uint32)) cerrors.VolumeError {
		mark(1) // sector 1 is also on the free list: double-linked
		return nil
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrCorrupt)
}

func TestVerify_DetectsOrphanSector(t *testing.T) {
	dev := newDevice(t)
	initLinkedFreeList(t, dev, totalSectors)
	// Detach sector 4 from the free list without reclaiming it anywhere.
	buf, err := dev.ReadSector(3)
	require.NoError(t, err)
	dir := record.DecodeDirectory(buf)
	dir.Frwd = 5
	require.NoError(t, dev.WriteSector(3, record.EncodeDirectory(dir)))

	err2 := freelist.Verify(dev, totalSectors, func(mark func(uint32)) cerrors.VolumeError {
		return nil
	})
	require.Error(t, err2)
	assert.ErrorIs(t, err2, cerrors.ErrCorrupt)
}
