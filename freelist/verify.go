package freelist

import (
	"fmt"

	"github.com/boljen/go-bitmap"

	cerrors "containerfs/errors"
	"containerfs/record"
	"containerfs/sectorio"
)

// Verify checks the two whole-container invariants of spec.md §8 (properties
// 1 and 2): every sector is either reachable from the root or on the free
// list, never both, never neither.
//
// Reachability is the caller's business (only the directory engine knows how
// to walk the directory/file trees), so Verify takes a callback that must
// call mark for every sector reachable from root. Verify marks the root
// sector itself before calling it.
// This is the same bitmap-backed allocation bookkeeping the teacher's
// drivers/common/allocatormap.go and drivers/unixv1 driver use for their own
// block free maps, repurposed here as a read-only consistency check rather
// than a live allocator.
func Verify(
	dev *sectorio.Device,
	totalSectors uint32,
	markReachable func(mark func(sector uint32)) cerrors.VolumeError,
) cerrors.VolumeError {
	reachable := bitmap.New(int(totalSectors))
	reachable.Set(RootSector, true)

	if err := markReachable(func(sector uint32) { reachable.Set(int(sector), true) }); err != nil {
		return err
	}

	free := bitmap.New(int(totalSectors))
	m := New(dev)
	root, err := m.readRoot()
	if err != nil {
		return err
	}

	cur := root.Free
	for cur != 0 {
		if free.Get(int(cur)) {
			return cerrors.ErrCorrupt.WithMessage(
				fmt.Sprintf("free list revisits sector %d", cur))
		}
		free.Set(int(cur), true)

		buf, err := dev.ReadSector(cur)
		if err != nil {
			return err
		}
		cur = record.DecodeDirectory(buf).Frwd
	}

	for i := uint32(0); i < totalSectors; i++ {
		onReachable := reachable.Get(int(i))
		onFree := free.Get(int(i))
		switch {
		case onReachable && onFree:
			return cerrors.ErrCorrupt.WithMessage(
				fmt.Sprintf("sector %d is both reachable and free-listed", i))
		case !onReachable && !onFree:
			return cerrors.ErrCorrupt.WithMessage(
				fmt.Sprintf("sector %d is neither reachable nor free-listed", i))
		}
	}
	return nil
}
