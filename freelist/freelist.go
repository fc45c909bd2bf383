// Package freelist maintains the singly-linked list of free sectors rooted
// at the root directory's Free field: it allocates the head and appends
// reclaimed sectors to the tail.
//
// All state is implicit in sector 0 (the head) and discovered by traversal
// (the tail); nothing is cached across calls, matching spec §4.3 and the
// single-threaded, non-reentrant model of §5.
package freelist

import (
	cerrors "containerfs/errors"
	"containerfs/record"
	"containerfs/sectorio"
)

// RootSector is the fixed sector index of the container's root directory.
const RootSector = 0

// Manager allocates and reclaims sectors against a device whose sector 0 is
// a root Directory carrying the free-list head in its Free field.
type Manager struct {
	dev *sectorio.Device
}

// New creates a Manager operating against dev.
func New(dev *sectorio.Device) *Manager {
	return &Manager{dev: dev}
}

func (m *Manager) readRoot() (record.Directory, cerrors.VolumeError) {
	buf, err := m.dev.ReadSector(RootSector)
	if err != nil {
		return record.Directory{}, err
	}
	return record.DecodeDirectory(buf), nil
}

// PeekHead returns the current free-list head (the sector a caller should
// use next) together with the sector that would become the new head once
// head is consumed, without writing anything.
//
// This mirrors the original's get2FreeSectors: the head's Frwd field must be
// read before anything overwrites the head sector's contents, since once a
// caller reuses head for its own data, its old Frwd is gone. Separating the
// peek from the commit lets callers defer the root write until after they've
// written the sector they allocated (and, for Create, the parent slot too),
// per the ordering spec.md mandates for each operation.
func (m *Manager) PeekHead() (head uint32, newHead uint32, err cerrors.VolumeError) {
	root, err := m.readRoot()
	if err != nil {
		return 0, 0, err
	}
	if root.Free == 0 {
		return 0, 0, cerrors.ErrNoSpace
	}

	headBuf, err := m.dev.ReadSector(root.Free)
	if err != nil {
		return 0, 0, err
	}
	headDir := record.DecodeDirectory(headBuf)
	return root.Free, headDir.Frwd, nil
}

// CommitHead writes newHead as the free list's new head. Callers call this
// once they've finished writing whatever they allocated via PeekHead.
func (m *Manager) CommitHead(newHead uint32) cerrors.VolumeError {
	root, err := m.readRoot()
	if err != nil {
		return err
	}
	root.Free = newHead
	return m.dev.WriteSector(RootSector, record.EncodeDirectory(root))
}

// Allocate performs an immediate peek-then-commit: it returns the current
// free-list head and advances root.Free to that sector's old Frwd in the
// same call. Use this for the simple, single-sector allocations (extending a
// directory or file chain by exactly one link); operations that need to
// defer the commit until after other writes land should call PeekHead and
// CommitHead directly instead.
func (m *Manager) Allocate() (uint32, cerrors.VolumeError) {
	head, newHead, err := m.PeekHead()
	if err != nil {
		return 0, err
	}
	if err := m.CommitHead(newHead); err != nil {
		return 0, err
	}
	return head, nil
}

// AppendFree appends sector n to the tail of the free list, writing the
// canonical free-Directory pattern into n first and only then linking it in
// — so a crash between the two writes leaves n unreachable (a leak) rather
// than reachable-but-malformed.
func (m *Manager) AppendFree(n uint32) cerrors.VolumeError {
	if err := m.dev.WriteSector(n, record.EncodeDirectory(record.FreeDirectory())); err != nil {
		return err
	}

	root, err := m.readRoot()
	if err != nil {
		return err
	}

	if root.Free == 0 {
		root.Free = n
		return m.dev.WriteSector(RootSector, record.EncodeDirectory(root))
	}

	tail := root.Free
	for {
		buf, err := m.dev.ReadSector(tail)
		if err != nil {
			return err
		}
		dir := record.DecodeDirectory(buf)
		if dir.Frwd == 0 {
			dir.Frwd = n
			return m.dev.WriteSector(tail, record.EncodeDirectory(dir))
		}
		tail = dir.Frwd
	}
}
