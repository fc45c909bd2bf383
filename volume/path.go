package volume

import (
	cerrors "containerfs/errors"
	"containerfs/record"
)

// resolvedEntry is the side output of a path lookup: the matched slot's
// position and contents. It replaces the process-global State fields
// (arr_idx, arr_idx_sector, file_entry_idx, file_entry_idx_sector,
// file_sector_type) that the original threaded through a single in-memory
// struct, per spec.md §9's redesign direction.
type resolvedEntry struct {
	// parentSector is the sector holding the matched slot.
	parentSector uint32
	// slotIndex is the matched slot's index within that sector's Idx array.
	slotIndex int
	// childSector is the matched slot's Link: the sector the entry names.
	childSector uint32
	// childType is the matched slot's Type (record.TypeDir or record.TypeUser).
	childType byte
	// name is the matched slot's stored (space-padded) name.
	name [record.NameSize]byte
}

// validateComponent checks a single path component against spec.md §4.4: 1–9
// bytes of printable ASCII, no '/', no NUL.
func validateComponent(name string) cerrors.VolumeError {
	if len(name) == 0 || len(name) > record.NameSize {
		return cerrors.ErrBadName.WithMessage("path component must be 1-9 bytes: " + name)
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == 0 || c < 0x20 || c > 0x7e {
			return cerrors.ErrBadName.WithMessage("path component contains an invalid byte: " + name)
		}
	}
	return nil
}

// findInChain scans a directory's extension chain starting at dirSector for
// a non-free slot whose name matches padded. It returns ErrNotFound if the
// chain is exhausted (Frwd reaches 0) with no match.
func (v *Volume) findInChain(dirSector uint32, padded [record.NameSize]byte) (resolvedEntry, cerrors.VolumeError) {
	cur := dirSector
	for {
		dir, err := v.readDir(cur)
		if err != nil {
			return resolvedEntry{}, err
		}
		for i, slot := range dir.Idx {
			if slot.Type != record.TypeFree && record.NameEqual(slot.Name, padded) {
				return resolvedEntry{
					parentSector: cur,
					slotIndex:    i,
					childSector:  slot.Link,
					childType:    slot.Type,
					name:         slot.Name,
				}, nil
			}
		}
		if dir.Frwd == 0 {
			return resolvedEntry{}, cerrors.ErrNotFound
		}
		cur = dir.Frwd
	}
}

// resolve walks components from the root, following D children at every
// step but the last. An empty components slice resolves to the root itself.
func (v *Volume) resolve(components []string) (resolvedEntry, cerrors.VolumeError) {
	if len(components) == 0 {
		return resolvedEntry{parentSector: 0, slotIndex: -1, childSector: RootSector, childType: record.TypeDir}, nil
	}

	dirSector := uint32(RootSector)
	var entry resolvedEntry
	for i, comp := range components {
		if err := validateComponent(comp); err != nil {
			return resolvedEntry{}, err
		}
		padded, ok := record.PadName(comp)
		if !ok {
			return resolvedEntry{}, cerrors.ErrBadName.WithMessage("invalid path component: " + comp)
		}

		found, err := v.findInChain(dirSector, padded)
		if err != nil {
			return resolvedEntry{}, err
		}

		if i < len(components)-1 {
			if found.childType != record.TypeDir {
				return resolvedEntry{}, cerrors.ErrNotFound.WithMessage(comp + " is not a directory")
			}
			dirSector = found.childSector
			continue
		}
		entry = found
	}
	return entry, nil
}

// reserveSlot returns a free slot in dirSector's extension chain, allocating
// a new extension Directory if every slot in the chain is occupied.
//
// First-fit across the chain, extension-on-exhaustion: spec.md §4.4.
func (v *Volume) reserveSlot(dirSector uint32) (sector uint32, index int, err cerrors.VolumeError) {
	cur := dirSector
	var last record.Directory
	var lastSector uint32
	for {
		dir, rerr := v.readDir(cur)
		if rerr != nil {
			return 0, 0, rerr
		}
		for i, slot := range dir.Idx {
			if slot.Type == record.TypeFree {
				return cur, i, nil
			}
		}
		last = dir
		lastSector = cur
		if dir.Frwd == 0 {
			break
		}
		cur = dir.Frwd
	}

	newSector, newHead, perr := v.free.PeekHead()
	if perr != nil {
		return 0, 0, perr
	}

	ext := record.EmptyDirectory(lastSector)
	if werr := v.writeDir(newSector, ext); werr != nil {
		return 0, 0, werr
	}

	last.Frwd = newSector
	if werr := v.writeDir(lastSector, last); werr != nil {
		return 0, 0, werr
	}

	if cerr := v.free.CommitHead(newHead); cerr != nil {
		return 0, 0, cerr
	}
	return newSector, 0, nil
}
