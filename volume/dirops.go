package volume

import (
	"errors"
	"fmt"

	cerrors "containerfs/errors"
	"containerfs/record"
)

// Create creates a new entry of the given kind (record.TypeDir or
// record.TypeUser) at components. If an entry already exists at that name,
// it is removed first and creation retried — "replace" semantics, per
// spec.md §4.4.
func (v *Volume) Create(kind byte, components []string) cerrors.VolumeError {
	if len(components) == 0 {
		return cerrors.ErrBadName.WithMessage("cannot create the root")
	}

	name := components[len(components)-1]
	if err := validateComponent(name); err != nil {
		return err
	}
	padded, ok := record.PadName(name)
	if !ok {
		return cerrors.ErrBadName.WithMessage("invalid name: " + name)
	}

	parentDirSector, err := v.resolveParentDir(components[:len(components)-1])
	if err != nil {
		return err
	}

	if existing, ferr := v.findInChain(parentDirSector, padded); ferr == nil {
		if rerr := v.removeResolved(existing); rerr != nil {
			return rerr
		}
	} else if !errors.Is(ferr, cerrors.ErrNotFound) {
		return ferr
	}

	slotSector, slotIndex, err := v.reserveSlot(parentDirSector)
	if err != nil {
		return err
	}

	childSector, newHead, err := v.free.PeekHead()
	if err != nil {
		return err
	}

	switch kind {
	case record.TypeDir:
		if werr := v.writeDir(childSector, record.EmptyDirectory(slotSector)); werr != nil {
			return werr
		}
	case record.TypeUser:
		if werr := v.writeFile(childSector, record.EmptyFile(0)); werr != nil {
			return werr
		}
	default:
		panic("volume: Create called with an unrecognized kind")
	}

	slotDir, err := v.readDir(slotSector)
	if err != nil {
		return err
	}
	slotDir.Idx[slotIndex] = record.FileIDX{Link: childSector, Name: padded, Type: kind, Size: 0}
	if werr := v.writeDir(slotSector, slotDir); werr != nil {
		return werr
	}

	return v.free.CommitHead(newHead)
}

// Mkdir creates an empty directory at components.
func (v *Volume) Mkdir(components []string) cerrors.VolumeError {
	return v.Create(record.TypeDir, components)
}

// Touch creates an empty user file at components, replacing any existing
// entry with that name.
func (v *Volume) Touch(components []string) cerrors.VolumeError {
	return v.Create(record.TypeUser, components)
}

// Remove reaps the subtree at components and clears its entry from the
// parent directory. Reaping completes before the parent slot is cleared, so
// an abort mid-reap leaves a partially-reaped subtree reachable (a storage
// leak) rather than an unreferenced-but-unfreed one — spec.md §4.4 reverses
// the source's clear-then-reap order for exactly this reason.
func (v *Volume) Remove(components []string) cerrors.VolumeError {
	if len(components) == 0 {
		return cerrors.ErrBadName.WithMessage("cannot remove the root")
	}
	entry, err := v.resolve(components)
	if err != nil {
		return err
	}
	return v.removeResolved(entry)
}

// List lists the target at components: a single "UserFile  <name>" line if
// it names a user file, or one "Directory <name>"/"UserFile  <name>" line
// per non-free slot (across the extension chain) if it names a directory or
// is the empty path (the root).
func (v *Volume) List(components []string) ([]string, cerrors.VolumeError) {
	var dirSector uint32
	if len(components) == 0 {
		dirSector = RootSector
	} else {
		entry, err := v.resolve(components)
		if err != nil {
			return nil, err
		}
		if entry.childType == record.TypeUser {
			return []string{formatEntry("UserFile", entry.name)}, nil
		}
		if entry.childType != record.TypeDir {
			return nil, cerrors.ErrCorrupt.WithMessage("slot has an unrecognized type")
		}
		dirSector = entry.childSector
	}

	var lines []string
	cur := dirSector
	for {
		dir, err := v.readDir(cur)
		if err != nil {
			return nil, err
		}
		for _, slot := range dir.Idx {
			switch slot.Type {
			case record.TypeFree:
				// unused slot, nothing to list
			case record.TypeDir:
				lines = append(lines, formatEntry("Directory", slot.Name))
			case record.TypeUser:
				lines = append(lines, formatEntry("UserFile", slot.Name))
			default:
				return nil, cerrors.ErrCorrupt.WithMessage("slot has an unrecognized type")
			}
		}
		if dir.Frwd == 0 {
			break
		}
		cur = dir.Frwd
	}
	return lines, nil
}

func formatEntry(tag string, name [record.NameSize]byte) string {
	return fmt.Sprintf("%-9s %s", tag, record.TrimName(name))
}

// resolveParentDir resolves components to the sector of the Directory they
// name, treating an empty slice as the root.
func (v *Volume) resolveParentDir(components []string) (uint32, cerrors.VolumeError) {
	if len(components) == 0 {
		return RootSector, nil
	}
	entry, err := v.resolve(components)
	if err != nil {
		return 0, err
	}
	if entry.childType != record.TypeDir {
		return 0, cerrors.ErrNotFound.WithMessage("not a directory")
	}
	return entry.childSector, nil
}

// removeResolved reaps the subtree named by entry and clears its slot.
func (v *Volume) removeResolved(entry resolvedEntry) cerrors.VolumeError {
	switch entry.childType {
	case record.TypeDir:
		if err := v.reapDir(entry.childSector); err != nil {
			return err
		}
	case record.TypeUser:
		if err := v.reapFile(entry.childSector); err != nil {
			return err
		}
	default:
		return cerrors.ErrCorrupt.WithMessage("slot has an unrecognized type")
	}
	return v.clearSlot(entry)
}

func (v *Volume) clearSlot(entry resolvedEntry) cerrors.VolumeError {
	dir, err := v.readDir(entry.parentSector)
	if err != nil {
		return err
	}
	dir.Idx[entry.slotIndex] = record.FileIDX{Type: record.TypeFree, Name: record.BlankName()}
	return v.writeDir(entry.parentSector, dir)
}

// reapDir recursively reclaims every non-free child in sector's extension
// chain, then appends every Directory sector in the chain to the free list.
// No slot is cleared during the reap, so a reap aborted partway through
// leaves the chain reachable, still naming any children whose sectors were
// already appended to the free list.
func (v *Volume) reapDir(sector uint32) cerrors.VolumeError {
	var chain []uint32
	cur := sector
	for {
		dir, err := v.readDir(cur)
		if err != nil {
			return err
		}
		chain = append(chain, cur)

		for _, slot := range dir.Idx {
			switch slot.Type {
			case record.TypeDir:
				if err := v.reapDir(slot.Link); err != nil {
					return err
				}
			case record.TypeUser:
				if err := v.reapFile(slot.Link); err != nil {
					return err
				}
			}
		}

		if dir.Frwd == 0 {
			break
		}
		cur = dir.Frwd
	}

	for _, s := range chain {
		if err := v.free.AppendFree(s); err != nil {
			return err
		}
	}
	return nil
}

// reapFile walks a File chain via Frwd, appending each sector to the free
// list.
func (v *Volume) reapFile(sector uint32) cerrors.VolumeError {
	cur := sector
	for cur != 0 {
		f, err := v.readFile(cur)
		if err != nil {
			return err
		}
		next := f.Frwd
		if err := v.free.AppendFree(cur); err != nil {
			return err
		}
		cur = next
	}
	return nil
}
