package volume

import (
	"errors"

	cerrors "containerfs/errors"
	"containerfs/record"
)

// Read walks the File chain from headSector and returns its content: all 504
// data bytes from every non-terminal sector, and the first lastSize bytes of
// the terminal sector.
func (v *Volume) Read(headSector uint32, lastSize uint16) ([]byte, cerrors.VolumeError) {
	var out []byte
	cur := headSector
	for {
		f, err := v.readFile(cur)
		if err != nil {
			return nil, err
		}
		if f.Frwd == 0 {
			out = append(out, f.Data[:lastSize]...)
			return out, nil
		}
		out = append(out, f.Data[:]...)
		cur = f.Frwd
	}
}

// Cat resolves components to a user file and returns its full content.
func (v *Volume) Cat(components []string) ([]byte, cerrors.VolumeError) {
	if len(components) == 0 {
		return nil, cerrors.ErrBadName.WithMessage("cannot cat the root")
	}
	entry, err := v.resolve(components)
	if err != nil {
		return nil, err
	}
	if entry.childType != record.TypeUser {
		return nil, cerrors.ErrCorrupt.WithMessage("target is not a user file")
	}

	dir, derr := v.readDir(entry.parentSector)
	if derr != nil {
		return nil, derr
	}
	return v.Read(entry.childSector, dir.Idx[entry.slotIndex].Size)
}

// Overwrite resolves components to a user file, creating one if absent,
// discards its existing content, and streams data into it from scratch.
// The head sector is reused; every other sector the old chain held is
// reaped back onto the free list before the new content is written.
func (v *Volume) Overwrite(components []string, data []byte) cerrors.VolumeError {
	if len(components) == 0 {
		return cerrors.ErrBadName.WithMessage("cannot write to the root")
	}

	entry, err := v.resolve(components)
	if err != nil {
		if !errors.Is(err, cerrors.ErrNotFound) {
			return err
		}
		if cerr := v.Create(record.TypeUser, components); cerr != nil {
			return cerr
		}
		entry, err = v.resolve(components)
		if err != nil {
			return err
		}
	}
	if entry.childType != record.TypeUser {
		return cerrors.ErrCorrupt.WithMessage("target is not a user file")
	}

	head, rerr := v.readFile(entry.childSector)
	if rerr != nil {
		return rerr
	}
	if head.Frwd != 0 {
		if terr := v.reapFile(head.Frwd); terr != nil {
			return terr
		}
		head.Frwd = 0
		if werr := v.writeFile(entry.childSector, head); werr != nil {
			return werr
		}
	}

	finalSize, serr := v.streamIntoChain(entry.childSector, data)
	if serr != nil {
		return serr
	}
	return v.updateSize(entry.parentSector, entry.slotIndex, finalSize)
}

// Append resolves components to a user file, fills the remainder of its
// terminal sector with data, and extends the chain with further sectors if
// data does not fit.
func (v *Volume) Append(components []string, data []byte) cerrors.VolumeError {
	if len(components) == 0 {
		return cerrors.ErrBadName.WithMessage("cannot append to the root")
	}
	entry, err := v.resolve(components)
	if err != nil {
		return err
	}
	if entry.childType != record.TypeUser {
		return cerrors.ErrCorrupt.WithMessage("target is not a user file")
	}

	cur := entry.childSector
	for {
		f, rerr := v.readFile(cur)
		if rerr != nil {
			return rerr
		}
		if f.Frwd == 0 {
			break
		}
		cur = f.Frwd
	}

	dir, derr := v.readDir(entry.parentSector)
	if derr != nil {
		return derr
	}
	size := dir.Idx[entry.slotIndex].Size

	term, terr := v.readFile(cur)
	if terr != nil {
		return terr
	}

	room := record.FileDataSize - int(size)
	firstChunk := data
	if len(firstChunk) > room {
		firstChunk = firstChunk[:room]
	}
	copy(term.Data[size:], firstChunk)
	newSize := int(size) + len(firstChunk)
	remaining := data[len(firstChunk):]

	if len(remaining) == 0 {
		term.Frwd = 0
		if werr := v.writeFile(cur, term); werr != nil {
			return werr
		}
		return v.updateSize(entry.parentSector, entry.slotIndex, uint16(newSize))
	}

	newSector, xerr := v.extendFile(cur, term)
	if xerr != nil {
		return xerr
	}

	finalSize, serr := v.streamIntoChain(newSector, remaining)
	if serr != nil {
		return serr
	}
	return v.updateSize(entry.parentSector, entry.slotIndex, finalSize)
}

// streamIntoChain writes data into the File chain starting at headSector,
// extending the chain as needed, 504 bytes per sector. It returns the
// used-byte count of the final (possibly partial) sector, which becomes the
// owning FileIDX's size.
func (v *Volume) streamIntoChain(headSector uint32, data []byte) (uint16, cerrors.VolumeError) {
	cur := headSector
	offset := 0
	for {
		f, err := v.readFile(cur)
		if err != nil {
			return 0, err
		}

		end := offset + record.FileDataSize
		if end > len(data) {
			end = len(data)
		}
		chunk := data[offset:end]
		f.Data = [record.FileDataSize]byte{}
		copy(f.Data[:], chunk)
		offset = end
		more := offset < len(data)

		if !more {
			f.Frwd = 0
			if werr := v.writeFile(cur, f); werr != nil {
				return 0, werr
			}
			return uint16(len(chunk)), nil
		}

		newSector, xerr := v.extendFile(cur, f)
		if xerr != nil {
			return 0, xerr
		}
		cur = newSector
	}
}

// extendFile allocates a new File sector linked from current, writing the
// new sector before rewriting current — a crash between the two leaves an
// orphan sector (a leak), never a dangling frwd. Spec.md §4.5.
func (v *Volume) extendFile(currentSector uint32, current record.File) (uint32, cerrors.VolumeError) {
	newSector, newHead, err := v.free.PeekHead()
	if err != nil {
		return 0, err
	}

	if werr := v.writeFile(newSector, record.EmptyFile(currentSector)); werr != nil {
		return 0, werr
	}

	current.Frwd = newSector
	if werr := v.writeFile(currentSector, current); werr != nil {
		return 0, werr
	}

	if cerr := v.free.CommitHead(newHead); cerr != nil {
		return 0, cerr
	}
	return newSector, nil
}

func (v *Volume) updateSize(parentSector uint32, slotIndex int, size uint16) cerrors.VolumeError {
	dir, err := v.readDir(parentSector)
	if err != nil {
		return err
	}
	dir.Idx[slotIndex].Size = size
	return v.writeDir(parentSector, dir)
}
