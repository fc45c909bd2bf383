// Package volume implements the directory engine and file engine: path
// resolution, directory-entry allocation with forward-chained extensions,
// directory creation and reaping, and streaming file content across a
// forward-chained list of File sectors.
//
// A Volume owns no long-lived "current file" handle — per spec.md §9, the
// source's global State struct is replaced by explicit return values from
// resolve, and every exported method here is a stateless verb that opens its
// own path through the tree on each call.
package volume

import (
	"encoding/binary"
	"io"
	"os"

	"github.com/noxer/bytewriter"

	cerrors "containerfs/errors"
	"containerfs/freelist"
	"containerfs/record"
	"containerfs/sectorio"
)

// NumSectors is the fixed number of sectors in every container (spec.md §1:
// arbitrary sector size is explicitly out of scope, and so is an arbitrary
// sector count — both are compile-time constants of the format).
const NumSectors = 1000

// ContainerSize is the exact size, in bytes, of a valid container file.
const ContainerSize = NumSectors * sectorio.SectorSize

// RootSector is the fixed sector index of the root directory.
const RootSector = freelist.RootSector

// Volume is an open container: a sector device plus a free-sector manager.
// It holds no other state between calls.
type Volume struct {
	dev  *sectorio.Device
	free *freelist.Manager
}

// newVolume wraps an already-sized backing store.
func newVolume(backing sectorio.Backing) *Volume {
	dev := sectorio.New(backing, NumSectors)
	return &Volume{dev: dev, free: freelist.New(dev)}
}

// Wrap builds a Volume directly over an already-sized backing store, without
// going through a host file. It exists for tests that build an in-memory
// container (see internal/testcontainer) and never need Open's on-disk size
// check.
func Wrap(backing sectorio.Backing) *Volume {
	return newVolume(backing)
}

// Open opens an existing container file at path for reading and writing. It
// fails with ErrCorrupt if the file is not exactly ContainerSize bytes.
func Open(path string) (*Volume, *os.File, cerrors.VolumeError) {
	f, err := os.OpenFile(path, os.O_RDWR, 0o644)
	if err != nil {
		return nil, nil, cerrors.ErrIOError.WrapError(err)
	}

	info, statErr := f.Stat()
	if statErr != nil {
		f.Close()
		return nil, nil, cerrors.ErrIOError.WrapError(statErr)
	}
	if info.Size() != ContainerSize {
		f.Close()
		return nil, nil, cerrors.ErrCorrupt.WithMessage(
			"container is not exactly 512000 bytes")
	}

	return newVolume(f), f, nil
}

// BuildImage constructs the entire initial container image in memory: a
// root Directory (free-list head = 1) followed by NumSectors-1 Directory
// sectors linked in index order as the free list, the last with Frwd = 0.
//
// Building the whole image as one buffer before issuing a single host write
// is the same technique the teacher's file_systems/unixv1 Format function
// uses (via github.com/noxer/bytewriter) to lay out its boot+bitmap region,
// rather than performing NumSectors individual positioned writes.
func BuildImage() []byte {
	buf := make([]byte, ContainerSize)
	w := bytewriter.New(buf)

	root := record.EmptyDirectory(0)
	root.Free = 1
	mustWrite(w, root)

	for n := uint32(1); n < NumSectors; n++ {
		next := n + 1
		if next >= NumSectors {
			next = 0
		}
		d := record.FreeDirectory()
		d.Back = 0
		d.Frwd = next
		mustWrite(w, d)
	}

	return buf
}

func mustWrite(w io.Writer, d record.Directory) {
	if err := binary.Write(w, binary.LittleEndian, &d); err != nil {
		panic("volume: writing a well-formed Directory into the image buffer failed: " + err.Error())
	}
}

// Init creates a new container file at path. If the file already exists,
// Init fails with ErrAlreadyExists unless overwrite is set, matching
// spec.md §6 ("Initialization fails if the target file exists (unless
// overwrite mode is selected)").
func Init(path string, overwrite bool) cerrors.VolumeError {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if overwrite {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}

	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return cerrors.ErrAlreadyExists
		}
		return cerrors.ErrIOError.WrapError(err)
	}
	defer f.Close()

	if _, err := f.Write(BuildImage()); err != nil {
		return cerrors.ErrIOError.WrapError(err)
	}
	return nil
}

// Verify checks that every sector is either reachable from root or on the
// free list, never both, never neither (spec.md §8 properties 1 and 2).
func (v *Volume) Verify() cerrors.VolumeError {
	return freelist.Verify(v.dev, NumSectors, func(mark func(uint32)) cerrors.VolumeError {
		return v.markReachable(RootSector, mark)
	})
}

func (v *Volume) markReachable(dirSector uint32, mark func(uint32)) cerrors.VolumeError {
	cur := dirSector
	for {
		mark(cur)
		dir, err := v.readDir(cur)
		if err != nil {
			return err
		}
		for _, slot := range dir.Idx {
			switch slot.Type {
			case record.TypeDir:
				if err := v.markReachable(slot.Link, mark); err != nil {
					return err
				}
			case record.TypeUser:
				if err := v.markFileChain(slot.Link, mark); err != nil {
					return err
				}
			}
		}
		if dir.Frwd == 0 {
			return nil
		}
		cur = dir.Frwd
	}
}

func (v *Volume) markFileChain(headSector uint32, mark func(uint32)) cerrors.VolumeError {
	cur := headSector
	for cur != 0 {
		mark(cur)
		f, err := v.readFile(cur)
		if err != nil {
			return err
		}
		cur = f.Frwd
	}
	return nil
}

func (v *Volume) readDir(sector uint32) (record.Directory, cerrors.VolumeError) {
	buf, err := v.dev.ReadSector(sector)
	if err != nil {
		return record.Directory{}, err
	}
	return record.DecodeDirectory(buf), nil
}

func (v *Volume) writeDir(sector uint32, d record.Directory) cerrors.VolumeError {
	return v.dev.WriteSector(sector, record.EncodeDirectory(d))
}

func (v *Volume) readFile(sector uint32) (record.File, cerrors.VolumeError) {
	buf, err := v.dev.ReadSector(sector)
	if err != nil {
		return record.File{}, err
	}
	return record.DecodeFile(buf), nil
}

func (v *Volume) writeFile(sector uint32, f record.File) cerrors.VolumeError {
	return v.dev.WriteSector(sector, record.EncodeFile(f))
}

