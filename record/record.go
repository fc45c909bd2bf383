// Package record marshals and unmarshals the two on-sector record shapes —
// Directory and File — to and from a sector-sized byte buffer, using the
// fixed little-endian layout from the container's wire format.
//
// The technique — a struct whose field order matches the wire layout exactly,
// decoded with encoding/binary — is the same one the teacher's
// drivers/lbr and drivers/unixv6 packages use for their own raw on-disk
// records (RawDirent, RawInode, RawSuperblock).
package record

import (
	"bytes"
	"encoding/binary"

	"containerfs/sectorio"
)

// Entry types a FileIDX slot can hold.
const (
	TypeFree = byte('F')
	TypeDir  = byte('D')
	TypeUser = byte('U')
)

// NumSlots is the number of FileIDX slots in a single Directory sector.
const NumSlots = 31

// NameSize is the width, in bytes, of a stored (space-padded) name.
const NameSize = 9

// FileDataSize is the number of opaque data bytes in a File sector.
const FileDataSize = 504

// FillerSentinel is the canonical value of Directory.Filler: an unused
// 4-byte region whose value carries no semantics and exists only so a hex
// dump of an initialized sector is recognizable.
const FillerSentinel uint32 = 0xEFBEEFBE

// FreeListSentinel is the canonical value written to a non-root Directory's
// Free field while it is a node of the free list. Like FillerSentinel, it is
// purely for debugging; no code branches on it.
const FreeListSentinel uint32 = 0xADDEADDE

// FileIDX is one of the 31 fixed-size entries in a Directory naming a child
// and pointing to its head sector.
type FileIDX struct {
	Link uint32
	Name [NameSize]byte
	Type byte
	Size uint16
}

// Directory is the on-disk shape of a directory sector: a 16-byte header
// followed by NumSlots FileIDX entries, for exactly 512 bytes.
type Directory struct {
	Back   uint32
	Frwd   uint32
	Free   uint32
	Filler uint32
	Idx    [NumSlots]FileIDX
}

// File is the on-disk shape of a user-file sector: an 8-byte header
// followed by FileDataSize opaque data bytes, for exactly 512 bytes.
type File struct {
	Back uint32
	Frwd uint32
	Data [FileDataSize]byte
}

func init() {
	if binary.Size(Directory{}) != sectorio.SectorSize {
		panic("record: Directory wire layout is not exactly one sector")
	}
	if binary.Size(File{}) != sectorio.SectorSize {
		panic("record: File wire layout is not exactly one sector")
	}
}

// EncodeDirectory marshals d into a sector-sized buffer.
func EncodeDirectory(d Directory) [sectorio.SectorSize]byte {
	var out [sectorio.SectorSize]byte
	buf := bytes.NewBuffer(out[:0])
	// A write into a buffer backed by a fixed-size byte array of the exact
	// wire size can't fail or run short; errors are checked anyway because
	// binary.Write always returns one.
	if err := binary.Write(buf, binary.LittleEndian, &d); err != nil {
		panic("record: encoding a well-formed Directory failed: " + err.Error())
	}
	copy(out[:], buf.Bytes())
	return out
}

// DecodeDirectory unmarshals a sector-sized buffer into a Directory. Decoding
// a fixed-width layout from a fixed-size buffer cannot fail, but the
// resulting record may violate higher-level invariants if the sector did not
// actually hold a Directory.
func DecodeDirectory(buf [sectorio.SectorSize]byte) Directory {
	var d Directory
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &d); err != nil {
		panic("record: decoding a sector-sized buffer into a Directory failed: " + err.Error())
	}
	return d
}

// EncodeFile marshals f into a sector-sized buffer.
func EncodeFile(f File) [sectorio.SectorSize]byte {
	var out [sectorio.SectorSize]byte
	buf := bytes.NewBuffer(out[:0])
	if err := binary.Write(buf, binary.LittleEndian, &f); err != nil {
		panic("record: encoding a well-formed File failed: " + err.Error())
	}
	copy(out[:], buf.Bytes())
	return out
}

// DecodeFile unmarshals a sector-sized buffer into a File.
func DecodeFile(buf [sectorio.SectorSize]byte) File {
	var f File
	if err := binary.Read(bytes.NewReader(buf[:]), binary.LittleEndian, &f); err != nil {
		panic("record: decoding a sector-sized buffer into a File failed: " + err.Error())
	}
	return f
}

// EmptyDirectory returns a Directory with the given back-link, no
// forward-extension, the canonical filler sentinel, and all NumSlots slots
// marked free.
func EmptyDirectory(back uint32) Directory {
	d := Directory{Back: back, Filler: FillerSentinel}
	for i := range d.Idx {
		d.Idx[i].Type = TypeFree
		d.Idx[i].Name = BlankName()
	}
	return d
}

// FreeDirectory returns the canonical shape written to a sector when it is
// appended to the free list: an empty Directory whose Free field carries the
// free-list debug sentinel instead of a real free-list head.
func FreeDirectory() Directory {
	d := EmptyDirectory(0)
	d.Free = FreeListSentinel
	return d
}

// EmptyFile returns a File with the given back-link, no forward-extension,
// and all data bytes zeroed.
func EmptyFile(back uint32) File {
	return File{Back: back}
}

// BlankName returns the 9-byte all-space name stored in an unused slot.
func BlankName() [NameSize]byte {
	var name [NameSize]byte
	for i := range name {
		name[i] = ' '
	}
	return name
}

// PadName left-justifies name and right-pads it with ASCII spaces to
// NameSize bytes. It returns ErrBadName-worthy information via the bool: ok
// is false if name is empty or longer than NameSize bytes, or contains '/'
// or a NUL byte.
func PadName(name string) (padded [NameSize]byte, ok bool) {
	if len(name) == 0 || len(name) > NameSize {
		return padded, false
	}
	for i := 0; i < len(name); i++ {
		c := name[i]
		if c == '/' || c == 0 {
			return padded, false
		}
	}
	padded = BlankName()
	copy(padded[:], name)
	return padded, true
}

// TrimName strips the trailing ASCII-space padding from a stored name.
func TrimName(name [NameSize]byte) string {
	end := len(name)
	for end > 0 && name[end-1] == ' ' {
		end--
	}
	return string(name[:end])
}

// NameEqual compares two stored names byte-for-byte over the full 9-byte
// field, exactly as spec'd: trailing padding is significant, there is no
// NUL-terminated comparison.
func NameEqual(a, b [NameSize]byte) bool {
	return a == b
}
