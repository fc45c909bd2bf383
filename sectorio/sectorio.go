// Package sectorio provides positioned, whole-sector reads and writes
// against a backing host file. It is the leaf component of the engine: every
// higher layer talks to storage exclusively through a [Device], never
// performing partial-sector I/O itself.
//
// The separation mirrors the teacher's file_systems/common/basicstream
// package, which keeps the stream abstraction independent from whatever
// backs it (a real file in production, an in-memory buffer in tests).
package sectorio

import (
	"fmt"
	"io"

	cerrors "containerfs/errors"
)

// SectorSize is the fixed size, in bytes, of every sector in a container.
// The format does not support any other size (spec §1 Non-goals).
const SectorSize = 512

// Backing is the minimal interface a host file must satisfy to be used as
// sector storage. *os.File and the in-memory test double
// (bytesextra.NewReadWriteSeeker) both satisfy it. Positioned access is
// built on Seek rather than ReadAt/WriteAt, matching how the teacher's own
// blockcache wraps the same in-memory stream type — and a fair match for
// spec.md §5's single-threaded, non-reentrant engine, where no two sector
// accesses are ever in flight at once.
type Backing interface {
	io.ReadWriteSeeker
}

// Device performs positioned sector transfers against a Backing, bounds
// checking every access against totalSectors.
type Device struct {
	backing      Backing
	totalSectors uint32
}

// New wraps backing as a Device holding exactly totalSectors sectors.
func New(backing Backing, totalSectors uint32) *Device {
	return &Device{backing: backing, totalSectors: totalSectors}
}

// TotalSectors returns the number of addressable sectors.
func (d *Device) TotalSectors() uint32 {
	return d.totalSectors
}

func (d *Device) checkRange(n uint32) cerrors.VolumeError {
	if n >= d.totalSectors {
		return cerrors.ErrOutOfRange.WithMessage(
			fmt.Sprintf("sector %d not in [0, %d)", n, d.totalSectors))
	}
	return nil
}

// ReadSector reads exactly one sector at index n.
func (d *Device) ReadSector(n uint32) ([SectorSize]byte, cerrors.VolumeError) {
	var buf [SectorSize]byte
	if err := d.checkRange(n); err != nil {
		return buf, err
	}

	if _, err := d.backing.Seek(int64(n)*SectorSize, io.SeekStart); err != nil {
		return buf, cerrors.ErrIOError.WrapError(err)
	}

	read, err := io.ReadFull(d.backing, buf[:])
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return buf, cerrors.ErrShortIO.WithMessage(
				fmt.Sprintf("read %d of %d bytes from sector %d", read, SectorSize, n))
		}
		return buf, cerrors.ErrIOError.WrapError(err)
	}
	return buf, nil
}

// WriteSector writes exactly one sector at index n.
func (d *Device) WriteSector(n uint32, buf [SectorSize]byte) cerrors.VolumeError {
	if err := d.checkRange(n); err != nil {
		return err
	}

	if _, err := d.backing.Seek(int64(n)*SectorSize, io.SeekStart); err != nil {
		return cerrors.ErrIOError.WrapError(err)
	}

	written, err := d.backing.Write(buf[:])
	if err != nil {
		return cerrors.ErrIOError.WrapError(err)
	}
	if written != SectorSize {
		return cerrors.ErrShortIO.WithMessage(
			fmt.Sprintf("wrote %d of %d bytes to sector %d", written, SectorSize, n))
	}
	return nil
}
