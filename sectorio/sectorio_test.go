package sectorio_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xaionaro-go/bytesextra"

	cerrors "containerfs/errors"
	"containerfs/sectorio"
)

func newBacking(t *testing.T, totalSectors uint32) sectorio.Backing {
	t.Helper()
	buf := make([]byte, int(totalSectors)*sectorio.SectorSize)
	return bytesextra.NewReadWriteSeeker(buf)
}

func TestReadSector_ZeroedOnFreshBacking(t *testing.T) {
	dev := sectorio.New(newBacking(t, 4), 4)

	buf, err := dev.ReadSector(2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(buf[:], make([]byte, sectorio.SectorSize)))
}

func TestWriteThenReadSector_RoundTrips(t *testing.T) {
	dev := sectorio.New(newBacking(t, 4), 4)

	var want [sectorio.SectorSize]byte
	for i := range want {
		want[i] = byte(i % 256)
	}

	require.NoError(t, dev.WriteSector(1, want))

	got, err := dev.ReadSector(1)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestReadSector_OutOfRange(t *testing.T) {
	dev := sectorio.New(newBacking(t, 4), 4)

	_, err := dev.ReadSector(4)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrOutOfRange)
}

func TestWriteSector_OutOfRange(t *testing.T) {
	dev := sectorio.New(newBacking(t, 4), 4)

	var buf [sectorio.SectorSize]byte
	err := dev.WriteSector(10, buf)
	require.Error(t, err)
	assert.ErrorIs(t, err, cerrors.ErrOutOfRange)
}

func TestWriteSector_DoesNotAffectAdjacentSectors(t *testing.T) {
	dev := sectorio.New(newBacking(t, 3), 3)

	var fill [sectorio.SectorSize]byte
	for i := range fill {
		fill[i] = 0xAA
	}
	require.NoError(t, dev.WriteSector(1, fill))

	first, err := dev.ReadSector(0)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(first[:], make([]byte, sectorio.SectorSize)))

	last, err := dev.ReadSector(2)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(last[:], make([]byte, sectorio.SectorSize)))
}
