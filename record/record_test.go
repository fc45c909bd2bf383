package record_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"containerfs/record"
	"containerfs/sectorio"
)

func TestDirectoryRoundTrip(t *testing.T) {
	d := record.EmptyDirectory(7)
	d.Frwd = 9
	d.Free = 42
	name, ok := record.PadName("hello")
	require.True(t, ok)
	d.Idx[3] = record.FileIDX{Link: 99, Name: name, Type: record.TypeUser, Size: 10}

	buf := record.EncodeDirectory(d)
	assert.Len(t, buf, sectorio.SectorSize)

	got := record.DecodeDirectory(buf)
	assert.Equal(t, d, got)
}

func TestFileRoundTrip(t *testing.T) {
	f := record.EmptyFile(3)
	f.Frwd = 4
	for i := range f.Data {
		f.Data[i] = byte(i)
	}

	buf := record.EncodeFile(f)
	assert.Len(t, buf, sectorio.SectorSize)

	got := record.DecodeFile(buf)
	assert.Equal(t, f, got)
}

func TestDirectoryWireOffsets(t *testing.T) {
	d := record.EmptyDirectory(0x01020304)
	d.Frwd = 0x05060708
	d.Free = 0x090A0B0C
	d.Filler = 0x0D0E0F10
	buf := record.EncodeDirectory(d)

	assert.Equal(t, []byte{0x04, 0x03, 0x02, 0x01}, buf[0:4], "back")
	assert.Equal(t, []byte{0x08, 0x07, 0x06, 0x05}, buf[4:8], "frwd")
	assert.Equal(t, []byte{0x0C, 0x0B, 0x0A, 0x09}, buf[8:12], "free")
	assert.Equal(t, []byte{0x10, 0x0F, 0x0E, 0x0D}, buf[12:16], "filler")
}

func TestFileIDXWireOffsets(t *testing.T) {
	d := record.EmptyDirectory(0)
	name, ok := record.PadName("abc")
	require.True(t, ok)
	d.Idx[0] = record.FileIDX{Link: 0x11223344, Name: name, Type: record.TypeDir, Size: 0x5566}
	buf := record.EncodeDirectory(d)

	slot := buf[16 : 16+16]
	assert.Equal(t, []byte{0x44, 0x33, 0x22, 0x11}, slot[0:4], "link")
	assert.Equal(t, []byte("abc      "), slot[4:13], "padded name")
	assert.Equal(t, byte('D'), slot[13], "type")
	assert.Equal(t, []byte{0x66, 0x55}, slot[14:16], "size")
}

func TestPadName(t *testing.T) {
	padded, ok := record.PadName("f")
	require.True(t, ok)
	assert.Equal(t, "f        ", string(padded[:]))
	assert.Equal(t, "f", record.TrimName(padded))

	_, ok = record.PadName("")
	assert.False(t, ok)

	_, ok = record.PadName("123456789a")
	assert.False(t, ok)

	_, ok = record.PadName("a/b")
	assert.False(t, ok)

	_, ok = record.PadName("a\x00b")
	assert.False(t, ok)
}

func TestNameEqualComparesFullField(t *testing.T) {
	a, _ := record.PadName("x")
	b, _ := record.PadName("x")
	assert.True(t, record.NameEqual(a, b))

	c, _ := record.PadName("y")
	assert.False(t, record.NameEqual(a, c))
}

func TestFreeDirectoryIsAllFreeSlots(t *testing.T) {
	d := record.FreeDirectory()
	assert.Equal(t, record.FreeListSentinel, d.Free)
	assert.Equal(t, record.FillerSentinel, d.Filler)
	for _, slot := range d.Idx {
		assert.Equal(t, record.TypeFree, slot.Type)
		assert.Equal(t, record.BlankName(), slot.Name)
	}
}
