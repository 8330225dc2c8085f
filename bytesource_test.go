package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSliceSourceReadExactAndSeek(t *testing.T) {
	s := NewSliceSource([]byte{1, 2, 3, 4, 5})

	var buf [2]byte
	require.NoError(t, s.ReadExact(buf[:]))
	assert.Equal(t, [2]byte{1, 2}, buf)

	pos, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)

	require.NoError(t, s.Seek(0))
	require.NoError(t, s.ReadExact(buf[:]))
	assert.Equal(t, [2]byte{1, 2}, buf)
}

func TestSliceSourceReadExactShortReadIsEOF(t *testing.T) {
	s := NewSliceSource([]byte{1, 2})
	buf := make([]byte, 5)
	err := s.ReadExact(buf)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStreamEOF))
}

func TestSliceSourceSeekOutOfBounds(t *testing.T) {
	s := NewSliceSource([]byte{1, 2})
	err := s.Seek(100)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindStreamSeek))
}

func TestSliceSourceReadUpToPartial(t *testing.T) {
	s := NewSliceSource([]byte{1, 2, 3})
	buf := make([]byte, 10)
	n, err := s.ReadUpTo(buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Equal(t, []byte{1, 2, 3}, buf[:n])
}

func TestReadBigEndianPrimitives(t *testing.T) {
	s := NewSliceSource([]byte{0x01, 0x02, 0x03, 0x04, 0xFF, 0xFF, 0xFF, 0xFF})

	v16, err := readUint16(s)
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0102), v16)

	v32, err := readUint32(s)
	require.NoError(t, err)
	assert.Equal(t, uint32(0x0304FFFF), v32)

	v16b, err := readUint16(s)
	require.NoError(t, err)
	assert.Equal(t, uint16(0xFFFF), v16b)
}

func TestReadInt32Signed(t *testing.T) {
	s := NewSliceSource([]byte{0xFF, 0xFF, 0xFF, 0xFF})
	v, err := readInt32(s)
	require.NoError(t, err)
	assert.Equal(t, int32(-1), v)
}

func TestReadLengthStandardReads32Bits(t *testing.T) {
	s := NewSliceSource([]byte{0, 0, 0, 42})
	v, err := readLength(s, false)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestReadLengthLargeReads64Bits(t *testing.T) {
	s := NewSliceSource([]byte{0, 0, 0, 0, 0, 0, 0, 42})
	v, err := readLength(s, true)
	require.NoError(t, err)
	assert.Equal(t, int64(42), v)
}

func TestReadLengthLargeOutOfRange(t *testing.T) {
	s := NewSliceSource([]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	_, err := readLength(s, true)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindOutOfRange))
}

func TestSkipAdvancesPosition(t *testing.T) {
	s := NewSliceSource([]byte{1, 2, 3, 4, 5})
	require.NoError(t, skip(s, 3))
	pos, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
}

func TestVTableSourceReadExact(t *testing.T) {
	data := []byte{9, 8, 7, 6}
	pos := 0
	vt := VTable{
		Read: func(p []byte) (int, error) {
			n := copy(p, data[pos:])
			pos += n
			return n, nil
		},
		Seek: func(offset int64) error {
			pos = int(offset)
			return nil
		},
		Tell: func() (int64, error) {
			return int64(pos), nil
		},
	}
	s := NewVTableSource(vt)
	buf := make([]byte, 2)
	require.NoError(t, s.ReadExact(buf))
	assert.Equal(t, []byte{9, 8}, buf)

	off, err := s.Tell()
	require.NoError(t, err)
	assert.Equal(t, int64(2), off)

	require.NoError(t, s.Close())
}
