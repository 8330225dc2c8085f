package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validHeaderBytes(channels uint16, width, height uint32, depth uint16, mode ColorMode) []byte {
	buf := make([]byte, 26)
	copy(buf[0:4], signature)
	buf[4], buf[5] = 0, 1 // version 1, standard
	// 6 reserved bytes already zero
	buf[12], buf[13] = byte(channels>>8), byte(channels)
	buf[14], buf[15] = byte(height>>24), byte(height>>16)
	buf[16], buf[17] = byte(height>>8), byte(height)
	buf[18], buf[19] = byte(width>>24), byte(width>>16)
	buf[20], buf[21] = byte(width>>8), byte(width)
	buf[22], buf[23] = byte(depth>>8), byte(depth)
	buf[24], buf[25] = byte(uint16(mode)>>8), byte(uint16(mode))
	return buf
}

func TestParseHeaderMinimalRGB(t *testing.T) {
	buf := validHeaderBytes(3, 10, 20, 8, ColorModeRGB)
	h, err := parseHeader(NewSliceSource(buf))
	require.NoError(t, err)
	assert.Equal(t, FormatStandard, h.Format)
	assert.Equal(t, uint16(3), h.ChannelCount)
	assert.Equal(t, uint32(10), h.Width)
	assert.Equal(t, uint32(20), h.Height)
	assert.Equal(t, uint16(8), h.Depth)
	assert.Equal(t, ColorModeRGB, h.ColorMode)
	assert.False(t, h.IsLarge())
}

func TestParseHeaderBadSignature(t *testing.T) {
	buf := validHeaderBytes(3, 10, 20, 8, ColorModeRGB)
	buf[0] = 'X'
	_, err := parseHeader(NewSliceSource(buf))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidFileFormat))
}

func TestParseHeaderUnsupportedVersion(t *testing.T) {
	buf := validHeaderBytes(3, 10, 20, 8, ColorModeRGB)
	buf[5] = 9
	_, err := parseHeader(NewSliceSource(buf))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedVersion))
}

func Test56ChannelHeaderIsValid(t *testing.T) {
	buf := validHeaderBytes(56, 1, 1, 8, ColorModeMultichannel)
	h, err := parseHeader(NewSliceSource(buf))
	require.NoError(t, err)
	assert.Equal(t, uint16(56), h.ChannelCount)
}

func TestParseHeaderDimensionsAtStandardMaximum(t *testing.T) {
	buf := validHeaderBytes(3, maxStandardDimension, maxStandardDimension, 8, ColorModeRGB)
	_, err := parseHeader(NewSliceSource(buf))
	require.NoError(t, err)
}

func TestParseHeaderDimensionsExceedingStandardMaximumFails(t *testing.T) {
	buf := validHeaderBytes(3, maxStandardDimension+1, 10, 8, ColorModeRGB)
	_, err := parseHeader(NewSliceSource(buf))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidHeader))
}

func TestParseHeaderInvalidDepthFails(t *testing.T) {
	buf := validHeaderBytes(3, 10, 10, 12, ColorModeRGB)
	_, err := parseHeader(NewSliceSource(buf))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindInvalidHeader))
}

func TestScanlineBytesDepth1OddWidth(t *testing.T) {
	assert.Equal(t, 2, scanlineBytes(9, 1))
	assert.Equal(t, 1, scanlineBytes(8, 1))
}

func TestScanlineBytesDepth8(t *testing.T) {
	assert.Equal(t, 10, scanlineBytes(10, 8))
}
