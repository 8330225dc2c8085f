package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallHeader(width, height uint32, channels uint16, depth uint16, large bool) *Header {
	f := FormatStandard
	if large {
		f = FormatLarge
	}
	return &Header{Format: f, Width: width, Height: height, ChannelCount: channels, Depth: depth, ColorMode: ColorModeRGB}
}

func TestParseCompositeRaw(t *testing.T) {
	h := smallHeader(2, 2, 1, 8, false)
	pixels := []byte{1, 2, 3, 4}
	buf := append(u32Pair(CompressionRaw), pixels...)

	c, err := parseComposite(NewSliceSource(buf), h)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, pixels, c.Data)
}

func TestParseCompositeRLETwoByteRowCountWidth(t *testing.T) {
	h := smallHeader(4, 1, 1, 8, false) // 1 row of 4 bytes, standard format defaults to 2-byte counts
	row := []byte{0x03, 10, 20, 30, 40} // literal run of 4 bytes

	var buf []byte
	buf = append(buf, u32Pair(CompressionRLE)...)
	buf = append(buf, 0, byte(len(row))) // 2-byte row count
	buf = append(buf, row...)

	c, err := parseComposite(NewSliceSource(buf), h)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []byte{10, 20, 30, 40}, c.Data)
}

func TestParseCompositeRLEFallsBackToOtherWidth(t *testing.T) {
	// A large-format document nominally expects 4-byte row counts, but
	// this payload was actually written with 2-byte counts: the reader
	// must retry before giving up.
	h := smallHeader(4, 1, 1, 8, true)
	row := []byte{0x03, 10, 20, 30, 40}
	var buf []byte
	buf = append(buf, u32Pair(CompressionRLE)...)
	buf = append(buf, 0, byte(len(row))) // 2-byte count, not the large-format default of 4
	buf = append(buf, row...)

	c, err := parseComposite(NewSliceSource(buf), h)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, []byte{10, 20, 30, 40}, c.Data)
}

func TestParseCompositeStreamEOFIsNonFatal(t *testing.T) {
	c, err := parseComposite(NewSliceSource(nil), smallHeader(2, 2, 1, 8, false))
	require.NoError(t, err)
	assert.Nil(t, c)
}

func TestParseCompositeUnsupportedCompressionIsNonFatal(t *testing.T) {
	buf := u32Pair(Compression(250))
	c, err := parseComposite(NewSliceSource(buf), smallHeader(2, 2, 1, 8, false))
	require.NoError(t, err)
	assert.Nil(t, c)
}
