package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadLayerInfoLengthStandardFormat(t *testing.T) {
	buf := u32(20)
	s := NewSliceSource(buf)
	end, err := readLayerInfoLength(s, false, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(24), end) // pos(4) + length(20)
}

func TestReadLayerInfoLengthLargeFormatFitsAsEightBytes(t *testing.T) {
	// uint64 length = 20, well within sectionEnd.
	buf := append([]byte{0, 0, 0, 0}, u32(20)...)
	s := NewSliceSource(buf)
	end, err := readLayerInfoLength(s, true, 1000)
	require.NoError(t, err)
	assert.Equal(t, int64(28), end) // pos(8) + length(20)
}

func TestReadLayerInfoLengthLargeFormatRereadFallback(t *testing.T) {
	// As a uint64 this is implausibly large relative to sectionEnd, so
	// the reader must roll back and reinterpret the same 8 bytes as a
	// 4-byte length followed by 4 bytes of layer data.
	buf := []byte{0, 0, 0, 5, 0, 0, 0, 42}
	s := NewSliceSource(buf)
	end, err := readLayerInfoLength(s, true, 12)
	require.NoError(t, err)
	assert.Equal(t, int64(9), end) // pos(4) + length32(5)
}

func buildMinimalLayerAndMaskInfoStandard(layerCount int16) []byte {
	count := layerCount
	if count < 0 {
		count = -count
	}
	layerRecord := buildLayerRecord(0, 0, 1, 1, nil, nil)
	layerCountField := i16(layerCount)

	subsection := append([]byte{}, layerCountField...)
	for i := int16(0); i < count; i++ {
		subsection = append(subsection, layerRecord...)
	}

	body := append(u32(uint32(len(subsection))), subsection...)
	body = append(body, u32(0)...) // global layer mask info length

	return append(u32(uint32(len(body))), body...)
}

func TestParseLayerAndMaskInfoNegativeCountSetsTransparencyFlag(t *testing.T) {
	buf := buildMinimalLayerAndMaskInfoStandard(-1)
	h := &Header{Format: FormatStandard}
	info, err := parseLayerAndMaskInfo(NewSliceSource(buf), h)
	require.NoError(t, err)
	assert.True(t, info.HasTransparencyLayer)
	assert.Len(t, info.Layers, 1)
}

func TestParseLayerAndMaskInfoZeroSectionLengthIsEmpty(t *testing.T) {
	buf := u32(0)
	h := &Header{Format: FormatStandard}
	info, err := parseLayerAndMaskInfo(NewSliceSource(buf), h)
	require.NoError(t, err)
	assert.Empty(t, info.Layers)
	assert.False(t, info.HasTransparencyLayer)
}
