package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackbitsDecodeRowLiteral(t *testing.T) {
	// header 2 -> copy next 3 bytes literally
	row := []byte{2, 'a', 'b', 'c'}
	out, err := packbitsDecodeRow(row, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
}

func TestPackbitsDecodeRowReplicate(t *testing.T) {
	// header 0xFE (-2 as int8) -> replicate next byte 257-254=3 times
	row := []byte{0xFE, 'z'}
	out, err := packbitsDecodeRow(row, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("zzz"), out)
}

func TestPackbitsDecodeRowNoOp(t *testing.T) {
	row := []byte{0x80, 2, 'a', 'b', 'c'} // header 128 is a no-op, then a literal run
	out, err := packbitsDecodeRow(row, 3)
	require.NoError(t, err)
	assert.Equal(t, []byte("abc"), out)
}

func TestPackbitsDecodeRowWrongWidth(t *testing.T) {
	row := []byte{1, 'a', 'b'}
	_, err := packbitsDecodeRow(row, 3)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCorruptData))
}

func TestPackbitsDecodeRowMixedRuns(t *testing.T) {
	// literal run of 3, replicate 0xDD three times, literal run of 1.
	row := []byte{0x02, 0xAA, 0xBB, 0xCC, 0xFE, 0xDD, 0x00, 0xEE}
	out, err := packbitsDecodeRow(row, 7)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xAA, 0xBB, 0xCC, 0xDD, 0xDD, 0xDD, 0xEE}, out)
}

func TestPackbitsDecodeMultiRow(t *testing.T) {
	// two rows of width 2: row0 = literal "ab", row1 = replicate 'c' x2
	row0 := []byte{1, 'a', 'b'}
	row1 := []byte{0xFF, 'c'} // 257-255=2
	table := []byte{0, byte(len(row0)), 0, byte(len(row1))}
	buf := append(append([]byte{}, table...), append(row0, row1...)...)

	out, err := packbitsDecodeMultiRow(buf, 2, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, []byte("abcc"), out)
}

func TestDisambiguateChannelRowCountWidthMatchesNarrower(t *testing.T) {
	// a single empty row encoded with a 2-byte count table.
	payload := []byte{0, 0}
	width, err := disambiguateChannelRowCountWidth(payload, 1)
	require.NoError(t, err)
	assert.Equal(t, 2, width)
}

func TestDisambiguateChannelRowCountWidthAmbiguousFails(t *testing.T) {
	payload := []byte{1, 2, 3}
	_, err := disambiguateChannelRowCountWidth(payload, 1)
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCorruptData))
}
