package psd

import (
	"testing"
	"unicode/utf16"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func utf16beBytes(s string) []byte {
	units := utf16.Encode([]rune(s))
	out := make([]byte, 0, len(units)*2)
	for _, u := range units {
		out = append(out, byte(u>>8), byte(u))
	}
	return out
}

func TestDecodeUTF16BERoundTrip(t *testing.T) {
	want := "Hello, 世界"
	got := decodeUTF16BE(utf16beBytes(want))
	assert.Equal(t, want, got)
}

func TestDecodeUTF16BELoneSurrogateYieldsReplacement(t *testing.T) {
	// A lone high surrogate (0xD800) with no following low surrogate.
	b := []byte{0xD8, 0x00}
	got := decodeUTF16BE(b)
	assert.Equal(t, "�", got)
}

func TestDecodeUTF16BEOddLengthTruncates(t *testing.T) {
	b := append(utf16beBytes("ab"), 0x00) // trailing dangling byte
	got := decodeUTF16BE(b)
	assert.Equal(t, "ab", got)
}

func TestDecodeMacRomanASCIIPassthrough(t *testing.T) {
	got, err := decodeMacRoman([]byte("plain name"))
	require.NoError(t, err)
	assert.Equal(t, "plain name", got)
}

func TestDecodeLengthPrefixedUTF16BE(t *testing.T) {
	payload := utf16beBytes("légende")
	buf := make([]byte, 4+len(payload))
	count := len(payload) / 2
	buf[0] = byte(count >> 24)
	buf[1] = byte(count >> 16)
	buf[2] = byte(count >> 8)
	buf[3] = byte(count)
	copy(buf[4:], payload)

	s := NewSliceSource(buf)
	got, err := decodeLengthPrefixedUTF16BE(s)
	require.NoError(t, err)
	assert.Equal(t, "légende", got)
}
