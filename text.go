package psd

import (
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"
)

// utf16BE is the shared UTF-16BE decoder used for every length-prefixed
// Unicode string in the format: layer 'luni' names, descriptor TEXT
// values, and engine-data BOM strings. golang.org/x/text already
// replaces lone or mispaired surrogates with U+FFFD, matching §4.4, so
// there is no need to hand-roll unicode/utf16 surrogate handling.
var utf16BE = unicode.UTF16(unicode.BigEndian, unicode.IgnoreBOM)

// Legacy MacRoman and UTF-16BE decoding (§4.4). Grounded on
// other_examples/09339823_...photoshop.go.go's use of unicode/utf16 for
// the 'luni' block, upgraded to a real MacRoman charmap via
// golang.org/x/text/encoding/charmap (the same golang.org/x/text family
// gogpu-gg depends on directly for text shaping) rather than a
// hand-rolled 128-entry table, since the ecosystem already publishes
// the canonical mapping.

// decodeMacRoman converts legacy MacRoman bytes to UTF-8.
func decodeMacRoman(b []byte) (string, error) {
	out, err := charmap.Macintosh.NewDecoder().Bytes(b)
	if err != nil {
		return "", wrapError(KindInvalidFormat, "macroman decode failed", err)
	}
	return string(out), nil
}

// decodeUTF16BE converts a UTF-16BE byte sequence to UTF-8, honoring
// surrogate pairs. Lone or mispaired surrogates decode to U+FFFD,
// matching §4.4.
func decodeUTF16BE(b []byte) string {
	if len(b)%2 != 0 {
		b = b[:len(b)-1]
	}
	out, err := utf16BE.NewDecoder().Bytes(b)
	if err != nil {
		return ""
	}
	return string(out)
}

// decodeLengthPrefixedUTF16BE reads a 32-bit character count followed
// by that many UTF-16 code units and returns the decoded UTF-8 string.
// This is the layout shared by 'luni' blocks and descriptor TEXT
// values.
func decodeLengthPrefixedUTF16BE(s ByteSource) (string, error) {
	count, err := readUint32(s)
	if err != nil {
		return "", err
	}
	if count > maxDescriptorCount {
		return "", newError(KindCorruptData, "unicode string length exceeds sanity limit")
	}
	buf := make([]byte, int(count)*2)
	if err := s.ReadExact(buf); err != nil {
		return "", err
	}
	return decodeUTF16BE(buf), nil
}
