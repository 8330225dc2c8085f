package psd

// PackBits decoding (§4.2). Grounded on the teacher's compress.go
// unpackBits: a literal/replicate/no-op header byte loop. PSD layers
// this with a row-count table ahead of the row data and needs to
// disambiguate the table's entry width, which TIFF's strip-based
// layout never requires.

// packbitsDecodeRow decodes a single PackBits-compressed row of known
// input length into exactly width decompressed bytes. Both the
// decompressed width and the input length must be fully consumed; any
// mismatch is corruption.
func packbitsDecodeRow(row []byte, width int) ([]byte, error) {
	dst := make([]byte, 0, width)
	i := 0
	for i < len(row) {
		header := int8(row[i])
		i++
		switch {
		case header >= 0:
			n := int(header) + 1
			if i+n > len(row) {
				return nil, newError(KindCorruptData, "packbits literal run overruns input")
			}
			dst = append(dst, row[i:i+n]...)
			i += n
		case header == -128:
			// No-op, per spec.
		default:
			if i >= len(row) {
				return nil, newError(KindCorruptData, "packbits replicate run missing byte")
			}
			// header is negative; 257 - header(as unsigned byte) gives
			// the replicate count per the spec's "header > 128" branch.
			n := 257 - int(uint8(header))
			b := row[i]
			i++
			for k := 0; k < n; k++ {
				dst = append(dst, b)
			}
		}
	}
	if len(dst) != width {
		return nil, newError(KindCorruptData, "packbits row decoded to wrong width")
	}
	if i != len(row) {
		return nil, newError(KindCorruptData, "packbits row did not consume exactly its input")
	}
	return dst, nil
}

// packbitsDecodeMultiRow decodes a buffer laid out as a row-count table
// (rowCountWidth bytes per entry) followed by row data, into rows*width
// bytes total.
func packbitsDecodeMultiRow(buf []byte, rows, width, rowCountWidth int) ([]byte, error) {
	tableBytes := rows * rowCountWidth
	if tableBytes > len(buf) {
		return nil, newError(KindCorruptData, "packbits row-count table overruns buffer")
	}
	counts := make([]int, rows)
	sum := 0
	for i := 0; i < rows; i++ {
		off := i * rowCountWidth
		var c int
		if rowCountWidth == 2 {
			c = int(uint16(buf[off])<<8 | uint16(buf[off+1]))
		} else {
			c = int(uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3]))
		}
		counts[i] = c
		sum += c
	}
	if tableBytes+sum != len(buf) {
		return nil, newError(KindCorruptData, "packbits table-bytes + row sum does not match buffer length")
	}

	out := make([]byte, 0, rows*width)
	pos := tableBytes
	for i := 0; i < rows; i++ {
		row := buf[pos : pos+counts[i]]
		pos += counts[i]
		decoded, err := packbitsDecodeRow(row, width)
		if err != nil {
			return nil, err
		}
		out = append(out, decoded...)
	}
	return out, nil
}

// disambiguateChannelRowCountWidth implements the in-memory
// disambiguation of §4.2: compute both candidate totals and pick
// whichever matches the channel payload exactly, preferring 2 bytes on
// a tie.
func disambiguateChannelRowCountWidth(payload []byte, rows int) (int, error) {
	if rows == 0 {
		return 2, nil
	}
	sum2, ok2 := sumRowCounts(payload, rows, 2)
	total2 := 2*rows + sum2
	sum4, ok4 := sumRowCounts(payload, rows, 4)
	total4 := 4*rows + sum4

	match2 := ok2 && total2 == len(payload)
	match4 := ok4 && total4 == len(payload)

	switch {
	case match2:
		return 2, nil
	case match4:
		return 4, nil
	default:
		return 0, newError(KindCorruptData, "packbits row-count width is ambiguous")
	}
}

// sumRowCounts sums the first rows entries of width bytes each, as far
// as the buffer allows; ok is false if the table itself does not fit.
func sumRowCounts(buf []byte, rows, width int) (sum int, ok bool) {
	need := rows * width
	if need > len(buf) {
		return 0, false
	}
	for i := 0; i < rows; i++ {
		off := i * width
		if width == 2 {
			sum += int(uint16(buf[off])<<8 | uint16(buf[off+1]))
		} else {
			sum += int(uint32(buf[off])<<24 | uint32(buf[off+1])<<16 | uint32(buf[off+2])<<8 | uint32(buf[off+3]))
		}
	}
	return sum, true
}
