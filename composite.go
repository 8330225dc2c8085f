package psd

// Composite image data (§4.5 "Composite image data"). Grounded on the
// teacher's reader.go top-level Decode loop, restructured around a
// single planar block instead of TIFF's strip/tile addressing, with the
// row-count-width fallback trial that TIFF's fixed strip layout never
// needs.

// Composite is the single planar composite image, when present.
type Composite struct {
	Compression Compression
	Data        []byte // channels * height * scanlineBytes, planar
}

// parseComposite reads the composite image data at the current cursor
// position (§4.5). Failures of kind stream-eof, stream-invalid, or
// unsupported-compression are non-fatal per §7's propagation policy:
// the caller receives (nil, nil) and the document is otherwise intact.
func parseComposite(s ByteSource, h *Header) (*Composite, error) {
	kind, err := readUint16(s)
	if err != nil {
		if IsKind(err, KindStreamEOF) {
			return nil, nil
		}
		return nil, err
	}
	compression := Compression(kind)
	if compression > maxCompressionKind {
		return nil, nil
	}

	width := int(h.Width)
	height := int(h.Height)
	channels := int(h.ChannelCount)
	scanline := scanlineBytes(width, h.Depth)
	expected := channels * height * scanline

	var data []byte
	switch compression {
	case CompressionRaw:
		data, err = readRawComposite(s, expected)
	case CompressionRLE:
		data, err = readRLEComposite(s, h, channels, height, scanline, expected)
	case CompressionZIP:
		payload, rerr := readRemainingForInflate(s, expected)
		if rerr != nil {
			err = rerr
			break
		}
		data, err = inflateChannel(payload, expected)
	case CompressionZIPPredict:
		payload, rerr := readRemainingForInflate(s, expected)
		if rerr != nil {
			err = rerr
			break
		}
		bpp := int(h.Depth) / 8
		if bpp == 0 {
			bpp = 1
		}
		data, err = zipWithPredictionDecompress(payload, expected, scanline, bpp)
	default:
		return nil, nil
	}

	if err != nil {
		if IsKind(err, KindStreamEOF) || IsKind(err, KindStreamInvalid) || IsKind(err, KindUnsupportedCompression) {
			return nil, nil
		}
		return nil, err
	}

	return &Composite{Compression: compression, Data: data}, nil
}

func readRawComposite(s ByteSource, expected int) ([]byte, error) {
	buf := make([]byte, expected)
	if err := s.ReadExact(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

// readRLEComposite implements §4.5's "try the format-default width
// first; on failure retry with the other width" rule for the composite
// row-count table.
func readRLEComposite(s ByteSource, h *Header, channels, height, scanline, expected int) ([]byte, error) {
	rows := channels * height
	defaultWidth := 2
	if h.IsLarge() {
		defaultWidth = 4
	}
	otherWidth := 2
	if defaultWidth == 2 {
		otherWidth = 4
	}

	start, err := s.Tell()
	if err != nil {
		return nil, err
	}

	remaining, err := remainingBytes(s)
	if err != nil {
		return nil, err
	}
	payload := make([]byte, remaining)
	if err := s.ReadExact(payload); err != nil {
		return nil, err
	}

	if out, err := tryRLECompositeWidth(payload, rows, scanline, defaultWidth); err == nil {
		return out, nil
	}
	if out, err := tryRLECompositeWidth(payload, rows, scanline, otherWidth); err == nil {
		return out, nil
	}

	if err := s.Seek(start); err != nil {
		return nil, err
	}
	return nil, newError(KindCorruptData, "composite RLE row-count width is ambiguous for both 2 and 4 bytes")
}

func tryRLECompositeWidth(payload []byte, rows, width, rowCountWidth int) ([]byte, error) {
	tableBytes := rows * rowCountWidth
	if tableBytes > len(payload) {
		return nil, newError(KindCorruptData, "row-count table overruns composite payload")
	}
	sum, ok := sumRowCounts(payload, rows, rowCountWidth)
	if !ok || tableBytes+sum > len(payload) {
		return nil, newError(KindCorruptData, "row counts overrun composite payload")
	}
	return packbitsDecodeMultiRow(payload[:tableBytes+sum], rows, width, rowCountWidth)
}

// readRemainingForInflate reads up to 2x the expected uncompressed size
// from the remainder of the stream, per §4.5's ZIP/ZIP+predict rule.
func readRemainingForInflate(s ByteSource, expected int) ([]byte, error) {
	remaining, err := remainingBytes(s)
	if err != nil {
		return nil, err
	}
	limit := 2 * expected
	if remaining > limit {
		remaining = limit
	}
	buf := make([]byte, remaining)
	if err := s.ReadExact(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func remainingBytes(s ByteSource) (int, error) {
	pos, err := s.Tell()
	if err != nil {
		return 0, err
	}
	// There is no explicit stream length accessor on ByteSource, so the
	// remainder is counted by reading to the end of the source in
	// chunks with ReadUpTo and then seeking back to the starting
	// position. The composite section is the final section, so the
	// count to end of stream is the composite payload size.
	const probeChunk = 1 << 20
	var total int64
	buf := make([]byte, probeChunk)
	for {
		n, err := s.ReadUpTo(buf)
		total += int64(n)
		if n == 0 || err != nil {
			break
		}
	}
	if err := s.Seek(pos); err != nil {
		return 0, err
	}
	return int(total), nil
}
