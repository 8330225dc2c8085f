package psd

// Header parsing (§4.5 "Header"). Grounded on
// other_examples/09339823_...photoshop.go.go's psdFileHeader layout,
// expanded with the format-range and depth validation spec.md requires
// and that file does not perform.

// Header is the fixed-layout 26-byte section at the start of every
// document.
type Header struct {
	Format       Format
	ChannelCount uint16
	Height       uint32
	Width        uint32
	Depth        uint16
	ColorMode    ColorMode
}

func parseHeader(s ByteSource) (*Header, error) {
	var sig [4]byte
	if err := s.ReadExact(sig[:]); err != nil {
		return nil, err
	}
	if string(sig[:]) != signature {
		return nil, newError(KindInvalidFileFormat, "missing 8BPS signature")
	}

	version, err := readUint16(s)
	if err != nil {
		return nil, err
	}
	var format Format
	switch version {
	case 1:
		format = FormatStandard
	case 2:
		format = FormatLarge
	default:
		return nil, newErrorf(KindUnsupportedVersion, "unsupported version field %d", version)
	}

	if err := skip(s, 6); err != nil { // reserved, consumed but not validated
		return nil, err
	}

	channels, err := readUint16(s)
	if err != nil {
		return nil, err
	}
	height, err := readUint32(s)
	if err != nil {
		return nil, err
	}
	width, err := readUint32(s)
	if err != nil {
		return nil, err
	}
	depth, err := readUint16(s)
	if err != nil {
		return nil, err
	}
	colorMode, err := readUint16(s)
	if err != nil {
		return nil, err
	}

	h := &Header{
		Format:       format,
		ChannelCount: channels,
		Height:       height,
		Width:        width,
		Depth:        depth,
		ColorMode:    ColorMode(colorMode),
	}

	if err := h.validate(); err != nil {
		return nil, err
	}
	return h, nil
}

func (h *Header) validate() error {
	if h.ChannelCount < 1 || h.ChannelCount > maxChannelCount {
		return newErrorf(KindInvalidHeader, "channel count %d out of [1, %d]", h.ChannelCount, maxChannelCount)
	}
	maxDim := uint32(maxStandardDimension)
	if h.Format == FormatLarge {
		maxDim = maxLargeDimension
	}
	if h.Width < 1 || h.Width > maxDim || h.Height < 1 || h.Height > maxDim {
		return newErrorf(KindInvalidHeader, "dimensions %dx%d out of range for format", h.Width, h.Height)
	}
	switch h.Depth {
	case 1, 8, 16, 32:
	default:
		return newErrorf(KindInvalidHeader, "unsupported bit depth %d", h.Depth)
	}
	return nil
}

// IsLarge reports whether this document uses the 64-bit large-document
// section layout.
func (h *Header) IsLarge() bool {
	return h.Format == FormatLarge
}

// scanlineBytes is ceil(width/8) for depth 1, width*(depth/8) otherwise
// (§4.5 "Composite image data").
func scanlineBytes(width int, depth uint16) int {
	if depth == 1 {
		return (width + 7) / 8
	}
	return width * int(depth/8)
}
