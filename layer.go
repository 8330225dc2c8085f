package psd

// Layer record parsing (§4.5 rules 4-6, §3 "Layer record"). Grounded
// directly on other_examples/ad94ac25_Mark24Code-psd__layer.go.go's
// parseRecord/parseLayerMaskData/parseBlendingRanges/parseLayerName/
// parseAdditionalLayerInfo sequence, adapted to this package's
// ByteSource, sanity-limit handling, and derived feature set.

// ChannelDescriptor is one entry of a layer's per-channel length table.
// Compression and Payload are populated by the second channel-image-data
// pass (§4.5 rule 7); Length is payload-only bytes after the §4.5 rule
// 8 ambiguity resolution.
type ChannelDescriptor struct {
	ID          int16
	Length      int64
	Compression Compression
	Payload     []byte

	decoded     []byte
	decodeErr   error
	unavailable bool
}

// Features is the set of booleans derived from a layer's tagged blocks
// (§3 "Layer record").
type Features struct {
	HasText       bool
	HasVectorMask bool
	IsSmartObject bool
	IsAdjustment  bool
	HasEffects    bool
	HasFill       bool
	Has3D         bool
	HasVideo      bool
	IsGroupStart  bool
	IsGroupEnd    bool
}

// TaggedBlock is one parsed extra-data tagged block, retained verbatim.
type TaggedBlock struct {
	Key  string
	Data []byte
}

// Layer is one parsed layer record.
type Layer struct {
	Top, Left, Bottom, Right int32
	BoundsInvalid            bool

	Channels []ChannelDescriptor

	BlendModeKey string
	Opacity      uint8
	Clipping     uint8
	Flags        uint8

	Name string // UTF-8, from 'luni' override if present, else MacRoman Pascal name

	MaskDataLength int64
	TaggedBlocks   []TaggedBlock

	Features Features
	Type     LayerType
}

// Bounds returns (width, height) in pixels.
func (l *Layer) Bounds() (width, height int32) {
	return l.Right - l.Left, l.Bottom - l.Top
}

// Visible reports whether the layer's visibility flag bit is clear.
func (l *Layer) Visible() bool {
	return l.Flags&0x02 == 0
}

// Block returns the first tagged block with the given key, if any.
func (l *Layer) Block(key string) ([]byte, bool) {
	for _, b := range l.TaggedBlocks {
		if b.Key == key {
			return b.Data, true
		}
	}
	return nil, false
}

// BlendModeSignature returns the layer's blend-mode signature. The
// parser rejects records whose signature is not 8BIM, so this is a
// constant for any successfully parsed layer.
func (l *Layer) BlendModeSignature() string {
	return blendModeSig
}

// DescriptorBytes returns the layer's raw text-descriptor payload (the
// TySh or tySh tagged block), or nil when the layer carries none.
func (l *Layer) DescriptorBytes() []byte {
	if data, ok := l.Block(keyText); ok {
		return data
	}
	if data, ok := l.Block(keyTextLegacy); ok {
		return data
	}
	return nil
}

// parseLayerRecord reads one layer's fixed fields and extra-data
// (§4.5 rules 4-6), given the document format and the offset at which
// the layer-info subsection (not the outer section) ends, used for the
// large-format channel-length reread rule.
func parseLayerRecord(s ByteSource, large bool, layerInfoEnd int64) (*Layer, error) {
	l := &Layer{}

	top, err := readInt32(s)
	if err != nil {
		return nil, err
	}
	left, err := readInt32(s)
	if err != nil {
		return nil, err
	}
	bottom, err := readInt32(s)
	if err != nil {
		return nil, err
	}
	right, err := readInt32(s)
	if err != nil {
		return nil, err
	}
	l.Top, l.Left, l.Bottom, l.Right = top, left, bottom, right
	l.BoundsInvalid = isBoundsInvalid(top, left, bottom, right)

	channelCount, err := readUint16(s)
	if err != nil {
		return nil, err
	}

	if channelCount > maxChannelCount {
		// Treat as an empty layer: no channel descriptors are kept. The
		// declared (if absurd) number of channel entries is still read
		// below so the stream stays aligned; parsing fails only if that
		// read runs out of data.
		l.Channels = nil
	} else {
		l.Channels = make([]ChannelDescriptor, channelCount)
	}

	for i := uint16(0); i < channelCount; i++ {
		id, err := readInt16(s)
		if err != nil {
			return nil, err
		}
		length, err := readChannelLength(s, large, layerInfoEnd)
		if err != nil {
			return nil, err
		}
		if channelCount <= maxChannelCount {
			l.Channels[i] = ChannelDescriptor{ID: id, Length: length}
		}
	}

	var sig [4]byte
	if err := s.ReadExact(sig[:]); err != nil {
		return nil, err
	}
	if string(sig[:]) != blendModeSig {
		return nil, newError(KindCorruptData, "layer blend-mode signature mismatch")
	}
	var key [4]byte
	if err := s.ReadExact(key[:]); err != nil {
		return nil, err
	}
	l.BlendModeKey = string(key[:])

	opacity, err := readByte(s)
	if err != nil {
		return nil, err
	}
	l.Opacity = opacity
	clipping, err := readByte(s)
	if err != nil {
		return nil, err
	}
	l.Clipping = clipping
	flags, err := readByte(s)
	if err != nil {
		return nil, err
	}
	l.Flags = flags
	if err := skip(s, 1); err != nil { // filler, always 0
		return nil, err
	}

	extraLen, err := readUint32(s)
	if err != nil {
		return nil, err
	}

	switch {
	case extraLen == 0:
		// nothing to do
	case extraLen > suspiciousBoundThreshold:
		// Treat as empty: drop the channel table and skip the declared
		// bytes, clamped to not overrun the layer-info subsection.
		l.Channels = nil
		pos, err := s.Tell()
		if err != nil {
			return nil, err
		}
		end := pos + int64(extraLen)
		if end > layerInfoEnd {
			end = layerInfoEnd
		}
		if err := s.Seek(end); err != nil {
			return nil, err
		}
	default:
		if err := parseLayerExtraData(s, l, int64(extraLen)); err != nil {
			return nil, err
		}
	}

	l.Features = deriveFeatures(l.TaggedBlocks)
	l.Type = deriveLayerType(l.Features, len(l.Channels))
	return l, nil
}

func isBoundsInvalid(top, left, bottom, right int32) bool {
	const limit = 1_000_000
	if top < -limit || top > limit || left < -limit || left > limit ||
		bottom < -limit || bottom > limit || right < -limit || right > limit {
		return true
	}
	return bottom < top || right < left
}

// readChannelLength reads one channel's length field, applying the
// large-format reread-as-4-bytes fallback of §4.5 rule 4.
func readChannelLength(s ByteSource, large bool, layerInfoEnd int64) (int64, error) {
	if !large {
		v, err := readUint32(s)
		if err != nil {
			return 0, err
		}
		return int64(v), nil
	}

	pos, err := s.Tell()
	if err != nil {
		return 0, err
	}
	v, err := readUint64(s)
	if err != nil {
		return 0, err
	}
	remaining := layerInfoEnd - (pos + 8)
	if int64(v) > remaining {
		if err := s.Seek(pos); err != nil {
			return 0, err
		}
		v32, err := readUint32(s)
		if err != nil {
			return 0, err
		}
		return int64(v32), nil
	}
	return int64(v), nil
}

// parseLayerExtraData parses the extra-data blob in place: mask data,
// blending ranges, name, then tagged blocks (§4.5 rule 6).
func parseLayerExtraData(s ByteSource, l *Layer, extraLen int64) error {
	start, err := s.Tell()
	if err != nil {
		return err
	}
	end := start + extraLen

	maskLen, err := readUint32(s)
	if err != nil {
		return err
	}
	l.MaskDataLength = int64(maskLen)
	if err := skip(s, int64(maskLen)); err != nil {
		return err
	}

	blendRangesLen, err := readUint32(s)
	if err != nil {
		return err
	}
	if err := skip(s, int64(blendRangesLen)); err != nil {
		return err
	}

	macRomanName, err := parsePaddedLayerName(s)
	if err != nil {
		return err
	}
	l.Name = macRomanName

	for {
		pos, err := s.Tell()
		if err != nil {
			return err
		}
		if pos >= end {
			break
		}

		var sig [4]byte
		if err := s.ReadExact(sig[:]); err != nil {
			return err
		}
		if string(sig[:]) != resourceSigBE && string(sig[:]) != resourceSig64 {
			if err := s.Seek(end); err != nil {
				return err
			}
			break
		}
		var keyBuf [4]byte
		if err := s.ReadExact(keyBuf[:]); err != nil {
			return err
		}
		key := string(keyBuf[:])

		length, err := readUint32(s)
		if err != nil {
			return err
		}
		data := make([]byte, length)
		if err := s.ReadExact(data); err != nil {
			return err
		}
		if length%2 != 0 {
			if err := skip(s, 1); err != nil {
				return err
			}
		}

		if key == keyUnicodeName {
			name, err := parseUnicodeNameBlock(data)
			if err == nil {
				l.Name = name
			}
		}

		l.TaggedBlocks = append(l.TaggedBlocks, TaggedBlock{Key: key, Data: data})
	}

	if err := s.Seek(end); err != nil {
		return err
	}
	return nil
}

// parsePaddedLayerName reads the Pascal-string layer name, padded to a
// multiple of four including the length byte (§4.5 rule 6).
func parsePaddedLayerName(s ByteSource) (string, error) {
	nameLen, err := readByte(s)
	if err != nil {
		return "", err
	}
	var name string
	if nameLen > 0 {
		buf := make([]byte, nameLen)
		if err := s.ReadExact(buf); err != nil {
			return "", err
		}
		name, err = decodeMacRoman(buf)
		if err != nil {
			return "", err
		}
	}
	pad := (4 - int(1+nameLen)%4) % 4
	if err := skip(s, int64(pad)); err != nil {
		return "", err
	}
	return name, nil
}

// parseUnicodeNameBlock decodes a 'luni' block payload: 4-byte
// character count + UTF-16BE (§4.5 rule 6).
func parseUnicodeNameBlock(data []byte) (string, error) {
	src := NewSliceSource(data)
	return decodeLengthPrefixedUTF16BE(src)
}

func deriveFeatures(blocks []TaggedBlock) Features {
	var f Features
	for _, b := range blocks {
		switch b.Key {
		case keyText, keyTextLegacy:
			f.HasText = true
		case keyVectorMask, keyVectorMaskLegacy:
			f.HasVectorMask = true
		case keySmartObject, keySmartObjectLegacy:
			f.IsSmartObject = true
		case keyEffects:
			f.HasEffects = true
		case keyFillSolid, keyFillGradient, keyFillPattern:
			f.HasFill = true
		case keyVideo:
			f.HasVideo = true
		case keySectionDivider:
			f.IsGroupStart, f.IsGroupEnd = classifySectionDivider(b.Data)
		default:
			if is3DKey(b.Key) {
				f.Has3D = true
			}
			if isAdjustmentKey(b.Key) {
				f.IsAdjustment = true
			}
		}
	}
	return f
}

// classifySectionDivider reads the 'lsct' payload's leading 32-bit
// type word: 1 or 2 is a group start (open folder), 3 is a group end
// (bounding marker) (§4.5 rule 6).
func classifySectionDivider(data []byte) (start, end bool) {
	if len(data) < 4 {
		return false, false
	}
	typ := uint32(data[0])<<24 | uint32(data[1])<<16 | uint32(data[2])<<8 | uint32(data[3])
	switch typ {
	case 1, 2:
		return true, false
	case 3:
		return false, true
	default:
		return false, false
	}
}

// deriveLayerType implements the total-function priority order of
// §4.5 "Derived layer type".
func deriveLayerType(f Features, channelCount int) LayerType {
	switch {
	case f.IsGroupEnd:
		return LayerTypeGroupEnd
	case f.IsGroupStart:
		return LayerTypeGroupStart
	case f.HasText:
		return LayerTypeText
	case f.IsSmartObject:
		return LayerTypeSmartObject
	case f.IsAdjustment:
		return LayerTypeAdjustment
	case f.HasFill:
		return LayerTypeFill
	case f.HasEffects:
		return LayerTypeEffects
	case f.Has3D:
		return LayerType3D
	case f.HasVideo:
		return LayerTypeVideo
	case channelCount > 0:
		return LayerTypePixel
	default:
		return LayerTypeEmpty
	}
}

// isBackgroundLayer implements §4.5 "Background-layer predicate".
// index is the layer's position, last is the index of the final layer,
// baseChannelCount is caller-supplied (3 RGB, 4 CMYK, 1 grayscale).
func isBackgroundLayer(l *Layer, index, last int, baseChannelCount int) bool {
	if index != last {
		return false
	}
	if l.Flags&0x04 == 0 {
		return false
	}
	for _, ch := range l.Channels {
		if ch.ID == -1 {
			return false
		}
	}
	if l.MaskDataLength != 0 {
		return false
	}
	if _, ok := l.Block(keyVectorMask); ok {
		return false
	}
	if _, ok := l.Block(keyVectorMaskLegacy); ok {
		return false
	}
	return len(l.Channels) == baseChannelCount
}
