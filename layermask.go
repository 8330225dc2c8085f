package psd

// Layer-and-mask-info section orchestration (§4.5 "Layer and mask
// info"). Grounded on the teacher's idf.go IFD-pointer-vs-inline-data
// disambiguation idiom (try the wide read, roll back and retry narrow
// on implausible results) generalized to the standard/large outer and
// layer-info subsection length fields this format requires.

// LayerMaskInfo is the parsed "layer and mask info" section.
type LayerMaskInfo struct {
	Layers               []*Layer
	HasTransparencyLayer bool
}

// parseLayerAndMaskInfo implements §4.5 rules 1-9.
func parseLayerAndMaskInfo(s ByteSource, h *Header) (*LayerMaskInfo, error) {
	large := h.IsLarge()

	sectionLen, err := readLength(s, large)
	if err != nil {
		return nil, err
	}
	sectionStart, err := s.Tell()
	if err != nil {
		return nil, err
	}
	sectionEnd := sectionStart + sectionLen
	if sectionLen == 0 {
		return &LayerMaskInfo{}, nil
	}

	layerInfoEnd, err := readLayerInfoLength(s, large, sectionEnd)
	if err != nil {
		return nil, err
	}

	info := &LayerMaskInfo{}

	count, err := readInt16(s)
	if err != nil {
		return nil, err
	}
	if count < 0 {
		info.HasTransparencyLayer = true
		count = -count
	}

	info.Layers = make([]*Layer, 0, count)
	for i := int16(0); i < count; i++ {
		pos, err := s.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= layerInfoEnd {
			break
		}
		layer, err := parseLayerRecord(s, large, layerInfoEnd)
		if err != nil {
			return nil, err
		}
		info.Layers = append(info.Layers, layer)
	}

	if err := parseLayerChannelImageData(s, info.Layers, layerInfoEnd); err != nil {
		return nil, err
	}

	if err := skipGlobalLayerMaskInfo(s); err != nil {
		return nil, err
	}

	pos, err := s.Tell()
	if err != nil {
		return nil, err
	}
	if pos != sectionEnd {
		if err := s.Seek(sectionEnd); err != nil {
			return nil, err
		}
	}

	return info, nil
}

// readLayerInfoLength implements §4.5 rule 2: in large format the
// layer-info subsection length is read as 8 bytes first; if that would
// place the cursor past section_end, it is reread as 4 bytes. Standard
// format always reads 4 bytes.
func readLayerInfoLength(s ByteSource, large bool, sectionEnd int64) (int64, error) {
	if !large {
		length, err := readUint32(s)
		if err != nil {
			return 0, err
		}
		pos, err := s.Tell()
		if err != nil {
			return 0, err
		}
		return pos + int64(length), nil
	}

	pos, err := s.Tell()
	if err != nil {
		return 0, err
	}
	length, err := readUint64(s)
	if err != nil {
		return 0, err
	}
	after := pos + 8
	if after+int64(length) > sectionEnd {
		if err := s.Seek(pos); err != nil {
			return 0, err
		}
		length32, err := readUint32(s)
		if err != nil {
			return 0, err
		}
		after32, err := s.Tell()
		if err != nil {
			return 0, err
		}
		return after32 + int64(length32), nil
	}
	return after + int64(length), nil
}

// skipGlobalLayerMaskInfo reads and discards the global layer mask info
// block (§4.5 rule 8): a 4-byte length followed by that many bytes.
func skipGlobalLayerMaskInfo(s ByteSource) error {
	length, err := readUint32(s)
	if err != nil {
		return err
	}
	return skip(s, int64(length))
}
