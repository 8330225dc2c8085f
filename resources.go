package psd

// Image resources section (§4.5 "Image resources", §3 "Image
// resources"). Each block's name is Pascal-string padded so that
// {length byte + name bytes} totals even, and the data is padded to
// even; unrecognized signatures mid-section stop block parsing but
// leave the stream repositioned at the section end so later sections
// stay aligned.

// Resource is one parsed image-resource block.
type Resource struct {
	ID   uint16
	Name string
	Data []byte
}

func parseImageResources(s ByteSource) ([]Resource, error) {
	length, err := readUint32(s)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	start, err := s.Tell()
	if err != nil {
		return nil, err
	}
	end := start + int64(length)

	var resources []Resource
	for {
		pos, err := s.Tell()
		if err != nil {
			return nil, err
		}
		if pos >= end {
			break
		}

		var sig [4]byte
		if err := s.ReadExact(sig[:]); err != nil {
			return nil, err
		}
		if string(sig[:]) != resourceSigBE && string(sig[:]) != resourceSig64 {
			// Unknown signature: stop parsing blocks, but keep the
			// stream aligned with the section end.
			if err := s.Seek(end); err != nil {
				return nil, err
			}
			break
		}

		id, err := readUint16(s)
		if err != nil {
			return nil, err
		}

		nameLen, err := readByte(s)
		if err != nil {
			return nil, err
		}
		var name string
		if nameLen > 0 {
			nameBytes := make([]byte, nameLen)
			if err := s.ReadExact(nameBytes); err != nil {
				return nil, err
			}
			name, err = decodeMacRoman(nameBytes)
			if err != nil {
				return nil, err
			}
		}
		// Pascal name padded so {1 length byte + name} totals even.
		if (1+int(nameLen))%2 != 0 {
			if err := skip(s, 1); err != nil {
				return nil, err
			}
		}

		dataLen, err := readUint32(s)
		if err != nil {
			return nil, err
		}
		data := make([]byte, dataLen)
		if err := s.ReadExact(data); err != nil {
			return nil, err
		}
		if dataLen%2 != 0 {
			if err := skip(s, 1); err != nil {
				return nil, err
			}
		}

		resources = append(resources, Resource{ID: id, Name: name, Data: data})
	}

	if err := s.Seek(end); err != nil {
		return nil, err
	}
	return resources, nil
}

func readByte(s ByteSource) (byte, error) {
	var b [1]byte
	if err := s.ReadExact(b[:]); err != nil {
		return 0, err
	}
	return b[0], nil
}

// FindResource returns the first resource with the given id, if any.
func FindResource(resources []Resource, id uint16) (Resource, bool) {
	for _, r := range resources {
		if r.ID == id {
			return r, true
		}
	}
	return Resource{}, false
}
