package psd

import (
	"bytes"
	"compress/flate"
	"compress/zlib"
	"io"
)

// DEFLATE inflation and PNG-style scanline prediction reversal (§4.3).
// Grounded on the teacher's decoder.go (compress/zlib for cDeflate),
// generalized with a raw-DEFLATE-first attempt because real PSD writers
// emit both framings, and on
// other_examples/7ba5e149_seehuhn-go-pdf__.../predict/read.go for the
// Sub/Up/Average/Paeth reversal algorithm (here with "above" always
// zero, since PSD applies prediction within a single scanline).

// inflateChannel inflates input, trying raw DEFLATE first and falling
// back to zlib framing, requiring the result to be exactly
// expectedSize bytes.
func inflateChannel(input []byte, expectedSize int) ([]byte, error) {
	if out, ok := tryRawInflate(input, expectedSize); ok {
		return out, nil
	}
	if out, ok := tryZlibInflate(input, expectedSize); ok {
		return out, nil
	}
	return nil, newError(KindCorruptData, "deflate stream did not decode to the expected size")
}

func tryRawInflate(input []byte, expectedSize int) ([]byte, bool) {
	r := flate.NewReader(bytes.NewReader(input))
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, int64(expectedSize)+1))
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, false
	}
	if len(out) != expectedSize {
		return nil, false
	}
	return out, true
}

func tryZlibInflate(input []byte, expectedSize int) ([]byte, bool) {
	r, err := zlib.NewReader(bytes.NewReader(input))
	if err != nil {
		return nil, false
	}
	defer r.Close()
	out, err := io.ReadAll(io.LimitReader(r, int64(expectedSize)+1))
	if err != nil && err != io.ErrUnexpectedEOF {
		return nil, false
	}
	if len(out) != expectedSize {
		return nil, false
	}
	return out, true
}

// zipWithPredictionDecompress inflates input, then reverses PNG-style
// per-scanline prediction, as described in §4.3.
func zipWithPredictionDecompress(input []byte, expectedSize, scanlineWidth, bytesPerPixel int) ([]byte, error) {
	inflated, err := inflateWithPredictorFraming(input, expectedSize, scanlineWidth)
	if err != nil {
		return nil, err
	}
	return reversePrediction(inflated, scanlineWidth, bytesPerPixel)
}

// inflateWithPredictorFraming inflates a stream whose uncompressed size
// is (1+scanlineWidth)*rows (one filter-type byte per scanline),
// trying raw DEFLATE then zlib framing.
func inflateWithPredictorFraming(input []byte, expectedPixelBytes, scanlineWidth int) ([]byte, error) {
	rows := expectedPixelBytes / scanlineWidth
	framedSize := expectedPixelBytes + rows
	if out, ok := tryRawInflate(input, framedSize); ok {
		return out, nil
	}
	if out, ok := tryZlibInflate(input, framedSize); ok {
		return out, nil
	}
	return nil, newError(KindCorruptData, "deflate+predictor stream did not decode to the expected size")
}

// reversePrediction strips the per-scanline filter-type byte and
// reverses the PNG filter, yielding exactly scanlineWidth bytes per
// scanline. "Above" and "upper-left" neighbors are always zero because
// Photoshop applies prediction within a single scanline only.
func reversePrediction(framed []byte, scanlineWidth, bytesPerPixel int) ([]byte, error) {
	if scanlineWidth <= 0 {
		return nil, newError(KindCorruptData, "invalid scanline width")
	}
	stride := scanlineWidth + 1
	if len(framed)%stride != 0 {
		return nil, newError(KindCorruptData, "predictor-framed buffer is not a multiple of scanline+1")
	}
	rows := len(framed) / stride
	out := make([]byte, rows*scanlineWidth)

	for row := 0; row < rows; row++ {
		in := framed[row*stride : (row+1)*stride]
		filterType := in[0]
		src := in[1:]
		dst := out[row*scanlineWidth : (row+1)*scanlineWidth]

		for i := 0; i < scanlineWidth; i++ {
			var left, up, upperLeft byte
			if i >= bytesPerPixel {
				left = dst[i-bytesPerPixel]
			}
			// up and upperLeft are always zero: single-scanline prediction.
			switch filterType {
			case 0: // None
			case 1: // Sub
				dst[i] = src[i] + left
				continue
			case 2: // Up
				dst[i] = src[i] + up
				continue
			case 3: // Average
				dst[i] = src[i] + byte((int(left)+int(up))/2)
				continue
			case 4: // Paeth
				dst[i] = src[i] + paethPredictor(left, up, upperLeft)
				continue
			default:
				return nil, newErrorf(KindCorruptData, "unknown predictor filter type %d", filterType)
			}
			dst[i] = src[i]
		}
	}
	return out, nil
}

func paethPredictor(a, b, c byte) byte {
	p := int(a) + int(b) - int(c)
	pa := abs(p - int(a))
	pb := abs(p - int(b))
	pc := abs(p - int(c))
	if pa <= pb && pa <= pc {
		return a
	}
	if pb <= pc {
		return b
	}
	return c
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
