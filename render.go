package psd

import "math"

// Color-mode-aware rendering (§4.9). Grounded on the teacher's
// decode_rgb.go/decode_logluv.go per-color-mode dispatch pattern (a
// plane-pointer table selected by mode, walked once per pixel),
// generalized to PSD's five-plane model and extended with the
// D50-Lab -> Bradford -> linear-sRGB path the teacher's HDR transforms
// never needed since TIFF never stores Lab.

// RenderBuffer holds planar channel bytes ready for rendering: one
// []byte per plane, each scanlineBytes*Height bytes of samples at Depth
// (reduced to 8 bits per sample only while rendering).
type RenderBuffer struct {
	Planes    [5][]byte // nil plane means "absent"
	Width     int
	Height    int
	Depth     uint16
	ColorMode ColorMode
	Palette   []byte // color-mode data, for Indexed
}

// RequiredRGBASize returns width*height*4, the two-call protocol's
// query-size result (§4.9).
func RequiredRGBASize(width, height int) int {
	return width * height * 4
}

// RenderRGBA8 implements the two-call render protocol: a nil dst
// returns the required size with no error and no write; a non-nil dst
// shorter than required fails with buffer-too-small.
func RenderRGBA8(buf *RenderBuffer, dst []byte) (int, error) {
	required := RequiredRGBASize(buf.Width, buf.Height)
	negativeExtent := buf.Width < 0 || buf.Height < 0
	if negativeExtent {
		// Layers flagged with suspicious bounds can report a negative
		// extent; render as zero bytes instead of failing.
		required = 0
	}
	if dst == nil {
		return required, nil
	}
	if len(dst) < required {
		return required, newError(KindBufferTooSmall, "destination buffer smaller than required size")
	}
	if negativeExtent {
		return 0, nil
	}

	switch buf.ColorMode {
	case ColorModeRGB:
		renderRGB(buf, dst)
	case ColorModeGrayscale, ColorModeDuotone:
		renderGrayscale(buf, dst)
	case ColorModeIndexed:
		renderIndexed(buf, dst)
	case ColorModeCMYK:
		renderCMYK(buf, dst)
	case ColorModeLab:
		renderLab(buf, dst)
	case ColorModeBitmap:
		renderBitmap(buf, dst)
	default:
		return 0, newErrorf(KindUnsupportedColorMode, "color mode %s is not supported for rendering", buf.ColorMode)
	}
	return required, nil
}

// sampleAt reduces one scanline-relative sample to an 8-bit value per
// §4.9: depth 8 verbatim, depth 16/32 most-significant byte.
func sampleAt(plane []byte, pixelIndex int, depth uint16) (uint8, bool) {
	if plane == nil {
		return 0, false
	}
	bpp := int(depth) / 8
	if bpp == 0 {
		bpp = 1
	}
	off := pixelIndex * bpp
	if off >= len(plane) {
		return 0, false
	}
	return plane[off], true
}

func renderRGB(buf *RenderBuffer, dst []byte) {
	for i := 0; i < buf.Width*buf.Height; i++ {
		r, _ := sampleAt(buf.Planes[0], i, buf.Depth)
		g, _ := sampleAt(buf.Planes[1], i, buf.Depth)
		b, _ := sampleAt(buf.Planes[2], i, buf.Depth)
		a, aok := sampleAt(buf.Planes[3], i, buf.Depth)
		if !aok {
			a = 255
		}
		dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = r, g, b, a
	}
}

func renderGrayscale(buf *RenderBuffer, dst []byte) {
	for i := 0; i < buf.Width*buf.Height; i++ {
		v, _ := sampleAt(buf.Planes[0], i, buf.Depth)
		a, aok := sampleAt(buf.Planes[1], i, buf.Depth)
		if !aok {
			a = 255
		}
		dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = v, v, v, a
	}
}

func renderIndexed(buf *RenderBuffer, dst []byte) {
	havePalette := len(buf.Palette) >= 768
	for i := 0; i < buf.Width*buf.Height; i++ {
		key, _ := sampleAt(buf.Planes[0], i, buf.Depth)
		a, aok := sampleAt(buf.Planes[1], i, buf.Depth)
		if !aok {
			a = 255
		}
		var r, g, b uint8
		if havePalette {
			r = buf.Palette[key]
			g = buf.Palette[256+int(key)]
			b = buf.Palette[512+int(key)]
		} else {
			r, g, b = key, key, key
		}
		dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = r, g, b, a
	}
}

func renderCMYK(buf *RenderBuffer, dst []byte) {
	for i := 0; i < buf.Width*buf.Height; i++ {
		c, _ := sampleAt(buf.Planes[0], i, buf.Depth)
		m, _ := sampleAt(buf.Planes[1], i, buf.Depth)
		y, _ := sampleAt(buf.Planes[2], i, buf.Depth)
		k, _ := sampleAt(buf.Planes[3], i, buf.Depth)
		a, aok := sampleAt(buf.Planes[4], i, buf.Depth)
		if !aok {
			a = 255
		}
		dst[4*i] = 255 - minU8(255, int(c)+int(k))
		dst[4*i+1] = 255 - minU8(255, int(m)+int(k))
		dst[4*i+2] = 255 - minU8(255, int(y)+int(k))
		dst[4*i+3] = a
	}
}

func renderBitmap(buf *RenderBuffer, dst []byte) {
	plane := buf.Planes[0]
	stride := scanlineBytes(buf.Width, 1)
	for y := 0; y < buf.Height; y++ {
		// A missing or undersized plane reads as all-zero bits, matching
		// how the byte-per-sample renderers degrade through sampleAt.
		var row []byte
		if end := (y + 1) * stride; end <= len(plane) {
			row = plane[y*stride : end]
		}
		for x := 0; x < buf.Width; x++ {
			byteIdx := x / 8
			bitIdx := 7 - uint(x%8)
			var v uint8
			if byteIdx < len(row) && row[byteIdx]&(1<<bitIdx) != 0 {
				v = 255
			}
			i := y*buf.Width + x
			dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = v, v, v, 255
		}
	}
}

func minU8(max, v int) uint8 {
	if v > max {
		v = max
	}
	if v < 0 {
		v = 0
	}
	return uint8(v)
}

//-------------------//
// Lab / D50 -> RGB  //
//-------------------//

func renderLab(buf *RenderBuffer, dst []byte) {
	for i := 0; i < buf.Width*buf.Height; i++ {
		l, a_, b_ := labSample(buf, i)
		aVal, aok := sampleAt(buf.Planes[3], i, buf.Depth)
		if !aok {
			aVal = 255
		}
		r, g, b := labToSRGB8(l, a_, b_)
		dst[4*i], dst[4*i+1], dst[4*i+2], dst[4*i+3] = r, g, b, aVal
	}
}

func labSample(buf *RenderBuffer, pixelIndex int) (l, a, b float64) {
	p0, _ := sampleAtWide(buf.Planes[0], pixelIndex, buf.Depth)
	p1, _ := sampleAtWide(buf.Planes[1], pixelIndex, buf.Depth)
	p2, _ := sampleAtWide(buf.Planes[2], pixelIndex, buf.Depth)

	switch buf.Depth {
	case 16:
		l = p0 * 100 / 65535
		a = (p1 - 32768) / 256
		b = (p2 - 32768) / 256
	default: // 8
		l = p0 * 100 / 255
		a = p1 - 128
		b = p2 - 128
	}
	return l, a, b
}

// sampleAtWide returns the raw sample value as a float64 (not reduced
// to 8 bits), honoring the plane's declared bit depth.
func sampleAtWide(plane []byte, pixelIndex int, depth uint16) (float64, bool) {
	if plane == nil {
		return 0, false
	}
	bpp := int(depth) / 8
	if bpp == 0 {
		bpp = 1
	}
	off := pixelIndex * bpp
	if off+bpp > len(plane) {
		return 0, false
	}
	switch depth {
	case 16:
		return float64(uint16(plane[off])<<8 | uint16(plane[off+1])), true
	default:
		return float64(plane[off]), true
	}
}

// labToSRGB8 converts a D50 CIE Lab sample to 8-bit sRGB via XYZ,
// Bradford chromatic adaptation to D65, and the canonical linear-sRGB
// matrix with companding (§4.9).
func labToSRGB8(l, a, b float64) (r, g, bl uint8) {
	const eps = 216.0 / 24389.0
	const kappa = 24389.0 / 27.0

	// D50 reference white.
	const xn, yn, zn = 0.96422, 1.0, 0.82521

	fy := (l + 16) / 116
	fx := fy + a/500
	fz := fy - b/200

	finv := func(t float64) float64 {
		t3 := t * t * t
		if t3 > eps {
			return t3
		}
		return (116*t - 16) / kappa
	}

	x := xn * finv(fx)
	y := yn * finv(fy)
	z := zn * finv(fz)

	rx, ry, rz := bradfordD50ToD65(x, y, z)

	lr, lg, lb := xyzToLinearSRGB(rx, ry, rz)

	r = compand(lr)
	g = compand(lg)
	bl = compand(lb)
	return r, g, bl
}

// bradfordD50ToD65 applies the Bradford chromatic adaptation transform
// from the D50 to the D65 white point.
func bradfordD50ToD65(x, y, z float64) (nx, ny, nz float64) {
	nx = 0.9555766*x + -0.0230393*y + 0.0631636*z
	ny = -0.0282895*x + 1.0099416*y + 0.0210077*z
	nz = 0.0122982*x + -0.0204830*y + 1.3299098*z
	return nx, ny, nz
}

// xyzToLinearSRGB converts D65 XYZ to linear sRGB via the canonical
// 3x3 matrix.
func xyzToLinearSRGB(x, y, z float64) (r, g, b float64) {
	r = 3.2404542*x + -1.5371385*y + -0.4985314*z
	g = -0.9692660*x + 1.8760108*y + 0.0415560*z
	b = 0.0556434*x + -0.2040259*y + 1.0572252*z
	return r, g, b
}

func compand(v float64) uint8 {
	if v <= 0.0031308 {
		v = 12.92 * v
	} else if v > 0 {
		v = 1.055*math.Pow(v, 1/2.4) - 0.055
	} else {
		v = 0
	}
	return clampToByte(v)
}

func clampToByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
