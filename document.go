package psd

// Document orchestration: the five-section top-level parse and the
// caller-facing query/render surface (§2, §6). Grounded on the
// teacher's newDecoder/Decode sequencing (read header, dispatch the
// rest of the stream strictly in section order, return a single owned
// value), adapted to PSD's five fixed sections instead of TIFF's
// IFD chain.

// Document is the root, owning every parsed or retained byte (§3
// "Document"). There is no caller-injected allocator: allocation
// ownership is expressed by Go's garbage collector, which already
// satisfies the "document exclusively owns every heap buffer" and
// "no shared or cyclic references" invariants without a parallel
// bookkeeping layer.
type Document struct {
	Header *Header

	ColorModeData []byte
	Resources     []Resource

	Layers               []*Layer
	HasTransparencyLayer bool

	Composite *Composite

	textLayers []*TextLayer
}

// Parse reads a complete document from s in strict section order
// (§4.5, §2 "Control flow"). Text-layer parsing failures never abort
// parsing (§7); composite failures of kind stream-eof, stream-invalid,
// or unsupported-compression leave the document without a composite
// buffer rather than failing outright (handled inside parseComposite).
func Parse(s ByteSource) (*Document, error) {
	header, err := parseHeader(s)
	if err != nil {
		return nil, err
	}

	colorModeData, err := parseColorModeData(s)
	if err != nil {
		return nil, err
	}

	resources, err := parseImageResources(s)
	if err != nil {
		return nil, err
	}

	layerMaskInfo, err := parseLayerAndMaskInfo(s, header)
	if err != nil {
		return nil, err
	}

	composite, err := parseComposite(s, header)
	if err != nil {
		return nil, err
	}

	doc := &Document{
		Header:               header,
		ColorModeData:        colorModeData,
		Resources:            resources,
		Layers:               layerMaskInfo.Layers,
		HasTransparencyLayer: layerMaskInfo.HasTransparencyLayer,
		Composite:            composite,
	}
	doc.textLayers = buildTextLayerIndex(doc.Layers)

	return doc, nil
}

func parseColorModeData(s ByteSource) ([]byte, error) {
	length, err := readUint32(s)
	if err != nil {
		return nil, err
	}
	if length == 0 {
		return nil, nil
	}
	buf := make([]byte, length)
	if err := s.ReadExact(buf); err != nil {
		return nil, err
	}
	return buf, nil
}

//-----------------//
// Document query  //
//-----------------//

func (d *Document) Width() int           { return int(d.Header.Width) }
func (d *Document) Height() int          { return int(d.Header.Height) }
func (d *Document) Depth() uint16        { return d.Header.Depth }
func (d *Document) ChannelCount() int    { return int(d.Header.ChannelCount) }
func (d *Document) Format() Format       { return d.Header.Format }
func (d *Document) ColorMode() ColorMode { return d.Header.ColorMode }
func (d *Document) LayerCount() int      { return len(d.Layers) }

// Layer returns the layer at index, or nil if out of range.
func (d *Document) Layer(index int) *Layer {
	if index < 0 || index >= len(d.Layers) {
		return nil
	}
	return d.Layers[index]
}

// FindResource looks up a resource by its 16-bit id.
func (d *Document) FindResource(id uint16) (Resource, bool) {
	return FindResource(d.Resources, id)
}

// IsBackgroundLayer implements §4.5's background-layer predicate for
// the layer at index, given the caller-supplied base channel count.
func (d *Document) IsBackgroundLayer(index, baseChannelCount int) bool {
	l := d.Layer(index)
	if l == nil {
		return false
	}
	return isBackgroundLayer(l, index, len(d.Layers)-1, baseChannelCount)
}

// TextLayers returns the derived text-layer index built after layer
// parsing (§4.8).
func (d *Document) TextLayers() []*TextLayer {
	return d.textLayers
}

//--------------------------//
// Lazy per-channel access  //
//--------------------------//

// DecodeLayerChannel lazily decodes the layer's channel with the given
// id (§4.7). Mask channels (-2 user mask, -3 vector mask) use an 8-bit
// channel depth regardless of document depth.
func (d *Document) DecodeLayerChannel(l *Layer, channelID int16) ([]byte, error) {
	for i := range l.Channels {
		if l.Channels[i].ID == channelID {
			width, height := l.Bounds()
			depth := d.Header.Depth
			if channelID == -2 || channelID == -3 {
				depth = 8
			}
			return decodeChannel(&l.Channels[i], int(width), int(height), depth)
		}
	}
	return nil, newError(KindInvalidArgument, "layer has no channel with the given id")
}

//------------//
// Rendering  //
//------------//

// RenderComposite renders the document's composite image to
// interleaved RGBA8 using the two-call protocol (§4.9).
func (d *Document) RenderComposite(dst []byte) (int, error) {
	if d.Composite == nil {
		return 0, newError(KindInvalidArgument, "document has no composite image")
	}
	buf := d.compositeRenderBuffer()
	return RenderRGBA8(buf, dst)
}

// CompositeInfo describes the composite's native encoding alongside a
// render (§6 "Rendering": the extended composite variant).
type CompositeInfo struct {
	ColorMode    ColorMode
	Depth        uint16
	ChannelCount int
	Compression  Compression
}

// RenderCompositeInfo is the extended form of RenderComposite: the same
// two-call protocol, additionally reporting the composite's native
// color mode, depth, channel count, and original compression kind.
func (d *Document) RenderCompositeInfo(dst []byte) (int, CompositeInfo, error) {
	if d.Composite == nil {
		return 0, CompositeInfo{}, newError(KindInvalidArgument, "document has no composite image")
	}
	info := CompositeInfo{
		ColorMode:    d.Header.ColorMode,
		Depth:        d.Header.Depth,
		ChannelCount: d.ChannelCount(),
		Compression:  d.Composite.Compression,
	}
	n, err := RenderRGBA8(d.compositeRenderBuffer(), dst)
	return n, info, err
}

func (d *Document) compositeRenderBuffer() *RenderBuffer {
	width, height := d.Width(), d.Height()
	scanline := scanlineBytes(width, d.Header.Depth)
	planeLen := scanline * height

	buf := &RenderBuffer{
		Width:     width,
		Height:    height,
		Depth:     d.Header.Depth,
		ColorMode: d.Header.ColorMode,
		Palette:   d.ColorModeData,
	}
	for ch := 0; ch < d.ChannelCount() && ch < 5; ch++ {
		start := ch * planeLen
		end := start + planeLen
		if end > len(d.Composite.Data) {
			break
		}
		buf.Planes[ch] = d.Composite.Data[start:end]
	}
	return buf
}

// RenderLayer renders one layer to interleaved RGBA8 using the
// two-call protocol, using the same plane-selection rule as the
// composite renderer but over the layer's own channel ids (0..3 as
// R,G,B,K depending on mode; -1 as the alpha slot).
func (d *Document) RenderLayer(l *Layer, dst []byte) (int, error) {
	width, height := l.Bounds()
	buf := &RenderBuffer{
		Width:     int(width),
		Height:    int(height),
		Depth:     d.Header.Depth,
		ColorMode: d.Header.ColorMode,
		Palette:   d.ColorModeData,
	}

	planeForID := func(id int16) []byte {
		data, err := d.DecodeLayerChannel(l, id)
		if err != nil {
			return nil
		}
		return data
	}

	switch d.Header.ColorMode {
	case ColorModeRGB:
		buf.Planes[0] = planeForID(0)
		buf.Planes[1] = planeForID(1)
		buf.Planes[2] = planeForID(2)
		buf.Planes[3] = planeForID(-1)
	case ColorModeGrayscale, ColorModeDuotone, ColorModeBitmap, ColorModeIndexed:
		buf.Planes[0] = planeForID(0)
		buf.Planes[1] = planeForID(-1)
	case ColorModeCMYK:
		buf.Planes[0] = planeForID(0)
		buf.Planes[1] = planeForID(1)
		buf.Planes[2] = planeForID(2)
		buf.Planes[3] = planeForID(3)
		buf.Planes[4] = planeForID(-1)
	case ColorModeLab:
		buf.Planes[0] = planeForID(0)
		buf.Planes[1] = planeForID(1)
		buf.Planes[2] = planeForID(2)
		buf.Planes[3] = planeForID(-1)
	}

	return RenderRGBA8(buf, dst)
}
