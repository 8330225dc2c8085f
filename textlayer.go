package psd

import (
	"math"
	"strconv"
	"strings"
)

// Text-layer index and EngineData mini-parser (§4.8). Grounded on
// spec.md's own byte layout (no teacher or pack analogue for
// Photoshop's TySh/EngineData formats) plus this package's own
// descriptor.go for recursive lookups, and golang.org/x/text's UTF-16BE
// support already used by text.go for the embedded BOM strings.

// Transform is the layer's 2D affine transform (six doubles).
type Transform struct {
	XX, XY, YX, YY, TX, TY float64
}

// TextBounds is a rectangular bound in text-space doubles.
type TextBounds struct {
	Left, Top, Right, Bottom float64
}

// TextLayer is a derived record built from a layer's TySh/tySh tagged
// block (§3 "Text layer record (derived)").
type TextLayer struct {
	LayerIndex int
	Legacy     bool // true if sourced from "tySh" rather than "TySh"

	Transform Transform
	Bounds    TextBounds

	raw []byte // retained payload, re-read lazily

	textDescriptor *Descriptor
	warpDescriptor *Descriptor
	parsed         bool
}

// DefaultStyle is the subset of EngineData extracted by
// get_default_style (§4.8).
type DefaultStyle struct {
	FontName      string
	FontSize      float64
	Tracking      float64
	Leading       float64
	Justification int
	R, G, B, A    uint8
}

// buildTextLayerIndex scans every layer for TySh/tySh blocks and emits
// a TextLayer per match, eagerly extracting the transform and bounds
// for "TySh" blocks per §4.8. Parsing failures here never abort
// document parsing; a layer whose block cannot be eagerly parsed is
// simply omitted from the index.
func buildTextLayerIndex(layers []*Layer) []*TextLayer {
	var index []*TextLayer
	for i, l := range layers {
		if !l.Features.HasText {
			continue
		}
		if data, ok := l.Block(keyText); ok {
			if tl, err := newTextLayerFromTySh(i, data, false); err == nil {
				index = append(index, tl)
				continue
			}
		}
		if data, ok := l.Block(keyTextLegacy); ok {
			if tl, err := newTextLayerFromTySh(i, data, true); err == nil {
				index = append(index, tl)
			}
		}
	}
	return index
}

func newTextLayerFromTySh(layerIndex int, payload []byte, legacy bool) (*TextLayer, error) {
	if len(payload) < 50 {
		return nil, newError(KindCorruptData, "TySh payload too short for transform")
	}
	tl := &TextLayer{LayerIndex: layerIndex, Legacy: legacy, raw: payload}

	s := NewSliceSource(payload)
	if _, err := readUint16(s); err != nil { // TySh version
		return nil, err
	}
	var vals [6]float64
	for i := range vals {
		bits, err := readUint64(s)
		if err != nil {
			return nil, err
		}
		vals[i] = math.Float64frombits(bits)
	}
	tl.Transform = Transform{XX: vals[0], XY: vals[1], YX: vals[2], YY: vals[3], TX: vals[4], TY: vals[5]}

	// The modern block carries the text bounds in its last 32 bytes; the
	// legacy tySh layout does not.
	if !legacy {
		if len(payload) < 82 {
			return nil, newError(KindCorruptData, "TySh payload too short for bounds")
		}
		tail := payload[len(payload)-32:]
		tailSrc := NewSliceSource(tail)
		var bounds [4]float64
		for i := range bounds {
			bits, err := readUint64(tailSrc)
			if err != nil {
				return nil, err
			}
			bounds[i] = math.Float64frombits(bits)
		}
		tl.Bounds = TextBounds{Left: bounds[0], Top: bounds[1], Right: bounds[2], Bottom: bounds[3]}
	}

	return tl, nil
}

// ensureParsed performs the deferred full descriptor parse of §4.8 on
// first access: re-read the retained payload, skip to the text
// descriptor, parse it, then optionally parse a following warp
// descriptor (non-fatal if absent).
func (tl *TextLayer) ensureParsed() error {
	if tl.parsed {
		return nil
	}
	s := NewSliceSource(tl.raw)

	if _, err := readUint16(s); err != nil { // TySh version
		return err
	}
	if err := skip(s, 48); err != nil {
		return err
	}
	if _, err := readUint16(s); err != nil { // text version
		return err
	}
	if _, err := readUint32(s); err != nil { // text-descriptor version
		return err
	}
	textDesc, err := parseDescriptor(s)
	if err != nil {
		return err
	}
	tl.textDescriptor = textDesc

	// Warp descriptor: missing or truncated data is non-fatal.
	if _, err := readUint16(s); err == nil { // warp version
		if _, err := readUint32(s); err == nil { // warp-descriptor version
			if warpDesc, err := parseDescriptor(s); err == nil {
				tl.warpDescriptor = warpDesc
			}
		}
	}

	tl.parsed = true
	return nil
}

// GetText implements get_text (§4.8): search the text descriptor
// recursively for a "Txt " TEXT property.
func (tl *TextLayer) GetText() (string, error) {
	if err := tl.ensureParsed(); err != nil {
		return "", err
	}
	if tl.textDescriptor == nil {
		return "", newError(KindInvalidStructure, "text layer has no text descriptor")
	}
	v, ok := tl.textDescriptor.FindRecursive("Txt ", ValueString)
	if !ok {
		return "", newError(KindInvalidStructure, "text descriptor has no Txt  property")
	}
	return v.String, nil
}

// GetDefaultStyle implements get_default_style (§4.8).
func (tl *TextLayer) GetDefaultStyle() (*DefaultStyle, error) {
	if err := tl.ensureParsed(); err != nil {
		return nil, err
	}
	if tl.textDescriptor == nil {
		return nil, newError(KindInvalidStructure, "text layer has no text descriptor")
	}
	v, ok := tl.textDescriptor.FindRecursive("EngineData", ValueRaw)
	if !ok {
		return nil, newError(KindInvalidStructure, "text descriptor has no EngineData property")
	}
	return parseEngineData(v.Raw)
}

//---------------------//
// EngineData parsing  //
//---------------------//

// parseEngineData extracts the subset of Photoshop's PostScript-like
// engine structure described in §4.8.
func parseEngineData(data []byte) (*DefaultStyle, error) {
	text, err := convertEngineDataStrings(data)
	if err != nil {
		return nil, err
	}

	fontIndex := extractEngineInt(text, "/Font")
	fontNames := extractFontSet(text)

	var fontName string
	if fontIndex >= 0 && fontIndex < len(fontNames) {
		fontName = fontNames[fontIndex]
	} else if len(fontNames) > 0 {
		fontName = fontNames[0]
	}

	fontSize := extractEngineFloat(text, "/FontSize")
	tracking := extractEngineFloat(text, "/Tracking")

	leading, hasLeading := extractEngineFloatOK(text, "/Leading")
	if !hasLeading {
		autoLeading := extractEngineFloat(text, "/AutoLeading")
		leading = fontSize * autoLeading
	}

	justification := 0
	if j, ok := extractEngineIntOK(text, "/Justification"); ok {
		justification = j
	}

	r, g, b, a := extractFillColor(text)

	if fontName == "" || fontSize <= 0 {
		return nil, newError(KindInvalidStructure, "engine data missing font name or non-positive size")
	}

	return &DefaultStyle{
		FontName:      fontName,
		FontSize:      fontSize,
		Tracking:      tracking,
		Leading:       leading,
		Justification: justification,
		R:             r,
		G:             g,
		B:             b,
		A:             a,
	}, nil
}

// convertEngineDataStrings converts every parenthesised substring of
// the raw engine data to UTF-8, recognizing a leading UTF-16BE or
// UTF-16LE byte-order mark and respecting backslash escapes for
// matching parentheses, while copying everything outside parentheses
// unchanged (§4.8). Each converted string is written back between its
// parentheses so later lookups such as /Name (...) can still find it.
func convertEngineDataStrings(data []byte) (string, error) {
	var out strings.Builder
	i := 0
	for i < len(data) {
		if data[i] != '(' {
			out.WriteByte(data[i])
			i++
			continue
		}
		j := i + 1
		depth := 1
		for j < len(data) && depth > 0 {
			switch data[j] {
			case '\\':
				j += 2
				continue
			case '(':
				depth++
			case ')':
				depth--
			}
			j++
		}
		if depth != 0 {
			return "", newError(KindInvalidFormat, "engine-data string missing closing paren")
		}
		inner := unescapeEngineString(data[i+1 : j-1])
		out.WriteByte('(')
		out.WriteString(decodeEngineInnerString(inner))
		out.WriteByte(')')
		i = j
	}
	return out.String(), nil
}

func unescapeEngineString(b []byte) []byte {
	out := make([]byte, 0, len(b))
	for i := 0; i < len(b); i++ {
		if b[i] == '\\' && i+1 < len(b) {
			i++
			out = append(out, b[i])
			continue
		}
		out = append(out, b[i])
	}
	return out
}

func decodeEngineInnerString(b []byte) string {
	if len(b) >= 2 && b[0] == 0xFE && b[1] == 0xFF {
		return decodeUTF16BE(b[2:])
	}
	if len(b) >= 2 && b[0] == 0xFF && b[1] == 0xFE {
		return decodeUTF16LE(b[2:])
	}
	return string(b)
}

func decodeUTF16LE(b []byte) string {
	swapped := make([]byte, len(b))
	for i := 0; i+1 < len(b); i += 2 {
		swapped[i] = b[i+1]
		swapped[i+1] = b[i]
	}
	return decodeUTF16BE(swapped)
}

func extractEngineInt(text, key string) int {
	v, _ := extractEngineIntOK(text, key)
	return v
}

func extractEngineIntOK(text, key string) (int, bool) {
	tok := scanEngineToken(text, key)
	if tok == "" {
		return 0, false
	}
	n, err := strconv.Atoi(tok)
	if err != nil {
		return 0, false
	}
	return n, true
}

func extractEngineFloat(text, key string) float64 {
	v, _ := extractEngineFloatOK(text, key)
	return v
}

func extractEngineFloatOK(text, key string) (float64, bool) {
	tok := scanEngineToken(text, key)
	if tok == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(tok, 64)
	if err != nil {
		return 0, false
	}
	return f, true
}

// scanEngineToken finds the first occurrence of key followed by
// whitespace and returns the next whitespace-delimited token.
func scanEngineToken(text, key string) string {
	from := 0
	for {
		idx := strings.Index(text[from:], key)
		if idx < 0 {
			return ""
		}
		after := from + idx + len(key)
		if after >= len(text) || !strings.ContainsRune(" \t\r\n", rune(text[after])) {
			from = after
			continue
		}
		rest := strings.TrimSpace(text[after:])
		end := strings.IndexAny(rest, " \t\r\n")
		if end < 0 {
			end = len(rest)
		}
		return rest[:end]
	}
}

// extractFontSet returns the ordered list of /Name (...) strings found
// within the /FontSet array.
func extractFontSet(text string) []string {
	idx := strings.Index(text, "/FontSet")
	if idx < 0 {
		return nil
	}
	open := strings.Index(text[idx:], "[")
	if open < 0 {
		return nil
	}
	closeIdx := strings.Index(text[idx+open:], "]")
	if closeIdx < 0 {
		return nil
	}
	section := text[idx+open : idx+open+closeIdx]

	var names []string
	rest := section
	for {
		i := strings.Index(rest, "/Name")
		if i < 0 {
			break
		}
		rest = rest[i+len("/Name"):]
		po := strings.Index(rest, "(")
		if po < 0 {
			break
		}
		pc := strings.Index(rest[po:], ")")
		if pc < 0 {
			break
		}
		names = append(names, rest[po+1:po+pc])
		rest = rest[po+pc:]
	}
	return names
}

// extractFillColor extracts the Values [ r g b ] triple following the
// first /FillColor occurrence, scaled to 0-255 with alpha 255.
func extractFillColor(text string) (r, g, b, a uint8) {
	idx := strings.Index(text, "/FillColor")
	if idx < 0 {
		return 0, 0, 0, 255
	}
	rest := text[idx:]
	vi := strings.Index(rest, "Values")
	if vi < 0 {
		return 0, 0, 0, 255
	}
	rest = rest[vi:]
	open := strings.Index(rest, "[")
	closeIdx := strings.Index(rest, "]")
	if open < 0 || closeIdx < 0 || closeIdx < open {
		return 0, 0, 0, 255
	}
	fields := strings.Fields(rest[open+1 : closeIdx])
	if len(fields) < 3 {
		return 0, 0, 0, 255
	}
	vals := make([]float64, 3)
	for i := 0; i < 3; i++ {
		v, err := strconv.ParseFloat(fields[i], 64)
		if err != nil {
			return 0, 0, 0, 255
		}
		vals[i] = clamp01(v)
	}
	return uint8(vals[0] * 255), uint8(vals[1] * 255), uint8(vals[2] * 255), 255
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
