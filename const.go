package psd

// A Photoshop document is organized as five sections read in strict
// order: header, color mode data, image resources, layer and mask
// info, and composite image data (see page 9 of the Adobe spec).
//
// Large documents (version 2, a.k.a. PSB) widen most length fields
// from 32 to 64 bits but keep the same section order; §4.5 of the
// design describes the real-world exceptions to that rule that this
// package works around.

const (
	signature     = "8BPS"
	resourceSigBE = "8BIM"
	resourceSig64 = "8B64"
	blendModeSig  = "8BIM"
)

// Format selects the 32-bit-length ("standard") or 64-bit-length
// ("large"/PSB) section layout.
type Format int

const (
	FormatStandard Format = iota + 1
	FormatLarge
)

const (
	maxStandardDimension = 30000
	maxLargeDimension    = 300000
)

// ColorMode is the document- or composite-level color mode (16-bit
// field in the header).
type ColorMode uint16

const (
	ColorModeBitmap       ColorMode = 0
	ColorModeGrayscale    ColorMode = 1
	ColorModeIndexed      ColorMode = 2
	ColorModeRGB          ColorMode = 3
	ColorModeCMYK         ColorMode = 4
	ColorModeMultichannel ColorMode = 7
	ColorModeDuotone      ColorMode = 8
	ColorModeLab          ColorMode = 9
)

func (m ColorMode) String() string {
	switch m {
	case ColorModeBitmap:
		return "Bitmap"
	case ColorModeGrayscale:
		return "Grayscale"
	case ColorModeIndexed:
		return "Indexed"
	case ColorModeRGB:
		return "RGB"
	case ColorModeCMYK:
		return "CMYK"
	case ColorModeMultichannel:
		return "Multichannel"
	case ColorModeDuotone:
		return "Duotone"
	case ColorModeLab:
		return "Lab"
	default:
		return "Unknown"
	}
}

// Compression is the per-channel / composite compression kind.
type Compression uint16

const (
	CompressionRaw        Compression = 0
	CompressionRLE        Compression = 1
	CompressionZIP        Compression = 2
	CompressionZIPPredict Compression = 3
)

const maxCompressionKind = CompressionZIPPredict

// Tagged-block keys recognized inside a layer's extra-data (§4.5 rule 6).
const (
	keyText              = "TySh"
	keyTextLegacy        = "tySh"
	keySmartObject       = "SoLd"
	keySmartObjectLegacy = "SoLE"
	keyEffects           = "lfx2"
	keyVectorMask        = "vmsk"
	keyVectorMaskLegacy  = "vmns"
	keySectionDivider    = "lsct"
	keyFillSolid         = "SoCo"
	keyFillGradient      = "GdFl"
	keyFillPattern       = "PtFl"
	keyVideo             = "vtrk"
	keyUnicodeName       = "luni"
)

// Adjustment-layer keys (§4.5 rule 6). The broader "adj*" prefix is
// matched separately.
var adjustmentKeys = map[string]bool{
	"brit": true, "brtC": true, "levl": true, "curv": true,
	"hue ": true, "hue2": true, "blnc": true, "vibA": true,
	"expA": true, "mixr": true, "selc": true, "thrs": true,
	"post": true, "phfl": true, "grdm": true, "clrL": true,
}

func is3DKey(key string) bool {
	return len(key) == 4 && key[:3] == "3dL"
}

func isAdjustmentKey(key string) bool {
	if adjustmentKeys[key] {
		return true
	}
	return len(key) >= 3 && key[:3] == "adj"
}

// LayerType is the derived, total-function layer classification of
// §4.5 "Derived layer type".
type LayerType int

const (
	LayerTypePixel LayerType = iota
	LayerTypeEmpty
	LayerTypeText
	LayerTypeSmartObject
	LayerTypeAdjustment
	LayerTypeFill
	LayerTypeEffects
	LayerType3D
	LayerTypeVideo
	LayerTypeGroupStart
	LayerTypeGroupEnd
)

func (t LayerType) String() string {
	switch t {
	case LayerTypePixel:
		return "Pixel"
	case LayerTypeEmpty:
		return "Empty"
	case LayerTypeText:
		return "Text"
	case LayerTypeSmartObject:
		return "SmartObject"
	case LayerTypeAdjustment:
		return "Adjustment"
	case LayerTypeFill:
		return "Fill"
	case LayerTypeEffects:
		return "Effects"
	case LayerType3D:
		return "3D"
	case LayerTypeVideo:
		return "Video"
	case LayerTypeGroupStart:
		return "GroupStart"
	case LayerTypeGroupEnd:
		return "GroupEnd"
	default:
		return "Unknown"
	}
}

// Sanity limits (§4.5 rule 5, §4.6 "Sanity limits").
const (
	maxChannelCount          = 56
	maxDescriptorCount       = 1_000_000
	maxRawValueLength        = 100 << 20 // 100 MiB
	suspiciousBoundThreshold = 1_000_000
)
