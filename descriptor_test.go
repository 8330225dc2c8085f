package psd

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// classIDToken encodes a class-id-token: either an OSType (4 ASCII
// bytes via the zero-length form) or an explicit-length string.
func classIDToken(s string) []byte {
	if len(s) == 4 {
		return append([]byte{0, 0, 0, 0}, s...)
	}
	buf := []byte{byte(len(s) >> 24), byte(len(s) >> 16), byte(len(s) >> 8), byte(len(s))}
	return append(buf, s...)
}

func u32(v uint32) []byte {
	return []byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func textValue(s string) []byte {
	units := utf16beBytes(s)
	return append(u32(uint32(len(units)/2)), units...)
}

// buildDescriptor encodes a minimal descriptor body (without the
// optional name prefix): class-id-token + property count + properties,
// where each property is (key-token, 4-byte type tag, value bytes).
func buildDescriptor(class string, props [][3][]byte) []byte {
	buf := classIDToken(class)
	buf = append(buf, u32(uint32(len(props)))...)
	for _, p := range props {
		buf = append(buf, p[0]...)
		buf = append(buf, p[1]...)
		buf = append(buf, p[2]...)
	}
	return buf
}

func TestParseDescriptorWithoutNamePrefix(t *testing.T) {
	body := buildDescriptor("TxLr", [][3][]byte{
		{classIDToken("Txt "), []byte("TEXT"), textValue("Hello, 世界")},
	})

	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	assert.Equal(t, "TxLr", d.Class)
	require.Len(t, d.Props, 1)
	assert.Equal(t, "Txt ", d.Props[0].Key)
	assert.Equal(t, ValueString, d.Props[0].Value.Kind)
	assert.Equal(t, "Hello, 世界", d.Props[0].Value.String)
}

func TestParseDescriptorWithNamePrefix(t *testing.T) {
	name := textValue("myName")
	body := append(name, buildDescriptor("TxLr", [][3][]byte{
		{classIDToken("long"), []byte("long"), u32(42)},
	})...)

	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	assert.Equal(t, "myName", d.Name)
	assert.Equal(t, "TxLr", d.Class)
	require.Len(t, d.Props, 1)
	assert.Equal(t, int32(42), d.Props[0].Value.Int)
}

func TestParseDescriptorEnumValue(t *testing.T) {
	body := buildDescriptor("TxLr", [][3][]byte{
		{classIDToken("just"), []byte("enum"), append(classIDToken("just"), classIDToken("left")...)},
	})
	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	assert.Equal(t, "just:left", d.Props[0].Value.Enum)
}

func TestParseDescriptorNestedObject(t *testing.T) {
	inner := buildDescriptor("Inner", [][3][]byte{
		{classIDToken("long"), []byte("long"), u32(7)},
	})
	body := buildDescriptor("Outer", [][3][]byte{
		{classIDToken("nest"), []byte("Obj "), inner},
	})
	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	require.Equal(t, ValueObject, d.Props[0].Value.Kind)
	require.NotNil(t, d.Props[0].Value.Object)
	assert.Equal(t, "Inner", d.Props[0].Value.Object.Class)
}

func TestDescriptorFindRecursive(t *testing.T) {
	inner := buildDescriptor("Inner", [][3][]byte{
		{classIDToken("Txt "), []byte("TEXT"), textValue("nested text")},
	})
	body := buildDescriptor("Outer", [][3][]byte{
		{classIDToken("nest"), []byte("Obj "), inner},
	})
	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)

	v, ok := d.FindRecursive("Txt ", ValueString)
	require.True(t, ok)
	assert.Equal(t, "nested text", v.String)
}

func TestParseDescriptorList(t *testing.T) {
	list := append(u32(2), append([]byte("long"), u32(1)...)...)
	list = append(list, append([]byte("long"), u32(2)...)...)
	body := buildDescriptor("Outer", [][3][]byte{
		{classIDToken("lst "), []byte("VlLs"), list},
	})
	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	require.Equal(t, ValueList, d.Props[0].Value.Kind)
	require.Len(t, d.Props[0].Value.List, 2)
	assert.Equal(t, int32(1), d.Props[0].Value.List[0].Int)
	assert.Equal(t, int32(2), d.Props[0].Value.List[1].Int)
}

func TestParseDescriptorUnknownTypeTagPreservedRaw(t *testing.T) {
	raw := []byte{0xCA, 0xFE, 0xBA}
	body := buildDescriptor("Outer", [][3][]byte{
		{classIDToken("weir"), []byte("????"), append(u32(uint32(len(raw))), raw...)},
	})
	d, err := parseDescriptor(NewSliceSource(body))
	require.NoError(t, err)
	require.Equal(t, ValueRaw, d.Props[0].Value.Kind)
	assert.Equal(t, raw, d.Props[0].Value.Raw)
}

func TestParseReferenceUnknownTokenIsUnsupported(t *testing.T) {
	ref := append(u32(1), []byte("????")...)
	body := buildDescriptor("Outer", [][3][]byte{
		{classIDToken("rf  "), []byte("ref "), ref},
	})
	_, err := parseDescriptor(NewSliceSource(body))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindUnsupportedFeature))
}

func TestParseDescriptorPropertyCountSanityLimit(t *testing.T) {
	buf := classIDToken("Huge")
	buf = append(buf, u32(2_000_000)...)
	_, err := parseDescriptor(NewSliceSource(buf))
	require.Error(t, err)
	assert.True(t, IsKind(err, KindCorruptData))
}
