package psd

import "math"

// Action-descriptor parsing (§4.6). There is no direct teacher analogue
// since TIFF carries no equivalent structured-metadata format; this
// follows the teacher's idf.go tag-dispatch idiom (read a discriminant,
// switch on it, recurse for nested structures) generalized to the
// descriptor grammar, plus a save-position/try/rollback/retry idiom for
// the documented layout ambiguity.

// ValueKind discriminates a Value's payload.
type ValueKind int

const (
	ValueInt ValueKind = iota + 1
	ValueDouble
	ValueUnitDouble
	ValueBool
	ValueString
	ValueEnum
	ValueClass
	ValueObject
	ValueList
	ValueReference
	ValueRaw
)

// Value is the tagged-variant sum type for a descriptor property or
// list element (§9 "Polymorphism without inheritance").
type Value struct {
	Kind ValueKind

	Int      int32
	Double   float64
	UnitCode string // four-byte unit code for UntF/UntV
	Bool     bool
	String   string
	Enum     string // "type:value"
	Class    string
	Object   *Descriptor
	List     []Value
	Refs     []ReferenceItem
	Raw      []byte
}

// ReferenceItem is one element of a ref  value (§4.6).
type ReferenceItem struct {
	Token string // "prop", "Clss", "Enmr", "Idnt", "indx", "name"
	Key   string // property/class key for prop, Clss, Enmr
	Name  string // for name
	Index int32  // for indx
	ID    int32  // for Idnt
}

// Property is one key/value pair inside a Descriptor, kept in on-disk
// order since Photoshop descriptors are not required to be unique-keyed
// in practice.
type Property struct {
	Key   string
	Value Value
}

// Descriptor is a recursive keyed map (§4.6).
type Descriptor struct {
	Name  string // optional Unicode name prefix, empty if absent
	Class string
	Props []Property
}

// Find returns the first property value for key, searching this
// descriptor's direct properties only.
func (d *Descriptor) Find(key string) (Value, bool) {
	for _, p := range d.Props {
		if p.Key == key {
			return p.Value, true
		}
	}
	return Value{}, false
}

// FindRecursive searches this descriptor and, depth-first, every nested
// Obj  and VlLs descriptor for the first property with the given key
// and kind.
func (d *Descriptor) FindRecursive(key string, kind ValueKind) (Value, bool) {
	for _, p := range d.Props {
		if p.Key == key && p.Value.Kind == kind {
			return p.Value, true
		}
	}
	for _, p := range d.Props {
		if v, ok := findRecursiveInValue(p.Value, key, kind); ok {
			return v, ok
		}
	}
	return Value{}, false
}

func findRecursiveInValue(v Value, key string, kind ValueKind) (Value, bool) {
	switch v.Kind {
	case ValueObject:
		if v.Object != nil {
			return v.Object.FindRecursive(key, kind)
		}
	case ValueList:
		for _, item := range v.List {
			if found, ok := findRecursiveInValue(item, key, kind); ok {
				return found, ok
			}
		}
	}
	return Value{}, false
}

// parseClassIDToken reads a class-id-token: 32-bit length, then either a
// 4-byte OSType (length == 0) or that many ASCII bytes (§4.6).
func parseClassIDToken(s ByteSource) (string, error) {
	length, err := readUint32(s)
	if err != nil {
		return "", err
	}
	if length == 0 {
		var buf [4]byte
		if err := s.ReadExact(buf[:]); err != nil {
			return "", err
		}
		return string(buf[:]), nil
	}
	if length > maxRawValueLength {
		return "", newError(KindCorruptData, "class-id-token length exceeds sanity limit")
	}
	buf := make([]byte, length)
	if err := s.ReadExact(buf); err != nil {
		return "", err
	}
	return string(buf), nil
}

// parseDescriptor parses a top-level or nested descriptor, resolving
// the Unicode-name-prefix ambiguity of §4.6 by trying the
// {name, class, ...} layout first and rolling back to {class, ...} on
// any sub-failure.
func parseDescriptor(s ByteSource) (*Descriptor, error) {
	pos, err := s.Tell()
	if err != nil {
		return nil, err
	}

	if d, err := parseDescriptorBody(s, true); err == nil {
		return d, nil
	}
	if err := s.Seek(pos); err != nil {
		return nil, err
	}
	return parseDescriptorBody(s, false)
}

func parseDescriptorBody(s ByteSource, withName bool) (*Descriptor, error) {
	d := &Descriptor{}
	if withName {
		name, err := decodeLengthPrefixedUTF16BE(s)
		if err != nil {
			return nil, err
		}
		d.Name = name
	}

	class, err := parseClassIDToken(s)
	if err != nil {
		return nil, err
	}
	d.Class = class

	count, err := readUint32(s)
	if err != nil {
		return nil, err
	}
	if count > maxDescriptorCount {
		return nil, newError(KindCorruptData, "descriptor property count exceeds sanity limit")
	}

	d.Props = make([]Property, 0, count)
	for i := uint32(0); i < count; i++ {
		key, err := parseClassIDToken(s)
		if err != nil {
			return nil, err
		}
		val, err := parseTaggedValue(s)
		if err != nil {
			return nil, err
		}
		d.Props = append(d.Props, Property{Key: key, Value: val})
	}
	return d, nil
}

// parseTaggedValue reads a 4-byte type tag followed by the value
// payload it selects (§4.6 "Value types and layouts").
func parseTaggedValue(s ByteSource) (Value, error) {
	var tagBuf [4]byte
	if err := s.ReadExact(tagBuf[:]); err != nil {
		return Value{}, err
	}
	return parseValueOfType(s, string(tagBuf[:]))
}

func parseValueOfType(s ByteSource, tag string) (Value, error) {
	switch tag {
	case "long":
		v, err := readInt32(s)
		return Value{Kind: ValueInt, Int: v}, err

	case "doub":
		bits, err := readUint64(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueDouble, Double: math.Float64frombits(bits)}, nil

	case "UntF", "UntV":
		var unitBuf [4]byte
		if err := s.ReadExact(unitBuf[:]); err != nil {
			return Value{}, err
		}
		bits, err := readUint64(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueUnitDouble, UnitCode: string(unitBuf[:]), Double: math.Float64frombits(bits)}, nil

	case "bool":
		b, err := readByte(s)
		return Value{Kind: ValueBool, Bool: b != 0}, err

	case "TEXT":
		str, err := decodeLengthPrefixedUTF16BE(s)
		return Value{Kind: ValueString, String: str}, err

	case "enum":
		enumType, err := parseClassIDToken(s)
		if err != nil {
			return Value{}, err
		}
		enumValue, err := parseClassIDToken(s)
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueEnum, Enum: enumType + ":" + enumValue}, nil

	case "type":
		class, err := parseClassIDToken(s)
		return Value{Kind: ValueClass, Class: class}, err

	case "raws":
		length, err := readUint32(s)
		if err != nil {
			return Value{}, err
		}
		if length > maxRawValueLength {
			return Value{}, newError(KindCorruptData, "raw value length exceeds sanity limit")
		}
		buf := make([]byte, length)
		if err := s.ReadExact(buf); err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueRaw, Raw: buf}, nil

	case "Obj ":
		obj, err := parseObjectValue(s)
		return Value{Kind: ValueObject, Object: obj}, err

	case "VlLs":
		return parseListValue(s)

	case "ref ":
		return parseReferenceValue(s)

	default:
		// Unknown top-level type tags fall through to a length-prefixed
		// raw-preservation layout so later properties stay aligned.
		length, err := readUint32(s)
		if err != nil {
			return Value{}, err
		}
		if length > maxRawValueLength {
			return Value{}, newError(KindCorruptData, "unknown-type value length exceeds sanity limit")
		}
		buf := make([]byte, length)
		if err := s.ReadExact(buf); err != nil {
			return Value{}, err
		}
		return Value{Kind: ValueRaw, Raw: buf}, nil
	}
}

// parseObjectValue resolves the same name-prefix ambiguity as top-level
// descriptors (§4.6: "applies... within Obj  value decoding").
func parseObjectValue(s ByteSource) (*Descriptor, error) {
	pos, err := s.Tell()
	if err != nil {
		return nil, err
	}
	if d, err := parseDescriptorBody(s, true); err == nil {
		return d, nil
	}
	if err := s.Seek(pos); err != nil {
		return nil, err
	}
	return parseDescriptorBody(s, false)
}

func parseListValue(s ByteSource) (Value, error) {
	count, err := readUint32(s)
	if err != nil {
		return Value{}, err
	}
	if count > maxDescriptorCount {
		return Value{}, newError(KindCorruptData, "list item count exceeds sanity limit")
	}
	items := make([]Value, 0, count)
	for i := uint32(0); i < count; i++ {
		v, err := parseTaggedValue(s)
		if err != nil {
			return Value{}, err
		}
		items = append(items, v)
	}
	return Value{Kind: ValueList, List: items}, nil
}

func parseReferenceValue(s ByteSource) (Value, error) {
	count, err := readUint32(s)
	if err != nil {
		return Value{}, err
	}
	if count > maxDescriptorCount {
		return Value{}, newError(KindCorruptData, "reference item count exceeds sanity limit")
	}
	items := make([]ReferenceItem, 0, count)
	for i := uint32(0); i < count; i++ {
		item, err := parseReferenceItem(s)
		if err != nil {
			return Value{}, err
		}
		items = append(items, item)
	}
	return Value{Kind: ValueReference, Refs: items}, nil
}

func parseReferenceItem(s ByteSource) (ReferenceItem, error) {
	var tokBuf [4]byte
	if err := s.ReadExact(tokBuf[:]); err != nil {
		return ReferenceItem{}, err
	}
	token := string(tokBuf[:])

	switch token {
	case "prop", "Enmr":
		if _, err := decodeLengthPrefixedUTF16BE(s); err != nil { // name, discarded
			return ReferenceItem{}, err
		}
		key, err := parseClassIDToken(s)
		if err != nil {
			return ReferenceItem{}, err
		}
		if token == "Enmr" {
			if _, err := parseClassIDToken(s); err != nil { // enum type, discarded
				return ReferenceItem{}, err
			}
		}
		return ReferenceItem{Token: token, Key: key}, nil

	case "Clss":
		if _, err := decodeLengthPrefixedUTF16BE(s); err != nil {
			return ReferenceItem{}, err
		}
		key, err := parseClassIDToken(s)
		return ReferenceItem{Token: token, Key: key}, err

	case "Idnt":
		id, err := readInt32(s)
		return ReferenceItem{Token: token, ID: id}, err

	case "indx":
		idx, err := readInt32(s)
		return ReferenceItem{Token: token, Index: idx}, err

	case "name":
		if _, err := decodeLengthPrefixedUTF16BE(s); err != nil {
			return ReferenceItem{}, err
		}
		name, err := decodeLengthPrefixedUTF16BE(s)
		return ReferenceItem{Token: token, Name: name}, err

	default:
		return ReferenceItem{}, newErrorf(KindUnsupportedFeature, "unknown reference token %q", token)
	}
}
