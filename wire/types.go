package wire

import (
	"github.com/protorec/protorec/schema"
)

// ===== PROTOBUF WIRE FORMAT TYPES =====

// WireType represents protobuf wire format types
type WireType int32

const (
	WireVarint  WireType = 0 // bool, enum, int32/64, sint32/64, uint32/64
	WireFixed64 WireType = 1 // fixed64, sfixed64, double
	WireBytes   WireType = 2 // string, bytes, nested records, packed runs, map entries
	WireFixed32 WireType = 5 // fixed32, sfixed32, float
)

// WireStartGroup and WireEndGroup are the deprecated group markers.
// They are never produced and rejected on input.
const (
	WireStartGroup WireType = 3
	WireEndGroup   WireType = 4
)

// FieldNumber represents a protobuf field number
type FieldNumber int32

// Tag represents a protobuf field tag (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType))
}

// ParseTag parses a tag into field number and wire type
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}

// WireTypeOf classifies a field type into its wire type. The
// classification is static: it depends only on the declared kind, never
// on the data, and both sides of the codec rely on it agreeing.
func WireTypeOf(t *schema.FieldType) WireType {
	switch t.Kind {
	case schema.KindString, schema.KindBytes, schema.KindRecord, schema.KindMap:
		return WireBytes
	case schema.KindFloat, schema.KindFixed32, schema.KindSfixed32:
		return WireFixed32
	case schema.KindDouble, schema.KindFixed64, schema.KindSfixed64:
		return WireFixed64
	default:
		return WireVarint
	}
}

// IsLengthDelimited reports whether values of this type are carried as
// varint length + payload.
func IsLengthDelimited(t *schema.FieldType) bool {
	return WireTypeOf(t) == WireBytes
}
