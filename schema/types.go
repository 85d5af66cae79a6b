package schema

// MaxFieldNumber is the largest field number the wire format can carry:
// tags are varints holding (number << 3) | wire_type, with 29 bits left
// for the number.
const MaxFieldNumber = 1<<29 - 1

// Kind identifies the value kind of a record field. The kind determines
// both the in-memory representation and the on-wire encoding strategy.
type Kind string

const (
	KindBool     Kind = "bool"
	KindInt32    Kind = "int32"    // two's-complement varint
	KindSint32   Kind = "sint32"   // zig-zag varint
	KindUint32   Kind = "uint32"   // varint
	KindFixed32  Kind = "fixed32"  // 4 bytes little-endian
	KindSfixed32 Kind = "sfixed32" // 4 bytes little-endian, signed
	KindFloat    Kind = "float"    // IEEE-754 binary32
	KindInt64    Kind = "int64"    // two's-complement varint
	KindSint64   Kind = "sint64"   // zig-zag varint
	KindUint64   Kind = "uint64"   // varint
	KindFixed64  Kind = "fixed64"  // 8 bytes little-endian
	KindSfixed64 Kind = "sfixed64" // 8 bytes little-endian, signed
	KindDouble   Kind = "double"   // IEEE-754 binary64
	KindString   Kind = "string"
	KindBytes    Kind = "bytes"
	KindEnum     Kind = "enum"   // varint of the underlying int32
	KindRecord   Kind = "record" // length-delimited nested record
	KindMap      Kind = "map"    // repeated {1: key, 2: value} entries
)

// FieldType describes the type of a single field. Key and Value are set
// for KindMap, RecordType for KindRecord, EnumType for KindEnum.
type FieldType struct {
	Kind       Kind
	RecordType string     // record name, resolved through the registry
	EnumType   string     // enum name, informational
	Key        *FieldType // map key type
	Value      *FieldType // map value type
}

// Field is one declared field of a record. Declaration order matters:
// when the record carries no explicit number array, field numbers are
// assigned 1..N in declaration order.
type Field struct {
	Name     string
	Type     FieldType
	Repeated bool
	Optional bool
	Reserved bool // occupies a number slot, holds no value
}

// Record is a user-declared record type. The declaration is the schema;
// there is no .proto file behind it.
type Record struct {
	Name   string
	Fields []*Field

	// Numbers optionally assigns explicit field numbers, one per field
	// (reserved slots included). When nil, numbering is implicit 1..N.
	Numbers []int32
}

// FieldNumber returns the wire field number of the i-th declared field.
func (r *Record) FieldNumber(i int) int32 {
	if r.Numbers != nil {
		return r.Numbers[i]
	}
	return int32(i + 1)
}

// FieldByNumber returns the field carrying the given wire number, or nil.
// Reserved slots are not returned; a tag hitting a reserved number is
// treated as unknown by the decoder.
func (r *Record) FieldByNumber(n int32) *Field {
	for i, f := range r.Fields {
		if r.FieldNumber(i) == n && !f.Reserved {
			return f
		}
	}
	return nil
}

// Reserved is a placeholder type for reserved field slots in struct
// declarations. It holds no storage; the slot still consumes a field
// number.
type Reserved struct{}

var packable = map[Kind]struct{}{
	KindBool:     {},
	KindInt32:    {},
	KindSint32:   {},
	KindUint32:   {},
	KindFixed32:  {},
	KindSfixed32: {},
	KindFloat:    {},
	KindInt64:    {},
	KindSint64:   {},
	KindUint64:   {},
	KindFixed64:  {},
	KindSfixed64: {},
	KindDouble:   {},
	KindEnum:     {},
}

// IsPackable reports whether a repeated field of this kind is written
// packed (a single length-delimited run of elements).
func IsPackable(k Kind) bool {
	_, ok := packable[k]
	return ok
}

// Enum is a declared enumeration. On the value surface an enum is an
// int32; the declaration exists for validation and listing.
type Enum struct {
	Name   string
	Values []*EnumValue
}

// EnumValue is one named value of an enum.
type EnumValue struct {
	Name   string
	Number int32
}
