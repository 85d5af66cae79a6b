package wire

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/protorec/protorec/schema"
)

// RecordDecoder handles record decoding operations
type RecordDecoder struct {
	decoder *Decoder
}

// RecordEncoder handles record encoding operations
type RecordEncoder struct {
	encoder *Encoder
}

// NewRecordDecoder creates a new record decoder
func NewRecordDecoder(d *Decoder) *RecordDecoder {
	return &RecordDecoder{decoder: d}
}

// NewRecordEncoder creates a new record encoder
func NewRecordEncoder(e *Encoder) *RecordEncoder {
	return &RecordEncoder{encoder: e}
}

// ENCODER METHODS

// EncodeRecord writes the non-default fields of a record value in
// field-number order. Reserved slots and default-valued fields (zero
// scalars, empty strings/bytes, empty containers, absent keys) emit
// nothing.
func (re *RecordEncoder) EncodeRecord(data map[string]interface{}, rec *schema.Record) error {
	order := make([]int, len(rec.Fields))
	for i := range order {
		order[i] = i
	}
	sort.Slice(order, func(a, b int) bool {
		return rec.FieldNumber(order[a]) < rec.FieldNumber(order[b])
	})

	for _, i := range order {
		field := rec.Fields[i]
		if field.Reserved {
			continue
		}
		value, ok := data[field.Name]
		if !ok || value == nil {
			continue
		}
		if err := re.encodeField(value, field, rec.FieldNumber(i)); err != nil {
			return wrapWithField(err, field.Name)
		}
	}
	return nil
}

// encodeField encodes one field value based on its declared shape
func (re *RecordEncoder) encodeField(value interface{}, field *schema.Field, number int32) error {
	switch {
	case field.Type.Kind == schema.KindMap:
		me := NewMapEncoder(re.encoder)
		return me.EncodeMap(value, field.Type.Key, field.Type.Value, number)
	case field.Repeated:
		return re.encodeRepeatedField(value, &field.Type, number)
	default:
		return re.encodeSingular(value, &field.Type, number)
	}
}

// encodeSingular writes tag + value for one non-repeated value,
// omitting default-valued scalars. A present record value always emits
// its tag and body, even when the body is empty.
func (re *RecordEncoder) encodeSingular(value interface{}, t *schema.FieldType, number int32) error {
	if t.Kind == schema.KindRecord {
		return re.encodeRecordField(value, t, number)
	}

	def, err := isDefaultScalar(value, t.Kind)
	if err != nil {
		return err
	}
	if def {
		return nil
	}

	ve := NewVarintEncoder(re.encoder)
	if err := ve.EncodeVarint(uint64(MakeTag(FieldNumber(number), WireTypeOf(t)))); err != nil {
		return err
	}
	return re.encodeScalar(value, t.Kind)
}

// encodeRecordField writes tag + size-prefixed body for a nested record
func (re *RecordEncoder) encodeRecordField(value interface{}, t *schema.FieldType, number int32) error {
	sub, ok := value.(map[string]interface{})
	if !ok {
		return fmt.Errorf("record value must be map[string]interface{}, got %T", value)
	}
	if re.encoder.registry == nil {
		return fmt.Errorf("registry is required to encode record fields")
	}
	nested, err := re.encoder.registry.GetRecord(t.RecordType)
	if err != nil {
		return err
	}

	ve := NewVarintEncoder(re.encoder)
	if err := ve.EncodeVarint(uint64(MakeTag(FieldNumber(number), WireBytes))); err != nil {
		return err
	}
	return re.encoder.EncodeSized(func() error {
		return re.EncodeRecord(sub, nested)
	})
}

// encodeRepeatedField encodes a repeated field: numeric scalars go
// packed, everything else one length-delimited element per tag. An
// empty container emits nothing.
func (re *RecordEncoder) encodeRepeatedField(value interface{}, t *schema.FieldType, number int32) error {
	elems, err := normalizeSlice(value)
	if err != nil {
		return err
	}
	if len(elems) == 0 {
		return nil
	}

	if schema.IsPackable(t.Kind) {
		return re.encodePacked(elems, t.Kind, number)
	}

	for _, elem := range elems {
		if err := re.encodeElement(elem, t, number); err != nil {
			return err
		}
	}
	return nil
}

// encodePacked writes one tag + varint byte length + the concatenated
// element values without per-element tags. Default-valued elements
// inside the run are still written: default omission applies to the
// field as a whole, never to container elements.
func (re *RecordEncoder) encodePacked(elems []interface{}, kind schema.Kind, number int32) error {
	size, err := packedSize(elems, kind)
	if err != nil {
		return err
	}

	ve := NewVarintEncoder(re.encoder)
	if err := ve.EncodeVarint(uint64(MakeTag(FieldNumber(number), WireBytes))); err != nil {
		return err
	}
	if err := ve.EncodeVarint(uint64(size)); err != nil {
		return err
	}
	for _, elem := range elems {
		if err := re.encodeScalar(elem, kind); err != nil {
			return err
		}
	}
	return nil
}

// encodeElement writes tag + length-delimited body for one element of
// an unpacked repeated field. Unlike whole fields, empty elements are
// emitted.
func (re *RecordEncoder) encodeElement(value interface{}, t *schema.FieldType, number int32) error {
	if t.Kind == schema.KindRecord {
		return re.encodeRecordField(value, t, number)
	}

	ve := NewVarintEncoder(re.encoder)
	if err := ve.EncodeVarint(uint64(MakeTag(FieldNumber(number), WireBytes))); err != nil {
		return err
	}
	be := NewBytesEncoder(re.encoder)
	switch t.Kind {
	case schema.KindString:
		v, ok := value.(string)
		if !ok {
			return fmt.Errorf("string value must be string, got %T", value)
		}
		return be.EncodeString(v)
	case schema.KindBytes:
		v, ok := value.([]byte)
		if !ok {
			return fmt.Errorf("bytes value must be []byte, got %T", value)
		}
		return be.EncodeBytes(v)
	default:
		return fmt.Errorf("repeated %s fields are packed", t.Kind)
	}
}

// encodeScalar writes the value bytes of one scalar, without a tag
func (re *RecordEncoder) encodeScalar(value interface{}, kind schema.Kind) error {
	ve := NewVarintEncoder(re.encoder)
	fe := NewFixedEncoder(re.encoder)
	be := NewBytesEncoder(re.encoder)

	switch kind {
	case schema.KindBool:
		v, ok := value.(bool)
		if !ok {
			return scalarTypeError(kind, "bool", value)
		}
		return ve.EncodeBool(v)
	case schema.KindInt32:
		v, ok := value.(int32)
		if !ok {
			return scalarTypeError(kind, "int32", value)
		}
		return ve.EncodeInt32(v)
	case schema.KindSint32:
		v, ok := value.(int32)
		if !ok {
			return scalarTypeError(kind, "int32", value)
		}
		return ve.EncodeSint32(v)
	case schema.KindUint32:
		v, ok := value.(uint32)
		if !ok {
			return scalarTypeError(kind, "uint32", value)
		}
		return ve.EncodeUint32(v)
	case schema.KindInt64:
		v, ok := value.(int64)
		if !ok {
			return scalarTypeError(kind, "int64", value)
		}
		return ve.EncodeInt64(v)
	case schema.KindSint64:
		v, ok := value.(int64)
		if !ok {
			return scalarTypeError(kind, "int64", value)
		}
		return ve.EncodeSint64(v)
	case schema.KindUint64:
		v, ok := value.(uint64)
		if !ok {
			return scalarTypeError(kind, "uint64", value)
		}
		return ve.EncodeUint64(v)
	case schema.KindEnum:
		v, err := enumNumber(value)
		if err != nil {
			return err
		}
		return ve.EncodeEnum(v)
	case schema.KindFixed32:
		v, ok := value.(uint32)
		if !ok {
			return scalarTypeError(kind, "uint32", value)
		}
		return fe.EncodeFixed32(v)
	case schema.KindSfixed32:
		v, ok := value.(int32)
		if !ok {
			return scalarTypeError(kind, "int32", value)
		}
		return fe.EncodeSfixed32(v)
	case schema.KindFixed64:
		v, ok := value.(uint64)
		if !ok {
			return scalarTypeError(kind, "uint64", value)
		}
		return fe.EncodeFixed64(v)
	case schema.KindSfixed64:
		v, ok := value.(int64)
		if !ok {
			return scalarTypeError(kind, "int64", value)
		}
		return fe.EncodeSfixed64(v)
	case schema.KindFloat:
		v, ok := value.(float32)
		if !ok {
			return scalarTypeError(kind, "float32", value)
		}
		return fe.EncodeFloat32(v)
	case schema.KindDouble:
		v, ok := value.(float64)
		if !ok {
			return scalarTypeError(kind, "float64", value)
		}
		return fe.EncodeFloat64(v)
	case schema.KindString:
		v, ok := value.(string)
		if !ok {
			return scalarTypeError(kind, "string", value)
		}
		return be.EncodeString(v)
	case schema.KindBytes:
		v, ok := value.([]byte)
		if !ok {
			return scalarTypeError(kind, "[]byte", value)
		}
		return be.EncodeBytes(v)
	default:
		return fmt.Errorf("unsupported scalar kind: %s", kind)
	}
}

// DECODER METHODS

// DecodeRecord reads tag+value entries until end, dispatching by field
// number. Unknown and reserved numbers are skipped by wire type. The
// output map is fresh; within it, scalars are last-wins and containers
// accumulate in arrival order.
func (rd *RecordDecoder) DecodeRecord(rec *schema.Record, end int) (map[string]interface{}, error) {
	d := rd.decoder
	if end > len(d.buf) {
		return nil, fmt.Errorf("failed to decode record %s: %w", rec.Name, ErrTruncated)
	}

	result := make(map[string]interface{})
	mapCollector := make(map[string]map[interface{}]interface{})
	repeatedCollector := make(map[string][]interface{})

	for d.pos < end {
		tag, err := d.DecodeVarint()
		if err != nil {
			return nil, fmt.Errorf("failed to decode record %s: %w", rec.Name, err)
		}

		if tag>>3 < 1 || tag>>3 > schema.MaxFieldNumber {
			return nil, fmt.Errorf("record %s: field number %d: %w", rec.Name, tag>>3, ErrBadWireType)
		}
		fieldNumber, wireType := ParseTag(Tag(tag))
		if wireType == WireStartGroup || wireType == WireEndGroup || wireType > WireFixed32 {
			return nil, fmt.Errorf("record %s: wire type %d: %w", rec.Name, wireType, ErrBadWireType)
		}

		field := rec.FieldByNumber(int32(fieldNumber))
		if field == nil {
			// Unknown field - skip it
			if err := d.skipField(wireType); err != nil {
				return nil, fmt.Errorf("failed to decode record %s: %w", rec.Name, err)
			}
			continue
		}

		accept, err := checkWireType(&field.Type, field.Repeated, wireType)
		if err != nil {
			return nil, wrapWithField(fmt.Errorf("record %s: %w", rec.Name, err), field.Name)
		}
		if !accept {
			if err := d.skipField(wireType); err != nil {
				return nil, fmt.Errorf("failed to decode record %s: %w", rec.Name, err)
			}
			continue
		}

		switch {
		case field.Type.Kind == schema.KindMap:
			md := NewMapDecoder(d)
			key, value, err := md.DecodeMapEntry(field.Type.Key, field.Type.Value)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			if mapCollector[field.Name] == nil {
				mapCollector[field.Name] = make(map[interface{}]interface{})
			}
			// Last entry wins on duplicate keys.
			mapCollector[field.Name][key] = value

		case field.Repeated:
			if schema.IsPackable(field.Type.Kind) && wireType == WireBytes {
				elems, err := rd.decodePackedRun(field.Type.Kind)
				if err != nil {
					return nil, wrapWithField(err, field.Name)
				}
				repeatedCollector[field.Name] = append(repeatedCollector[field.Name], elems...)
			} else {
				value, err := rd.decodeValue(&field.Type)
				if err != nil {
					return nil, wrapWithField(err, field.Name)
				}
				repeatedCollector[field.Name] = append(repeatedCollector[field.Name], value)
			}

		default:
			value, err := rd.decodeValue(&field.Type)
			if err != nil {
				return nil, wrapWithField(err, field.Name)
			}
			// Last value wins for repeated occurrences of a scalar.
			result[field.Name] = value
		}
	}

	if d.pos > end {
		return nil, fmt.Errorf("failed to decode record %s: %w", rec.Name, ErrTruncated)
	}

	for fieldName, mapData := range mapCollector {
		result[fieldName] = mapData
	}
	for fieldName, repeatedData := range repeatedCollector {
		result[fieldName] = repeatedData
	}

	return result, nil
}

// decodeValue reads one value of the declared type from the cursor
func (rd *RecordDecoder) decodeValue(t *schema.FieldType) (interface{}, error) {
	d := rd.decoder
	vd := NewVarintDecoder(d)
	fd := NewFixedDecoder(d)
	bd := NewBytesDecoder(d)

	switch t.Kind {
	case schema.KindBool:
		return vd.DecodeBool()
	case schema.KindInt32:
		return vd.DecodeInt32()
	case schema.KindSint32:
		return vd.DecodeSint32()
	case schema.KindUint32:
		v, err := vd.DecodeVarint()
		if err != nil {
			return nil, err
		}
		return uint32(v), nil
	case schema.KindInt64:
		return vd.DecodeInt64()
	case schema.KindSint64:
		return vd.DecodeSint64()
	case schema.KindUint64:
		return vd.DecodeVarint()
	case schema.KindEnum:
		return vd.DecodeEnum()
	case schema.KindFixed32:
		return fd.DecodeFixed32()
	case schema.KindSfixed32:
		return fd.DecodeSfixed32()
	case schema.KindFixed64:
		return fd.DecodeFixed64()
	case schema.KindSfixed64:
		return fd.DecodeSfixed64()
	case schema.KindFloat:
		return fd.DecodeFloat32()
	case schema.KindDouble:
		return fd.DecodeFloat64()
	case schema.KindString:
		return bd.DecodeString()
	case schema.KindBytes:
		return bd.DecodeBytes()
	case schema.KindRecord:
		return rd.decodeNestedRecord(t)
	default:
		return nil, fmt.Errorf("unsupported kind: %s", t.Kind)
	}
}

// decodeNestedRecord reads a varint length and recurses, bounded
func (rd *RecordDecoder) decodeNestedRecord(t *schema.FieldType) (map[string]interface{}, error) {
	d := rd.decoder
	if d.registry == nil {
		return nil, fmt.Errorf("registry is required to decode record fields")
	}
	nested, err := d.registry.GetRecord(t.RecordType)
	if err != nil {
		return nil, err
	}

	bd := NewBytesDecoder(d)
	length, err := bd.decodeLength()
	if err != nil {
		return nil, err
	}
	return rd.DecodeRecord(nested, d.pos+length)
}

// decodePackedRun reads a length-delimited run of untagged scalar
// elements.
func (rd *RecordDecoder) decodePackedRun(kind schema.Kind) ([]interface{}, error) {
	d := rd.decoder
	bd := NewBytesDecoder(d)
	length, err := bd.decodeLength()
	if err != nil {
		return nil, err
	}

	end := d.pos + length
	scalar := schema.FieldType{Kind: kind}
	var elems []interface{}
	for d.pos < end {
		v, err := rd.decodeValue(&scalar)
		if err != nil {
			return nil, err
		}
		elems = append(elems, v)
	}
	if d.pos != end {
		return nil, fmt.Errorf("packed run overruns its length prefix: %w", ErrTruncated)
	}
	return elems, nil
}

// checkWireType decides how an incoming wire type is treated for a
// known field: accepted, skipped as unknown (forward compatibility), or
// rejected. Repeated numeric scalars accept both their element wire
// type (unpacked) and a length-delimited packed run. A varint/fixed
// clash on the same field number is an error rather than a skip.
func checkWireType(t *schema.FieldType, repeated bool, wt WireType) (bool, error) {
	expected := WireTypeOf(t)
	if repeated && !schema.IsPackable(t.Kind) {
		expected = WireBytes
	}

	if wt == expected {
		return true, nil
	}
	if repeated && schema.IsPackable(t.Kind) && wt == WireBytes {
		return true, nil
	}

	varintFixedClash := (expected == WireVarint && (wt == WireFixed32 || wt == WireFixed64)) ||
		(wt == WireVarint && (expected == WireFixed32 || expected == WireFixed64))
	if varintFixedClash {
		return false, fmt.Errorf("expected wire type %d, got %d: %w", expected, wt, ErrFieldTypeMismatch)
	}
	return false, nil
}

// UTILITY FUNCTIONS

func scalarTypeError(kind schema.Kind, want string, got interface{}) error {
	return fmt.Errorf("%s value must be %s, got %T", kind, want, got)
}

// enumNumber extracts the underlying number of an enum value. Named
// signed integer types are accepted so callers can pass their enum
// constants directly; unsigned values are rejected.
func enumNumber(value interface{}) (int32, error) {
	if v, ok := value.(int32); ok {
		return v, nil
	}
	rv := reflect.ValueOf(value)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return int32(rv.Int()), nil
	}
	return 0, fmt.Errorf("enum value must be an integer, got %T", value)
}

// isDefaultScalar reports whether a scalar value equals its default and
// is therefore omitted from the output.
func isDefaultScalar(value interface{}, kind schema.Kind) (bool, error) {
	switch kind {
	case schema.KindBool:
		v, ok := value.(bool)
		if !ok {
			return false, scalarTypeError(kind, "bool", value)
		}
		return !v, nil
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32:
		v, ok := value.(int32)
		if !ok {
			return false, scalarTypeError(kind, "int32", value)
		}
		return v == 0, nil
	case schema.KindUint32, schema.KindFixed32:
		v, ok := value.(uint32)
		if !ok {
			return false, scalarTypeError(kind, "uint32", value)
		}
		return v == 0, nil
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		v, ok := value.(int64)
		if !ok {
			return false, scalarTypeError(kind, "int64", value)
		}
		return v == 0, nil
	case schema.KindUint64, schema.KindFixed64:
		v, ok := value.(uint64)
		if !ok {
			return false, scalarTypeError(kind, "uint64", value)
		}
		return v == 0, nil
	case schema.KindFloat:
		v, ok := value.(float32)
		if !ok {
			return false, scalarTypeError(kind, "float32", value)
		}
		return v == 0, nil
	case schema.KindDouble:
		v, ok := value.(float64)
		if !ok {
			return false, scalarTypeError(kind, "float64", value)
		}
		return v == 0, nil
	case schema.KindString:
		v, ok := value.(string)
		if !ok {
			return false, scalarTypeError(kind, "string", value)
		}
		return v == "", nil
	case schema.KindBytes:
		v, ok := value.([]byte)
		if !ok {
			return false, scalarTypeError(kind, "[]byte", value)
		}
		return len(v) == 0, nil
	case schema.KindEnum:
		v, err := enumNumber(value)
		if err != nil {
			return false, err
		}
		return v == 0, nil
	default:
		return false, fmt.Errorf("unsupported scalar kind: %s", kind)
	}
}

// packedSize computes the byte length of a packed run before writing
// it: fixed-width kinds need only count*width, varint kinds need a
// pre-pass summing each element's encoded size.
func packedSize(elems []interface{}, kind schema.Kind) (int, error) {
	switch kind {
	case schema.KindFixed32, schema.KindSfixed32, schema.KindFloat:
		return 4 * len(elems), nil
	case schema.KindFixed64, schema.KindSfixed64, schema.KindDouble:
		return 8 * len(elems), nil
	case schema.KindBool:
		return len(elems), nil
	default:
		total := 0
		for _, elem := range elems {
			payload, err := varintPayload(elem, kind)
			if err != nil {
				return 0, err
			}
			total += VarintSize(payload)
		}
		return total, nil
	}
}

// varintPayload maps a scalar to the unsigned value its varint carries
func varintPayload(value interface{}, kind schema.Kind) (uint64, error) {
	switch kind {
	case schema.KindInt32:
		v, ok := value.(int32)
		if !ok {
			return 0, scalarTypeError(kind, "int32", value)
		}
		return uint64(int64(v)), nil
	case schema.KindSint32:
		v, ok := value.(int32)
		if !ok {
			return 0, scalarTypeError(kind, "int32", value)
		}
		return EncodeZigZag32(v), nil
	case schema.KindUint32:
		v, ok := value.(uint32)
		if !ok {
			return 0, scalarTypeError(kind, "uint32", value)
		}
		return uint64(v), nil
	case schema.KindInt64:
		v, ok := value.(int64)
		if !ok {
			return 0, scalarTypeError(kind, "int64", value)
		}
		return uint64(v), nil
	case schema.KindSint64:
		v, ok := value.(int64)
		if !ok {
			return 0, scalarTypeError(kind, "int64", value)
		}
		return EncodeZigZag64(v), nil
	case schema.KindUint64:
		v, ok := value.(uint64)
		if !ok {
			return 0, scalarTypeError(kind, "uint64", value)
		}
		return v, nil
	case schema.KindEnum:
		v, err := enumNumber(value)
		if err != nil {
			return 0, err
		}
		return uint64(int64(v)), nil
	default:
		return 0, fmt.Errorf("kind %s is not varint-encoded", kind)
	}
}

// normalizeSlice converts the accepted repeated-field representations
// to a single element slice.
func normalizeSlice(value interface{}) ([]interface{}, error) {
	switch v := value.(type) {
	case []interface{}:
		return v, nil
	case []map[string]interface{}:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []string:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []int32:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []int64:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []uint32:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []uint64:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []bool:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []float32:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case []float64:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	case [][]byte:
		out := make([]interface{}, len(v))
		for i, e := range v {
			out[i] = e
		}
		return out, nil
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Slice {
			return nil, fmt.Errorf("repeated field value must be a slice, got %T", value)
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			out[i] = rv.Index(i).Interface()
		}
		return out, nil
	}
}
