package wire

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/protorec/protorec/schema"
)

// Maps have no wire representation of their own: each pair travels as a
// repeated length-delimited entry holding a synthetic two-field record
// {1: key, 2: value}.

// MapDecoder handles map decoding operations
type MapDecoder struct {
	decoder *Decoder
}

// MapEncoder handles map encoding operations
type MapEncoder struct {
	encoder *Encoder
}

// NewMapDecoder creates a new map decoder
func NewMapDecoder(d *Decoder) *MapDecoder {
	return &MapDecoder{decoder: d}
}

// NewMapEncoder creates a new map encoder
func NewMapEncoder(e *Encoder) *MapEncoder {
	return &MapEncoder{encoder: e}
}

// DECODER METHODS

// DecodeMapEntry decodes one length-delimited map entry. A missing key
// or value field defaults to its zero value, like any record field.
func (md *MapDecoder) DecodeMapEntry(keyType, valueType *schema.FieldType) (interface{}, interface{}, error) {
	d := md.decoder
	bd := NewBytesDecoder(d)
	length, err := bd.decodeLength()
	if err != nil {
		return nil, nil, err
	}
	end := d.pos + length

	key, err := zeroValue(keyType)
	if err != nil {
		return nil, nil, err
	}
	value, err := zeroValue(valueType)
	if err != nil {
		return nil, nil, err
	}

	rd := NewRecordDecoder(d)
	for d.pos < end {
		tag, err := d.DecodeVarint()
		if err != nil {
			return nil, nil, err
		}

		fieldNumber, wireType := ParseTag(Tag(tag))
		if wireType == WireStartGroup || wireType == WireEndGroup || wireType > WireFixed32 {
			return nil, nil, fmt.Errorf("map entry: wire type %d: %w", wireType, ErrBadWireType)
		}

		switch fieldNumber {
		case 1:
			key, err = md.decodeEntryField(rd, keyType, wireType, &key)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decode map key: %w", err)
			}
		case 2:
			value, err = md.decodeEntryField(rd, valueType, wireType, &value)
			if err != nil {
				return nil, nil, fmt.Errorf("failed to decode map value: %w", err)
			}
		default:
			// Unknown entry fields are skipped.
			if err := d.skipField(wireType); err != nil {
				return nil, nil, err
			}
		}
	}
	if d.pos > end {
		return nil, nil, fmt.Errorf("map entry overruns its length prefix: %w", ErrTruncated)
	}

	return key, value, nil
}

// decodeEntryField decodes a single field within a map entry, keeping
// the previous value when a tolerated wire-type mismatch skips it.
func (md *MapDecoder) decodeEntryField(rd *RecordDecoder, t *schema.FieldType, wireType WireType, prev *interface{}) (interface{}, error) {
	accept, err := checkWireType(t, false, wireType)
	if err != nil {
		return nil, err
	}
	if !accept {
		if err := md.decoder.skipField(wireType); err != nil {
			return nil, err
		}
		return *prev, nil
	}
	return rd.decodeValue(t)
}

// ENCODER METHODS

// EncodeMap writes one tag + size-prefixed entry per pair. Entries are
// sorted by key so identical maps always produce identical bytes.
// Default-valued keys and values are omitted inside their entry, like
// any record field.
func (me *MapEncoder) EncodeMap(value interface{}, keyType, valueType *schema.FieldType, fieldNumber int32) error {
	entries, err := normalizeMap(value)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return nil
	}
	sortEntries(entries, keyType.Kind)

	re := NewRecordEncoder(me.encoder)
	ve := NewVarintEncoder(me.encoder)
	tag := MakeTag(FieldNumber(fieldNumber), WireBytes)
	for _, entry := range entries {
		if err := ve.EncodeVarint(uint64(tag)); err != nil {
			return err
		}
		k, v := entry.key, entry.value
		err := me.encoder.EncodeSized(func() error {
			if err := re.encodeSingular(k, keyType, 1); err != nil {
				return fmt.Errorf("failed to encode map key: %w", err)
			}
			if err := re.encodeSingular(v, valueType, 2); err != nil {
				return fmt.Errorf("failed to encode map value: %w", err)
			}
			return nil
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// UTILITY FUNCTIONS

type mapEntry struct {
	key   interface{}
	value interface{}
}

// normalizeMap converts the accepted map representations to a flat
// entry list.
func normalizeMap(value interface{}) ([]mapEntry, error) {
	switch v := value.(type) {
	case map[interface{}]interface{}:
		entries := make([]mapEntry, 0, len(v))
		for k, val := range v {
			entries = append(entries, mapEntry{key: k, value: val})
		}
		return entries, nil
	case map[string]interface{}:
		entries := make([]mapEntry, 0, len(v))
		for k, val := range v {
			entries = append(entries, mapEntry{key: k, value: val})
		}
		return entries, nil
	default:
		rv := reflect.ValueOf(value)
		if rv.Kind() != reflect.Map {
			return nil, fmt.Errorf("map field value must be a map, got %T", value)
		}
		entries := make([]mapEntry, 0, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			entries = append(entries, mapEntry{key: iter.Key().Interface(), value: iter.Value().Interface()})
		}
		return entries, nil
	}
}

// sortEntries orders entries by key within the key kind's natural order
func sortEntries(entries []mapEntry, kind schema.Kind) {
	switch kind {
	case schema.KindString:
		sort.SliceStable(entries, func(i, j int) bool {
			return reflectString(entries[i].key) < reflectString(entries[j].key)
		})
	case schema.KindUint32, schema.KindUint64, schema.KindFixed32, schema.KindFixed64:
		sort.SliceStable(entries, func(i, j int) bool {
			return reflectUint(entries[i].key) < reflectUint(entries[j].key)
		})
	case schema.KindBool:
		sort.SliceStable(entries, func(i, j int) bool {
			a, _ := entries[i].key.(bool)
			b, _ := entries[j].key.(bool)
			return !a && b
		})
	default:
		sort.SliceStable(entries, func(i, j int) bool {
			return reflectInt(entries[i].key) < reflectInt(entries[j].key)
		})
	}
}

func reflectString(v interface{}) string {
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.String {
		return rv.String()
	}
	return ""
}

func reflectInt(v interface{}) int64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int()
	}
	return 0
}

func reflectUint(v interface{}) uint64 {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return rv.Uint()
	}
	return 0
}

// zeroValue returns the default value of a field type, used when a map
// entry omits its key or value.
func zeroValue(t *schema.FieldType) (interface{}, error) {
	switch t.Kind {
	case schema.KindBool:
		return false, nil
	case schema.KindInt32, schema.KindSint32, schema.KindSfixed32, schema.KindEnum:
		return int32(0), nil
	case schema.KindUint32, schema.KindFixed32:
		return uint32(0), nil
	case schema.KindInt64, schema.KindSint64, schema.KindSfixed64:
		return int64(0), nil
	case schema.KindUint64, schema.KindFixed64:
		return uint64(0), nil
	case schema.KindFloat:
		return float32(0), nil
	case schema.KindDouble:
		return float64(0), nil
	case schema.KindString:
		return "", nil
	case schema.KindBytes:
		return []byte(nil), nil
	case schema.KindRecord:
		return map[string]interface{}{}, nil
	default:
		return nil, fmt.Errorf("unsupported map entry kind: %s", t.Kind)
	}
}
