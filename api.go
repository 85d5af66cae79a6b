package protorec

import (
	"reflect"

	"github.com/pkg/errors"

	"github.com/protorec/protorec/registry"
	"github.com/protorec/protorec/schema"
	"github.com/protorec/protorec/wire"
)

// ===== SCHEMA-AWARE API =====

// Protorec provides protobuf wire-format operations over declared
// records, without .proto files or generated code.
type Protorec struct {
	registry *registry.Registry
}

// New creates a new Protorec instance
func New() *Protorec {
	return &Protorec{
		registry: registry.NewRegistry(),
	}
}

// RegisterRecord declares a record type. Field numbering is validated
// here, before any encoding happens.
func (p *Protorec) RegisterRecord(rec *schema.Record) error {
	return p.registry.RegisterRecord(rec)
}

// RegisterEnum declares an enum type.
func (p *Protorec) RegisterEnum(e *schema.Enum) error {
	return p.registry.RegisterEnum(e)
}

// RegisterStruct derives a record declaration from a Go struct type and
// registers it together with every nested struct it references.
func (p *Protorec) RegisterStruct(v interface{}) (*schema.Record, error) {
	return p.registry.RegisterStruct(v)
}

// Marshal encodes a record value to protobuf bytes
func (p *Protorec) Marshal(data map[string]interface{}, recordName string, opts ...wire.Option) ([]byte, error) {
	rec, err := p.registry.GetRecord(recordName)
	if err != nil {
		return nil, errors.Wrapf(err, "record type not found: %s", recordName)
	}

	return wire.EncodeRecord(data, rec, p.registry, opts...)
}

// Parse decodes protobuf bytes into a record value
func (p *Protorec) Parse(data []byte, recordName string, opts ...wire.Option) (map[string]interface{}, error) {
	rec, err := p.registry.GetRecord(recordName)
	if err != nil {
		return nil, errors.Wrapf(err, "record type not found: %s", recordName)
	}

	return wire.DecodeRecord(data, rec, p.registry, opts...)
}

// MarshalStruct encodes a Go struct using its derived record
// declaration. The struct type is registered on first use.
func (p *Protorec) MarshalStruct(v interface{}, opts ...wire.Option) ([]byte, error) {
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Ptr {
		if rv.IsNil() {
			return nil, errors.New("marshal source must not be nil")
		}
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return nil, errors.Errorf("marshal source must be a struct, got %T", v)
	}

	rec, err := p.registry.RegisterStruct(rv.Interface())
	if err != nil {
		return nil, err
	}
	data, err := p.structToMap(rv)
	if err != nil {
		return nil, err
	}
	return wire.EncodeRecord(data, rec, p.registry, opts...)
}

// Unmarshal decodes protobuf bytes into a Go struct. Every field of the
// destination is reset to its zero value first, then parsed fields are
// merged in wire order.
func (p *Protorec) Unmarshal(data []byte, v interface{}, opts ...wire.Option) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return errors.New("unmarshal target must be a pointer to struct")
	}
	elem := rv.Elem()

	rec, err := p.registry.RegisterStruct(elem.Interface())
	if err != nil {
		return err
	}
	result, err := wire.DecodeRecord(data, rec, p.registry, opts...)
	if err != nil {
		return err
	}

	elem.Set(reflect.Zero(elem.Type()))
	return p.mapToStruct(result, elem)
}

// ===== STRUCT BRIDGE =====

// structToMap converts a struct value to the record value surface the
// wire codec consumes. Nil pointers stay absent; nested structs are
// always present, mirroring their encoding.
func (p *Protorec) structToMap(rv reflect.Value) (map[string]interface{}, error) {
	rt := rv.Type()
	data := make(map[string]interface{}, rt.NumField())
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		if field.Type == reflect.TypeOf(schema.Reserved{}) || field.PkgPath != "" {
			continue
		}
		value, err := p.canonicalValue(rv.Field(i))
		if err != nil {
			return nil, errors.Wrapf(err, "field %s", field.Name)
		}
		if value == nil {
			continue
		}
		data[field.Name] = value
	}
	return data, nil
}

// canonicalValue lowers a reflected Go value to the codec's value
// surface: fixed-width scalars, strings, []byte, []interface{},
// map[interface{}]interface{} and map[string]interface{} records.
func (p *Protorec) canonicalValue(rv reflect.Value) (interface{}, error) {
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool(), nil
	case reflect.Int32:
		return int32(rv.Int()), nil
	case reflect.Int, reflect.Int64:
		return rv.Int(), nil
	case reflect.Uint32:
		return uint32(rv.Uint()), nil
	case reflect.Uint, reflect.Uint64:
		return rv.Uint(), nil
	case reflect.Float32:
		return float32(rv.Float()), nil
	case reflect.Float64:
		return rv.Float(), nil
	case reflect.String:
		return rv.String(), nil
	case reflect.Slice:
		if rv.Type().Elem().Kind() == reflect.Uint8 {
			return rv.Bytes(), nil
		}
		out := make([]interface{}, rv.Len())
		for i := range out {
			elem, err := p.canonicalValue(rv.Index(i))
			if err != nil {
				return nil, err
			}
			out[i] = elem
		}
		return out, nil
	case reflect.Map:
		out := make(map[interface{}]interface{}, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			key, err := p.canonicalValue(iter.Key())
			if err != nil {
				return nil, err
			}
			value, err := p.canonicalValue(iter.Value())
			if err != nil {
				return nil, err
			}
			out[key] = value
		}
		return out, nil
	case reflect.Struct:
		return p.structToMap(rv)
	case reflect.Ptr:
		if rv.IsNil() {
			return nil, nil
		}
		return p.canonicalValue(rv.Elem())
	default:
		return nil, errors.Errorf("unsupported value type %s", rv.Type())
	}
}

// mapToStruct merges a decoded record value into struct fields
func (p *Protorec) mapToStruct(data map[string]interface{}, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if field.Type == reflect.TypeOf(schema.Reserved{}) || !fieldValue.CanSet() {
			continue
		}

		if value, ok := data[field.Name]; ok {
			if err := p.setFieldValue(fieldValue, value); err != nil {
				return errors.Wrapf(err, "failed to set field %s", field.Name)
			}
		}
	}
	return nil
}

// setFieldValue sets a struct field with type conversion
func (p *Protorec) setFieldValue(fieldValue reflect.Value, value interface{}) error {
	if value == nil {
		return nil
	}

	switch fieldValue.Kind() {
	case reflect.Ptr:
		inner := reflect.New(fieldValue.Type().Elem())
		if err := p.setFieldValue(inner.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(inner)
		return nil
	case reflect.Struct:
		sub, ok := value.(map[string]interface{})
		if !ok {
			return errors.Errorf("cannot convert %T to %s", value, fieldValue.Type())
		}
		return p.mapToStruct(sub, fieldValue)
	case reflect.Slice:
		if fieldValue.Type().Elem().Kind() == reflect.Uint8 {
			break // []byte assigns directly below
		}
		elems, ok := value.([]interface{})
		if !ok {
			return errors.Errorf("cannot convert %T to %s", value, fieldValue.Type())
		}
		out := reflect.MakeSlice(fieldValue.Type(), len(elems), len(elems))
		for i, elem := range elems {
			if err := p.setFieldValue(out.Index(i), elem); err != nil {
				return err
			}
		}
		fieldValue.Set(out)
		return nil
	case reflect.Map:
		entries, ok := value.(map[interface{}]interface{})
		if !ok {
			return errors.Errorf("cannot convert %T to %s", value, fieldValue.Type())
		}
		out := reflect.MakeMapWithSize(fieldValue.Type(), len(entries))
		for k, v := range entries {
			key := reflect.New(fieldValue.Type().Key()).Elem()
			if err := p.setFieldValue(key, k); err != nil {
				return err
			}
			val := reflect.New(fieldValue.Type().Elem()).Elem()
			if err := p.setFieldValue(val, v); err != nil {
				return err
			}
			out.SetMapIndex(key, val)
		}
		fieldValue.Set(out)
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	if sourceValue.Type().AssignableTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue)
		return nil
	}

	if sourceValue.Type().ConvertibleTo(fieldValue.Type()) {
		fieldValue.Set(sourceValue.Convert(fieldValue.Type()))
		return nil
	}

	return errors.Errorf("cannot convert %T to %s", value, fieldValue.Type())
}

// ===== REGISTRY ACCESS =====

func (p *Protorec) GetRegistry() *registry.Registry { return p.registry }
func (p *Protorec) ListRecords() []string           { return p.registry.ListRecords() }
func (p *Protorec) ListEnums() []string             { return p.registry.ListEnums() }
