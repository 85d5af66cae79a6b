package registry

import (
	"reflect"
	"strconv"
	"strings"

	"github.com/pkg/errors"

	"github.com/protorec/protorec/schema"
)

// Struct declaration surface. A record can be declared as a plain Go
// struct: fields map to record fields in declaration order and receive
// field numbers 1..N. A `pb` struct tag overrides the number and selects
// per-field encoding hints:
//
//	type Person struct {
//		Name   string        `pb:"1"`
//		ID     int32         `pb:"2"`
//		Email  string        `pb:"3"`
//		Phones []PhoneNumber `pb:"4"`
//	}
//
// Supported hints: "sint" (zig-zag varint for signed integers), "fixed"
// (fixed-width encoding for integers), "optional". Pointer fields are
// optional. A field of type schema.Reserved declares a reserved slot:
// it consumes a field number and is neither written nor read.
//
// Numbering is all-or-nothing: either no field carries a number tag
// (implicit 1..N) or every slot does.

var reservedType = reflect.TypeOf(schema.Reserved{})

type pbTag struct {
	number   int32
	sint     bool
	fixed    bool
	optional bool
}

func parsePBTag(tag string) (pbTag, error) {
	var out pbTag
	if tag == "" {
		return out, nil
	}
	parts := strings.Split(tag, ",")
	if parts[0] != "" {
		n, err := strconv.ParseInt(parts[0], 10, 32)
		if err != nil {
			return out, errors.Wrapf(err, "bad pb tag %q", tag)
		}
		out.number = int32(n)
	}
	for _, opt := range parts[1:] {
		switch opt {
		case "sint":
			out.sint = true
		case "fixed":
			out.fixed = true
		case "optional":
			out.optional = true
		case "":
		default:
			return out, errors.Errorf("bad pb tag option %q in %q", opt, tag)
		}
	}
	return out, nil
}

// RegisterStruct derives a record declaration from a struct type and
// registers it, along with every nested struct record it references.
// v may be a struct value or a pointer to one.
func (r *Registry) RegisterStruct(v interface{}) (*schema.Record, error) {
	t := reflect.TypeOf(v)
	for t != nil && t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, errors.Errorf("record declaration must be a struct, got %T", v)
	}
	return r.registerStructType(t)
}

func (r *Registry) registerStructType(t reflect.Type) (*schema.Record, error) {
	name := t.Name()
	if name == "" {
		return nil, errors.New("record declaration must be a named struct type")
	}
	if rec, ok := r.records[name]; ok {
		return rec, nil
	}

	rec := &schema.Record{Name: name}
	// Insert before walking fields so self-referencing records resolve.
	r.records[name] = rec

	var numbers []int32
	tagged, untagged := 0, 0

	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)

		tag, err := parsePBTag(sf.Tag.Get("pb"))
		if err != nil {
			delete(r.records, name)
			return nil, errors.Wrapf(err, "record %s field %s", name, sf.Name)
		}

		if sf.Type == reservedType {
			rec.Fields = append(rec.Fields, &schema.Field{Reserved: true})
			numbers = append(numbers, tag.number)
			if tag.number != 0 {
				tagged++
			} else {
				untagged++
			}
			continue
		}

		if sf.PkgPath != "" {
			// Unexported storage cannot be accessed; it takes no slot.
			continue
		}

		f := &schema.Field{Name: sf.Name, Optional: tag.optional}
		ft := sf.Type
		if ft.Kind() == reflect.Ptr {
			f.Optional = true
			ft = ft.Elem()
		}
		if ft.Kind() == reflect.Slice && ft.Elem().Kind() != reflect.Uint8 {
			f.Repeated = true
			ft = ft.Elem()
		}

		fieldType, err := r.fieldTypeFor(ft, tag)
		if err != nil {
			delete(r.records, name)
			return nil, errors.Wrapf(err, "record %s field %s", name, sf.Name)
		}
		f.Type = *fieldType

		rec.Fields = append(rec.Fields, f)
		numbers = append(numbers, tag.number)
		if tag.number != 0 {
			tagged++
		} else {
			untagged++
		}
	}

	switch {
	case tagged == 0:
		rec.Numbers = nil
	case untagged == 0:
		rec.Numbers = numbers
	default:
		delete(r.records, name)
		return nil, errors.Errorf("record %s: either no field or every field must carry an explicit number", name)
	}

	if err := ValidateRecord(rec); err != nil {
		delete(r.records, name)
		return nil, errors.Wrapf(err, "record %s", name)
	}
	return rec, nil
}

// fieldTypeFor maps a Go type to a field type. Named int32 and int types
// are treated as enums; other named integer types keep their integer
// kind. Struct types recurse into registration.
func (r *Registry) fieldTypeFor(t reflect.Type, tag pbTag) (*schema.FieldType, error) {
	switch t.Kind() {
	case reflect.Bool:
		return &schema.FieldType{Kind: schema.KindBool}, nil
	case reflect.Int32:
		if isEnumType(t) {
			return &schema.FieldType{Kind: schema.KindEnum, EnumType: t.Name()}, nil
		}
		switch {
		case tag.sint:
			return &schema.FieldType{Kind: schema.KindSint32}, nil
		case tag.fixed:
			return &schema.FieldType{Kind: schema.KindSfixed32}, nil
		}
		return &schema.FieldType{Kind: schema.KindInt32}, nil
	case reflect.Uint32:
		if tag.fixed {
			return &schema.FieldType{Kind: schema.KindFixed32}, nil
		}
		return &schema.FieldType{Kind: schema.KindUint32}, nil
	case reflect.Int, reflect.Int64:
		if t.Kind() == reflect.Int && isEnumType(t) {
			return &schema.FieldType{Kind: schema.KindEnum, EnumType: t.Name()}, nil
		}
		switch {
		case tag.sint:
			return &schema.FieldType{Kind: schema.KindSint64}, nil
		case tag.fixed:
			return &schema.FieldType{Kind: schema.KindSfixed64}, nil
		}
		return &schema.FieldType{Kind: schema.KindInt64}, nil
	case reflect.Uint, reflect.Uint64:
		if tag.fixed {
			return &schema.FieldType{Kind: schema.KindFixed64}, nil
		}
		return &schema.FieldType{Kind: schema.KindUint64}, nil
	case reflect.Float32:
		return &schema.FieldType{Kind: schema.KindFloat}, nil
	case reflect.Float64:
		return &schema.FieldType{Kind: schema.KindDouble}, nil
	case reflect.String:
		return &schema.FieldType{Kind: schema.KindString}, nil
	case reflect.Slice:
		if t.Elem().Kind() == reflect.Uint8 {
			return &schema.FieldType{Kind: schema.KindBytes}, nil
		}
		return nil, errors.Errorf("nested slice type %s is not supported", t)
	case reflect.Struct:
		nested, err := r.registerStructType(t)
		if err != nil {
			return nil, err
		}
		return &schema.FieldType{Kind: schema.KindRecord, RecordType: nested.Name}, nil
	case reflect.Map:
		key, err := r.fieldTypeFor(t.Key(), pbTag{})
		if err != nil {
			return nil, err
		}
		if !validMapKey(key.Kind) {
			return nil, errors.Errorf("map key type %s is not supported", t.Key())
		}
		value, err := r.fieldTypeFor(t.Elem(), pbTag{sint: tag.sint, fixed: tag.fixed})
		if err != nil {
			return nil, err
		}
		return &schema.FieldType{Kind: schema.KindMap, Key: key, Value: value}, nil
	default:
		return nil, errors.Errorf("unsupported field type %s", t)
	}
}

// isEnumType reports whether t is a user-named integer type standing in
// for an enumeration, as opposed to the built-in int kinds.
func isEnumType(t reflect.Type) bool {
	return t.PkgPath() != "" && t.Name() != ""
}

func validMapKey(k schema.Kind) bool {
	switch k {
	case schema.KindBool, schema.KindInt32, schema.KindSint32, schema.KindUint32,
		schema.KindFixed32, schema.KindSfixed32, schema.KindInt64, schema.KindSint64,
		schema.KindUint64, schema.KindFixed64, schema.KindSfixed64, schema.KindString:
		return true
	}
	return false
}
