package registry

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"

	"github.com/protorec/protorec/schema"
)

// Registration errors. These are static, programmer-facing errors: a
// record that fails validation is rejected up front and never reaches
// the codec.
var (
	ErrDuplicateFieldNumber = errors.New("duplicate field number")
	ErrBadFieldNumber       = errors.New("field number out of range")
	ErrNumberCountMismatch  = errors.New("explicit field number count does not match field count")
	ErrNotFound             = errors.New("not registered")
)

// Registry stores record and enum declarations. The codec looks
// declarations up by name when it needs to recurse into a nested record.
type Registry struct {
	records map[string]*schema.Record
	enums   map[string]*schema.Enum
}

func NewRegistry() *Registry {
	return &Registry{
		records: make(map[string]*schema.Record),
		enums:   make(map[string]*schema.Enum),
	}
}

// RegisterRecord validates a record declaration and stores it.
// Validation covers the static invariants of the wire format: every
// field number positive, within range, and pairwise distinct (reserved
// slots included). Re-registering a name replaces the previous entry.
func (r *Registry) RegisterRecord(rec *schema.Record) error {
	if err := ValidateRecord(rec); err != nil {
		return errors.Wrapf(err, "record %s", rec.Name)
	}
	r.records[rec.Name] = rec
	return nil
}

// RegisterEnum validates an enum declaration and stores it.
func (r *Registry) RegisterEnum(e *schema.Enum) error {
	seen := make(map[int32]string, len(e.Values))
	for _, v := range e.Values {
		if prev, ok := seen[v.Number]; ok && prev != v.Name {
			return errors.Wrapf(ErrDuplicateFieldNumber, "enum %s: value %d used by %s and %s",
				e.Name, v.Number, prev, v.Name)
		}
		seen[v.Number] = v.Name
	}
	r.enums[e.Name] = e
	return nil
}

// GetRecord returns a registered record by name.
func (r *Registry) GetRecord(name string) (*schema.Record, error) {
	rec, ok := r.records[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "record %s", name)
	}
	return rec, nil
}

// GetEnum returns a registered enum by name.
func (r *Registry) GetEnum(name string) (*schema.Enum, error) {
	e, ok := r.enums[name]
	if !ok {
		return nil, errors.Wrapf(ErrNotFound, "enum %s", name)
	}
	return e, nil
}

// ListRecords returns the registered record names, sorted.
func (r *Registry) ListRecords() []string {
	names := make([]string, 0, len(r.records))
	for name := range r.records {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ListEnums returns the registered enum names, sorted.
func (r *Registry) ListEnums() []string {
	names := make([]string, 0, len(r.enums))
	for name := range r.enums {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateRecord checks the static field-number invariants of a record
// declaration.
func ValidateRecord(rec *schema.Record) error {
	if rec.Numbers != nil && len(rec.Numbers) != len(rec.Fields) {
		return errors.Wrapf(ErrNumberCountMismatch, "%d numbers for %d fields",
			len(rec.Numbers), len(rec.Fields))
	}

	seen := make(map[int32]string, len(rec.Fields))
	for i, f := range rec.Fields {
		n := rec.FieldNumber(i)
		if n < 1 || n > schema.MaxFieldNumber {
			return errors.Wrapf(ErrBadFieldNumber, "field %s: %d", fieldLabel(f, i), n)
		}
		if prev, ok := seen[n]; ok {
			return errors.Wrapf(ErrDuplicateFieldNumber, "%d used by %s and %s",
				n, prev, fieldLabel(f, i))
		}
		seen[n] = fieldLabel(f, i)
	}
	return nil
}

func fieldLabel(f *schema.Field, i int) string {
	if f.Reserved {
		return fmt.Sprintf("reserved#%d", i)
	}
	return f.Name
}
