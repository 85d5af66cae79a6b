package registry

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/protorec/protorec/schema"
)

func TestRegisterRecord_ImplicitNumbering(t *testing.T) {
	reg := NewRegistry()

	rec := &schema.Record{
		Name: "Person",
		Fields: []*schema.Field{
			{Name: "name", Type: schema.FieldType{Kind: schema.KindString}},
			{Name: "id", Type: schema.FieldType{Kind: schema.KindInt32}},
			{Name: "email", Type: schema.FieldType{Kind: schema.KindString}},
		},
	}
	require.NoError(t, reg.RegisterRecord(rec))

	got, err := reg.GetRecord("Person")
	require.NoError(t, err)
	require.Equal(t, int32(1), got.FieldNumber(0))
	require.Equal(t, int32(3), got.FieldNumber(2))
	require.Equal(t, "id", got.FieldByNumber(2).Name)
	require.Nil(t, got.FieldByNumber(4))
}

func TestRegisterRecord_ExplicitNumbering(t *testing.T) {
	reg := NewRegistry()

	rec := &schema.Record{
		Name: "PersonExplicit",
		Fields: []*schema.Field{
			{Name: "extra", Type: schema.FieldType{Kind: schema.KindString}},
			{Name: "name", Type: schema.FieldType{Kind: schema.KindString}},
			{Name: "id", Type: schema.FieldType{Kind: schema.KindInt32}},
		},
		Numbers: []int32{10, 1, 2},
	}
	require.NoError(t, reg.RegisterRecord(rec))

	got, err := reg.GetRecord("PersonExplicit")
	require.NoError(t, err)
	require.Equal(t, int32(10), got.FieldNumber(0))
	require.Equal(t, "extra", got.FieldByNumber(10).Name)
	require.Equal(t, "name", got.FieldByNumber(1).Name)
}

func TestRegisterRecord_ReservedSlotsTakeNumbers(t *testing.T) {
	reg := NewRegistry()

	rec := &schema.Record{
		Name: "Shifted",
		Fields: []*schema.Field{
			{Reserved: true},
			{Reserved: true},
			{Name: "nested", Type: schema.FieldType{Kind: schema.KindRecord, RecordType: "Example"}},
		},
	}
	require.NoError(t, reg.RegisterRecord(rec))

	got, err := reg.GetRecord("Shifted")
	require.NoError(t, err)
	require.Equal(t, int32(3), got.FieldNumber(2))
	// Reserved numbers are never handed out to callers.
	require.Nil(t, got.FieldByNumber(1))
	require.Nil(t, got.FieldByNumber(2))
	require.NotNil(t, got.FieldByNumber(3))
}

func TestRegisterRecord_Validation(t *testing.T) {
	tests := []struct {
		name    string
		rec     *schema.Record
		wantErr error
	}{
		{
			name: "duplicate_explicit_numbers",
			rec: &schema.Record{
				Name: "Dup",
				Fields: []*schema.Field{
					{Name: "a", Type: schema.FieldType{Kind: schema.KindInt32}},
					{Name: "b", Type: schema.FieldType{Kind: schema.KindInt32}},
				},
				Numbers: []int32{1, 1},
			},
			wantErr: ErrDuplicateFieldNumber,
		},
		{
			name: "zero_number",
			rec: &schema.Record{
				Name: "Zero",
				Fields: []*schema.Field{
					{Name: "a", Type: schema.FieldType{Kind: schema.KindInt32}},
				},
				Numbers: []int32{0},
			},
			wantErr: ErrBadFieldNumber,
		},
		{
			name: "negative_number",
			rec: &schema.Record{
				Name: "Negative",
				Fields: []*schema.Field{
					{Name: "a", Type: schema.FieldType{Kind: schema.KindInt32}},
				},
				Numbers: []int32{-3},
			},
			wantErr: ErrBadFieldNumber,
		},
		{
			name: "number_past_wire_limit",
			rec: &schema.Record{
				Name: "TooBig",
				Fields: []*schema.Field{
					{Name: "a", Type: schema.FieldType{Kind: schema.KindInt32}},
				},
				Numbers: []int32{schema.MaxFieldNumber + 1},
			},
			wantErr: ErrBadFieldNumber,
		},
		{
			name: "count_mismatch",
			rec: &schema.Record{
				Name: "Mismatch",
				Fields: []*schema.Field{
					{Name: "a", Type: schema.FieldType{Kind: schema.KindInt32}},
					{Name: "b", Type: schema.FieldType{Kind: schema.KindInt32}},
				},
				Numbers: []int32{1},
			},
			wantErr: ErrNumberCountMismatch,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().RegisterRecord(tt.rec)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRegisterEnum(t *testing.T) {
	reg := NewRegistry()

	require.NoError(t, reg.RegisterEnum(&schema.Enum{
		Name: "PhoneType",
		Values: []*schema.EnumValue{
			{Name: "MOBILE", Number: 0},
			{Name: "HOME", Number: 1},
			{Name: "WORK", Number: 2},
		},
	}))

	err := reg.RegisterEnum(&schema.Enum{
		Name: "Broken",
		Values: []*schema.EnumValue{
			{Name: "A", Number: 1},
			{Name: "B", Number: 1},
		},
	})
	require.ErrorIs(t, err, ErrDuplicateFieldNumber)
}

func TestListings(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, reg.RegisterRecord(&schema.Record{Name: "B"}))
	require.NoError(t, reg.RegisterRecord(&schema.Record{Name: "A"}))
	require.NoError(t, reg.RegisterEnum(&schema.Enum{Name: "E"}))

	require.Equal(t, []string{"A", "B"}, reg.ListRecords())
	require.Equal(t, []string{"E"}, reg.ListEnums())

	_, err := reg.GetRecord("missing")
	require.ErrorIs(t, err, ErrNotFound)
	_, err = reg.GetEnum("missing")
	require.ErrorIs(t, err, ErrNotFound)
}
