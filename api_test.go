package protorec

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/protorec/protorec/schema"
	"github.com/protorec/protorec/wire"
)

type PhoneType int32

const (
	PhoneMobile PhoneType = iota
	PhoneHome
	PhoneWork
)

type PhoneNumber struct {
	Number string
	Type   PhoneType
}

type Person struct {
	Name   string
	ID     int32
	Email  string
	Phones []PhoneNumber
}

type AddressBook struct {
	People []Person
}

type PersonExplicit struct {
	Extra  string        `pb:"10"`
	Name   string        `pb:"1"`
	ID     int32         `pb:"2"`
	Email  string        `pb:"3"`
	Phones []PhoneNumber `pb:"4"`
}

type PersonMap struct {
	Name   string
	ID     int32
	Email  string
	Phones map[string]PhoneType
}

type Example struct {
	I int32
}

type NestedExample struct {
	Nested Example
}

type NestedReservedExample struct {
	_      schema.Reserved
	_      schema.Reserved
	Nested Example
}

var (
	person1 = Person{
		Name:   "John Doe",
		ID:     1234,
		Email:  "jdoe@example.com",
		Phones: []PhoneNumber{{Number: "555-4321", Type: PhoneHome}},
	}
	person2 = Person{
		Name:  "John Doe 2",
		ID:    1235,
		Email: "jdoe2@example.com",
		Phones: []PhoneNumber{
			{Number: "555-4322", Type: PhoneHome},
			{Number: "555-4323", Type: PhoneWork},
		},
	}

	person1Wire = []byte("\x0a\x08John Doe\x10\xd2\x09\x1a\x10jdoe@example.com\x22\x0c\x0a\x08555-4321\x10\x01")

	addressBookWire = []byte("\x0a\x2d" +
		"\x0a\x08John Doe\x10\xd2\x09\x1a\x10jdoe@example.com\x22\x0c\x0a\x08555-4321\x10\x01" +
		"\x0a\x3e" +
		"\x0a\x0aJohn Doe 2\x10\xd3\x09\x1a\x11jdoe2@example.com" +
		"\x22\x0c\x0a\x08555-4322\x10\x01\x22\x0c\x0a\x08555-4323\x10\x02")
)

func TestMarshalStruct_CorpusBytes(t *testing.T) {
	require.Len(t, person1Wire, 45)
	require.Len(t, addressBookWire, 111)

	p := New()

	t.Run("example", func(t *testing.T) {
		data, err := p.MarshalStruct(Example{I: 150})
		require.NoError(t, err)
		require.Equal(t, []byte{0x08, 0x96, 0x01}, data)
	})

	t.Run("nested", func(t *testing.T) {
		data, err := p.MarshalStruct(NestedExample{Nested: Example{I: 150}})
		require.NoError(t, err)
		require.Equal(t, []byte{0x0a, 0x03, 0x08, 0x96, 0x01}, data)
	})

	t.Run("nested_reserved", func(t *testing.T) {
		data, err := p.MarshalStruct(NestedReservedExample{Nested: Example{I: 150}})
		require.NoError(t, err)
		require.Equal(t, []byte{0x1a, 0x03, 0x08, 0x96, 0x01}, data)
	})

	t.Run("person", func(t *testing.T) {
		data, err := p.MarshalStruct(person1)
		require.NoError(t, err)
		require.Equal(t, person1Wire, data)
	})

	t.Run("address_book", func(t *testing.T) {
		data, err := p.MarshalStruct(AddressBook{People: []Person{person1, person2}})
		require.NoError(t, err)
		require.Equal(t, addressBookWire, data)
	})
}

func TestUnmarshal_Corpus(t *testing.T) {
	p := New()

	t.Run("person", func(t *testing.T) {
		var got Person
		require.NoError(t, p.Unmarshal(person1Wire, &got))
		require.Empty(t, cmp.Diff(person1, got))
	})

	t.Run("address_book", func(t *testing.T) {
		var got AddressBook
		require.NoError(t, p.Unmarshal(addressBookWire, &got))
		require.Empty(t, cmp.Diff(AddressBook{People: []Person{person1, person2}}, got))
	})

	t.Run("destination_is_reset_first", func(t *testing.T) {
		got := Person{Name: "stale", Phones: []PhoneNumber{{Number: "gone"}}}
		require.NoError(t, p.Unmarshal(nil, &got))
		require.Empty(t, cmp.Diff(Person{}, got))
	})
}

func TestRoundTrip_DefaultPerson(t *testing.T) {
	p := New()

	data, err := p.MarshalStruct(AddressBook{People: []Person{{}}})
	require.NoError(t, err)
	require.Equal(t, []byte{0x0a, 0x00}, data)

	var got AddressBook
	require.NoError(t, p.Unmarshal(data, &got))
	require.Len(t, got.People, 1)
	require.Empty(t, cmp.Diff(Person{}, got.People[0]))
}

func TestRoundTrip_EmptyAddressBook(t *testing.T) {
	p := New()

	data, err := p.MarshalStruct(AddressBook{})
	require.NoError(t, err)
	require.Empty(t, data)

	var got AddressBook
	require.NoError(t, p.Unmarshal(nil, &got))
	require.Empty(t, got.People)

	again, err := p.MarshalStruct(got)
	require.NoError(t, err)
	require.Empty(t, again)
}

func TestUnmarshal_ExtraFieldSkipped(t *testing.T) {
	p := New()

	src := PersonExplicit{
		Extra:  "extra",
		Name:   person1.Name,
		ID:     person1.ID,
		Email:  person1.Email,
		Phones: person1.Phones,
	}
	data, err := p.MarshalStruct(src)
	require.NoError(t, err)

	var got Person
	require.NoError(t, p.Unmarshal(data, &got))
	require.Empty(t, cmp.Diff(person1, got))
}

func TestRoundTrip_MapPerson(t *testing.T) {
	p := New()

	src := PersonMap{
		Name:   "John Doe",
		ID:     1234,
		Email:  "jdoe@example.com",
		Phones: map[string]PhoneType{"555-4321": PhoneHome},
	}
	data, err := p.MarshalStruct(src)
	require.NoError(t, err)
	// A one-entry map is wire-identical to the repeated-entry person.
	require.Equal(t, person1Wire, data)

	var got PersonMap
	require.NoError(t, p.Unmarshal(data, &got))
	require.Empty(t, cmp.Diff(src, got))
}

func TestRoundTrip_Optional(t *testing.T) {
	type Counter struct {
		Count *int32
		Label string
	}

	p := New()

	n := int32(7)
	data, err := p.MarshalStruct(Counter{Count: &n, Label: "hits"})
	require.NoError(t, err)

	var got Counter
	require.NoError(t, p.Unmarshal(data, &got))
	require.NotNil(t, got.Count)
	require.Equal(t, int32(7), *got.Count)

	absent, err := p.MarshalStruct(Counter{Label: "hits"})
	require.NoError(t, err)
	require.Less(t, len(absent), len(data))

	var got2 Counter
	require.NoError(t, p.Unmarshal(absent, &got2))
	require.Nil(t, got2.Count)
}

func TestMarshalStruct_Options(t *testing.T) {
	p := New()

	t.Run("size_prefix_round_trip", func(t *testing.T) {
		data, err := p.MarshalStruct(person1, wire.WithSizePrefix(wire.SizeVarint))
		require.NoError(t, err)
		require.Equal(t, byte(45), data[0])

		var got Person
		require.NoError(t, p.Unmarshal(data, &got, wire.WithSizePrefix(wire.SizeVarint)))
		require.Empty(t, cmp.Diff(person1, got))
	})

	t.Run("fixed_buffer", func(t *testing.T) {
		buf := make([]byte, len(person1Wire))
		data, err := p.MarshalStruct(person1, wire.WithFixedBuffer(buf))
		require.NoError(t, err)
		require.Equal(t, person1Wire, data)

		short := make([]byte, 10)
		_, err = p.MarshalStruct(person1, wire.WithFixedBuffer(short))
		require.ErrorIs(t, err, wire.ErrBufferFull)
	})

	t.Run("alloc_limit", func(t *testing.T) {
		var got Person
		err := p.Unmarshal(person1Wire, &got, wire.WithAllocLimit(4))
		require.ErrorIs(t, err, wire.ErrAllocationLimit)
	})
}

func TestMapAPI_RoundTrip(t *testing.T) {
	p := New()

	require.NoError(t, p.RegisterRecord(&schema.Record{
		Name: "Event",
		Fields: []*schema.Field{
			{Name: "kind", Type: schema.FieldType{Kind: schema.KindString}},
			{Name: "count", Type: schema.FieldType{Kind: schema.KindUint64}},
		},
	}))

	data, err := p.Marshal(map[string]interface{}{"kind": "click", "count": uint64(3)}, "Event")
	require.NoError(t, err)

	got, err := p.Parse(data, "Event")
	require.NoError(t, err)
	require.Equal(t, "click", got["kind"])
	require.Equal(t, uint64(3), got["count"])

	_, err = p.Marshal(nil, "Missing")
	require.Error(t, err)
}

func TestListings_Facade(t *testing.T) {
	p := New()

	_, err := p.RegisterStruct(Person{})
	require.NoError(t, err)
	require.NoError(t, p.RegisterEnum(&schema.Enum{
		Name: "PhoneType",
		Values: []*schema.EnumValue{
			{Name: "MOBILE", Number: 0},
			{Name: "HOME", Number: 1},
			{Name: "WORK", Number: 2},
		},
	}))

	require.Contains(t, p.ListRecords(), "Person")
	require.Contains(t, p.ListRecords(), "PhoneNumber")
	require.Contains(t, p.ListEnums(), "PhoneType")
	require.NotNil(t, p.GetRegistry())
}
