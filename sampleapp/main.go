package main

import (
	"fmt"
	"log"
	"strings"

	"github.com/protorec/protorec"
	"github.com/protorec/protorec/schema"
	"github.com/protorec/protorec/wire"
)

// The classic protobuf address book, declared as plain Go types. No
// .proto files and no generated code: the declarations below are the
// schema.

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

func main() {
	proto := protorec.New()

	book := AddressBook{
		People: []Person{
			{
				Name:   "John Doe",
				ID:     1234,
				Email:  "jdoe@example.com",
				Phones: []PhoneNumber{{Number: "555-4321", Type: PhoneHome}},
			},
			{
				Name:  "John Doe 2",
				ID:    1235,
				Email: "jdoe2@example.com",
				Phones: []PhoneNumber{
					{Number: "555-4322", Type: PhoneHome},
					{Number: "555-4323", Type: PhoneWork},
				},
			},
		},
	}

	fmt.Println("protorec sample app - address book")
	fmt.Println(strings.Repeat("=", 50))

	data, err := proto.MarshalStruct(book)
	if err != nil {
		log.Fatalf("Failed to marshal address book: %v", err)
	}
	fmt.Printf("encoded %d bytes:\n%s\n", len(data), hexDump(data))

	var decoded AddressBook
	if err := proto.Unmarshal(data, &decoded); err != nil {
		log.Fatalf("Failed to unmarshal address book: %v", err)
	}
	for _, person := range decoded.People {
		fmt.Printf("  %s <%s> id=%d\n", person.Name, person.Email, person.ID)
		for _, phone := range person.Phones {
			fmt.Printf("    phone %s (%v)\n", phone.Number, phone.Type)
		}
	}

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("length-delimited framing:")

	framed, err := proto.MarshalStruct(book, wire.WithSizePrefix(wire.SizeVarint))
	if err != nil {
		log.Fatalf("Failed to marshal framed: %v", err)
	}
	fmt.Printf("  framed size: %d bytes (prefix %#x)\n", len(framed), framed[0])

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("generic parse through a declarative record:")

	registerGenericBook(proto)
	parsed, err := proto.Parse(data, "GenericBook")
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}
	people := parsed["people"].([]interface{})
	fmt.Printf("  parsed %d people without the Go types\n", len(people))

	fmt.Println(strings.Repeat("=", 50))
	fmt.Println("hostile input is bounded:")

	_, err = proto.Parse(data, "GenericBook", wire.WithAllocLimit(8))
	fmt.Printf("  alloc limit of 8 bytes: %v\n", err)
}

// registerGenericBook declares the address book shape as records
// instead of structs. Both declarations describe the same bytes.
func registerGenericBook(proto *protorec.Protorec) {
	records := []*schema.Record{
		{
			Name: "GenericPhone",
			Fields: []*schema.Field{
				{Name: "number", Type: schema.FieldType{Kind: schema.KindString}},
				{Name: "type", Type: schema.FieldType{Kind: schema.KindEnum}},
			},
		},
		{
			Name: "GenericPerson",
			Fields: []*schema.Field{
				{Name: "name", Type: schema.FieldType{Kind: schema.KindString}},
				{Name: "id", Type: schema.FieldType{Kind: schema.KindInt32}},
				{Name: "email", Type: schema.FieldType{Kind: schema.KindString}},
				{Name: "phones", Type: schema.FieldType{Kind: schema.KindRecord, RecordType: "GenericPhone"}, Repeated: true},
			},
		},
		{
			Name: "GenericBook",
			Fields: []*schema.Field{
				{Name: "people", Type: schema.FieldType{Kind: schema.KindRecord, RecordType: "GenericPerson"}, Repeated: true},
			},
		},
	}
	for _, rec := range records {
		if err := proto.RegisterRecord(rec); err != nil {
			log.Fatalf("Failed to register %s: %v", rec.Name, err)
		}
	}
}

func hexDump(data []byte) string {
	var b strings.Builder
	for i := 0; i < len(data); i += 16 {
		end := i + 16
		if end > len(data) {
			end = len(data)
		}
		fmt.Fprintf(&b, "  %04x  % x\n", i, data[i:end])
	}
	return b.String()
}
