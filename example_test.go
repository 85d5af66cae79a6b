package protorec

import (
	"fmt"
	"log"

	"github.com/protorec/protorec/schema"
	"github.com/protorec/protorec/wire"
)

// Example demonstrates the Protorec API usage
func ExampleProtorec() {
	type Reply struct {
		Code    int32
		Message string
	}

	proto := New()

	// Struct declarations: the type is the schema, field numbers
	// default to declaration order.
	data, err := proto.MarshalStruct(Reply{Code: 150, Message: "created"})
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Printf("encoded: % x\n", data)

	var reply Reply
	if err := proto.Unmarshal(data, &reply); err != nil {
		log.Fatalf("Failed to unmarshal: %v", err)
	}
	fmt.Printf("decoded: code=%d message=%q\n", reply.Code, reply.Message)

	// Declarative records decode the same bytes into a generic value.
	err = proto.RegisterRecord(&schema.Record{
		Name: "GenericReply",
		Fields: []*schema.Field{
			{Name: "code", Type: schema.FieldType{Kind: schema.KindInt32}},
			{Name: "message", Type: schema.FieldType{Kind: schema.KindString}},
		},
	})
	if err != nil {
		log.Fatalf("Failed to register: %v", err)
	}
	parsed, err := proto.Parse(data, "GenericReply")
	if err != nil {
		log.Fatalf("Failed to parse: %v", err)
	}
	fmt.Printf("parsed: code=%v message=%q\n", parsed["code"], parsed["message"])

	// Output:
	// encoded: 08 96 01 12 07 63 72 65 61 74 65 64
	// decoded: code=150 message="created"
	// parsed: code=150 message="created"
}

// ExampleProtorec_sizePrefix shows length-delimited top-level messages.
func ExampleProtorec_sizePrefix() {
	type Ping struct {
		Seq int32
	}

	proto := New()

	data, err := proto.MarshalStruct(Ping{Seq: 5}, wire.WithSizePrefix(wire.SizeVarint))
	if err != nil {
		log.Fatalf("Failed to marshal: %v", err)
	}
	fmt.Printf("framed: % x\n", data)

	var ping Ping
	if err := proto.Unmarshal(data, &ping, wire.WithSizePrefix(wire.SizeVarint)); err != nil {
		log.Fatalf("Failed to unmarshal: %v", err)
	}
	fmt.Printf("seq: %d\n", ping.Seq)

	// Output:
	// framed: 02 08 05
	// seq: 5
}
