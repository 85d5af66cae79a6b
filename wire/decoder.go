package wire

import (
	"fmt"

	"github.com/protorec/protorec/registry"
	"github.com/protorec/protorec/schema"
)

// Decoder is the read cursor of the codec: a position over an input
// buffer. The cursor is position-monotone; every tag+value consumed
// advances it by exactly the bytes read. Not safe for concurrent use.
type Decoder struct {
	buf        []byte
	pos        int
	registry   *registry.Registry
	allocLimit int // per-container cap, 0 means unlimited
}

// NewDecoder creates a new wire format decoder
func NewDecoder(data []byte) *Decoder {
	return &Decoder{buf: data}
}

// NewDecoderWithRegistry creates a decoder that resolves nested record
// names through the given registry.
func NewDecoderWithRegistry(data []byte, registry *registry.Registry) *Decoder {
	return &Decoder{buf: data, registry: registry}
}

// Pos returns the current cursor position.
func (d *Decoder) Pos() int {
	return d.pos
}

// DecodeRecord decodes protobuf bytes into a record value - main entry
// point. A fresh output map is produced per call: absent fields stay
// absent, mirroring the reset-then-merge lifecycle.
func DecodeRecord(data []byte, rec *schema.Record, reg *registry.Registry, opts ...Option) (map[string]interface{}, error) {
	cfg := buildConfig(opts)

	decoder := NewDecoderWithRegistry(data, reg)
	decoder.allocLimit = cfg.allocLimit

	end := len(data)
	switch cfg.sizePrefix {
	case SizeVarint:
		size, err := decoder.DecodeVarint()
		if err != nil {
			return nil, fmt.Errorf("failed to decode size prefix: %w", err)
		}
		if size > uint64(len(data)-decoder.pos) {
			return nil, fmt.Errorf("size prefix %d exceeds input: %w", size, ErrTruncated)
		}
		end = decoder.pos + int(size)
	case SizeFixed32:
		size, err := decoder.DecodeFixed32()
		if err != nil {
			return nil, fmt.Errorf("failed to decode size prefix: %w", err)
		}
		if uint64(size) > uint64(len(data)-decoder.pos) {
			return nil, fmt.Errorf("size prefix %d exceeds input: %w", size, ErrTruncated)
		}
		end = decoder.pos + int(size)
	}

	rd := NewRecordDecoder(decoder)
	return rd.DecodeRecord(rec, end)
}

// skipField skips a value of the given wire type. Unknown fields,
// reserved numbers and tolerated wire-type mismatches all land here.
func (d *Decoder) skipField(wireType WireType) error {
	switch wireType {
	case WireVarint:
		vd := NewVarintDecoder(d)
		return vd.SkipVarint()
	case WireFixed64:
		if d.pos+8 > len(d.buf) {
			return ErrTruncated
		}
		d.pos += 8
		return nil
	case WireBytes:
		bd := NewBytesDecoder(d)
		return bd.SkipBytes()
	case WireFixed32:
		if d.pos+4 > len(d.buf) {
			return ErrTruncated
		}
		d.pos += 4
		return nil
	default:
		return fmt.Errorf("wire type %d: %w", wireType, ErrBadWireType)
	}
}
