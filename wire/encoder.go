package wire

import (
	"encoding/binary"

	"github.com/protorec/protorec/registry"
	"github.com/protorec/protorec/schema"
)

// Encoder is the write cursor of the codec: a position over a growable
// or fixed byte buffer. A single Encoder owns one buffer and is not
// safe for concurrent use; independent encoders are fully parallel.
type Encoder struct {
	buf      []byte
	pos      int
	fixed    bool // caller-provided storage, growth disabled
	registry *registry.Registry
}

// NewEncoder creates a wire format encoder over a growable buffer.
func NewEncoder() *Encoder {
	return &Encoder{}
}

// NewEncoderBuffer creates an encoder writing into caller-provided
// storage. The buffer never grows; running out of space returns
// ErrBufferFull.
func NewEncoderBuffer(buf []byte) *Encoder {
	return &Encoder{buf: buf, fixed: true}
}

// NewEncoderWithRegistry creates a growable encoder that resolves
// nested record names through the given registry.
func NewEncoderWithRegistry(registry *registry.Registry) *Encoder {
	return &Encoder{registry: registry}
}

// Bytes returns the encoded bytes written so far.
func (e *Encoder) Bytes() []byte {
	return e.buf[:e.pos]
}

// Len returns the number of bytes written.
func (e *Encoder) Len() int {
	return e.pos
}

// Reset rewinds the encoder to the start of its buffer.
func (e *Encoder) Reset() {
	e.pos = 0
}

// ensure makes room for n more bytes, doubling the buffer as needed.
func (e *Encoder) ensure(n int) error {
	if e.pos+n <= len(e.buf) {
		return nil
	}
	if e.fixed {
		return ErrBufferFull
	}
	size := 2 * len(e.buf)
	if size < e.pos+n {
		size = e.pos + n
	}
	if size < 64 {
		size = 64
	}
	grown := make([]byte, size)
	copy(grown, e.buf[:e.pos])
	e.buf = grown
	return nil
}

func (e *Encoder) writeByte(b byte) error {
	if err := e.ensure(1); err != nil {
		return err
	}
	e.buf[e.pos] = b
	e.pos++
	return nil
}

func (e *Encoder) write(p []byte) error {
	if err := e.ensure(len(p)); err != nil {
		return err
	}
	copy(e.buf[e.pos:], p)
	e.pos += len(p)
	return nil
}

func (e *Encoder) writeString(s string) error {
	if err := e.ensure(len(s)); err != nil {
		return err
	}
	copy(e.buf[e.pos:], s)
	e.pos += len(s)
	return nil
}

// EncodeSized writes body() prefixed with its varint byte length. The
// length is unknown up front, so exactly one byte is reserved before the
// body is written in place; if the finished body needs a longer length
// varint, the body is shifted right to make room and the varint written
// over the reservation. Bodies up to 127 bytes never shift, and
// encoding stays a single forward pass at any nesting depth.
func (e *Encoder) EncodeSized(body func() error) error {
	sizePos := e.pos
	if err := e.writeByte(0); err != nil {
		return err
	}
	if err := body(); err != nil {
		return err
	}

	size := e.pos - sizePos - 1
	need := VarintSize(uint64(size))
	if extra := need - 1; extra > 0 {
		if err := e.ensure(extra); err != nil {
			return err
		}
		start := sizePos + 1
		copy(e.buf[start+extra:e.pos+extra], e.buf[start:e.pos])
		e.pos += extra
	}
	e.putVarint(sizePos, uint64(size))
	return nil
}

// EncodeSizedFixed32 writes body() prefixed with its byte length as a
// fixed 4-byte little-endian word. No shift is ever needed.
func (e *Encoder) EncodeSizedFixed32(body func() error) error {
	sizePos := e.pos
	if err := e.ensure(4); err != nil {
		return err
	}
	e.pos += 4
	if err := body(); err != nil {
		return err
	}
	binary.LittleEndian.PutUint32(e.buf[sizePos:], uint32(e.pos-sizePos-4))
	return nil
}

// putVarint writes a varint at an absolute position inside the already
// written region. Space must have been made beforehand.
func (e *Encoder) putVarint(pos int, v uint64) {
	for v >= 0x80 {
		e.buf[pos] = byte(v) | 0x80
		v >>= 7
		pos++
	}
	e.buf[pos] = byte(v)
}

// EncodeRecord encodes a record value using its declaration - main
// entry point. Returns the encoded bytes.
func EncodeRecord(data map[string]interface{}, rec *schema.Record, reg *registry.Registry, opts ...Option) ([]byte, error) {
	cfg := buildConfig(opts)

	var encoder *Encoder
	if cfg.fixedBuf != nil {
		encoder = NewEncoderBuffer(cfg.fixedBuf)
	} else {
		encoder = NewEncoder()
	}
	encoder.registry = reg

	re := NewRecordEncoder(encoder)
	var err error
	switch cfg.sizePrefix {
	case SizeVarint:
		err = encoder.EncodeSized(func() error { return re.EncodeRecord(data, rec) })
	case SizeFixed32:
		err = encoder.EncodeSizedFixed32(func() error { return re.EncodeRecord(data, rec) })
	default:
		err = re.EncodeRecord(data, rec)
	}
	if err != nil {
		return nil, err
	}
	return encoder.Bytes(), nil
}
