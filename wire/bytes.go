package wire

import (
	"fmt"
)

// BytesDecoder handles length-delimited bytes decoding operations
type BytesDecoder struct {
	decoder *Decoder
}

// BytesEncoder handles length-delimited bytes encoding operations
type BytesEncoder struct {
	encoder *Encoder
}

// NewBytesDecoder creates a new bytes decoder
func NewBytesDecoder(d *Decoder) *BytesDecoder {
	return &BytesDecoder{decoder: d}
}

// NewBytesEncoder creates a new bytes encoder
func NewBytesEncoder(e *Encoder) *BytesEncoder {
	return &BytesEncoder{encoder: e}
}

// DECODER METHODS

// DecodeBytes decodes a length-delimited byte array. The result is
// copied; it never aliases the input buffer.
func (bd *BytesDecoder) DecodeBytes() ([]byte, error) {
	length, err := bd.decodeLength()
	if err != nil {
		return nil, err
	}

	d := bd.decoder
	data := make([]byte, length)
	copy(data, d.buf[d.pos:d.pos+length])
	d.pos += length

	return data, nil
}

// DecodeString decodes a length-delimited string
func (bd *BytesDecoder) DecodeString() (string, error) {
	length, err := bd.decodeLength()
	if err != nil {
		return "", err
	}

	d := bd.decoder
	s := string(d.buf[d.pos : d.pos+length])
	d.pos += length
	return s, nil
}

// decodeLength reads a varint length prefix and validates it against
// the remaining input and the configured allocation limit.
func (bd *BytesDecoder) decodeLength() (int, error) {
	vd := NewVarintDecoder(bd.decoder)
	length, err := vd.DecodeVarint()
	if err != nil {
		return 0, fmt.Errorf("failed to decode length prefix: %w", err)
	}

	d := bd.decoder
	if d.allocLimit > 0 && length > uint64(d.allocLimit) {
		return 0, fmt.Errorf("length prefix %d: %w", length, ErrAllocationLimit)
	}
	if length > uint64(len(d.buf)-d.pos) {
		return 0, fmt.Errorf("need %d bytes, have %d: %w", length, len(d.buf)-d.pos, ErrTruncated)
	}
	return int(length), nil
}

// SkipBytes skips over a length-delimited byte array
func (bd *BytesDecoder) SkipBytes() error {
	vd := NewVarintDecoder(bd.decoder)
	length, err := vd.DecodeVarint()
	if err != nil {
		return err
	}

	d := bd.decoder
	if length > uint64(len(d.buf)-d.pos) {
		return fmt.Errorf("cannot skip %d bytes, have %d: %w", length, len(d.buf)-d.pos, ErrTruncated)
	}

	d.pos += int(length)
	return nil
}

// ENCODER METHODS

// EncodeBytes encodes a byte array as length-delimited
func (be *BytesEncoder) EncodeBytes(data []byte) error {
	ve := NewVarintEncoder(be.encoder)
	if err := ve.EncodeVarint(uint64(len(data))); err != nil {
		return err
	}
	return be.encoder.write(data)
}

// EncodeString encodes a string as length-delimited bytes
func (be *BytesEncoder) EncodeString(s string) error {
	ve := NewVarintEncoder(be.encoder)
	if err := ve.EncodeVarint(uint64(len(s))); err != nil {
		return err
	}
	return be.encoder.writeString(s)
}

// UTILITY FUNCTIONS

// BytesSize returns the size needed to encode the given bytes
func BytesSize(data []byte) int {
	return VarintSize(uint64(len(data))) + len(data)
}

// StringSize returns the size needed to encode the given string
func StringSize(s string) int {
	return VarintSize(uint64(len(s))) + len(s)
}

// Convenience methods for direct access

// DecodeBytes - convenience method for main decoder
func (d *Decoder) DecodeBytes() ([]byte, error) {
	bd := NewBytesDecoder(d)
	return bd.DecodeBytes()
}

// EncodeBytes - convenience method for main encoder
func (e *Encoder) EncodeBytes(data []byte) error {
	be := NewBytesEncoder(e)
	return be.EncodeBytes(data)
}

// EncodeString - convenience method for main encoder
func (e *Encoder) EncodeString(s string) error {
	be := NewBytesEncoder(e)
	return be.EncodeString(s)
}
