package wire

import (
	"bytes"
	"errors"
	"testing"
)

func TestVarint_RoundTrip(t *testing.T) {
	values := []uint64{0, 1, 127, 128, 150, 300, 16383, 16384, 1<<21 - 1, 1 << 21, 1<<32 - 1, 1 << 32, 1<<63 - 1, 1<<64 - 1}

	for _, v := range values {
		encoder := NewEncoder()
		if err := encoder.EncodeVarint(v); err != nil {
			t.Fatalf("EncodeVarint(%d) failed: %v", v, err)
		}

		if got, want := encoder.Len(), VarintSize(v); got != want {
			t.Errorf("VarintSize(%d) = %d, encoded %d bytes", v, want, got)
		}

		decoder := NewDecoder(encoder.Bytes())
		got, err := decoder.DecodeVarint()
		if err != nil {
			t.Fatalf("DecodeVarint(%d) failed: %v", v, err)
		}
		if got != v {
			t.Errorf("round trip of %d yielded %d", v, got)
		}
		if decoder.Pos() != encoder.Len() {
			t.Errorf("decoder consumed %d of %d bytes", decoder.Pos(), encoder.Len())
		}
	}
}

func TestVarint_KnownBytes(t *testing.T) {
	tests := []struct {
		value uint64
		want  []byte
	}{
		{0, []byte{0x00}},
		{1, []byte{0x01}},
		{127, []byte{0x7f}},
		{128, []byte{0x80, 0x01}},
		{150, []byte{0x96, 0x01}},
		{300, []byte{0xac, 0x02}},
	}

	for _, tt := range tests {
		encoder := NewEncoder()
		if err := encoder.EncodeVarint(tt.value); err != nil {
			t.Fatalf("EncodeVarint(%d) failed: %v", tt.value, err)
		}
		if !bytes.Equal(encoder.Bytes(), tt.want) {
			t.Errorf("EncodeVarint(%d) = % x, want % x", tt.value, encoder.Bytes(), tt.want)
		}
	}
}

func TestVarint_NegativeInt32TakesTenBytes(t *testing.T) {
	encoder := NewEncoder()
	ve := NewVarintEncoder(encoder)
	if err := ve.EncodeInt32(-1); err != nil {
		t.Fatalf("EncodeInt32(-1) failed: %v", err)
	}
	if encoder.Len() != 10 {
		t.Fatalf("EncodeInt32(-1) wrote %d bytes, want 10", encoder.Len())
	}

	vd := NewVarintDecoder(NewDecoder(encoder.Bytes()))
	got, err := vd.DecodeInt32()
	if err != nil {
		t.Fatalf("DecodeInt32 failed: %v", err)
	}
	if got != -1 {
		t.Errorf("round trip of -1 yielded %d", got)
	}
}

func TestZigZag(t *testing.T) {
	tests32 := []struct {
		decoded int32
		encoded uint64
	}{
		{0, 0},
		{-1, 1},
		{1, 2},
		{-2, 3},
		{2, 4},
		{2147483647, 4294967294},
		{-2147483648, 4294967295},
	}

	for _, tt := range tests32 {
		if got := EncodeZigZag32(tt.decoded); got != tt.encoded {
			t.Errorf("EncodeZigZag32(%d) = %d, want %d", tt.decoded, got, tt.encoded)
		}
		if got := DecodeZigZag32(tt.encoded); got != tt.decoded {
			t.Errorf("DecodeZigZag32(%d) = %d, want %d", tt.encoded, got, tt.decoded)
		}
	}

	for _, v := range []int64{0, 1, -1, 63, -64, 1 << 40, -(1 << 40), 1<<63 - 1, -1 << 63} {
		if got := DecodeZigZag64(EncodeZigZag64(v)); got != v {
			t.Errorf("zigzag64 round trip of %d yielded %d", v, got)
		}
	}
}

func TestVarint_Errors(t *testing.T) {
	t.Run("truncated", func(t *testing.T) {
		decoder := NewDecoder([]byte{0x80, 0x80})
		if _, err := decoder.DecodeVarint(); !errors.Is(err, ErrTruncated) {
			t.Errorf("expected ErrTruncated, got %v", err)
		}
	})

	t.Run("empty", func(t *testing.T) {
		decoder := NewDecoder(nil)
		if _, err := decoder.DecodeVarint(); !errors.Is(err, ErrTruncated) {
			t.Errorf("expected ErrTruncated, got %v", err)
		}
	})

	t.Run("too_long", func(t *testing.T) {
		decoder := NewDecoder([]byte{0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x80, 0x01})
		if _, err := decoder.DecodeVarint(); !errors.Is(err, ErrVarintTooLong) {
			t.Errorf("expected ErrVarintTooLong, got %v", err)
		}
	})

	t.Run("overflow_tenth_byte", func(t *testing.T) {
		decoder := NewDecoder([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x02})
		if _, err := decoder.DecodeVarint(); !errors.Is(err, ErrVarintOverflow) {
			t.Errorf("expected ErrVarintOverflow, got %v", err)
		}
	})

	t.Run("max_uint64", func(t *testing.T) {
		decoder := NewDecoder([]byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0x01})
		v, err := decoder.DecodeVarint()
		if err != nil {
			t.Fatalf("DecodeVarint failed: %v", err)
		}
		if v != 1<<64-1 {
			t.Errorf("got %d, want max uint64", v)
		}
	})
}

func TestVarintSize(t *testing.T) {
	tests := []struct {
		value uint64
		want  int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{1<<28 - 1, 4},
		{1 << 28, 5},
		{1<<63 - 1, 9},
		{1 << 63, 10},
		{1<<64 - 1, 10},
	}

	for _, tt := range tests {
		if got := VarintSize(tt.value); got != tt.want {
			t.Errorf("VarintSize(%d) = %d, want %d", tt.value, got, tt.want)
		}
	}
}
