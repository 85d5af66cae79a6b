package wire

// SizePrefix selects whether a top-level message is itself
// length-delimited, and how the length is written. Nested records are
// always varint-delimited regardless of this option.
type SizePrefix int

const (
	// SizeNone parses/writes the message without a length prefix; the
	// decoder consumes the whole buffer.
	SizeNone SizePrefix = iota
	// SizeVarint prefixes the message with a varint byte length.
	SizeVarint
	// SizeFixed32 prefixes the message with a 4-byte little-endian length.
	SizeFixed32
)

// Option configures a single encode or decode call. The codec keeps no
// state between calls.
type Option func(*config)

type config struct {
	sizePrefix SizePrefix
	allocLimit int
	fixedBuf   []byte
}

// WithSizePrefix sets the top-level size prefix mode. Both sides of a
// round trip must agree on it.
func WithSizePrefix(p SizePrefix) Option {
	return func(c *config) { c.sizePrefix = p }
}

// WithAllocLimit caps any single length prefix accepted while decoding,
// so a hostile payload cannot force unbounded allocation. Zero means
// unlimited.
func WithAllocLimit(n int) Option {
	return func(c *config) { c.allocLimit = n }
}

// WithFixedBuffer makes the encoder write into caller-provided storage
// instead of allocating. Growth is disabled; encoding past the end
// returns ErrBufferFull.
func WithFixedBuffer(buf []byte) Option {
	return func(c *config) { c.fixedBuf = buf }
}

func buildConfig(opts []Option) config {
	var c config
	for _, opt := range opts {
		opt(&c)
	}
	return c
}
