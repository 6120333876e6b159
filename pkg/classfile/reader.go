package classfile

import (
	"encoding/binary"
	"fmt"
)

// byteReader is a big-endian cursor over class file bytes. The first
// out-of-bounds read records an error; later reads return zero values.
type byteReader struct {
	buf []byte
	off int
	err error
}

func (r *byteReader) fail(format string, args ...any) {
	if r.err == nil {
		r.err = fmt.Errorf("%w: "+format, append([]any{ErrMalformedClass}, args...)...)
	}
}

func (r *byteReader) need(n int) bool {
	if r.err != nil {
		return false
	}
	if n < 0 || len(r.buf)-r.off < n {
		r.fail("truncated at offset %d: need %d bytes, have %d", r.off, n, len(r.buf)-r.off)
		return false
	}
	return true
}

func (r *byteReader) u1() uint8 {
	if !r.need(1) {
		return 0
	}
	v := r.buf[r.off]
	r.off++
	return v
}

func (r *byteReader) u2() uint16 {
	if !r.need(2) {
		return 0
	}
	v := binary.BigEndian.Uint16(r.buf[r.off:])
	r.off += 2
	return v
}

func (r *byteReader) u4() uint32 {
	if !r.need(4) {
		return 0
	}
	v := binary.BigEndian.Uint32(r.buf[r.off:])
	r.off += 4
	return v
}

// bytes returns a copy of the next n bytes.
func (r *byteReader) bytes(n int) []byte {
	if !r.need(n) {
		return nil
	}
	out := make([]byte, n)
	copy(out, r.buf[r.off:r.off+n])
	r.off += n
	return out
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.off
}

func appendU2(b []byte, v uint16) []byte {
	return binary.BigEndian.AppendUint16(b, v)
}

func appendU4(b []byte, v uint32) []byte {
	return binary.BigEndian.AppendUint32(b, v)
}
