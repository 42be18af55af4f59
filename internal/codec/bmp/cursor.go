package bmp

import "encoding/binary"

// cursor is a bounds-checked little-endian reader over an immutable buffer.
// Every read advances pos; a span past the end fails with
// UnexpectedEndOfData and leaves pos untouched.
type cursor struct {
	buf []byte
	pos int
}

func newCursor(buf []byte) *cursor {
	return &cursor{buf: buf}
}

func (c *cursor) offset() int {
	return c.pos
}

func (c *cursor) remaining() int {
	return len(c.buf) - c.pos
}

func (c *cursor) need(n int) error {
	if n < 0 || n > c.remaining() {
		return newError(KindUnexpectedEndOfData, "need %d bytes at offset %d, have %d", n, c.pos, c.remaining())
	}
	return nil
}

func (c *cursor) u8() (byte, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	b := c.buf[c.pos]
	c.pos++
	return b, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.pos:])
	c.pos += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.pos:])
	c.pos += 4
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err // #nosec G115
}

// bytes returns the next n bytes without copying.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

func (c *cursor) skip(n int) error {
	if err := c.need(n); err != nil {
		return err
	}
	c.pos += n
	return nil
}

// seek moves to an absolute offset. Seeking to len(buf) is allowed.
func (c *cursor) seek(abs int) error {
	if abs < 0 || abs > len(c.buf) {
		return newError(KindUnexpectedEndOfData, "offset %d outside %d-byte buffer", abs, len(c.buf))
	}
	c.pos = abs
	return nil
}
