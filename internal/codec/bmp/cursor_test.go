package bmp

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursor_LittleEndianReads(t *testing.T) {
	c := newCursor([]byte{0x01, 0x34, 0x12, 0x78, 0x56, 0x34, 0x12, 0xFF, 0xFF, 0xFF, 0xFF})

	b, err := c.u8()
	require.NoError(t, err)
	assert.Equal(t, byte(0x01), b)

	w, err := c.u16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x1234), w)

	d, err := c.u32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x12345678), d)

	s, err := c.i32()
	require.NoError(t, err)
	assert.Equal(t, int32(-1), s)

	assert.Equal(t, 11, c.offset())
	assert.Equal(t, 0, c.remaining())
}

func TestCursor_OutOfBounds(t *testing.T) {
	tests := []struct {
		name string
		read func(c *cursor) error
	}{
		{"u8", func(c *cursor) error { _, err := c.u8(); return err }},
		{"u16", func(c *cursor) error { _, err := c.u16(); return err }},
		{"u32", func(c *cursor) error { _, err := c.u32(); return err }},
		{"bytes", func(c *cursor) error { _, err := c.bytes(4); return err }},
		{"negative bytes", func(c *cursor) error { _, err := c.bytes(-1); return err }},
		{"skip", func(c *cursor) error { return c.skip(5) }},
		{"seek past end", func(c *cursor) error { return c.seek(10) }},
		{"seek negative", func(c *cursor) error { return c.seek(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newCursor([]byte{1, 2, 3})
			require.NoError(t, c.skip(2))

			err := tt.read(c)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrUnexpectedEndOfData)
			assert.Equal(t, 2, c.offset(), "failed read must not move the cursor")
		})
	}
}

func TestCursor_SeekAndBytes(t *testing.T) {
	c := newCursor([]byte{0, 1, 2, 3, 4, 5})

	require.NoError(t, c.seek(6))
	assert.Equal(t, 0, c.remaining())

	require.NoError(t, c.seek(2))
	b, err := c.bytes(3)
	require.NoError(t, err)
	assert.Equal(t, []byte{2, 3, 4}, b)
	assert.Equal(t, 5, c.offset())
}
