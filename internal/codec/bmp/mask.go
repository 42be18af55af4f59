package bmp

import "math/bits"

// Default masks for images without BI_BITFIELDS.
var (
	defaultMask16 = ColorMask{Red: 0x7C00, Green: 0x03E0, Blue: 0x001F}
	defaultMask32 = ColorMask{Red: 0x00FF0000, Green: 0x0000FF00, Blue: 0x000000FF}
)

// ColorMask holds the channel masks of a 16- or 32-bit pixel word.
type ColorMask struct {
	Red, Green, Blue uint32
}

// channel is a mask with its precomputed shift and width.
type channel struct {
	mask  uint32
	shift uint
	max   uint64 // 2^width - 1
}

func newChannel(mask uint32) channel {
	if mask == 0 {
		return channel{}
	}
	width := bits.OnesCount32(mask)
	return channel{
		mask:  mask,
		shift: uint(bits.TrailingZeros32(mask)),
		max:   uint64(1)<<uint(width) - 1,
	}
}

// extract isolates the channel from word and scales it to 0-255.
func (ch channel) extract(word uint32) byte {
	if ch.max == 0 {
		return 0
	}
	return ch.normalize((word & ch.mask) >> ch.shift)
}

// normalize maps raw in [0, 2^width-1] to [0, 255], rounding to nearest.
func (ch channel) normalize(raw uint32) byte {
	if ch.max == 0 {
		return 0
	}
	v := (uint64(raw)*255 + ch.max/2) / ch.max
	if v > 255 {
		// Only reachable for non-contiguous masks.
		v = 255
	}
	return byte(v)
}

type maskSet [3]channel

func (m ColorMask) channels() maskSet {
	return maskSet{newChannel(m.Red), newChannel(m.Green), newChannel(m.Blue)}
}

// resolveMasks reads explicit BI_BITFIELDS masks or falls back to the
// defaults for bitCount. The reserved fourth mask slot is skipped only when
// it lies before the pixel data.
func resolveMasks(c *cursor, bitCount uint16, compression Compression, dataOffset uint32) (ColorMask, error) {
	if compression != CompressionBitfields {
		if bitCount == 16 {
			return defaultMask16, nil
		}
		return defaultMask32, nil
	}

	var (
		m   ColorMask
		err error
	)
	if m.Red, err = c.u32(); err != nil {
		return m, err
	}
	if m.Green, err = c.u32(); err != nil {
		return m, err
	}
	if m.Blue, err = c.u32(); err != nil {
		return m, err
	}

	if int64(dataOffset) >= int64(c.offset())+4 && c.remaining() >= 4 {
		if err := c.skip(4); err != nil {
			return m, err
		}
	}

	return m, nil
}
