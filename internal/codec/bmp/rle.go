package bmp

import "context"

// RLE escape codes, the second byte of a pair whose first byte is zero.
const (
	rleEndOfLine   = 0
	rleEndOfBitmap = 1
	rleDelta       = 2
)

// rleDecoder runs the BI_RLE8/BI_RLE4 byte-pair state machine. y is the
// top-down output row; it starts at the bottom row and decreases.
type rleDecoder struct {
	pix    []byte
	width  int
	height int
	pal    *Palette
	nibble bool // RLE4: codes are packed two per byte, high nibble first

	x, y int
}

func (d *rleDecoder) decode(ctx context.Context, c *cursor) error {
	d.x, d.y = 0, d.height-1

	for {
		// Every row consumed and no trailing end-of-bitmap marker.
		if d.y < 0 && c.remaining() == 0 {
			return nil
		}

		count, err := c.u8()
		if err != nil {
			return err
		}
		code, err := c.u8()
		if err != nil {
			return err
		}

		if count > 0 {
			if err := d.encodedRun(int(count), code); err != nil {
				return err
			}
			continue
		}

		switch code {
		case rleEndOfLine:
			d.x = 0
			d.y--
			if err := ctx.Err(); err != nil {
				return err
			}
		case rleEndOfBitmap:
			return nil
		case rleDelta:
			if err := d.delta(c); err != nil {
				return err
			}
		default:
			if err := d.absoluteRun(c, int(code)); err != nil {
				return err
			}
		}
	}
}

// reserve fails unless n pixels fit in the current row.
func (d *rleDecoder) reserve(n int) error {
	if d.y < 0 || d.y >= d.height {
		return newError(KindMalformedRunLength, "run of %d on row %d outside %d rows", n, d.y, d.height)
	}
	if d.x+n > d.width {
		return newError(KindMalformedRunLength, "run of %d at column %d exceeds width %d", n, d.x, d.width)
	}
	return nil
}

func (d *rleDecoder) put(index byte) {
	i := (d.y*d.width + d.x) * bytesPerPixel
	c := d.pal.colors[index]
	d.pix[i] = c.R
	d.pix[i+1] = c.G
	d.pix[i+2] = c.B
	d.x++
}

func (d *rleDecoder) encodedRun(n int, code byte) error {
	if err := d.reserve(n); err != nil {
		return err
	}
	if !d.nibble {
		for i := 0; i < n; i++ {
			d.put(code)
		}
		return nil
	}
	hi, lo := code>>4, code&0x0F
	for i := 0; i < n; i++ {
		if i&1 == 0 {
			d.put(hi)
		} else {
			d.put(lo)
		}
	}
	return nil
}

// absoluteRun copies n literal codes. The literal block is padded to an even
// number of bytes.
func (d *rleDecoder) absoluteRun(c *cursor, n int) error {
	size := n
	if d.nibble {
		size = (n + 1) / 2
	}

	data, err := c.bytes(size)
	if err != nil {
		return err
	}
	if size&1 == 1 {
		if err := c.skip(1); err != nil {
			return err
		}
	}

	if err := d.reserve(n); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if !d.nibble {
			d.put(data[i])
			continue
		}
		b := data[i>>1]
		if i&1 == 0 {
			d.put(b >> 4)
		} else {
			d.put(b & 0x0F)
		}
	}
	return nil
}

// delta moves the write position by two signed bytes: dx to the right and
// dy up (towards earlier rows), without painting.
func (d *rleDecoder) delta(c *cursor) error {
	rawX, err := c.u8()
	if err != nil {
		return err
	}
	rawY, err := c.u8()
	if err != nil {
		return err
	}
	dx, dy := int(int8(rawX)), int(int8(rawY)) // #nosec G115

	x, y := d.x+dx, d.y-dy
	if x < 0 || x > d.width || y < 0 || y >= d.height {
		return newError(KindMalformedRunLength, "delta (%d,%d) from (%d,%d) moves outside %dx%d", dx, dy, d.x, d.y, d.width, d.height)
	}
	d.x, d.y = x, y
	return nil
}
