package bmp

import (
	"context"
	"encoding/binary"
	"math"
)

const bytesPerPixel = 3

// maxPixelBytes caps the output buffer at what a slice length can hold.
var maxPixelBytes int64 = math.MaxInt

// pixelBufferSize returns width*height*3, or UnsupportedGeometry when the
// product does not fit an int on this platform.
func pixelBufferSize(width, height int) (int, error) {
	n := int64(width) * int64(height) * bytesPerPixel
	if n > maxPixelBytes {
		return 0, newError(KindUnsupportedGeometry, "%dx%d needs %d output bytes", width, height, n)
	}
	return int(n), nil
}

// decodePixels dispatches on the compression kind and returns a top-down RGB
// buffer of width*height*3 bytes. Pixels never written stay black.
func decodePixels(ctx context.Context, c *cursor, ih InfoHeader, pal *Palette, masks ColorMask) ([]byte, error) {
	width, height := int(ih.Width), int(ih.Height)

	switch ih.Compression {
	case CompressionRLE8, CompressionRLE4:
		size, err := pixelBufferSize(width, height)
		if err != nil {
			return nil, err
		}
		pix := make([]byte, size)
		d := &rleDecoder{
			pix:    pix,
			width:  width,
			height: height,
			pal:    pal,
			nibble: ih.Compression == CompressionRLE4,
		}
		if err := d.decode(ctx, c); err != nil {
			return nil, err
		}
		return pix, nil
	default:
		return decodeUncompressed(ctx, c, ih, pal, masks)
	}
}

// rowStride is the padded byte width of one stored row.
func rowStride(bitCount uint16, width int) int {
	return ((int(bitCount)*width + 31) / 32) * 4
}

type rowDecoder func(dst, src []byte, width int)

func decodeUncompressed(ctx context.Context, c *cursor, ih InfoHeader, pal *Palette, masks ColorMask) ([]byte, error) {
	width, height := int(ih.Width), int(ih.Height)
	stride := rowStride(ih.BitCount, width)

	// Check up front so a truncated file does not cost a full-size allocation.
	if need := int64(stride) * int64(height); need > int64(c.remaining()) {
		return nil, newError(KindUnexpectedEndOfData, "pixel data needs %d bytes, have %d", need, c.remaining())
	}

	size, err := pixelBufferSize(width, height)
	if err != nil {
		return nil, err
	}

	decodeRow := rowDecoderFor(ih, pal, masks)
	outStride := width * bytesPerPixel
	pix := make([]byte, size)

	// Stored rows run bottom to top.
	for j := 0; j < height; j++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		src, err := c.bytes(stride)
		if err != nil {
			return nil, err
		}

		y := height - 1 - j
		decodeRow(pix[y*outStride:(y+1)*outStride], src, width)
	}

	return pix, nil
}

func rowDecoderFor(ih InfoHeader, pal *Palette, masks ColorMask) rowDecoder {
	switch ih.BitCount {
	case 1:
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				putRGB(dst, x, pal.colors[src[x>>3]&(0x80>>uint(x&7))])
			}
		}
	case 4:
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				b := src[x>>1]
				if x&1 == 0 {
					b &= 0xF0
				} else {
					b &= 0x0F
				}
				putRGB(dst, x, pal.colors[b])
			}
		}
	case 8:
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				putRGB(dst, x, pal.colors[src[x]])
			}
		}
	case 16:
		ch := masks.channels()
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				putWord(dst, x, uint32(binary.LittleEndian.Uint16(src[x*2:])), ch)
			}
		}
	case 24:
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				s := src[x*3 : x*3+3]
				putRGB(dst, x, RGB{R: s[2], G: s[1], B: s[0]})
			}
		}
	default: // 32
		if ih.Compression == CompressionBitfields {
			ch := masks.channels()
			return func(dst, src []byte, width int) {
				for x := 0; x < width; x++ {
					putWord(dst, x, binary.LittleEndian.Uint32(src[x*4:]), ch)
				}
			}
		}
		return func(dst, src []byte, width int) {
			for x := 0; x < width; x++ {
				s := src[x*4 : x*4+4]
				putRGB(dst, x, RGB{R: s[2], G: s[1], B: s[0]})
			}
		}
	}
}

func putRGB(dst []byte, x int, c RGB) {
	i := x * bytesPerPixel
	dst[i] = c.R
	dst[i+1] = c.G
	dst[i+2] = c.B
}

func putWord(dst []byte, x int, word uint32, ch maskSet) {
	i := x * bytesPerPixel
	dst[i] = ch[0].extract(word)
	dst[i+1] = ch[1].extract(word)
	dst[i+2] = ch[2].extract(word)
}
