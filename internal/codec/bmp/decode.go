// Package bmp decodes Windows BMP/DIB files with a 40-byte
// BITMAPINFOHEADER into a top-down RGB pixel grid.
//
// Supported layouts are 1/4/8/24/32-bit uncompressed, 16/32-bit bitfields,
// RLE8 and RLE4. Decoding is pure: each call owns its cursor and output
// buffer, so concurrent decodes need no coordination.
package bmp

import (
	"context"
	"image"
	"image/color"
)

// Image is a decoded bitmap. Pix holds Width*Height pixels, row-major and
// top-down, three bytes (R, G, B) each.
type Image struct {
	Width  int
	Height int
	Pix    []byte
}

// Limits bounds the geometry DecodeContext accepts. Zero means unlimited.
type Limits struct {
	MaxWidth  int
	MaxHeight int
}

func (l Limits) check(ih InfoHeader) error {
	if l.MaxWidth > 0 && int(ih.Width) > l.MaxWidth {
		return newError(KindUnsupportedGeometry, "width %d exceeds limit %d", ih.Width, l.MaxWidth)
	}
	if l.MaxHeight > 0 && int(ih.Height) > l.MaxHeight {
		return newError(KindUnsupportedGeometry, "height %d exceeds limit %d", ih.Height, l.MaxHeight)
	}
	return nil
}

// Decode decodes a complete BMP file held in data.
func Decode(data []byte) (*Image, error) {
	return DecodeContext(context.Background(), data, Limits{})
}

// DecodeContext is Decode with cancellation and size limits. ctx is checked
// once per pixel row; a cancelled decode returns ctx.Err().
func DecodeContext(ctx context.Context, data []byte, limits Limits) (*Image, error) {
	c := newCursor(data)

	fh, ih, err := parseHeaders(c)
	if err != nil {
		return nil, err
	}
	if err = limits.check(ih); err != nil {
		return nil, err
	}
	if int64(fh.DataOffset) < pixelDataStart {
		return nil, newError(KindNotABitmap, "pixel data offset %d overlaps headers", fh.DataOffset)
	}

	var masks ColorMask
	if ih.BitCount == 16 || ih.BitCount == 32 {
		if masks, err = resolveMasks(c, ih.BitCount, ih.Compression, fh.DataOffset); err != nil {
			return nil, err
		}
	}

	pal := &Palette{}
	if ih.BitCount <= 8 {
		if pal, err = loadPalette(c, ih, fh.DataOffset); err != nil {
			return nil, err
		}
	}

	if err = c.seek(int(fh.DataOffset)); err != nil {
		return nil, err
	}

	pix, err := decodePixels(ctx, c, ih, pal, masks)
	if err != nil {
		return nil, err
	}

	return &Image{Width: int(ih.Width), Height: int(ih.Height), Pix: pix}, nil
}

// DecodeConfig parses and validates only the headers.
func DecodeConfig(data []byte) (Header, error) {
	fh, ih, err := parseHeaders(newCursor(data))
	if err != nil {
		return Header{}, err
	}
	return Header{File: fh, Info: ih}, nil
}

// ColorModel implements image.Image.
func (m *Image) ColorModel() color.Model {
	return color.RGBAModel
}

// Bounds implements image.Image.
func (m *Image) Bounds() image.Rectangle {
	return image.Rect(0, 0, m.Width, m.Height)
}

// At implements image.Image.
func (m *Image) At(x, y int) color.Color {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return color.RGBA{}
	}
	i := (y*m.Width + x) * bytesPerPixel
	return color.RGBA{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2], A: 0xFF}
}

// RGBA returns the pixels as opaque RGBA, four bytes per pixel.
func (m *Image) RGBA() []byte {
	out := make([]byte, m.Width*m.Height*4)
	for i, j := 0, 0; i+2 < len(m.Pix); i, j = i+3, j+4 {
		out[j] = m.Pix[i]
		out[j+1] = m.Pix[i+1]
		out[j+2] = m.Pix[i+2]
		out[j+3] = 0xFF
	}
	return out
}
