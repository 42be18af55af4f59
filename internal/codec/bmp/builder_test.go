package bmp

import (
	"bytes"
	"encoding/binary"
)

// testBitmap assembles a BMP file for tests. Zero-valued fields get sane
// defaults: a 40-byte info header and a data offset right after the masks
// and palette.
type testBitmap struct {
	width, height int32
	bitCount      uint16
	compression   Compression
	headerSize    uint32
	colorsUsed    uint32
	masks         []uint32
	palette       []RGB
	reserved      byte // palette reserved byte
	pixels        []byte
	dataOffset    uint32
}

func (b testBitmap) bytes() []byte {
	headerSize := b.headerSize
	if headerSize == 0 {
		headerSize = infoHeaderSize
	}
	offset := b.dataOffset
	if offset == 0 {
		offset = uint32(pixelDataStart + len(b.masks)*4 + len(b.palette)*4)
	}

	buf := new(bytes.Buffer)
	buf.WriteString("BM")
	_ = binary.Write(buf, binary.LittleEndian, uint32(int(offset)+len(b.pixels)))
	_ = binary.Write(buf, binary.LittleEndian, uint32(0)) // reserved1, reserved2
	_ = binary.Write(buf, binary.LittleEndian, offset)

	_ = binary.Write(buf, binary.LittleEndian, headerSize)
	_ = binary.Write(buf, binary.LittleEndian, b.width)
	_ = binary.Write(buf, binary.LittleEndian, b.height)
	_ = binary.Write(buf, binary.LittleEndian, uint16(1))
	_ = binary.Write(buf, binary.LittleEndian, b.bitCount)
	_ = binary.Write(buf, binary.LittleEndian, uint32(b.compression))
	_ = binary.Write(buf, binary.LittleEndian, uint32(len(b.pixels)))
	_ = binary.Write(buf, binary.LittleEndian, int32(2835))
	_ = binary.Write(buf, binary.LittleEndian, int32(2835))
	_ = binary.Write(buf, binary.LittleEndian, b.colorsUsed)
	_ = binary.Write(buf, binary.LittleEndian, uint32(0))

	for _, m := range b.masks {
		_ = binary.Write(buf, binary.LittleEndian, m)
	}
	for _, c := range b.palette {
		buf.Write([]byte{c.B, c.G, c.R, b.reserved})
	}
	for buf.Len() < int(offset) {
		buf.WriteByte(0)
	}
	buf.Write(b.pixels)

	return buf.Bytes()
}

func grayPalette(n int) []RGB {
	p := make([]RGB, n)
	for i := range p {
		v := byte(i * 255 / max(n-1, 1))
		p[i] = RGB{R: v, G: v, B: v}
	}
	return p
}

func pixelAt(m *Image, x, y int) RGB {
	i := (y*m.Width + x) * bytesPerPixel
	return RGB{R: m.Pix[i], G: m.Pix[i+1], B: m.Pix[i+2]}
}
