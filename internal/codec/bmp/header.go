package bmp

import (
	"fmt"
	"math"
)

const (
	fileHeaderSize = 14
	infoHeaderSize = 40
	pixelDataStart = fileHeaderSize + infoHeaderSize

	dataOffsetPos = 10
)

// Compression is the biCompression field of BITMAPINFOHEADER.
type Compression uint32

const (
	CompressionRGB       Compression = 0
	CompressionRLE8      Compression = 1
	CompressionRLE4      Compression = 2
	CompressionBitfields Compression = 3
)

func (c Compression) String() string {
	switch c {
	case CompressionRGB:
		return "RGB"
	case CompressionRLE8:
		return "RLE8"
	case CompressionRLE4:
		return "RLE4"
	case CompressionBitfields:
		return "BITFIELDS"
	default:
		return fmt.Sprintf("Compression(%d)", uint32(c))
	}
}

// FileHeader is the part of BITMAPFILEHEADER the decoder needs.
type FileHeader struct {
	Signature  [2]byte
	DataOffset uint32 // Offset of the first pixel byte from the start of the file.
}

// InfoHeader is the 40-byte BITMAPINFOHEADER.
type InfoHeader struct {
	HeaderSize      uint32
	Width           int32
	Height          int32
	Planes          uint16 // Informational; not validated.
	BitCount        uint16
	Compression     Compression
	SizeImage       uint32 // Informational; often zero for RGB images.
	XPixelsPerM     int32
	YPixelsPerM     int32
	ColorsUsed      uint32
	ColorsImportant uint32
}

// Header groups both headers for callers that only want the metadata.
type Header struct {
	File FileHeader
	Info InfoHeader
}

func validBitCount(n uint16) bool {
	switch n {
	case 1, 4, 8, 16, 24, 32:
		return true
	}
	return false
}

// parseHeaders validates the file and info headers and leaves c at byte 54.
func parseHeaders(c *cursor) (FileHeader, InfoHeader, error) {
	var (
		fh  FileHeader
		ih  InfoHeader
		err error
	)

	if len(c.buf) <= fileHeaderSize {
		return fh, ih, newError(KindNotABitmap, "file is only %d bytes", len(c.buf))
	}

	sig, err := c.bytes(2)
	if err != nil {
		return fh, ih, err
	}
	if sig[0] != 'B' || sig[1] != 'M' {
		return fh, ih, newError(KindNotABitmap, "signature %q", sig)
	}
	copy(fh.Signature[:], sig)

	if err = c.seek(dataOffsetPos); err != nil {
		return fh, ih, err
	}
	if fh.DataOffset, err = c.u32(); err != nil {
		return fh, ih, err
	}

	if err = c.seek(fileHeaderSize); err != nil {
		return fh, ih, err
	}

	if ih.HeaderSize, err = c.u32(); err != nil {
		return fh, ih, err
	}
	if ih.HeaderSize != infoHeaderSize {
		return fh, ih, newError(KindInvalidInfoHeaderSize, "expected %d, got %d", infoHeaderSize, ih.HeaderSize)
	}

	if ih.Width, err = c.i32(); err != nil {
		return fh, ih, err
	}
	if ih.Height, err = c.i32(); err != nil {
		return fh, ih, err
	}
	if ih.Width < 0 || ih.Height < 0 {
		return fh, ih, newError(KindUnsupportedGeometry, "%dx%d", ih.Width, ih.Height)
	}
	if int64(ih.Width)*int64(ih.Height) > math.MaxInt32 {
		return fh, ih, newError(KindUnsupportedGeometry, "%dx%d overflows pixel count", ih.Width, ih.Height)
	}

	if ih.Planes, err = c.u16(); err != nil {
		return fh, ih, err
	}
	if ih.BitCount, err = c.u16(); err != nil {
		return fh, ih, err
	}
	if !validBitCount(ih.BitCount) {
		return fh, ih, newError(KindInvalidBitCount, "%d", ih.BitCount)
	}

	compression, err := c.u32()
	if err != nil {
		return fh, ih, err
	}
	ih.Compression = Compression(compression)
	if err = checkCompression(ih.Compression, ih.BitCount); err != nil {
		return fh, ih, err
	}

	if ih.SizeImage, err = c.u32(); err != nil {
		return fh, ih, err
	}
	if ih.XPixelsPerM, err = c.i32(); err != nil {
		return fh, ih, err
	}
	if ih.YPixelsPerM, err = c.i32(); err != nil {
		return fh, ih, err
	}
	if ih.ColorsUsed, err = c.u32(); err != nil {
		return fh, ih, err
	}
	if ih.ColorsImportant, err = c.u32(); err != nil {
		return fh, ih, err
	}

	return fh, ih, nil
}

func checkCompression(c Compression, bitCount uint16) error {
	switch c {
	case CompressionRGB:
		return nil
	case CompressionRLE8:
		if bitCount != 8 {
			return newError(KindInvalidCompression, "RLE8 with %d bits per pixel", bitCount)
		}
	case CompressionRLE4:
		if bitCount != 4 {
			return newError(KindInvalidCompression, "RLE4 with %d bits per pixel", bitCount)
		}
	case CompressionBitfields:
		if bitCount != 16 && bitCount != 32 {
			return newError(KindInvalidCompression, "BITFIELDS with %d bits per pixel", bitCount)
		}
	default:
		return newError(KindInvalidCompression, "%d", uint32(c))
	}
	return nil
}
