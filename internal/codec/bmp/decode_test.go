package bmp

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	xbmp "golang.org/x/image/bmp"
)

func TestDecode_GrayRoundTrip(t *testing.T) {
	// x/image/bmp writes *image.Gray as 8-bit with a 256-entry grey palette.
	src := image.NewGray(image.Rect(0, 0, 13, 7))
	for y := 0; y < 7; y++ {
		for x := 0; x < 13; x++ {
			src.SetGray(x, y, color.Gray{Y: uint8(x*19 + y*7)})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, xbmp.Encode(&buf, src))

	h, err := DecodeConfig(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, uint16(8), h.Info.BitCount)

	m, err := Decode(buf.Bytes())
	require.NoError(t, err)
	require.Equal(t, 13, m.Width)
	require.Equal(t, 7, m.Height)

	for y := 0; y < 7; y++ {
		for x := 0; x < 13; x++ {
			v := src.GrayAt(x, y).Y
			require.Equal(t, RGB{R: v, G: v, B: v}, pixelAt(m, x, y), "(%d,%d)", x, y)
		}
	}
}

func TestDecode_MatchesReferenceDecoder(t *testing.T) {
	rgba := image.NewRGBA(image.Rect(0, 0, 9, 5))
	for y := 0; y < 5; y++ {
		for x := 0; x < 9; x++ {
			rgba.Set(x, y, color.RGBA{R: uint8(x * 28), G: uint8(y * 50), B: uint8(x ^ y), A: 0xFF})
		}
	}
	paletted := image.NewPaletted(image.Rect(0, 0, 6, 3), color.Palette{
		color.RGBA{R: 0xFF, A: 0xFF},
		color.RGBA{G: 0xFF, A: 0xFF},
		color.RGBA{B: 0xFF, A: 0xFF},
		color.RGBA{R: 0x12, G: 0x34, B: 0x56, A: 0xFF},
	})
	for i := range paletted.Pix {
		paletted.Pix[i] = uint8(i % 4)
	}

	tests := []struct {
		name string
		img  image.Image
	}{
		{"24-bit opaque RGBA", rgba},
		{"8-bit paletted", paletted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, xbmp.Encode(&buf, tt.img))

			want, err := xbmp.Decode(bytes.NewReader(buf.Bytes()))
			require.NoError(t, err)

			got, err := Decode(buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, want.Bounds(), got.Bounds())

			b := want.Bounds()
			for y := b.Min.Y; y < b.Max.Y; y++ {
				for x := b.Min.X; x < b.Max.X; x++ {
					w := color.RGBAModel.Convert(want.At(x, y))
					require.Equal(t, w, got.At(x, y), "(%d,%d)", x, y)
				}
			}
		})
	}
}

func TestDecode_ErrorKinds(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		kind ErrorKind
	}{
		{"ten bytes", make([]byte, 10), KindNotABitmap},
		{"header size 108", testBitmap{headerSize: 108, width: 1, height: 1, bitCount: 8}.bytes(), KindInvalidInfoHeaderSize},
		{"bit count 2", testBitmap{width: 1, height: 1, bitCount: 2}.bytes(), KindInvalidBitCount},
		{"offset inside headers", testBitmap{width: 1, height: 1, bitCount: 24, dataOffset: 20, pixels: make([]byte, 40)}.bytes(), KindNotABitmap},
		{
			"RLE run too long",
			testBitmap{width: 2, height: 1, bitCount: 8, compression: CompressionRLE8, palette: grayPalette(256), pixels: []byte{9, 1, 0, 1}}.bytes(),
			KindMalformedRunLength,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := Decode(tt.data)
			require.Error(t, err)
			assert.Nil(t, m, "no partial image on failure")

			var de *DecodeError
			require.True(t, errors.As(err, &de))
			assert.Equal(t, tt.kind, de.Kind)
			assert.Contains(t, err.Error(), tt.kind.String())
		})
	}
}

func TestDecodeError_Is(t *testing.T) {
	err := newError(KindMalformedRunLength, "run of 9")

	assert.ErrorIs(t, err, ErrMalformedRunLength)
	assert.NotErrorIs(t, err, ErrUnexpectedEndOfData)
	assert.ErrorIs(t, err, &DecodeError{Kind: KindMalformedRunLength, Detail: "run of 9"})
	assert.NotErrorIs(t, err, &DecodeError{Kind: KindMalformedRunLength, Detail: "other"})
	assert.Equal(t, "bmp: MalformedRunLength: run of 9", err.Error())
	assert.Equal(t, "bmp: NotABitmap", ErrNotABitmap.Error())
	assert.Equal(t, "ErrorKind(42)", ErrorKind(42).String())
}

func TestDecodeContext_Limits(t *testing.T) {
	data := testBitmap{width: 8, height: 2, bitCount: 24, pixels: make([]byte, 24*2)}.bytes()

	_, err := DecodeContext(context.Background(), data, Limits{MaxWidth: 4})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)

	_, err = DecodeContext(context.Background(), data, Limits{MaxHeight: 1})
	assert.ErrorIs(t, err, ErrUnsupportedGeometry)

	m, err := DecodeContext(context.Background(), data, Limits{MaxWidth: 8, MaxHeight: 2})
	require.NoError(t, err)
	assert.Equal(t, 8, m.Width)
}

func TestImage_ImageInterface(t *testing.T) {
	m := &Image{Width: 2, Height: 1, Pix: []byte{1, 2, 3, 4, 5, 6}}

	var _ image.Image = m
	assert.Equal(t, color.RGBAModel, m.ColorModel())
	assert.Equal(t, image.Rect(0, 0, 2, 1), m.Bounds())
	assert.Equal(t, color.RGBA{R: 4, G: 5, B: 6, A: 0xFF}, m.At(1, 0))
	assert.Equal(t, color.RGBA{}, m.At(2, 0))
	assert.Equal(t, []byte{1, 2, 3, 0xFF, 4, 5, 6, 0xFF}, m.RGBA())

	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, m))
	back, err := png.Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, uint8(4), color.RGBAModel.Convert(back.At(1, 0)).(color.RGBA).R)
}

func TestDecode_Concurrent(t *testing.T) {
	data := testBitmap{
		width: 5, height: 3, bitCount: 8,
		palette: grayPalette(256),
		pixels:  bytes.Repeat([]byte{9, 9, 9, 9, 9, 0, 0, 0}, 3),
	}.bytes()

	var wg sync.WaitGroup
	errs := make([]error, 16)
	for i := range errs {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := Decode(data)
			if err == nil && pixelAt(m, 4, 2) != (RGB{R: 9, G: 9, B: 9}) {
				err = errors.New("wrong pixel")
			}
			errs[i] = err
		}(i)
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
}
