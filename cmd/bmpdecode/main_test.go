package main

import (
	"bytes"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
)

// twoPixelBMP is a 2x1 24-bit bitmap: blue then green.
var twoPixelBMP = []byte{
	'B', 'M', 62, 0, 0, 0, 0, 0, 0, 0, 54, 0, 0, 0,
	40, 0, 0, 0, 2, 0, 0, 0, 1, 0, 0, 0, 1, 0, 24, 0,
	0, 0, 0, 0, 8, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
	0, 0, 0, 0, 0, 0, 0, 0,
	0xFF, 0x00, 0x00, 0x00, 0xFF, 0x00, 0x00, 0x00,
}

func writeInput(t *testing.T, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "in.bmp")
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

func TestParseFlags(t *testing.T) {
	opts, err := parseFlags([]string{"-in", "photo.bmp"})
	require.NoError(t, err)
	assert.Equal(t, "photo.png", opts.out)
	assert.Equal(t, "info", opts.logLevel)
	assert.Equal(t, defaultMaxWidth, opts.maxWidth)
	assert.Equal(t, defaultMaxHeight, opts.maxHeight)

	_, err = parseFlags(nil)
	assert.EqualError(t, err, "missing -in")
}

func TestRun_WritesPNG(t *testing.T) {
	in := writeInput(t, twoPixelBMP)
	out := filepath.Join(filepath.Dir(in), "out.png")

	require.NoError(t, run([]string{"-in", in, "-out", out}, &bytes.Buffer{}))

	f, err := os.Open(out)
	require.NoError(t, err)
	defer f.Close()

	img, err := png.Decode(f)
	require.NoError(t, err)
	assert.Equal(t, color.RGBA{B: 0xFF, A: 0xFF}, color.RGBAModel.Convert(img.At(0, 0)))
	assert.Equal(t, color.RGBA{G: 0xFF, A: 0xFF}, color.RGBAModel.Convert(img.At(1, 0)))
}

func TestRun_Info(t *testing.T) {
	var out bytes.Buffer
	require.NoError(t, run([]string{"-info", "-in", writeInput(t, twoPixelBMP)}, &out))

	assert.Contains(t, out.String(), "size:         2x1")
	assert.Contains(t, out.String(), "compression:  RGB")
	assert.Contains(t, out.String(), "data offset:  54")
}

func TestRun_Errors(t *testing.T) {
	err := run([]string{"-in", filepath.Join(t.TempDir(), "absent.bmp")}, &bytes.Buffer{})
	assert.ErrorContains(t, err, "read input")

	err = run([]string{"-in", writeInput(t, twoPixelBMP[:60])}, &bytes.Buffer{})
	assert.ErrorIs(t, err, bmp.ErrUnexpectedEndOfData)

	err = run([]string{"-info", "-in", writeInput(t, []byte("PK\x03\x04"))}, &bytes.Buffer{})
	assert.ErrorIs(t, err, bmp.ErrNotABitmap)
}

// hugeRLE8 declares a 20000x20000 RLE8 image whose data is only an
// end-of-bitmap marker.
func hugeRLE8() []byte {
	data := []byte{
		'B', 'M', 0, 0, 0, 0, 0, 0, 0, 0, 54, 4, 0, 0,
		40, 0, 0, 0, 0x20, 0x4E, 0, 0, 0x20, 0x4E, 0, 0, 1, 0, 8, 0,
		1, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0,
		0, 0, 0, 0, 0, 0, 0, 0,
	}
	data = append(data, make([]byte, 256*4)...)
	return append(data, 0, 1)
}

func TestRun_GeometryLimits(t *testing.T) {
	in := writeInput(t, hugeRLE8())

	err := run([]string{"-in", in}, &bytes.Buffer{})
	assert.ErrorIs(t, err, bmp.ErrUnsupportedGeometry)

	err = run([]string{"-in", in, "-max-width", "30000", "-max-height", "100"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, bmp.ErrUnsupportedGeometry)

	small := writeInput(t, twoPixelBMP)
	err = run([]string{"-in", small, "-max-width", "1"}, &bytes.Buffer{})
	assert.ErrorIs(t, err, bmp.ErrUnsupportedGeometry)

	out := filepath.Join(filepath.Dir(small), "ok.png")
	require.NoError(t, run([]string{"-in", small, "-out", out, "-max-width", "2", "-max-height", "1"}, &bytes.Buffer{}))
}
