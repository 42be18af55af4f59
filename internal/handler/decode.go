package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strconv"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
)

const (
	formatPNG  = "png"
	formatJSON = "json"
	formatRGBA = "rgba"
)

// headerInfo is the ?format=json response.
type headerInfo struct {
	Width       int32  `json:"width"`
	Height      int32  `json:"height"`
	BitCount    uint16 `json:"bitCount"`
	Compression string `json:"compression"`
	ColorsUsed  uint32 `json:"colorsUsed"`
	DataOffset  uint32 `json:"dataOffset"`
	FileSize    int    `json:"fileSize"`
}

// Decode handles POST /api/decode. The body is a BMP file; ?format selects
// png (default), json header info or raw rgba.
func (h *Handler) Decode(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatPNG
	}
	if format != formatPNG && format != formatJSON && format != formatRGBA {
		http.Error(w, fmt.Sprintf("unknown format %q", format), http.StatusBadRequest)
		return
	}

	data, err := readBody(w, r, h.cfg.Decoder.MaxFileSize)
	if err != nil {
		writeError(w, err)
		return
	}

	if format == formatJSON {
		hdr, err := bmp.DecodeConfig(data)
		if err != nil {
			writeError(w, err)
			return
		}
		writeHeaderInfo(w, hdr, len(data))
		return
	}

	img, err := h.decode(r.Context(), data)
	if err != nil {
		writeError(w, err)
		return
	}

	if format == formatRGBA {
		pix := img.RGBA()
		w.Header().Set("Content-Type", "application/octet-stream")
		w.Header().Set("Content-Length", strconv.Itoa(len(pix)))
		w.Header().Set("X-Image-Width", strconv.Itoa(img.Width))
		w.Header().Set("X-Image-Height", strconv.Itoa(img.Height))
		_, _ = w.Write(pix)
		return
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, fmt.Errorf("encode png: %w", err))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	_, _ = buf.WriteTo(w)
}

// readBody reads at most limit bytes of the request body.
func readBody(w http.ResponseWriter, r *http.Request, limit int64) ([]byte, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, limit))
	if err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errTooLarge
		}
		return nil, fmt.Errorf("read body: %w", err)
	}
	return data, nil
}

func writeHeaderInfo(w http.ResponseWriter, hdr bmp.Header, size int) {
	info := headerInfo{
		Width:       hdr.Info.Width,
		Height:      hdr.Info.Height,
		BitCount:    hdr.Info.BitCount,
		Compression: hdr.Info.Compression.String(),
		ColorsUsed:  hdr.Info.ColorsUsed,
		DataOffset:  hdr.File.DataOffset,
		FileSize:    size,
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(info)
}
