// Package handler serves decoded bitmaps over HTTP and websocket.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/klauspost/compress/zstd"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
	"github.com/rcarmo/bmpview/internal/config"
	"github.com/rcarmo/bmpview/internal/logging"
)

// Handler owns the decode limits and shared resources for all routes.
type Handler struct {
	cfg     *config.Config
	limiter *Limiter
	zenc    *zstd.Encoder
}

// New builds a Handler. A nil cfg falls back to the global configuration,
// then to environment defaults.
func New(cfg *config.Config) (*Handler, error) {
	if cfg == nil {
		cfg = config.GetGlobalConfig()
	}
	if cfg == nil {
		var err error
		if cfg, err = config.Load(); err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	return &Handler{
		cfg:     cfg,
		limiter: NewLimiter(cfg.Security.MaxConnections),
		zenc:    enc,
	}, nil
}

// Close releases the frame encoder.
func (h *Handler) Close() error {
	return h.zenc.Close()
}

// Register mounts every route on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", h.Health)
	mux.HandleFunc("/api/decode", h.Decode)
	mux.HandleFunc("/api/view", h.View)
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (h *Handler) limits() bmp.Limits {
	return bmp.Limits{
		MaxWidth:  h.cfg.Decoder.MaxWidth,
		MaxHeight: h.cfg.Decoder.MaxHeight,
	}
}

// decode runs one bounded decode: it waits for a limiter slot, then decodes
// under the configured timeout.
func (h *Handler) decode(ctx context.Context, data []byte) (*bmp.Image, error) {
	if err := h.limiter.Acquire(ctx); err != nil {
		return nil, err
	}
	defer h.limiter.Release()

	ctx, cancel := context.WithTimeout(ctx, h.cfg.Decoder.Timeout)
	defer cancel()

	img, err := bmp.DecodeContext(ctx, data, h.limits())
	if err != nil {
		var de *bmp.DecodeError
		if errors.As(err, &de) {
			logging.Debug("decode rejected: %v", err)
		} else {
			logging.Warn("decode aborted: %v", err)
		}
		return nil, err
	}

	logging.Debug("decoded %dx%d bitmap (%d bytes in)", img.Width, img.Height, len(data))
	return img, nil
}
