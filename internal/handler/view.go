package handler

import (
	"encoding/binary"
	"errors"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
	"github.com/rcarmo/bmpview/internal/logging"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2

	frameImage byte = 0x01
	frameError byte = 0xFF

	frameFlagZstd byte = 1 << 0

	frameHeaderSize = 10
)

// View handles GET /api/view. Every binary message is decoded as a BMP file
// and answered with one image frame:
//
//	[0x01][flags][width u32 LE][height u32 LE][RGBA payload]
//
// Failures are answered with 0xFF followed by a JSON error and the
// connection stays open.
func (h *Handler) View(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			return origin == "" || isAllowedOrigin(origin, h.cfg.Security.AllowedOrigins)
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn("upgrade websocket: %v", err)
		return
	}

	defer func() {
		if err = wsConn.Close(); err != nil {
			logging.Debug("error closing websocket: %v", err)
		}
	}()

	compress := h.cfg.Decoder.FrameCompression == "zstd"
	switch r.URL.Query().Get("compression") {
	case "zstd":
		compress = true
	case "none":
		compress = false
	}

	// Leave room for the websocket framing around the largest allowed file.
	wsConn.SetReadLimit(h.cfg.Decoder.MaxFileSize + 1024)

	logging.Info("viewer connected from %s (zstd=%t)", r.RemoteAddr, compress)

	ctx := r.Context()
	for {
		msgType, data, err := wsConn.ReadMessage()
		if err != nil {
			if errors.Is(err, websocket.ErrReadLimit) {
				logging.Warn("viewer %s sent an oversized bitmap", r.RemoteAddr)
			} else if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logging.Debug("error reading message from ws: %v", err)
			}
			return
		}

		if msgType != websocket.BinaryMessage {
			if err := wsConn.WriteMessage(websocket.BinaryMessage, errorFrame(errNotBinary)); err != nil {
				return
			}
			continue
		}

		var reply []byte
		img, err := h.decode(ctx, data)
		if err != nil {
			reply = errorFrame(err)
		} else {
			reply = h.imageFrame(img, compress)
		}

		if err := wsConn.WriteMessage(websocket.BinaryMessage, reply); err != nil {
			logging.Debug("failed sending message to ws: %v", err)
			return
		}
	}
}

var errNotBinary = errors.New("bitmaps must be sent as binary messages")

func (h *Handler) imageFrame(img *bmp.Image, compress bool) []byte {
	pix := img.RGBA()

	var flags byte
	if compress {
		flags |= frameFlagZstd
	}

	// EncodeAll appends to the header.
	frame := make([]byte, frameHeaderSize, frameHeaderSize+len(pix))
	frame[0] = frameImage
	frame[1] = flags
	binary.LittleEndian.PutUint32(frame[2:], uint32(img.Width))  // #nosec G115
	binary.LittleEndian.PutUint32(frame[6:], uint32(img.Height)) // #nosec G115

	if compress {
		return h.zenc.EncodeAll(pix, frame)
	}
	return append(frame, pix...)
}

func errorFrame(err error) []byte {
	body := errorJSON(err)
	msg := make([]byte, 1+len(body))
	msg[0] = frameError
	copy(msg[1:], body)
	return msg
}
