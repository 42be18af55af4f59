package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rcarmo/bmpview/internal/codec/bmp"
	"github.com/rcarmo/bmpview/internal/logging"
)

// errTooLarge marks a request body over Decoder.MaxFileSize.
var errTooLarge = errors.New("bitmap exceeds maximum file size")

type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// classify maps an error to an HTTP status and a short machine-readable code.
// Decode failures use the decoder's kind name as the code.
func classify(err error) (int, string) {
	var de *bmp.DecodeError
	switch {
	case errors.As(err, &de):
		return http.StatusUnprocessableEntity, de.Kind.String()
	case errors.Is(err, errTooLarge):
		return http.StatusRequestEntityTooLarge, "TooLarge"
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, "Timeout"
	case errors.Is(err, ErrBusy):
		return http.StatusServiceUnavailable, "Busy"
	case errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable, "Canceled"
	default:
		return http.StatusInternalServerError, "Internal"
	}
}

func errorJSON(err error) []byte {
	_, code := classify(err)
	b, mErr := json.Marshal(errorBody{Error: code, Message: err.Error()})
	if mErr != nil {
		return []byte(`{"error":"Internal"}`)
	}
	return b
}

func writeError(w http.ResponseWriter, err error) {
	status, _ := classify(err)
	if status >= http.StatusInternalServerError {
		logging.Error("request failed: %v", err)
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(errorJSON(err))
}
