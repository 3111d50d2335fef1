package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"socialhub/internal/auth"
	"socialhub/internal/social"
)

const maxBodyBytes = 1 << 20

// payload is the envelope of every API response.
type payload map[string]any

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body payload) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("failed to write response", zap.Error(err))
	}
}

func (h *Handler) ok(w http.ResponseWriter, status int, body payload) {
	if body == nil {
		body = payload{}
	}
	body["success"] = true
	h.writeJSON(w, status, body)
}

// fail converts err into a failure payload. Unexpected errors are logged
// and answered with a generic message.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status, message := classify(err)
	if status == http.StatusInternalServerError {
		h.logger.Error("request failed",
			zap.String("op", op),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err))
		message = fmt.Sprintf("Not able to %s", op)
	}
	h.writeJSON(w, status, payload{"success": false, "message": message})
}

func classify(err error) (int, string) {
	switch {
	case errors.Is(err, social.ErrUnauthenticated):
		return http.StatusUnauthorized, err.Error()
	case errors.Is(err, social.ErrForbidden):
		return http.StatusForbidden, err.Error()
	case errors.Is(err, social.ErrPostNotFound), errors.Is(err, social.ErrUserNotFound):
		return http.StatusNotFound, err.Error()
	case errors.Is(err, social.ErrSelfFollow),
		errors.Is(err, social.ErrContentRequired),
		errors.Is(err, social.ErrInvalidProfile),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest, err.Error()
	default:
		return http.StatusInternalServerError, "internal error"
	}
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: request body is empty", errBadRequest)
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func viewer(r *http.Request) auth.Identity {
	return auth.FromContext(r.Context())
}
