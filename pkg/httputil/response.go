package httputil

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	api_models "nebula-backend/internal/models"

	"github.com/rs/zerolog/log"
)

// ErrBodyTooLarge is returned by DecodeJSON when the body exceeds the limit.
var ErrBodyTooLarge = errors.New("request body too large")

// RespondJSON writes a JSON response with the given status code and payload.
func RespondJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		// Can't write header again here, just log the error
		log.Error().Err(err).Int("status", statusCode).Msg("encoding JSON response failed")
	}
}

// RespondError writes a JSON error response with the given status code and message.
func RespondError(w http.ResponseWriter, statusCode int, message string) {
	RespondJSON(w, statusCode, api_models.ErrorResponse{Error: message})
}

// RespondNotice is RespondError with a localized notice for the client.
func RespondNotice(w http.ResponseWriter, statusCode int, message string, notice api_models.Notice) {
	RespondJSON(w, statusCode, api_models.ErrorResponse{Error: message, Notice: &notice})
}

// DecodeJSON reads a JSON body of at most maxBytes into dst. Unknown fields
// are ignored.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, dst interface{}) error {
	defer r.Body.Close()
	body := io.Reader(r.Body)
	if maxBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, maxBytes)
	}
	if err := json.NewDecoder(body).Decode(dst); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return ErrBodyTooLarge
		}
		return fmt.Errorf("invalid request payload: %w", err)
	}
	return nil
}
