// ABOUTME: JSON response helpers and error-to-status mapping.
// ABOUTME: Error bodies use {"detail": "..."}.
package api

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"
	"github.com/harperreed/rocketry/internal/ingest"
	"github.com/harperreed/rocketry/internal/logging"
	"github.com/harperreed/rocketry/internal/storage"
	"github.com/harperreed/rocketry/internal/validation"
)

// errorResponse is the body of every non-2xx JSON response.
type errorResponse struct {
	Detail string `json:"detail"`
}

type messageResponse struct {
	Message string `json:"mensagem"`
}

func respondJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		logging.Error().Err(err).Msg("failed to marshal JSON response")
		w.WriteHeader(http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write(data); err != nil {
		logging.Error().Err(err).Msg("failed to write JSON response")
	}
}

func respondError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, errorResponse{Detail: detail})
}

// respondErr maps an error to its status and writes it. Server-side failures
// are logged with the request context and reported without internals.
func respondErr(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	detail := err.Error()

	switch {
	case status >= 500:
		logging.Ctx(r.Context()).Error().Err(err).Msg("request failed")
		detail = "erro interno do servidor"
		if storage.IsStorageError(err) {
			detail = "erro de banco de dados"
		}
	case status == http.StatusNotFound:
		detail = "experimento não encontrado"
	}

	respondError(w, status, detail)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case validation.IsValidationError(err), errors.Is(err, ingest.ErrMalformedInput):
		return http.StatusBadRequest
	case errors.Is(err, errBodyTooLarge):
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}
